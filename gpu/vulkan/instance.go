package vulkan

import (
	"log"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// loadLoader brings up the SDL video subsystem and the Vulkan library SDL
// loads, and creates the global driver from SDL's proc address.
func (d *Device) loadLoader() error {
	if err := sdl.InitSubSystem(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "failed to initialize SDL video")
	}
	d.sdlVideo = true

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		return errors.Wrap(err, "failed to load the Vulkan library")
	}
	d.sdlVulkan = true

	var err error
	d.globalDriver, err = core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "failed to create the global driver")
	}
	return nil
}

func (d *Device) createInstance() error {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    "gpu examples",
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	// Windows are created after the device, so ask SDL for the surface
	// extensions any of its windows needs.
	var noWindow *sdl.Window
	sdlExtensions := noWindow.VulkanGetInstanceExtensions()
	extensions, _, err := d.globalDriver.AvailableExtensions()
	if err != nil {
		return errors.Wrap(err, "failed to enumerate instance extensions")
	}

	for _, ext := range sdlExtensions {
		_, hasExt := extensions[ext]
		if !hasExt {
			return errors.Errorf("createinstance: cannot initialize sdl: missing extension %s", ext)
		}
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if d.debug {
		d.validation = d.validationAvailable(extensions)
	}
	if d.validation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayers...)
		instanceOptions.Next = d.debugMessengerOptions()
	}

	d.instanceDriver, _, err = d.globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return errors.Wrap(err, "failed to create instance")
	}

	d.surfaceExtension = khr_surface.CreateExtensionDriverFromCoreDriver(d.instanceDriver)
	return nil
}

// validationAvailable reports whether the validation layers and the debug
// utils extension are installed. Missing validation is logged, not fatal.
func (d *Device) validationAvailable(extensions map[string]*core1_0.ExtensionProperties) bool {
	if _, ok := extensions[ext_debug_utils.ExtensionName]; !ok {
		log.Printf("validation disabled: missing extension %s", ext_debug_utils.ExtensionName)
		return false
	}

	layers, _, err := d.globalDriver.AvailableLayers()
	if err != nil {
		log.Printf("validation disabled: %v", err)
		return false
	}
	for _, layer := range validationLayers {
		if _, ok := layers[layer]; !ok {
			log.Printf("validation disabled: layer %s not available- install LunarG Vulkan SDK", layer)
			return false
		}
	}
	return true
}

func (d *Device) debugMessengerOptions() ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logDebug,
	}
}

func (d *Device) setupDebugMessenger() error {
	if !d.validation {
		return nil
	}

	var err error
	d.debugDriver = ext_debug_utils.CreateExtensionDriverFromCoreDriver(d.instanceDriver)
	d.debugMessenger, _, err = d.debugDriver.CreateDebugUtilsMessenger(nil, d.debugMessengerOptions())
	if err != nil {
		return errors.Wrap(err, "failed to create debug messenger")
	}
	return nil
}

func logDebug(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	log.Printf("[%s %s] - %s", severity, msgType, data.Message)
	return false
}
