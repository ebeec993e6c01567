package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

// pickPhysicalDevice chooses a Vulkan 1.1 device with a graphics queue and
// the swapchain extension, preferring discrete GPUs. Present support depends on
// a surface and is checked when a window is claimed.
func (d *Device) pickPhysicalDevice() error {
	physicalDevices, _, err := d.instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return errors.Wrap(err, "failed to enumerate physical devices")
	}

	best := -1
	for _, device := range physicalDevices {
		family, ok := d.findGraphicsFamily(device)
		if !ok || !d.checkDeviceExtensionSupport(device) {
			continue
		}

		properties, err := d.instanceDriver.GetPhysicalDeviceProperties(device)
		if err != nil || !flipsViewport(properties.APIVersion) {
			continue
		}
		score := deviceScore(properties.DriverType)
		if score <= best {
			continue
		}

		best = score
		d.physicalDevice = device
		d.properties = properties
		d.queueFamily = family
	}

	if best < 0 {
		return errors.Errorf("failed to find a suitable GPU!")
	}

	d.memoryProperties = d.instanceDriver.GetPhysicalDeviceMemoryProperties(d.physicalDevice)
	d.features = d.instanceDriver.GetPhysicalDeviceFeatures(d.physicalDevice)
	d.logf("using %s (%s)", d.properties.DriverName, d.properties.DriverType)
	return nil
}

// flipsViewport reports whether negative viewport heights are core, which
// the render pass needs to keep clip space +Y up.
func flipsViewport(version common.APIVersion) bool {
	return version.IsAtLeast(common.Vulkan1_1)
}

func deviceScore(t core1_0.PhysicalDeviceType) int {
	switch t {
	case core1_0.PhysicalDeviceTypeDiscreteGPU:
		return 3
	case core1_0.PhysicalDeviceTypeIntegratedGPU:
		return 2
	case core1_0.PhysicalDeviceTypeVirtualGPU:
		return 1
	}
	return 0
}

func (d *Device) findGraphicsFamily(device core1_0.PhysicalDevice) (int, bool) {
	queueFamilies := d.instanceDriver.GetPhysicalDeviceQueueFamilyProperties(device)
	for queueFamilyIdx, queueFamily := range queueFamilies {
		if (queueFamily.QueueFlags & core1_0.QueueGraphics) != 0 {
			return queueFamilyIdx, true
		}
	}
	return 0, false
}

func (d *Device) checkDeviceExtensionSupport(device core1_0.PhysicalDevice) bool {
	extensions, _, err := d.instanceDriver.EnumerateDeviceExtensionProperties(device)
	if err != nil {
		return false
	}

	for _, extension := range deviceExtensions {
		_, hasExtension := extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func (d *Device) findMemoryType(typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range d.memoryProperties.MemoryTypes {
		typeBit := uint32(1 << i)

		if (typeFilter&typeBit) != 0 && (memoryType.PropertyFlags&properties) == properties {
			return i, nil
		}
	}

	return 0, errors.Errorf("failed to find any suitable memory type!")
}

func (d *Device) formatSupported(format core1_0.Format, features core1_0.FormatFeatureFlags) bool {
	props := d.instanceDriver.GetPhysicalDeviceFormatProperties(d.physicalDevice, format)
	return props.OptimalTilingFeatures&features == features
}
