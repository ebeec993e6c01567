package vulkan

import (
	"log"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

// MaxFramesInFlight bounds how many presenting submissions per window may
// be pending before swapchain acquisition blocks.
const MaxFramesInFlight = 2

type Device struct {
	debug      bool
	validation bool
	sdlVideo   bool
	sdlVulkan  bool
	destroyed  bool

	globalDriver   core1_0.GlobalDriver
	instanceDriver core1_0.CoreInstanceDriver
	deviceDriver   core1_0.CoreDeviceDriver

	debugDriver        ext_debug_utils.ExtensionDriver
	debugMessenger     ext_debug_utils.DebugUtilsMessenger
	surfaceExtension   khr_surface.ExtensionDriver
	swapchainExtension khr_swapchain.ExtensionDriver

	physicalDevice   core1_0.PhysicalDevice
	properties       *core1_0.PhysicalDeviceProperties
	memoryProperties *core1_0.PhysicalDeviceMemoryProperties
	features         *core1_0.PhysicalDeviceFeatures
	anisotropy       bool
	depthClamp       bool

	queueFamily int
	queue       core1_0.Queue
	commandPool core1_0.CommandPool

	windows      map[gpu.Window]*swapchain
	setLayouts   map[setLayoutKey]core1_0.DescriptorSetLayout
	renderPasses map[renderPassKey]core1_0.RenderPass
	framebuffers map[framebufferKey]core1_0.Framebuffer

	serial    uint64
	submitted []*commandBuffer
	free      []*commandBuffer
	all       []*commandBuffer

	live int
}

var _ gpu.Device = (*Device)(nil)

// New opens the first suitable Vulkan device. With debug set, validation
// layers are enabled when installed.
func New(debug bool) (*Device, error) {
	d := &Device{
		debug:        debug,
		windows:      make(map[gpu.Window]*swapchain),
		setLayouts:   make(map[setLayoutKey]core1_0.DescriptorSetLayout),
		renderPasses: make(map[renderPassKey]core1_0.RenderPass),
		framebuffers: make(map[framebufferKey]core1_0.Framebuffer),
	}

	steps := []func() error{
		d.loadLoader,
		d.createInstance,
		d.setupDebugMessenger,
		d.pickPhysicalDevice,
		d.createLogicalDevice,
		d.createCommandPool,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			d.Destroy()
			return nil, err
		}
	}
	return d, nil
}

func (d *Device) Driver() string { return DriverName }

func (d *Device) ShaderFormats() gpu.ShaderFormat { return Driver{}.Formats() }

func (d *Device) createLogicalDevice() error {
	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	// Makes this device compatible with vulkan portability, necessary to run on mac
	extensions, _, err := d.instanceDriver.EnumerateDeviceExtensionProperties(d.physicalDevice)
	if err != nil {
		return errors.Wrap(err, "failed to enumerate device extensions")
	}

	_, supported := extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	d.anisotropy = d.features.SamplerAnisotropy
	d.depthClamp = d.features.DepthClamp

	d.deviceDriver, _, err = d.instanceDriver.CreateDevice(d.physicalDevice, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos: []core1_0.DeviceQueueCreateInfo{
			{
				QueueFamilyIndex: d.queueFamily,
				QueuePriorities:  []float32{1.0},
			},
		},
		EnabledFeatures: &core1_0.PhysicalDeviceFeatures{
			SamplerAnisotropy: d.anisotropy,
			DepthClamp:        d.depthClamp,
		},
		EnabledExtensionNames: extensionNames,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create logical device")
	}

	d.queue = d.deviceDriver.GetQueue(d.queueFamily, 0)
	d.swapchainExtension = khr_swapchain.CreateExtensionDriverFromCoreDriver(d.deviceDriver)
	return nil
}

func (d *Device) createCommandPool() error {
	pool, _, err := d.deviceDriver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		Flags:            core1_0.CommandPoolCreateResetBuffer,
		QueueFamilyIndex: d.queueFamily,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create command pool")
	}
	d.commandPool = pool
	return nil
}

func (d *Device) AcquireCommandBuffer() (gpu.CommandBuffer, error) {
	if d.destroyed {
		return nil, gpu.ErrDeviceLost
	}
	d.retire()

	var cb *commandBuffer
	if n := len(d.free); n > 0 {
		cb = d.free[n-1]
		d.free = d.free[:n-1]
	} else {
		var err error
		cb, err = d.newCommandBuffer()
		if err != nil {
			return nil, err
		}
	}

	if err := cb.begin(); err != nil {
		d.free = append(d.free, cb)
		return nil, err
	}
	cb.state = gpu.CommandState{}
	return cb, nil
}

// retire recycles every submitted command buffer whose fence has signaled,
// dropping its references so released resources can be destroyed.
func (d *Device) retire() {
	kept := d.submitted[:0]
	for _, cb := range d.submitted {
		res, err := d.deviceDriver.GetFenceStatus(cb.fence)
		if err == nil && res == core1_0.VKSuccess {
			d.recycle(cb)
			continue
		}
		kept = append(kept, cb)
	}
	for i := len(kept); i < len(d.submitted); i++ {
		d.submitted[i] = nil
	}
	d.submitted = kept
}

func (d *Device) retireAll() {
	for _, cb := range d.submitted {
		d.recycle(cb)
	}
	d.submitted = d.submitted[:0]
}

// wait blocks until the submission s has completed.
func (d *Device) wait(s submission) error {
	if !s.pending() {
		return nil
	}
	_, err := d.deviceDriver.WaitForFences(true, common.NoTimeout, s.cb.fence)
	if err != nil {
		return errors.Wrap(err, "failed to wait for frame fence")
	}
	d.retire()
	return nil
}

func (d *Device) WaitForIdle() error {
	if d.destroyed {
		return gpu.ErrDeviceLost
	}
	_, err := d.deviceDriver.DeviceWaitIdle()
	if err != nil {
		return errors.Wrap(err, "failed to wait for device idle")
	}
	d.retireAll()
	return nil
}

// Destroy waits for the device, frees what the device created on its own
// behalf and tears down the instance. It tolerates partial initialization.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true

	if d.deviceDriver != nil {
		_, err := d.deviceDriver.DeviceWaitIdle()
		if err != nil {
			log.Printf("[!] vulkan: wait idle on destroy: %v", err)
		}
		d.retireAll()

		for w, sc := range d.windows {
			log.Printf("[!] vulkan: window still claimed at device destroy")
			d.destroySwapchain(sc)
			d.surfaceExtension.DestroySurface(sc.surface, nil)
			delete(d.windows, w)
		}

		for _, cb := range d.all {
			cb.destroy()
		}
		d.all, d.free = nil, nil

		for key, framebuffer := range d.framebuffers {
			d.deviceDriver.DestroyFramebuffer(framebuffer, nil)
			delete(d.framebuffers, key)
		}
		for key, renderPass := range d.renderPasses {
			d.deviceDriver.DestroyRenderPass(renderPass, nil)
			delete(d.renderPasses, key)
		}
		for key, layout := range d.setLayouts {
			d.deviceDriver.DestroyDescriptorSetLayout(layout, nil)
			delete(d.setLayouts, key)
		}

		if d.commandPool.Initialized() {
			d.deviceDriver.DestroyCommandPool(d.commandPool, nil)
		}
		if d.live > 0 {
			log.Printf("[!] vulkan: device destroyed with %d live resources", d.live)
		}
		d.deviceDriver.DestroyDevice(nil)
	}

	if d.debugMessenger.Initialized() {
		d.debugDriver.DestroyDebugUtilsMessenger(d.debugMessenger, nil)
	}

	if d.instanceDriver != nil {
		d.instanceDriver.DestroyInstance(nil)
	}

	if d.sdlVulkan {
		sdl.VulkanUnloadLibrary()
	}
	if d.sdlVideo {
		sdl.QuitSubSystem(sdl.INIT_VIDEO)
	}
}

func (d *Device) logf(format string, args ...interface{}) {
	if d.debug {
		log.Printf("vulkan: "+format, args...)
	}
}
