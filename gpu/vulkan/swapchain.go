package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

// sdlWindow is implemented by windows a surface can be created for.
type sdlWindow interface {
	gpu.Window
	SDLWindow() *sdl.Window
}

type SwapChainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// submission names one submit of a command buffer. Command buffers are
// recycled, so the serial tells whether s still refers to pending work.
type submission struct {
	cb     *commandBuffer
	serial uint64
}

func (s submission) pending() bool {
	return s.cb != nil && s.cb.pending && s.cb.serial == s.serial
}

type swapchain struct {
	window  sdlWindow
	surface khr_surface.Surface

	swapchain   khr_swapchain.Swapchain
	format      khr_surface.SurfaceFormat
	extent      core1_0.Extent2D
	windowSize  [2]int
	textures    []*texture
	outOfDate   bool
	initialized bool

	imageAvailable [MaxFramesInFlight]core1_0.Semaphore
	renderFinished []core1_0.Semaphore
	frames         [MaxFramesInFlight]submission
	imagesInFlight []submission
	currentFrame   int
}

// presentation is a swapchain image acquired on a command buffer.
type presentation struct {
	sc         *swapchain
	imageIndex int
	frame      int
}

func (d *Device) ClaimWindow(w gpu.Window) error {
	if w == nil {
		return errors.New("vulkan: nil window")
	}
	win, ok := w.(sdlWindow)
	if !ok {
		return errors.Errorf("vulkan: window %T has no SDL window", w)
	}
	if _, claimed := d.windows[w]; claimed {
		return errors.New("vulkan: window already claimed")
	}

	surface, err := vkng_sdl2.CreateSurface(d.instanceDriver.Instance(), d.surfaceExtension, win.SDLWindow())
	if err != nil {
		return errors.Wrap(err, "failed to create surface")
	}

	supported, _, err := d.surfaceExtension.GetPhysicalDeviceSurfaceSupport(surface, d.physicalDevice, d.queueFamily)
	if err != nil || !supported {
		d.surfaceExtension.DestroySurface(surface, nil)
		if err == nil {
			err = errors.New("graphics queue cannot present to this window")
		}
		return errors.Wrap(err, "failed to claim window")
	}

	sc := &swapchain{window: win, surface: surface}
	for i := range sc.imageAvailable {
		sc.imageAvailable[i], _, err = d.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			d.destroySwapchain(sc)
			d.surfaceExtension.DestroySurface(surface, nil)
			return errors.Wrap(err, "failed to create semaphore")
		}
	}

	if err := d.createSwapchain(sc); err != nil {
		d.destroySwapchain(sc)
		d.surfaceExtension.DestroySurface(surface, nil)
		return err
	}

	d.windows[w] = sc
	return nil
}

func (d *Device) ReleaseWindow(w gpu.Window) {
	sc, ok := d.windows[w]
	if !ok {
		return
	}
	if err := d.WaitForIdle(); err != nil {
		d.logf("release window: %v", err)
	}
	d.destroySwapchain(sc)
	d.surfaceExtension.DestroySurface(sc.surface, nil)
	delete(d.windows, w)
}

func (d *Device) SwapchainTextureFormat(w gpu.Window) gpu.TextureFormat {
	sc, ok := d.windows[w]
	if !ok {
		return gpu.TextureFormatInvalid
	}
	return textureFormatOf(sc.format.Format)
}

func (d *Device) querySwapChainSupport(surface khr_surface.Surface) (SwapChainSupportDetails, error) {
	var details SwapChainSupportDetails
	var err error

	details.Capabilities, _, err = d.surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(surface, d.physicalDevice)
	if err != nil {
		return details, err
	}

	details.Formats, _, err = d.surfaceExtension.GetPhysicalDeviceSurfaceFormats(surface, d.physicalDevice)
	if err != nil {
		return details, err
	}

	details.PresentModes, _, err = d.surfaceExtension.GetPhysicalDeviceSurfacePresentModes(surface, d.physicalDevice)
	return details, err
}

func (d *Device) createSwapchain(sc *swapchain) error {
	swapchainSupport, err := d.querySwapChainSupport(sc.surface)
	if err != nil {
		return errors.Wrap(err, "failed to query swapchain support")
	}
	if len(swapchainSupport.Formats) == 0 || len(swapchainSupport.PresentModes) == 0 {
		return errors.New("vulkan: surface has no formats or present modes")
	}

	surfaceFormat := chooseSwapSurfaceFormat(swapchainSupport.Formats)
	presentMode := chooseSwapPresentMode(swapchainSupport.PresentModes)
	extent := chooseSwapExtent(swapchainSupport.Capabilities, sc.window)

	imageCount := swapchainSupport.Capabilities.MinImageCount + 1
	if swapchainSupport.Capabilities.MaxImageCount > 0 && swapchainSupport.Capabilities.MaxImageCount < imageCount {
		imageCount = swapchainSupport.Capabilities.MaxImageCount
	}

	swapchain, _, err := d.swapchainExtension.CreateSwapchain(nil, khr_swapchain.SwapchainCreateInfo{
		Surface: sc.surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment | core1_0.ImageUsageTransferDst,

		ImageSharingMode: core1_0.SharingModeExclusive,

		PreTransform:   swapchainSupport.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create swapchain")
	}
	sc.swapchain = swapchain
	sc.format = surfaceFormat
	sc.extent = extent
	sc.windowSize[0], sc.windowSize[1] = sc.window.Size()
	sc.initialized = true
	sc.outOfDate = false

	images, _, err := d.swapchainExtension.GetSwapchainImages(swapchain)
	if err != nil {
		return errors.Wrap(err, "failed to get swapchain images")
	}

	format := textureFormatOf(surfaceFormat.Format)
	for _, image := range images {
		view, err := d.createImageView(image, surfaceFormat.Format, core1_0.ImageAspectColor, 1)
		if err != nil {
			return err
		}
		sc.textures = append(sc.textures, &texture{
			info: gpu.TextureCreateInfo{
				Type:   gpu.TextureType2D,
				Format: format,
				Usage:  gpu.TextureUsageColorTarget,
				Width:  extent.Width,
				Height: extent.Height,
			},
			format:    surfaceFormat.Format,
			aspect:    core1_0.ImageAspectColor,
			image:     image,
			view:      view,
			layout:    core1_0.ImageLayoutUndefined,
			swapchain: true,
		})

		semaphore, _, err := d.deviceDriver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
		if err != nil {
			return errors.Wrap(err, "failed to create semaphore")
		}
		sc.renderFinished = append(sc.renderFinished, semaphore)
	}
	sc.imagesInFlight = make([]submission, len(images))
	return nil
}

// cleanupSwapchain destroys the swapchain and everything sized to it but
// keeps the surface and the per-frame semaphores.
func (d *Device) cleanupSwapchain(sc *swapchain) {
	for _, tex := range sc.textures {
		d.dropFramebuffers(tex)
		d.deviceDriver.DestroyImageView(tex.view, nil)
	}
	sc.textures = nil

	for _, semaphore := range sc.renderFinished {
		d.deviceDriver.DestroySemaphore(semaphore, nil)
	}
	sc.renderFinished = nil
	sc.imagesInFlight = nil

	if sc.initialized {
		d.swapchainExtension.DestroySwapchain(sc.swapchain, nil)
		sc.swapchain = khr_swapchain.Swapchain{}
		sc.initialized = false
	}
}

func (d *Device) destroySwapchain(sc *swapchain) {
	d.cleanupSwapchain(sc)
	for i, semaphore := range sc.imageAvailable {
		if semaphore.Initialized() {
			d.deviceDriver.DestroySemaphore(semaphore, nil)
			sc.imageAvailable[i] = core1_0.Semaphore{}
		}
	}
	sc.frames = [MaxFramesInFlight]submission{}
}

func (d *Device) recreateSwapchain(sc *swapchain) error {
	if err := d.WaitForIdle(); err != nil {
		return err
	}
	d.cleanupSwapchain(sc)
	sc.frames = [MaxFramesInFlight]submission{}
	return d.createSwapchain(sc)
}

// acquire waits for the frame slot and the next image of the window's
// swapchain. It returns nil without an error when no image can be
// presented this frame.
func (d *Device) acquire(cb *commandBuffer, w gpu.Window) (*texture, error) {
	sc, ok := d.windows[w]
	if !ok {
		return nil, gpu.ErrWindowNotClaimed
	}
	if w.Minimized() {
		return nil, nil
	}
	width, height := w.Size()
	if width <= 0 || height <= 0 {
		return nil, nil
	}

	if sc.outOfDate || !sc.initialized || width != sc.windowSize[0] || height != sc.windowSize[1] {
		if err := d.recreateSwapchain(sc); err != nil {
			return nil, err
		}
	}

	frame := sc.currentFrame
	if err := d.wait(sc.frames[frame]); err != nil {
		return nil, err
	}

	imageIndex, res, err := d.swapchainExtension.AcquireNextImage(sc.swapchain, common.NoTimeout, &sc.imageAvailable[frame], nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		sc.outOfDate = true
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to acquire swapchain image")
	}
	if res == khr_swapchain.VKSuboptimal {
		sc.outOfDate = true
	}

	if err := d.wait(sc.imagesInFlight[imageIndex]); err != nil {
		return nil, err
	}

	cb.presents = append(cb.presents, presentation{sc: sc, imageIndex: imageIndex, frame: frame})
	sc.currentFrame = (frame + 1) % MaxFramesInFlight
	return sc.textures[imageIndex], nil
}

// present queues every image acquired on cb after its submission.
func (d *Device) present(cb *commandBuffer) error {
	if len(cb.presents) == 0 {
		return nil
	}

	info := khr_swapchain.PresentInfo{}
	for _, p := range cb.presents {
		info.WaitSemaphores = append(info.WaitSemaphores, p.sc.renderFinished[p.imageIndex])
		info.Swapchains = append(info.Swapchains, p.sc.swapchain)
		info.ImageIndices = append(info.ImageIndices, p.imageIndex)
	}

	res, err := d.swapchainExtension.QueuePresent(d.queue, info)
	if res == khr_swapchain.VKErrorOutOfDate || res == khr_swapchain.VKSuboptimal {
		for _, p := range cb.presents {
			p.sc.outOfDate = true
		}
		return nil
	} else if err != nil {
		return errors.Wrap(err, "failed to present")
	}
	return nil
}

func chooseSwapSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	for _, format := range availableFormats {
		if format.Format == core1_0.FormatB8G8R8A8UnsignedNormalized && format.ColorSpace == khr_surface.ColorSpaceSRGBNonlinear {
			return format
		}
	}

	return availableFormats[0]
}

func chooseSwapPresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

func chooseSwapExtent(capabilities *khr_surface.SurfaceCapabilities, w gpu.Window) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	width, height := w.Size()

	if width < capabilities.MinImageExtent.Width {
		width = capabilities.MinImageExtent.Width
	}
	if width > capabilities.MaxImageExtent.Width {
		width = capabilities.MaxImageExtent.Width
	}
	if height < capabilities.MinImageExtent.Height {
		height = capabilities.MinImageExtent.Height
	}
	if height > capabilities.MaxImageExtent.Height {
		height = capabilities.MaxImageExtent.Height
	}

	return core1_0.Extent2D{Width: width, Height: height}
}
