package vulkan

import (
	"log"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

// resource counts the pending command buffers referencing a Vulkan object.
// A released resource is destroyed once that count drops to zero.
type resource struct {
	dev      *Device
	kind     string
	refs     int
	released bool
	free     func()
}

func (d *Device) track(r *resource, kind string, free func()) {
	r.dev = d
	r.kind = kind
	r.free = free
	d.live++
}

func (r *resource) unref() {
	r.refs--
	if r.refs == 0 && r.released {
		r.destroy()
	}
}

func (r *resource) release() {
	if r.released {
		log.Printf("[!] vulkan: %s released twice", r.kind)
		return
	}
	r.released = true
	if r.refs == 0 {
		r.destroy()
	}
}

func (r *resource) destroy() {
	r.dev.live--
	if r.free != nil {
		r.free()
	}
}

type buffer struct {
	resource
	info   gpu.BufferCreateInfo
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
}

func (b *buffer) Size() int              { return b.info.Size }
func (b *buffer) Usage() gpu.BufferUsage { return b.info.Usage }

// hostBuffer is persistently mapped, coherent memory used for staging and
// uniform data.
type hostBuffer struct {
	resource
	buffer core1_0.Buffer
	memory core1_0.DeviceMemory
	data   []byte
}

type transferBuffer struct {
	info     gpu.TransferBufferCreateInfo
	alloc    *hostBuffer
	mapped   bool
	released bool
}

func (t *transferBuffer) Size() int                      { return t.info.Size }
func (t *transferBuffer) Usage() gpu.TransferBufferUsage { return t.info.Usage }

type texture struct {
	resource
	info   gpu.TextureCreateInfo
	format core1_0.Format
	aspect core1_0.ImageAspectFlags
	image  core1_0.Image
	memory core1_0.DeviceMemory
	view   core1_0.ImageView
	layout core1_0.ImageLayout

	// swapchain images are owned by their swapchain and never released.
	swapchain bool
}

func (t *texture) Width() int                { return t.info.Width }
func (t *texture) Height() int               { return t.info.Height }
func (t *texture) Format() gpu.TextureFormat { return t.info.Format }

func (t *texture) levels() int {
	if t.info.NumLevels <= 0 {
		return 1
	}
	return t.info.NumLevels
}

type sampler struct {
	resource
	info    gpu.SamplerCreateInfo
	sampler core1_0.Sampler
}

func (s *sampler) Info() gpu.SamplerCreateInfo { return s.info }

type shader struct {
	resource
	info   gpu.ShaderCreateInfo
	module core1_0.ShaderModule
}

func (s *shader) Stage() gpu.ShaderStage { return s.info.Stage }

func (d *Device) createBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (core1_0.Buffer, core1_0.DeviceMemory, error) {
	buffer, _, err := d.deviceDriver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "failed to create buffer")
	}

	memRequirements := d.deviceDriver.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := d.findMemoryType(memRequirements.MemoryTypeBits, properties)
	if err != nil {
		d.deviceDriver.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, err
	}

	memory, _, err := d.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		d.deviceDriver.DestroyBuffer(buffer, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "failed to allocate buffer memory")
	}

	_, err = d.deviceDriver.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		d.deviceDriver.DestroyBuffer(buffer, nil)
		d.deviceDriver.FreeMemory(memory, nil)
		return core1_0.Buffer{}, core1_0.DeviceMemory{}, errors.Wrap(err, "failed to bind buffer memory")
	}
	return buffer, memory, nil
}

func (d *Device) createHostBuffer(kind string, size int, usage core1_0.BufferUsageFlags) (*hostBuffer, error) {
	buf, memory, err := d.createBuffer(size, usage, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, err
	}

	memoryPtr, _, err := d.deviceDriver.MapMemory(memory, 0, size, 0)
	if err != nil {
		d.deviceDriver.DestroyBuffer(buf, nil)
		d.deviceDriver.FreeMemory(memory, nil)
		return nil, errors.Wrap(err, "failed to map memory")
	}

	h := &hostBuffer{
		buffer: buf,
		memory: memory,
		data:   unsafe.Slice((*byte)(memoryPtr), size),
	}
	d.track(&h.resource, kind, func() {
		d.deviceDriver.UnmapMemory(h.memory)
		d.deviceDriver.DestroyBuffer(h.buffer, nil)
		d.deviceDriver.FreeMemory(h.memory, nil)
		h.data = nil
	})
	return h, nil
}

func (d *Device) CreateBuffer(info gpu.BufferCreateInfo) (gpu.Buffer, error) {
	if info.Size <= 0 {
		return nil, errors.Errorf("vulkan: invalid buffer size %d", info.Size)
	}
	buf, memory, err := d.createBuffer(info.Size, convBufferUsage(info.Usage), core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, err
	}

	b := &buffer{info: info, buffer: buf, memory: memory}
	d.track(&b.resource, "buffer", func() {
		d.deviceDriver.DestroyBuffer(b.buffer, nil)
		d.deviceDriver.FreeMemory(b.memory, nil)
	})
	return b, nil
}

func (d *Device) CreateTransferBuffer(info gpu.TransferBufferCreateInfo) (gpu.TransferBuffer, error) {
	if info.Size <= 0 {
		return nil, errors.Errorf("vulkan: invalid transfer buffer size %d", info.Size)
	}
	alloc, err := d.createHostBuffer("transfer-buffer", info.Size, transferUsage(info.Usage))
	if err != nil {
		return nil, err
	}
	return &transferBuffer{info: info, alloc: alloc}, nil
}

func transferUsage(u gpu.TransferBufferUsage) core1_0.BufferUsageFlags {
	if u == gpu.TransferBufferUsageDownload {
		return core1_0.BufferUsageTransferDst
	}
	return core1_0.BufferUsageTransferSrc
}

func (d *Device) MapTransferBuffer(tb gpu.TransferBuffer, cycle bool) ([]byte, error) {
	t, ok := tb.(*transferBuffer)
	if !ok {
		return nil, errors.New("vulkan: foreign transfer buffer")
	}
	if t.released {
		return nil, errors.Wrap(gpu.ErrReleased, "transfer buffer")
	}
	if t.mapped {
		return nil, errors.New("vulkan: transfer buffer already mapped")
	}

	// Cycling swaps in fresh memory while pending copies still read the old
	// allocation; the old one is destroyed when they retire.
	if cycle && t.alloc.refs > 0 {
		alloc, err := d.createHostBuffer("transfer-buffer", t.info.Size, transferUsage(t.info.Usage))
		if err != nil {
			return nil, err
		}
		t.alloc.release()
		t.alloc = alloc
	}
	t.mapped = true
	return t.alloc.data, nil
}

func (d *Device) UnmapTransferBuffer(tb gpu.TransferBuffer) {
	if t, ok := tb.(*transferBuffer); ok {
		t.mapped = false
	}
}

func (d *Device) CreateTexture(info gpu.TextureCreateInfo) (gpu.Texture, error) {
	format, ok := convTextureFormat(info.Format)
	if !ok {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "texture format %s", info.Format)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, errors.Errorf("vulkan: invalid texture size %dx%d", info.Width, info.Height)
	}
	if info.Usage&gpu.TextureUsageDepthStencilTarget != 0 && !info.Format.IsDepth() {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "depth target format %s", info.Format)
	}
	usage, features := convTextureUsage(info.Usage)
	if !d.formatSupported(format, features) {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "texture format %s for usage %d", info.Format, info.Usage)
	}

	t := &texture{
		info:   info,
		format: format,
		aspect: aspectOf(info.Format),
		layout: core1_0.ImageLayoutUndefined,
	}

	var err error
	t.image, t.memory, err = d.createImage(info.Width, info.Height, t.levels(), convSampleCount(info.SampleCount), format, usage)
	if err != nil {
		return nil, err
	}
	t.view, err = d.createImageView(t.image, format, t.aspect, t.levels())
	if err != nil {
		d.deviceDriver.DestroyImage(t.image, nil)
		d.deviceDriver.FreeMemory(t.memory, nil)
		return nil, err
	}

	d.track(&t.resource, "texture", func() {
		d.dropFramebuffers(t)
		d.deviceDriver.DestroyImageView(t.view, nil)
		d.deviceDriver.DestroyImage(t.image, nil)
		d.deviceDriver.FreeMemory(t.memory, nil)
	})
	return t, nil
}

func (d *Device) createImage(width, height int, mipLevels int, numSamples core1_0.SampleCountFlags, format core1_0.Format, usage core1_0.ImageUsageFlags) (core1_0.Image, core1_0.DeviceMemory, error) {
	image, _, err := d.deviceDriver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     mipLevels,
		ArrayLayers:   1,
		Format:        format,
		Tiling:        core1_0.ImageTilingOptimal,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       numSamples,
	})
	if err != nil {
		return core1_0.Image{}, core1_0.DeviceMemory{}, errors.Wrap(err, "failed to create image")
	}

	memReqs := d.deviceDriver.GetImageMemoryRequirements(image)
	memoryIndex, err := d.findMemoryType(memReqs.MemoryTypeBits, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		d.deviceDriver.DestroyImage(image, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, err
	}

	imageMemory, _, err := d.deviceDriver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memoryIndex,
	})
	if err != nil {
		d.deviceDriver.DestroyImage(image, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, errors.Wrap(err, "failed to allocate image memory")
	}

	_, err = d.deviceDriver.BindImageMemory(image, imageMemory, 0)
	if err != nil {
		d.deviceDriver.DestroyImage(image, nil)
		d.deviceDriver.FreeMemory(imageMemory, nil)
		return core1_0.Image{}, core1_0.DeviceMemory{}, errors.Wrap(err, "failed to bind image memory")
	}

	return image, imageMemory, nil
}

func (d *Device) createImageView(image core1_0.Image, format core1_0.Format, aspect core1_0.ImageAspectFlags, mipLevels int) (core1_0.ImageView, error) {
	imageView, _, err := d.deviceDriver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     mipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err != nil {
		return core1_0.ImageView{}, errors.Wrap(err, "failed to create image view")
	}
	return imageView, nil
}

func (d *Device) CreateSampler(info gpu.SamplerCreateInfo) (gpu.Sampler, error) {
	if info.MaxLod < info.MinLod {
		return nil, errors.Errorf("vulkan: sampler max lod %v below min lod %v", info.MaxLod, info.MinLod)
	}

	anisotropy := info.EnableAnisotropy && d.anisotropy
	maxAnisotropy := info.MaxAnisotropy
	if limit := d.properties.Limits.MaxSamplerAnisotropy; maxAnisotropy > limit {
		maxAnisotropy = limit
	}

	handle, _, err := d.deviceDriver.CreateSampler(nil, core1_0.SamplerCreateInfo{
		MagFilter:    convFilter(info.MagFilter),
		MinFilter:    convFilter(info.MinFilter),
		AddressModeU: convAddressMode(info.AddressModeU),
		AddressModeV: convAddressMode(info.AddressModeV),
		AddressModeW: convAddressMode(info.AddressModeW),

		AnisotropyEnable: anisotropy,
		MaxAnisotropy:    maxAnisotropy,

		CompareEnable: info.EnableCompare,
		CompareOp:     convCompareOp(info.CompareOp),

		BorderColor: core1_0.BorderColorIntOpaqueBlack,

		MipmapMode: convMipmapMode(info.MipmapMode),
		MipLodBias: info.MipLodBias,
		MinLod:     info.MinLod,
		MaxLod:     info.MaxLod,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sampler")
	}

	s := &sampler{info: info, sampler: handle}
	d.track(&s.resource, "sampler", func() {
		d.deviceDriver.DestroySampler(s.sampler, nil)
	})
	return s, nil
}

func (d *Device) CreateShader(info gpu.ShaderCreateInfo) (gpu.Shader, error) {
	if info.Format != gpu.ShaderFormatSPIRV {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "shader format %s", info.Format)
	}
	if len(info.Code) == 0 || len(info.Code)%4 != 0 {
		return nil, errors.Errorf("vulkan: SPIR-V code of %d bytes", len(info.Code))
	}
	if info.Entrypoint == "" {
		return nil, errors.New("vulkan: missing shader entrypoint")
	}
	if info.NumSamplers > maxSamplerSlots || info.NumUniformBuffers > maxUniformSlots {
		return nil, errors.Errorf("vulkan: shader declares %d samplers and %d uniform buffers, limits are %d and %d",
			info.NumSamplers, info.NumUniformBuffers, maxSamplerSlots, maxUniformSlots)
	}

	module, _, err := d.deviceDriver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: bytesToBytecode(info.Code),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create shader module")
	}

	s := &shader{info: info, module: module}
	s.info.Code = nil
	d.track(&s.resource, "shader", func() {
		d.deviceDriver.DestroyShaderModule(s.module, nil)
	})
	return s, nil
}

func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}

func (d *Device) ReleaseShader(s gpu.Shader) {
	if sh, ok := s.(*shader); ok {
		sh.release()
	}
}

func (d *Device) ReleaseGraphicsPipeline(p gpu.GraphicsPipeline) {
	if pl, ok := p.(*pipeline); ok {
		pl.release()
	}
}

func (d *Device) ReleaseBuffer(b gpu.Buffer) {
	if buf, ok := b.(*buffer); ok {
		buf.release()
	}
}

func (d *Device) ReleaseTransferBuffer(tb gpu.TransferBuffer) {
	t, ok := tb.(*transferBuffer)
	if !ok {
		return
	}
	if t.released {
		log.Printf("[!] vulkan: transfer buffer released twice")
		return
	}
	t.released = true
	t.alloc.release()
}

func (d *Device) ReleaseTexture(t gpu.Texture) {
	tex, ok := t.(*texture)
	if !ok || tex.swapchain {
		return
	}
	tex.release()
}

func (d *Device) ReleaseSampler(s gpu.Sampler) {
	if smp, ok := s.(*sampler); ok {
		smp.release()
	}
}
