package memgpu

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

type resource struct {
	id       uuid.UUID
	kind     string
	dev      *Device
	released bool
}

func (r *resource) res() *resource { return r }

type identified interface {
	res() *resource
}

// IDOf returns the identity of a resource created by a memgpu device.
func IDOf(v interface{}) (uuid.UUID, bool) {
	r, ok := v.(identified)
	if !ok || r.res() == nil {
		return uuid.Nil, false
	}
	return r.res().id, true
}

type buffer struct {
	resource
	info gpu.BufferCreateInfo
	data []byte
}

func (b *buffer) Size() int             { return b.info.Size }
func (b *buffer) Usage() gpu.BufferUsage { return b.info.Usage }

// Bytes returns the current contents of a buffer created by a memgpu
// device, as of the last completed submission.
func Bytes(b gpu.Buffer) []byte {
	buf, ok := b.(*buffer)
	if !ok {
		return nil
	}
	out := make([]byte, len(buf.data))
	copy(out, buf.data)
	return out
}

type transferBuffer struct {
	resource
	info   gpu.TransferBufferCreateInfo
	data   []byte
	mapped bool
}

func (t *transferBuffer) Size() int                      { return t.info.Size }
func (t *transferBuffer) Usage() gpu.TransferBufferUsage { return t.info.Usage }

type texture struct {
	resource
	info gpu.TextureCreateInfo
	data []byte
}

func (t *texture) Width() int                { return t.info.Width }
func (t *texture) Height() int               { return t.info.Height }
func (t *texture) Format() gpu.TextureFormat { return t.info.Format }

// Pixels returns the contents of a texture created by a memgpu device.
func Pixels(t gpu.Texture) []byte {
	tex, ok := t.(*texture)
	if !ok {
		return nil
	}
	out := make([]byte, len(tex.data))
	copy(out, tex.data)
	return out
}

type sampler struct {
	resource
	info gpu.SamplerCreateInfo
}

func (s *sampler) Info() gpu.SamplerCreateInfo { return s.info }

type shader struct {
	resource
	info gpu.ShaderCreateInfo
}

func (s *shader) Stage() gpu.ShaderStage { return s.info.Stage }

// ShaderInfo returns the create info a shader was created with.
func ShaderInfo(s gpu.Shader) (gpu.ShaderCreateInfo, bool) {
	sh, ok := s.(*shader)
	if !ok {
		return gpu.ShaderCreateInfo{}, false
	}
	return sh.info, true
}

type pipeline struct {
	resource
	info gpu.GraphicsPipelineCreateInfo
}

func (p *pipeline) VertexInput() gpu.VertexInputState { return p.info.VertexInputState }

// PipelineInfo returns the create info a pipeline was created with.
func PipelineInfo(p gpu.GraphicsPipeline) (gpu.GraphicsPipelineCreateInfo, bool) {
	pl, ok := p.(*pipeline)
	if !ok {
		return gpu.GraphicsPipelineCreateInfo{}, false
	}
	return pl.info, true
}

type swapchain struct {
	format   gpu.TextureFormat
	acquired int
}

func (d *Device) CreateShader(info gpu.ShaderCreateInfo) (gpu.Shader, error) {
	if len(info.Code) == 0 {
		return nil, errors.New("memgpu: empty shader code")
	}
	if info.Format&d.ShaderFormats() == 0 {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "shader format %s", info.Format)
	}
	if info.Format == gpu.ShaderFormatSPIRV {
		if len(info.Code)%4 != 0 || len(info.Code) < 20 ||
			binary.LittleEndian.Uint32(info.Code) != spirvMagic {
			return nil, errors.New("memgpu: code is not a SPIR-V module")
		}
	}
	if info.Entrypoint == "" {
		return nil, errors.New("memgpu: missing shader entrypoint")
	}

	s := &shader{resource: resource{kind: "shader"}, info: info}
	s.info.Code = append([]byte(nil), info.Code...)
	d.track(&s.resource)
	return s, nil
}

func (d *Device) CreateGraphicsPipeline(info gpu.GraphicsPipelineCreateInfo) (gpu.GraphicsPipeline, error) {
	vs, ok := info.VertexShader.(*shader)
	if !ok || vs.released || vs.info.Stage != gpu.ShaderStageVertex {
		return nil, errors.New("memgpu: pipeline requires a live vertex shader")
	}
	fs, ok := info.FragmentShader.(*shader)
	if !ok || fs.released || fs.info.Stage != gpu.ShaderStageFragment {
		return nil, errors.New("memgpu: pipeline requires a live fragment shader")
	}

	pitches := make(map[int]int)
	for _, desc := range info.VertexInputState.VertexBufferDescriptions {
		if desc.Pitch <= 0 {
			return nil, errors.Errorf("memgpu: vertex buffer slot %d has pitch %d", desc.Slot, desc.Pitch)
		}
		pitches[desc.Slot] = desc.Pitch
	}
	locations := make(map[int]bool)
	for _, attr := range info.VertexInputState.VertexAttributes {
		pitch, ok := pitches[attr.BufferSlot]
		if !ok {
			return nil, errors.Errorf("memgpu: attribute %d references undescribed slot %d", attr.Location, attr.BufferSlot)
		}
		size := attr.Format.Size()
		if size == 0 {
			return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "attribute %d format %s", attr.Location, attr.Format)
		}
		if attr.Offset < 0 || attr.Offset+size > pitch {
			return nil, errors.Errorf("memgpu: attribute %d at offset %d overruns pitch %d", attr.Location, attr.Offset, pitch)
		}
		if locations[attr.Location] {
			return nil, errors.Errorf("memgpu: duplicate attribute location %d", attr.Location)
		}
		locations[attr.Location] = true
	}

	if len(info.TargetInfo.ColorTargetDescriptions) == 0 {
		return nil, errors.New("memgpu: pipeline has no color targets")
	}
	for i, target := range info.TargetInfo.ColorTargetDescriptions {
		if target.Format == gpu.TextureFormatInvalid || target.Format.IsDepth() {
			return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "color target %d format %s", i, target.Format)
		}
	}
	if info.TargetInfo.HasDepthStencilTarget && !info.TargetInfo.DepthStencilFormat.IsDepth() {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "depth target format %s", info.TargetInfo.DepthStencilFormat)
	}

	p := &pipeline{resource: resource{kind: "pipeline"}, info: info}
	d.track(&p.resource)
	return p, nil
}

func (d *Device) CreateBuffer(info gpu.BufferCreateInfo) (gpu.Buffer, error) {
	if info.Size <= 0 {
		return nil, errors.Errorf("memgpu: invalid buffer size %d", info.Size)
	}
	b := &buffer{resource: resource{kind: "buffer"}, info: info, data: make([]byte, info.Size)}
	d.track(&b.resource)
	return b, nil
}

func (d *Device) CreateTransferBuffer(info gpu.TransferBufferCreateInfo) (gpu.TransferBuffer, error) {
	if info.Size <= 0 {
		return nil, errors.Errorf("memgpu: invalid transfer buffer size %d", info.Size)
	}
	t := &transferBuffer{resource: resource{kind: "transfer-buffer"}, info: info, data: make([]byte, info.Size)}
	d.track(&t.resource)
	return t, nil
}

func (d *Device) CreateTexture(info gpu.TextureCreateInfo) (gpu.Texture, error) {
	bpp := info.Format.BytesPerTexel()
	if bpp == 0 {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "texture format %s", info.Format)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, errors.Errorf("memgpu: invalid texture size %dx%d", info.Width, info.Height)
	}
	if info.Usage&gpu.TextureUsageDepthStencilTarget != 0 && !info.Format.IsDepth() {
		return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "depth target format %s", info.Format)
	}
	layers := info.LayerCountOrDepth
	if layers <= 0 {
		layers = 1
	}

	t := &texture{
		resource: resource{kind: "texture"},
		info:     info,
		data:     make([]byte, info.Width*info.Height*layers*bpp),
	}
	d.track(&t.resource)
	return t, nil
}

func (d *Device) CreateSampler(info gpu.SamplerCreateInfo) (gpu.Sampler, error) {
	if info.MaxLod < info.MinLod {
		return nil, errors.Errorf("memgpu: sampler max lod %v below min lod %v", info.MaxLod, info.MinLod)
	}
	s := &sampler{resource: resource{kind: "sampler"}, info: info}
	d.track(&s.resource)
	return s, nil
}

func (d *Device) MapTransferBuffer(tb gpu.TransferBuffer, cycle bool) ([]byte, error) {
	t, ok := tb.(*transferBuffer)
	if !ok {
		return nil, errors.New("memgpu: foreign transfer buffer")
	}
	if t.released {
		return nil, errors.Wrapf(gpu.ErrReleased, "transfer buffer %s", t.id)
	}
	if t.mapped {
		return nil, errors.Errorf("memgpu: transfer buffer %s already mapped", t.id)
	}
	// Cycling hands out fresh memory so pending copies keep reading the
	// contents they were recorded with.
	if cycle && d.referenced(t.id) {
		t.data = make([]byte, t.info.Size)
	}
	t.mapped = true
	return t.data, nil
}

func (d *Device) UnmapTransferBuffer(tb gpu.TransferBuffer) {
	if t, ok := tb.(*transferBuffer); ok {
		t.mapped = false
	}
}

func (d *Device) ReleaseShader(s gpu.Shader) {
	if sh, ok := s.(*shader); ok {
		d.release(&sh.resource)
	}
}

func (d *Device) ReleaseGraphicsPipeline(p gpu.GraphicsPipeline) {
	if pl, ok := p.(*pipeline); ok {
		d.release(&pl.resource)
	}
}

func (d *Device) ReleaseBuffer(b gpu.Buffer) {
	if buf, ok := b.(*buffer); ok {
		d.release(&buf.resource)
	}
}

func (d *Device) ReleaseTransferBuffer(tb gpu.TransferBuffer) {
	if t, ok := tb.(*transferBuffer); ok {
		d.release(&t.resource)
	}
}

func (d *Device) ReleaseTexture(t gpu.Texture) {
	if tex, ok := t.(*texture); ok {
		d.release(&tex.resource)
	}
}

func (d *Device) ReleaseSampler(s gpu.Sampler) {
	if smp, ok := s.(*sampler); ok {
		d.release(&smp.resource)
	}
}
