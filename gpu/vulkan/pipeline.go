package vulkan

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

const (
	maxSamplerSlots = 16
	maxUniformSlots = 4
	maxColorTargets = 4
)

// Descriptor set indices shared with the shaders.
const (
	setVertexSamplers = iota
	setVertexUniforms
	setFragmentSamplers
	setFragmentUniforms
	numSets
)

type descriptorKind int

const (
	kindSampler descriptorKind = iota
	kindUniform
)

type setLayoutKey struct {
	stage gpu.ShaderStage
	kind  descriptorKind
	count int
}

func (k setLayoutKey) index() int {
	i := setVertexSamplers
	if k.stage == gpu.ShaderStageFragment {
		i = setFragmentSamplers
	}
	if k.kind == kindUniform {
		i++
	}
	return i
}

type pipeline struct {
	resource
	vertexInput gpu.VertexInputState
	pipeline    core1_0.Pipeline
	layout      core1_0.PipelineLayout
	sets        [numSets]setLayoutKey
	setLayouts  [numSets]core1_0.DescriptorSetLayout
	colorCount  int
	hasDepth    bool
}

func (p *pipeline) VertexInput() gpu.VertexInputState { return p.vertexInput }

func (p *pipeline) count(set int) int { return p.sets[set].count }

// setLayout returns the cached layout for count descriptors of one kind.
// Layouts live as long as the device.
func (d *Device) setLayout(key setLayoutKey) (core1_0.DescriptorSetLayout, error) {
	if layout, ok := d.setLayouts[key]; ok {
		return layout, nil
	}

	descriptorType := core1_0.DescriptorTypeCombinedImageSampler
	if key.kind == kindUniform {
		descriptorType = core1_0.DescriptorTypeUniformBufferDynamic
	}

	var bindings []core1_0.DescriptorSetLayoutBinding
	for i := 0; i < key.count; i++ {
		bindings = append(bindings, core1_0.DescriptorSetLayoutBinding{
			Binding:         i,
			DescriptorType:  descriptorType,
			DescriptorCount: 1,

			StageFlags: convShaderStage(key.stage),
		})
	}

	layout, _, err := d.deviceDriver.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Bindings: bindings,
	})
	if err != nil {
		return core1_0.DescriptorSetLayout{}, errors.Wrap(err, "failed to create descriptor set layout")
	}
	d.setLayouts[key] = layout
	return layout, nil
}

func (d *Device) CreateGraphicsPipeline(info gpu.GraphicsPipelineCreateInfo) (gpu.GraphicsPipeline, error) {
	vs, ok := info.VertexShader.(*shader)
	if !ok || vs.released || vs.info.Stage != gpu.ShaderStageVertex {
		return nil, errors.New("vulkan: pipeline requires a live vertex shader")
	}
	fs, ok := info.FragmentShader.(*shader)
	if !ok || fs.released || fs.info.Stage != gpu.ShaderStageFragment {
		return nil, errors.New("vulkan: pipeline requires a live fragment shader")
	}

	vertexInput, err := convVertexInput(info.VertexInputState)
	if err != nil {
		return nil, err
	}

	targets := info.TargetInfo
	if len(targets.ColorTargetDescriptions) == 0 || len(targets.ColorTargetDescriptions) > maxColorTargets {
		return nil, errors.Errorf("vulkan: pipeline has %d color targets", len(targets.ColorTargetDescriptions))
	}
	passKey := renderPassKey{numColors: len(targets.ColorTargetDescriptions)}
	var attachments []core1_0.PipelineColorBlendAttachmentState
	for i, target := range targets.ColorTargetDescriptions {
		format, ok := convTextureFormat(target.Format)
		if !ok || target.Format.IsDepth() {
			return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "color target %d format %s", i, target.Format)
		}
		passKey.colors[i] = attachmentKey{format: format, load: core1_0.AttachmentLoadOpClear, store: core1_0.AttachmentStoreOpStore}
		attachments = append(attachments, convBlendState(target.BlendState))
	}
	if targets.HasDepthStencilTarget {
		format, ok := convTextureFormat(targets.DepthStencilFormat)
		if !ok || !targets.DepthStencilFormat.IsDepth() {
			return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "depth target format %s", targets.DepthStencilFormat)
		}
		passKey.hasDepth = true
		passKey.depth = attachmentKey{format: format, load: core1_0.AttachmentLoadOpClear, store: core1_0.AttachmentStoreOpDontCare}
		passKey.stencilLoad = core1_0.AttachmentLoadOpDontCare
		passKey.stencilStore = core1_0.AttachmentStoreOpDontCare
	}

	// Render passes with matching formats are compatible, so one created
	// with clear ops serves every load and store combination.
	renderPass, err := d.renderPass(passKey)
	if err != nil {
		return nil, err
	}

	p := &pipeline{vertexInput: info.VertexInputState, colorCount: passKey.numColors, hasDepth: passKey.hasDepth}
	p.sets = [numSets]setLayoutKey{
		{stage: gpu.ShaderStageVertex, kind: kindSampler, count: vs.info.NumSamplers},
		{stage: gpu.ShaderStageVertex, kind: kindUniform, count: vs.info.NumUniformBuffers},
		{stage: gpu.ShaderStageFragment, kind: kindSampler, count: fs.info.NumSamplers},
		{stage: gpu.ShaderStageFragment, kind: kindUniform, count: fs.info.NumUniformBuffers},
	}
	for i, key := range p.sets {
		p.setLayouts[i], err = d.setLayout(key)
		if err != nil {
			return nil, err
		}
	}

	p.layout, _, err = d.deviceDriver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts: p.setLayouts[:],
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pipeline layout")
	}

	raster := info.RasterizerState
	depthStencil := info.DepthStencilState
	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: convSampleCount(info.MultisampleState.SampleCount),
		MinSampleShading:     1.0,
	}
	if info.MultisampleState.SampleMask != 0 {
		multisample.SampleMask = []uint32{info.MultisampleState.SampleMask}
	}

	pipelines, _, err := d.deviceDriver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: vs.module,
					Name:   vs.info.Entrypoint,
				},
				{
					Stage:  core1_0.StageFragment,
					Module: fs.module,
					Name:   fs.info.Entrypoint,
				},
			},
			VertexInputState: vertexInput,
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               convTopology(info.PrimitiveType),
				PrimitiveRestartEnable: false,
			},
			// Viewport and scissor are dynamic and set per render pass.
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{{Width: 1, Height: 1, MaxDepth: 1}},
				Scissors:  []core1_0.Rect2D{{Extent: core1_0.Extent2D{Width: 1, Height: 1}}},
			},
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				DepthClampEnable:        !raster.EnableDepthClip && d.depthClamp,
				RasterizerDiscardEnable: false,

				PolygonMode: convFillMode(raster.FillMode),
				CullMode:    convCullMode(raster.CullMode),
				FrontFace:   convFrontFace(raster.FrontFace),

				DepthBiasEnable:         raster.EnableDepthBias,
				DepthBiasConstantFactor: raster.DepthBiasConstantFactor,
				DepthBiasClamp:          raster.DepthBiasClamp,
				DepthBiasSlopeFactor:    raster.DepthBiasSlopeFactor,

				LineWidth: 1.0,
			},
			MultisampleState: multisample,
			DepthStencilState: &core1_0.PipelineDepthStencilStateCreateInfo{
				DepthTestEnable:   depthStencil.EnableDepthTest,
				DepthWriteEnable:  depthStencil.EnableDepthWrite,
				DepthCompareOp:    convCompareOp(depthStencil.CompareOp),
				StencilTestEnable: depthStencil.EnableStencilTest,
				Front:             convStencilState(depthStencil.FrontStencilState, depthStencil.CompareMask, depthStencil.WriteMask),
				Back:              convStencilState(depthStencil.BackStencilState, depthStencil.CompareMask, depthStencil.WriteMask),
				MinDepthBounds:    0,
				MaxDepthBounds:    1,
			},
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOpEnabled: false,
				LogicOp:        core1_0.LogicOpCopy,

				BlendConstants: [4]float32{0, 0, 0, 0},
				Attachments:    attachments,
			},
			DynamicState: &core1_0.PipelineDynamicStateCreateInfo{
				DynamicStates: []core1_0.DynamicState{core1_0.DynamicStateViewport, core1_0.DynamicStateScissor},
			},
			Layout:            p.layout,
			RenderPass:        renderPass,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	)
	if err != nil {
		d.deviceDriver.DestroyPipelineLayout(p.layout, nil)
		return nil, errors.Wrap(err, "failed to create graphics pipeline")
	}
	p.pipeline = pipelines[0]

	d.track(&p.resource, "pipeline", func() {
		d.deviceDriver.DestroyPipeline(p.pipeline, nil)
		d.deviceDriver.DestroyPipelineLayout(p.layout, nil)
	})
	return p, nil
}

func convVertexInput(state gpu.VertexInputState) (*core1_0.PipelineVertexInputStateCreateInfo, error) {
	input := &core1_0.PipelineVertexInputStateCreateInfo{}

	pitches := make(map[int]int)
	for _, desc := range state.VertexBufferDescriptions {
		if desc.Pitch <= 0 {
			return nil, errors.Errorf("vulkan: vertex buffer slot %d has pitch %d", desc.Slot, desc.Pitch)
		}
		pitches[desc.Slot] = desc.Pitch
		input.VertexBindingDescriptions = append(input.VertexBindingDescriptions, core1_0.VertexInputBindingDescription{
			Binding:   desc.Slot,
			Stride:    desc.Pitch,
			InputRate: convInputRate(desc.InputRate),
		})
	}

	for _, attr := range state.VertexAttributes {
		pitch, ok := pitches[attr.BufferSlot]
		if !ok {
			return nil, errors.Errorf("vulkan: attribute %d references undescribed slot %d", attr.Location, attr.BufferSlot)
		}
		format, ok := convVertexFormat(attr.Format)
		if !ok {
			return nil, errors.Wrapf(gpu.ErrUnsupportedFormat, "attribute %d format %s", attr.Location, attr.Format)
		}
		if attr.Offset < 0 || attr.Offset+attr.Format.Size() > pitch {
			return nil, errors.Errorf("vulkan: attribute %d at offset %d overruns pitch %d", attr.Location, attr.Offset, pitch)
		}
		input.VertexAttributeDescriptions = append(input.VertexAttributeDescriptions, core1_0.VertexInputAttributeDescription{
			Binding:  attr.BufferSlot,
			Location: attr.Location,
			Format:   format,
			Offset:   attr.Offset,
		})
	}
	return input, nil
}
