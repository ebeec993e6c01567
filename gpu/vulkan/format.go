package vulkan

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

var textureFormats = map[gpu.TextureFormat]core1_0.Format{
	gpu.TextureFormatR8G8B8A8Unorm:     core1_0.FormatR8G8B8A8UnsignedNormalized,
	gpu.TextureFormatR8G8B8A8UnormSRGB: core1_0.FormatR8G8B8A8SRGB,
	gpu.TextureFormatB8G8R8A8Unorm:     core1_0.FormatB8G8R8A8UnsignedNormalized,
	gpu.TextureFormatB8G8R8A8UnormSRGB: core1_0.FormatB8G8R8A8SRGB,
	gpu.TextureFormatD16Unorm:          core1_0.FormatD16UnsignedNormalized,
	gpu.TextureFormatD32Float:          core1_0.FormatD32SignedFloat,
	gpu.TextureFormatD24UnormS8Uint:    core1_0.FormatD24UnsignedNormalizedS8UnsignedInt,
}

func convTextureFormat(f gpu.TextureFormat) (core1_0.Format, bool) {
	format, ok := textureFormats[f]
	return format, ok
}

// textureFormatOf maps a Vulkan format back, for swapchain surfaces.
func textureFormatOf(f core1_0.Format) gpu.TextureFormat {
	for tf, format := range textureFormats {
		if format == f {
			return tf
		}
	}
	return gpu.TextureFormatInvalid
}

func aspectOf(f gpu.TextureFormat) core1_0.ImageAspectFlags {
	switch f {
	case gpu.TextureFormatD16Unorm, gpu.TextureFormatD32Float:
		return core1_0.ImageAspectDepth
	case gpu.TextureFormatD24UnormS8Uint:
		return core1_0.ImageAspectDepth | core1_0.ImageAspectStencil
	}
	return core1_0.ImageAspectColor
}

func convVertexFormat(f gpu.VertexElementFormat) (core1_0.Format, bool) {
	switch f {
	case gpu.VertexElementFormatFloat:
		return core1_0.FormatR32SignedFloat, true
	case gpu.VertexElementFormatFloat2:
		return core1_0.FormatR32G32SignedFloat, true
	case gpu.VertexElementFormatFloat3:
		return core1_0.FormatR32G32B32SignedFloat, true
	case gpu.VertexElementFormatFloat4:
		return core1_0.FormatR32G32B32A32SignedFloat, true
	case gpu.VertexElementFormatUint:
		return core1_0.FormatR32UnsignedInt, true
	case gpu.VertexElementFormatUbyte4Norm:
		return core1_0.FormatR8G8B8A8UnsignedNormalized, true
	}
	return 0, false
}

func convInputRate(r gpu.VertexInputRate) core1_0.VertexInputRate {
	if r == gpu.VertexInputRateInstance {
		return core1_0.VertexInputRateInstance
	}
	return core1_0.VertexInputRateVertex
}

func convSampleCount(c gpu.SampleCount) core1_0.SampleCountFlags {
	switch c {
	case gpu.SampleCount2:
		return core1_0.Samples2
	case gpu.SampleCount4:
		return core1_0.Samples4
	case gpu.SampleCount8:
		return core1_0.Samples8
	}
	return core1_0.Samples1
}

var topologies = [...]core1_0.PrimitiveTopology{
	gpu.PrimitiveTypeTriangleList:  core1_0.PrimitiveTopologyTriangleList,
	gpu.PrimitiveTypeTriangleStrip: core1_0.PrimitiveTopologyTriangleStrip,
	gpu.PrimitiveTypeLineList:      core1_0.PrimitiveTopologyLineList,
	gpu.PrimitiveTypeLineStrip:     core1_0.PrimitiveTopologyLineStrip,
	gpu.PrimitiveTypePointList:     core1_0.PrimitiveTopologyPointList,
}

func convTopology(p gpu.PrimitiveType) core1_0.PrimitiveTopology {
	if p < 0 || int(p) >= len(topologies) {
		return core1_0.PrimitiveTopologyTriangleList
	}
	return topologies[p]
}

func convFillMode(m gpu.FillMode) core1_0.PolygonMode {
	if m == gpu.FillModeLine {
		return core1_0.PolygonModeLine
	}
	return core1_0.PolygonModeFill
}

func convCullMode(m gpu.CullMode) core1_0.CullModeFlags {
	switch m {
	case gpu.CullModeFront:
		return core1_0.CullModeFront
	case gpu.CullModeBack:
		return core1_0.CullModeBack
	}
	return 0
}

func convFrontFace(f gpu.FrontFace) core1_0.FrontFace {
	if f == gpu.FrontFaceClockwise {
		return core1_0.FrontFaceClockwise
	}
	return core1_0.FrontFaceCounterClockwise
}

var compareOps = [...]core1_0.CompareOp{
	gpu.CompareOpInvalid:        core1_0.CompareOpAlways,
	gpu.CompareOpNever:          core1_0.CompareOpNever,
	gpu.CompareOpLess:           core1_0.CompareOpLess,
	gpu.CompareOpEqual:          core1_0.CompareOpEqual,
	gpu.CompareOpLessOrEqual:    core1_0.CompareOpLessOrEqual,
	gpu.CompareOpGreater:        core1_0.CompareOpGreater,
	gpu.CompareOpNotEqual:       core1_0.CompareOpNotEqual,
	gpu.CompareOpGreaterOrEqual: core1_0.CompareOpGreaterOrEqual,
	gpu.CompareOpAlways:         core1_0.CompareOpAlways,
}

func convCompareOp(op gpu.CompareOp) core1_0.CompareOp {
	if op < 0 || int(op) >= len(compareOps) {
		return core1_0.CompareOpAlways
	}
	return compareOps[op]
}

var stencilOps = [...]core1_0.StencilOp{
	gpu.StencilOpInvalid:           core1_0.StencilKeep,
	gpu.StencilOpKeep:              core1_0.StencilKeep,
	gpu.StencilOpZero:              core1_0.StencilZero,
	gpu.StencilOpReplace:           core1_0.StencilReplace,
	gpu.StencilOpIncrementAndClamp: core1_0.StencilIncrementAndClamp,
	gpu.StencilOpDecrementAndClamp: core1_0.StencilDecrementAndClamp,
	gpu.StencilOpInvert:            core1_0.StencilInvert,
	gpu.StencilOpIncrementAndWrap:  core1_0.StencilIncrementAndWrap,
	gpu.StencilOpDecrementAndWrap:  core1_0.StencilDecrementAndWrap,
}

func convStencilOp(op gpu.StencilOp) core1_0.StencilOp {
	if op < 0 || int(op) >= len(stencilOps) {
		return core1_0.StencilKeep
	}
	return stencilOps[op]
}

func convStencilState(s gpu.StencilOpState, compareMask, writeMask uint8) core1_0.StencilOpState {
	return core1_0.StencilOpState{
		FailOp:      convStencilOp(s.FailOp),
		PassOp:      convStencilOp(s.PassOp),
		DepthFailOp: convStencilOp(s.DepthFailOp),
		CompareOp:   convCompareOp(s.CompareOp),
		CompareMask: uint32(compareMask),
		WriteMask:   uint32(writeMask),
	}
}

var blendFactors = [...]core1_0.BlendFactor{
	gpu.BlendFactorInvalid:          core1_0.BlendFactorZero,
	gpu.BlendFactorZero:             core1_0.BlendFactorZero,
	gpu.BlendFactorOne:              core1_0.BlendFactorOne,
	gpu.BlendFactorSrcColor:         core1_0.BlendFactorSrcColor,
	gpu.BlendFactorOneMinusSrcColor: core1_0.BlendFactorOneMinusSrcColor,
	gpu.BlendFactorDstColor:         core1_0.BlendFactorDstColor,
	gpu.BlendFactorOneMinusDstColor: core1_0.BlendFactorOneMinusDstColor,
	gpu.BlendFactorSrcAlpha:         core1_0.BlendFactorSrcAlpha,
	gpu.BlendFactorOneMinusSrcAlpha: core1_0.BlendFactorOneMinusSrcAlpha,
	gpu.BlendFactorDstAlpha:         core1_0.BlendFactorDstAlpha,
	gpu.BlendFactorOneMinusDstAlpha: core1_0.BlendFactorOneMinusDstAlpha,
}

func convBlendFactor(f gpu.BlendFactor) core1_0.BlendFactor {
	if f < 0 || int(f) >= len(blendFactors) {
		return core1_0.BlendFactorZero
	}
	return blendFactors[f]
}

var blendOps = [...]core1_0.BlendOp{
	gpu.BlendOpInvalid:         core1_0.BlendOpAdd,
	gpu.BlendOpAdd:             core1_0.BlendOpAdd,
	gpu.BlendOpSubtract:        core1_0.BlendOpSubtract,
	gpu.BlendOpReverseSubtract: core1_0.BlendOpReverseSubtract,
	gpu.BlendOpMin:             core1_0.BlendOpMin,
	gpu.BlendOpMax:             core1_0.BlendOpMax,
}

func convBlendOp(op gpu.BlendOp) core1_0.BlendOp {
	if op < 0 || int(op) >= len(blendOps) {
		return core1_0.BlendOpAdd
	}
	return blendOps[op]
}

func convColorComponents(c gpu.ColorComponent) core1_0.ColorComponentFlags {
	var flags core1_0.ColorComponentFlags
	if c&gpu.ColorComponentR != 0 {
		flags |= core1_0.ColorComponentRed
	}
	if c&gpu.ColorComponentG != 0 {
		flags |= core1_0.ColorComponentGreen
	}
	if c&gpu.ColorComponentB != 0 {
		flags |= core1_0.ColorComponentBlue
	}
	if c&gpu.ColorComponentA != 0 {
		flags |= core1_0.ColorComponentAlpha
	}
	return flags
}

func convBlendState(b gpu.ColorTargetBlendState) core1_0.PipelineColorBlendAttachmentState {
	mask := gpu.ColorComponentAll
	if b.EnableColorWriteMask {
		mask = b.ColorWriteMask
	}
	return core1_0.PipelineColorBlendAttachmentState{
		BlendEnabled:        b.EnableBlend,
		SrcColorBlendFactor: convBlendFactor(b.SrcColorBlendFactor),
		DstColorBlendFactor: convBlendFactor(b.DstColorBlendFactor),
		ColorBlendOp:        convBlendOp(b.ColorBlendOp),
		SrcAlphaBlendFactor: convBlendFactor(b.SrcAlphaBlendFactor),
		DstAlphaBlendFactor: convBlendFactor(b.DstAlphaBlendFactor),
		AlphaBlendOp:        convBlendOp(b.AlphaBlendOp),
		ColorWriteMask:      convColorComponents(mask),
	}
}

func convLoadOp(op gpu.LoadOp) core1_0.AttachmentLoadOp {
	switch op {
	case gpu.LoadOpClear:
		return core1_0.AttachmentLoadOpClear
	case gpu.LoadOpDontCare:
		return core1_0.AttachmentLoadOpDontCare
	}
	return core1_0.AttachmentLoadOpLoad
}

func convStoreOp(op gpu.StoreOp) core1_0.AttachmentStoreOp {
	if op == gpu.StoreOpDontCare {
		return core1_0.AttachmentStoreOpDontCare
	}
	return core1_0.AttachmentStoreOpStore
}

func convFilter(f gpu.Filter) core1_0.Filter {
	if f == gpu.FilterLinear {
		return core1_0.FilterLinear
	}
	return core1_0.FilterNearest
}

func convMipmapMode(m gpu.SamplerMipmapMode) core1_0.SamplerMipmapMode {
	if m == gpu.SamplerMipmapModeLinear {
		return core1_0.SamplerMipmapModeLinear
	}
	return core1_0.SamplerMipmapModeNearest
}

func convAddressMode(m gpu.SamplerAddressMode) core1_0.SamplerAddressMode {
	switch m {
	case gpu.SamplerAddressModeMirroredRepeat:
		return core1_0.SamplerAddressModeMirroredRepeat
	case gpu.SamplerAddressModeClampToEdge:
		return core1_0.SamplerAddressModeClampToEdge
	}
	return core1_0.SamplerAddressModeRepeat
}

func convIndexType(s gpu.IndexElementSize) core1_0.IndexType {
	if s == gpu.IndexElementSize16Bit {
		return core1_0.IndexTypeUInt16
	}
	return core1_0.IndexTypeUInt32
}

func convShaderStage(s gpu.ShaderStage) core1_0.ShaderStageFlags {
	if s == gpu.ShaderStageFragment {
		return core1_0.StageFragment
	}
	return core1_0.StageVertex
}

func convBufferUsage(u gpu.BufferUsage) core1_0.BufferUsageFlags {
	flags := core1_0.BufferUsageTransferSrc | core1_0.BufferUsageTransferDst
	if u&gpu.BufferUsageVertex != 0 {
		flags |= core1_0.BufferUsageVertexBuffer
	}
	if u&gpu.BufferUsageIndex != 0 {
		flags |= core1_0.BufferUsageIndexBuffer
	}
	if u&gpu.BufferUsageIndirect != 0 {
		flags |= core1_0.BufferUsageIndirectBuffer
	}
	return flags
}

// convTextureUsage also returns the format features the usage needs.
func convTextureUsage(u gpu.TextureUsage) (core1_0.ImageUsageFlags, core1_0.FormatFeatureFlags) {
	usage := core1_0.ImageUsageTransferDst | core1_0.ImageUsageTransferSrc
	var features core1_0.FormatFeatureFlags
	if u&gpu.TextureUsageSampler != 0 {
		usage |= core1_0.ImageUsageSampled
		features |= core1_0.FormatFeatureSampledImage
	}
	if u&gpu.TextureUsageColorTarget != 0 {
		usage |= core1_0.ImageUsageColorAttachment
		features |= core1_0.FormatFeatureColorAttachment
	}
	if u&gpu.TextureUsageDepthStencilTarget != 0 {
		usage |= core1_0.ImageUsageDepthStencilAttachment
		features |= core1_0.FormatFeatureDepthStencilAttachment
	}
	return usage, features
}

// layoutAccess returns the stages and accesses that use an image in
// layout, for the source or destination half of a barrier.
func layoutAccess(layout core1_0.ImageLayout) (core1_0.PipelineStageFlags, core1_0.AccessFlags) {
	switch layout {
	case core1_0.ImageLayoutTransferDstOptimal:
		return core1_0.PipelineStageTransfer, core1_0.AccessTransferWrite
	case core1_0.ImageLayoutShaderReadOnlyOptimal:
		return core1_0.PipelineStageVertexShader | core1_0.PipelineStageFragmentShader, core1_0.AccessShaderRead
	case core1_0.ImageLayoutColorAttachmentOptimal:
		return core1_0.PipelineStageColorAttachmentOutput,
			core1_0.AccessColorAttachmentRead | core1_0.AccessColorAttachmentWrite
	case core1_0.ImageLayoutDepthStencilAttachmentOptimal:
		return core1_0.PipelineStageEarlyFragmentTests | core1_0.PipelineStageLateFragmentTests,
			core1_0.AccessDepthStencilAttachmentRead | core1_0.AccessDepthStencilAttachmentWrite
	case khr_swapchain.ImageLayoutPresentSrc:
		return core1_0.PipelineStageBottomOfPipe, 0
	}
	return core1_0.PipelineStageTopOfPipe, 0
}
