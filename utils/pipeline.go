package utils

import (
	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

type PipelineConfig struct {
	Shaders       ShaderBundle
	VertexInput   gpu.VertexInputState
	PrimitiveType gpu.PrimitiveType

	Blend     gpu.ColorTargetBlendState
	FillMode  gpu.FillMode
	CullMode  gpu.CullMode
	FrontFace gpu.FrontFace

	// DepthFormat enables depth testing and writing against a depth target
	// of this format when valid.
	DepthFormat  gpu.TextureFormat
	DepthCompare gpu.CompareOp
}

// DefaultBlend adds the source color to nothing, which with blending
// enabled is plain replacement.
func DefaultBlend() gpu.ColorTargetBlendState {
	return gpu.ColorTargetBlendState{
		SrcColorBlendFactor: gpu.BlendFactorOne,
		DstColorBlendFactor: gpu.BlendFactorZero,
		ColorBlendOp:        gpu.BlendOpAdd,
		SrcAlphaBlendFactor: gpu.BlendFactorOne,
		DstAlphaBlendFactor: gpu.BlendFactorZero,
		AlphaBlendOp:        gpu.BlendOpAdd,
		ColorWriteMask:      gpu.ColorComponentAll,
		EnableBlend:         true,
	}
}

// AlphaBlend composites premultiplied color over the target.
func AlphaBlend() gpu.ColorTargetBlendState {
	blend := DefaultBlend()
	blend.DstColorBlendFactor = gpu.BlendFactorOneMinusSrcAlpha
	return blend
}

// PipelineCreateInfo translates cfg into a pipeline description targeting
// colorFormat.
func PipelineCreateInfo(cfg PipelineConfig, colorFormat gpu.TextureFormat) gpu.GraphicsPipelineCreateInfo {
	info := gpu.GraphicsPipelineCreateInfo{
		VertexShader:     cfg.Shaders.Vertex,
		FragmentShader:   cfg.Shaders.Fragment,
		VertexInputState: cfg.VertexInput,
		PrimitiveType:    cfg.PrimitiveType,
		RasterizerState: gpu.RasterizerState{
			FillMode:  cfg.FillMode,
			CullMode:  cfg.CullMode,
			FrontFace: cfg.FrontFace,
		},
		MultisampleState: gpu.MultisampleState{SampleCount: gpu.SampleCount1},
		TargetInfo: gpu.GraphicsPipelineTargetInfo{
			ColorTargetDescriptions: []gpu.ColorTargetDescription{{
				Format:     colorFormat,
				BlendState: cfg.Blend,
			}},
		},
	}

	if cfg.DepthFormat.IsDepth() {
		compare := cfg.DepthCompare
		if compare == gpu.CompareOpInvalid {
			compare = gpu.CompareOpLess
		}
		info.TargetInfo.HasDepthStencilTarget = true
		info.TargetInfo.DepthStencilFormat = cfg.DepthFormat
		info.DepthStencilState = gpu.DepthStencilState{
			CompareOp: compare,
			BackStencilState: gpu.StencilOpState{
				FailOp:      gpu.StencilOpZero,
				PassOp:      gpu.StencilOpZero,
				DepthFailOp: gpu.StencilOpZero,
				CompareOp:   gpu.CompareOpNever,
			},
			CompareMask:      0xFF,
			WriteMask:        0xFF,
			EnableDepthTest:  true,
			EnableDepthWrite: true,
		}
	}
	return info
}

// CreatePipeline builds the pipeline for rendering into win's swapchain.
func CreatePipeline(dev gpu.Device, win gpu.Window, cfg PipelineConfig) (gpu.GraphicsPipeline, error) {
	format := dev.SwapchainTextureFormat(win)
	if format == gpu.TextureFormatInvalid {
		return nil, errors.Wrap(gpu.ErrWindowNotClaimed, "no swapchain format")
	}

	p, err := dev.CreateGraphicsPipeline(PipelineCreateInfo(cfg, format))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create graphics pipeline")
	}
	return p, nil
}

// CreatePipeline creates a pipeline owned by the session targeting the
// session window.
func (s *Session) CreatePipeline(cfg PipelineConfig) (gpu.GraphicsPipeline, error) {
	p, err := CreatePipeline(s.Device, s.Window, cfg)
	if err != nil {
		return nil, err
	}
	s.OwnPipeline(p)
	return p, nil
}
