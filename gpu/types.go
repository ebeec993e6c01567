package gpu

import "fmt"

type ShaderFormat uint32

const (
	ShaderFormatSPIRV ShaderFormat = 1 << iota
	ShaderFormatDXIL
	ShaderFormatMSL

	ShaderFormatInvalid ShaderFormat = 0
)

func (f ShaderFormat) String() string {
	if f == ShaderFormatInvalid {
		return "Invalid"
	}

	var s string
	add := func(name string) {
		if s != "" {
			s += "|"
		}
		s += name
	}
	if f&ShaderFormatSPIRV != 0 {
		add("SPIRV")
	}
	if f&ShaderFormatDXIL != 0 {
		add("DXIL")
	}
	if f&ShaderFormatMSL != 0 {
		add("MSL")
	}
	return s
}

type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "Vertex"
	case ShaderStageFragment:
		return "Fragment"
	}
	return fmt.Sprintf("ShaderStage(%d)", int(s))
}

type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageIndirect
)

type TransferBufferUsage int

const (
	TransferBufferUsageUpload TransferBufferUsage = iota
	TransferBufferUsageDownload
)

type TextureType int

const (
	TextureType2D TextureType = iota
)

type TextureUsage uint32

const (
	TextureUsageSampler TextureUsage = 1 << iota
	TextureUsageColorTarget
	TextureUsageDepthStencilTarget
)

type TextureFormat int

const (
	TextureFormatInvalid TextureFormat = iota
	TextureFormatR8G8B8A8Unorm
	TextureFormatR8G8B8A8UnormSRGB
	TextureFormatB8G8R8A8Unorm
	TextureFormatB8G8R8A8UnormSRGB
	TextureFormatD16Unorm
	TextureFormatD32Float
	TextureFormatD24UnormS8Uint
)

var textureFormatNames = map[TextureFormat]string{
	TextureFormatInvalid:           "Invalid",
	TextureFormatR8G8B8A8Unorm:     "R8G8B8A8Unorm",
	TextureFormatR8G8B8A8UnormSRGB: "R8G8B8A8UnormSRGB",
	TextureFormatB8G8R8A8Unorm:     "B8G8R8A8Unorm",
	TextureFormatB8G8R8A8UnormSRGB: "B8G8R8A8UnormSRGB",
	TextureFormatD16Unorm:          "D16Unorm",
	TextureFormatD32Float:          "D32Float",
	TextureFormatD24UnormS8Uint:    "D24UnormS8Uint",
}

func (f TextureFormat) String() string {
	name, ok := textureFormatNames[f]
	if !ok {
		return fmt.Sprintf("TextureFormat(%d)", int(f))
	}
	return name
}

// BytesPerTexel returns the size of a single texel, or 0 for an invalid format.
func (f TextureFormat) BytesPerTexel() int {
	switch f {
	case TextureFormatR8G8B8A8Unorm, TextureFormatR8G8B8A8UnormSRGB,
		TextureFormatB8G8R8A8Unorm, TextureFormatB8G8R8A8UnormSRGB,
		TextureFormatD32Float, TextureFormatD24UnormS8Uint:
		return 4
	case TextureFormatD16Unorm:
		return 2
	}
	return 0
}

func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatD16Unorm || f == TextureFormatD32Float || f == TextureFormatD24UnormS8Uint
}

type SampleCount int

const (
	SampleCount1 SampleCount = iota
	SampleCount2
	SampleCount4
	SampleCount8
)

type VertexElementFormat int

const (
	VertexElementFormatInvalid VertexElementFormat = iota
	VertexElementFormatFloat
	VertexElementFormatFloat2
	VertexElementFormatFloat3
	VertexElementFormatFloat4
	VertexElementFormatUint
	VertexElementFormatUbyte4Norm
)

// Size returns the number of bytes a single element of this format occupies
// in a vertex buffer.
func (f VertexElementFormat) Size() int {
	switch f {
	case VertexElementFormatFloat, VertexElementFormatUint, VertexElementFormatUbyte4Norm:
		return 4
	case VertexElementFormatFloat2:
		return 8
	case VertexElementFormatFloat3:
		return 12
	case VertexElementFormatFloat4:
		return 16
	}
	return 0
}

func (f VertexElementFormat) String() string {
	switch f {
	case VertexElementFormatFloat:
		return "Float"
	case VertexElementFormatFloat2:
		return "Float2"
	case VertexElementFormatFloat3:
		return "Float3"
	case VertexElementFormatFloat4:
		return "Float4"
	case VertexElementFormatUint:
		return "Uint"
	case VertexElementFormatUbyte4Norm:
		return "Ubyte4Norm"
	}
	return "Invalid"
}

type VertexInputRate int

const (
	VertexInputRateVertex VertexInputRate = iota
	VertexInputRateInstance
)

type PrimitiveType int

const (
	PrimitiveTypeTriangleList PrimitiveType = iota
	PrimitiveTypeTriangleStrip
	PrimitiveTypeLineList
	PrimitiveTypeLineStrip
	PrimitiveTypePointList
)

type FillMode int

const (
	FillModeFill FillMode = iota
	FillModeLine
)

type CullMode int

const (
	CullModeNone CullMode = iota
	CullModeFront
	CullModeBack
)

type FrontFace int

const (
	FrontFaceCounterClockwise FrontFace = iota
	FrontFaceClockwise
)

type CompareOp int

const (
	CompareOpInvalid CompareOp = iota
	CompareOpNever
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
)

type StencilOp int

const (
	StencilOpInvalid StencilOp = iota
	StencilOpKeep
	StencilOpZero
	StencilOpReplace
	StencilOpIncrementAndClamp
	StencilOpDecrementAndClamp
	StencilOpInvert
	StencilOpIncrementAndWrap
	StencilOpDecrementAndWrap
)

type BlendFactor int

const (
	BlendFactorInvalid BlendFactor = iota
	BlendFactorZero
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
)

type BlendOp int

const (
	BlendOpInvalid BlendOp = iota
	BlendOpAdd
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

type ColorComponent uint8

const (
	ColorComponentR ColorComponent = 1 << iota
	ColorComponentG
	ColorComponentB
	ColorComponentA

	ColorComponentAll = ColorComponentR | ColorComponentG | ColorComponentB | ColorComponentA
)

type LoadOp int

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

type StoreOp int

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
)

type IndexElementSize int

const (
	IndexElementSize16Bit IndexElementSize = iota
	IndexElementSize32Bit
)

func (s IndexElementSize) Bytes() int {
	if s == IndexElementSize16Bit {
		return 2
	}
	return 4
}

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type SamplerMipmapMode int

const (
	SamplerMipmapModeNearest SamplerMipmapMode = iota
	SamplerMipmapModeLinear
)

type SamplerAddressMode int

const (
	SamplerAddressModeRepeat SamplerAddressMode = iota
	SamplerAddressModeMirroredRepeat
	SamplerAddressModeClampToEdge
)

type Color struct {
	R, G, B, A float32
}

type Viewport struct {
	X, Y, W, H         float32
	MinDepth, MaxDepth float32
}

type Rect struct {
	X, Y, W, H int
}
