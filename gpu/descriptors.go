package gpu

type ShaderCreateInfo struct {
	Code       []byte
	Entrypoint string
	Format     ShaderFormat
	Stage      ShaderStage

	NumSamplers        int
	NumStorageTextures int
	NumStorageBuffers  int
	NumUniformBuffers  int
}

type BufferCreateInfo struct {
	Usage BufferUsage
	Size  int
}

type TransferBufferCreateInfo struct {
	Usage TransferBufferUsage
	Size  int
}

type TextureCreateInfo struct {
	Type              TextureType
	Format            TextureFormat
	Usage             TextureUsage
	Width             int
	Height            int
	LayerCountOrDepth int
	NumLevels         int
	SampleCount       SampleCount
}

type SamplerCreateInfo struct {
	MinFilter    Filter
	MagFilter    Filter
	MipmapMode   SamplerMipmapMode
	AddressModeU SamplerAddressMode
	AddressModeV SamplerAddressMode
	AddressModeW SamplerAddressMode

	MipLodBias       float32
	MinLod           float32
	MaxLod           float32
	MaxAnisotropy    float32
	EnableAnisotropy bool
	CompareOp        CompareOp
	EnableCompare    bool
}

type VertexBufferDescription struct {
	Slot             int
	Pitch            int
	InputRate        VertexInputRate
	InstanceStepRate int
}

type VertexAttribute struct {
	Location   int
	BufferSlot int
	Format     VertexElementFormat
	Offset     int
}

type VertexInputState struct {
	VertexBufferDescriptions []VertexBufferDescription
	VertexAttributes         []VertexAttribute
}

type RasterizerState struct {
	FillMode  FillMode
	CullMode  CullMode
	FrontFace FrontFace

	DepthBiasConstantFactor float32
	DepthBiasClamp          float32
	DepthBiasSlopeFactor    float32
	EnableDepthBias         bool
	EnableDepthClip         bool
}

type MultisampleState struct {
	SampleCount SampleCount
	SampleMask  uint32
}

type StencilOpState struct {
	FailOp      StencilOp
	PassOp      StencilOp
	DepthFailOp StencilOp
	CompareOp   CompareOp
}

type DepthStencilState struct {
	CompareOp         CompareOp
	BackStencilState  StencilOpState
	FrontStencilState StencilOpState
	CompareMask       uint8
	WriteMask         uint8

	EnableDepthTest   bool
	EnableDepthWrite  bool
	EnableStencilTest bool
}

type ColorTargetBlendState struct {
	SrcColorBlendFactor BlendFactor
	DstColorBlendFactor BlendFactor
	ColorBlendOp        BlendOp
	SrcAlphaBlendFactor BlendFactor
	DstAlphaBlendFactor BlendFactor
	AlphaBlendOp        BlendOp

	ColorWriteMask       ColorComponent
	EnableBlend          bool
	EnableColorWriteMask bool
}

type ColorTargetDescription struct {
	Format     TextureFormat
	BlendState ColorTargetBlendState
}

type GraphicsPipelineTargetInfo struct {
	ColorTargetDescriptions []ColorTargetDescription
	DepthStencilFormat      TextureFormat
	HasDepthStencilTarget   bool
}

type GraphicsPipelineCreateInfo struct {
	VertexShader   Shader
	FragmentShader Shader

	VertexInputState  VertexInputState
	PrimitiveType     PrimitiveType
	RasterizerState   RasterizerState
	MultisampleState  MultisampleState
	DepthStencilState DepthStencilState
	TargetInfo        GraphicsPipelineTargetInfo
}

type ColorTargetInfo struct {
	Texture    Texture
	ClearColor Color
	LoadOp     LoadOp
	StoreOp    StoreOp
	Cycle      bool
}

type DepthStencilTargetInfo struct {
	Texture        Texture
	ClearDepth     float32
	LoadOp         LoadOp
	StoreOp        StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
	ClearStencil   uint8
	Cycle          bool
}

type TransferBufferLocation struct {
	TransferBuffer TransferBuffer
	Offset         int
}

type BufferRegion struct {
	Buffer Buffer
	Offset int
	Size   int
}

type TextureTransferInfo struct {
	TransferBuffer TransferBuffer
	Offset         int
	// PixelsPerRow and RowsPerLayer default to the destination region's
	// width and height when zero.
	PixelsPerRow int
	RowsPerLayer int
}

type TextureRegion struct {
	Texture  Texture
	MipLevel int
	Layer    int
	X, Y, Z  int
	W, H, D  int
}

type BufferBinding struct {
	Buffer Buffer
	Offset int
}

type TextureSamplerBinding struct {
	Texture Texture
	Sampler Sampler
}
