// Package gpu defines the GPU abstraction used by the examples: a device
// that owns resources and records work into command buffers, copy and
// render passes recorded into them, and a window the device presents to.
//
// Backends live in subpackages and register themselves from init, see
// Register. Work recorded into a command buffer executes asynchronously
// after Submit, in submission order. Release calls may happen while
// submitted work still references a resource; backends defer the actual
// free until that work has completed.
package gpu

// Window is anything a Device can present to.
type Window interface {
	// Size returns the drawable size in pixels.
	Size() (w, h int)
	Minimized() bool
}

type Buffer interface {
	Size() int
	Usage() BufferUsage
}

type TransferBuffer interface {
	Size() int
	Usage() TransferBufferUsage
}

type Texture interface {
	Width() int
	Height() int
	Format() TextureFormat
}

type Sampler interface {
	Info() SamplerCreateInfo
}

type Shader interface {
	Stage() ShaderStage
}

type GraphicsPipeline interface {
	VertexInput() VertexInputState
}

type Device interface {
	// Driver returns the name the backend was registered under.
	Driver() string
	ShaderFormats() ShaderFormat

	// ClaimWindow binds w to the device for presentation. A window must be
	// claimed before its swapchain textures can be acquired.
	ClaimWindow(w Window) error
	ReleaseWindow(w Window)
	SwapchainTextureFormat(w Window) TextureFormat

	CreateShader(info ShaderCreateInfo) (Shader, error)
	CreateGraphicsPipeline(info GraphicsPipelineCreateInfo) (GraphicsPipeline, error)
	CreateBuffer(info BufferCreateInfo) (Buffer, error)
	CreateTransferBuffer(info TransferBufferCreateInfo) (TransferBuffer, error)
	CreateTexture(info TextureCreateInfo) (Texture, error)
	CreateSampler(info SamplerCreateInfo) (Sampler, error)

	// MapTransferBuffer returns the host-visible memory of tb. The slice is
	// valid until UnmapTransferBuffer.
	MapTransferBuffer(tb TransferBuffer, cycle bool) ([]byte, error)
	UnmapTransferBuffer(tb TransferBuffer)

	AcquireCommandBuffer() (CommandBuffer, error)

	// WaitForIdle blocks until all submitted work has completed.
	WaitForIdle() error

	ReleaseShader(s Shader)
	ReleaseGraphicsPipeline(p GraphicsPipeline)
	ReleaseBuffer(b Buffer)
	ReleaseTransferBuffer(tb TransferBuffer)
	ReleaseTexture(t Texture)
	ReleaseSampler(s Sampler)

	// Destroy frees the device. Every resource must have been released.
	Destroy()
}

// CommandBuffer records passes for a single submission. Once Submit or
// Cancel returns the command buffer must not be used again.
type CommandBuffer interface {
	BeginCopyPass() CopyPass
	BeginRenderPass(colorTargets []ColorTargetInfo, depthStencilTarget *DepthStencilTargetInfo) RenderPass

	// PushVertexUniformData and PushFragmentUniformData set the uniform data
	// seen by subsequent draws in slot.
	PushVertexUniformData(slot int, data []byte)
	PushFragmentUniformData(slot int, data []byte)

	// WaitAndAcquireSwapchainTexture blocks until a swapchain texture for w
	// is available. A nil texture with a nil error means no target is
	// available this frame, for example while w is minimized.
	WaitAndAcquireSwapchainTexture(w Window) (Texture, error)

	// Submit hands the recorded work to the device. Recording errors, such
	// as passes issued out of order, are reported here and nothing is
	// executed.
	Submit() error
	Cancel() error
}

type CopyPass interface {
	UploadToBuffer(src TransferBufferLocation, dst BufferRegion, cycle bool)
	UploadToTexture(src TextureTransferInfo, dst TextureRegion, cycle bool)
	DownloadFromBuffer(src BufferRegion, dst TransferBufferLocation)
	End()
}

type RenderPass interface {
	BindGraphicsPipeline(p GraphicsPipeline)
	SetViewport(v Viewport)
	SetScissor(r Rect)
	BindVertexBuffers(firstSlot int, bindings ...BufferBinding)
	BindIndexBuffer(binding BufferBinding, size IndexElementSize)
	BindFragmentSamplers(firstSlot int, bindings ...TextureSamplerBinding)
	DrawPrimitives(numVertices, numInstances, firstVertex, firstInstance int)
	DrawIndexedPrimitives(numIndices, numInstances, firstIndex, vertexOffset, firstInstance int)
	End()
}
