package memgpu

import (
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

func spirv() []byte {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, spirvMagic)
	return code
}

func upload(t *testing.T, d *Device, buf gpu.Buffer, data []byte) gpu.TransferBuffer {
	t.Helper()
	tb, err := d.CreateTransferBuffer(gpu.TransferBufferCreateInfo{Usage: gpu.TransferBufferUsageUpload, Size: len(data)})
	require.NoError(t, err)
	mem, err := d.MapTransferBuffer(tb, false)
	require.NoError(t, err)
	copy(mem, data)
	d.UnmapTransferBuffer(tb)

	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	cp := cb.BeginCopyPass()
	cp.UploadToBuffer(gpu.TransferBufferLocation{TransferBuffer: tb}, gpu.BufferRegion{Buffer: buf, Size: len(data)}, false)
	cp.End()
	require.NoError(t, cb.Submit())
	return tb
}

func testPipeline(t *testing.T, d *Device, input gpu.VertexInputState) gpu.GraphicsPipeline {
	t.Helper()
	vs, err := d.CreateShader(gpu.ShaderCreateInfo{Code: spirv(), Entrypoint: "main", Format: gpu.ShaderFormatSPIRV, Stage: gpu.ShaderStageVertex})
	require.NoError(t, err)
	fs, err := d.CreateShader(gpu.ShaderCreateInfo{Code: spirv(), Entrypoint: "main", Format: gpu.ShaderFormatSPIRV, Stage: gpu.ShaderStageFragment})
	require.NoError(t, err)
	p, err := d.CreateGraphicsPipeline(gpu.GraphicsPipelineCreateInfo{
		VertexShader:     vs,
		FragmentShader:   fs,
		VertexInputState: input,
		TargetInfo: gpu.GraphicsPipelineTargetInfo{
			ColorTargetDescriptions: []gpu.ColorTargetDescription{{Format: gpu.TextureFormatB8G8R8A8Unorm}},
		},
	})
	require.NoError(t, err)
	return p
}

func TestUploadExecutesOnCompletion(t *testing.T) {
	d := New()
	buf, err := d.CreateBuffer(gpu.BufferCreateInfo{Usage: gpu.BufferUsageVertex, Size: 4})
	require.NoError(t, err)

	tb := upload(t, d, buf, []byte{1, 2, 3, 4})
	d.ReleaseTransferBuffer(tb)

	assert.Equal(t, []byte{0, 0, 0, 0}, Bytes(buf))
	assert.Equal(t, 1, d.Pending())

	require.NoError(t, d.WaitForIdle())
	assert.Equal(t, []byte{1, 2, 3, 4}, Bytes(buf))
	assert.Equal(t, 0, d.Pending())
}

func TestReleaseWhilePendingIsDeferred(t *testing.T) {
	d := New()
	buf, err := d.CreateBuffer(gpu.BufferCreateInfo{Usage: gpu.BufferUsageVertex, Size: 2})
	require.NoError(t, err)
	tb := upload(t, d, buf, []byte{7, 8})
	tbID, _ := IDOf(tb)

	d.ReleaseTransferBuffer(tb)
	live := d.Live()
	require.NoError(t, d.WaitForIdle())
	assert.Equal(t, live-1, d.Live())

	var release, free, complete int
	for _, ev := range d.Events() {
		switch {
		case ev.Kind == EventRelease && ev.ID == tbID:
			release = ev.Seq
			assert.True(t, ev.Deferred)
		case ev.Kind == EventFree && ev.ID == tbID:
			free = ev.Seq
		case ev.Kind == EventComplete:
			complete = ev.Seq
		}
	}
	assert.NotZero(t, release)
	assert.Greater(t, free, complete)
	assert.Greater(t, complete, release)
}

func TestReleaseWhenIdleFreesImmediately(t *testing.T) {
	d := New()
	s, err := d.CreateSampler(gpu.SamplerCreateInfo{MinLod: 1, MaxLod: 1})
	require.NoError(t, err)
	d.ReleaseSampler(s)

	events := d.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventRelease, events[1].Kind)
	assert.False(t, events[1].Deferred)
	assert.Equal(t, EventFree, events[2].Kind)
	assert.Equal(t, 0, d.Live())
}

func TestDownloadRoundTrip(t *testing.T) {
	d := New()
	data := []byte("round trip payload")
	buf, err := d.CreateBuffer(gpu.BufferCreateInfo{Usage: gpu.BufferUsageVertex, Size: len(data)})
	require.NoError(t, err)
	d.ReleaseTransferBuffer(upload(t, d, buf, data))

	tb, err := d.CreateTransferBuffer(gpu.TransferBufferCreateInfo{Usage: gpu.TransferBufferUsageDownload, Size: len(data)})
	require.NoError(t, err)
	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	cp := cb.BeginCopyPass()
	cp.DownloadFromBuffer(gpu.BufferRegion{Buffer: buf, Size: len(data)}, gpu.TransferBufferLocation{TransferBuffer: tb})
	cp.End()
	require.NoError(t, cb.Submit())
	require.NoError(t, d.WaitForIdle())

	mem, err := d.MapTransferBuffer(tb, false)
	require.NoError(t, err)
	assert.Equal(t, data, mem)
}

func TestUploadToTextureRegion(t *testing.T) {
	d := New()
	tex, err := d.CreateTexture(gpu.TextureCreateInfo{
		Format: gpu.TextureFormatR8G8B8A8Unorm, Usage: gpu.TextureUsageSampler,
		Width: 2, Height: 2, LayerCountOrDepth: 1, NumLevels: 1,
	})
	require.NoError(t, err)

	pixels := []byte{
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
	}
	tb, err := d.CreateTransferBuffer(gpu.TransferBufferCreateInfo{Usage: gpu.TransferBufferUsageUpload, Size: len(pixels)})
	require.NoError(t, err)
	mem, err := d.MapTransferBuffer(tb, false)
	require.NoError(t, err)
	copy(mem, pixels)
	d.UnmapTransferBuffer(tb)

	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	cp := cb.BeginCopyPass()
	cp.UploadToTexture(gpu.TextureTransferInfo{TransferBuffer: tb}, gpu.TextureRegion{Texture: tex, W: 2, H: 2, D: 1}, false)
	cp.End()
	require.NoError(t, cb.Submit())
	require.NoError(t, d.WaitForIdle())

	assert.Equal(t, pixels, Pixels(tex))
}

func TestCycleKeepsPendingContents(t *testing.T) {
	d := New()
	buf, err := d.CreateBuffer(gpu.BufferCreateInfo{Usage: gpu.BufferUsageVertex, Size: 1})
	require.NoError(t, err)
	tb := upload(t, d, buf, []byte{1})

	mem, err := d.MapTransferBuffer(tb, true)
	require.NoError(t, err)
	mem[0] = 9
	d.UnmapTransferBuffer(tb)

	require.NoError(t, d.WaitForIdle())
	assert.Equal(t, []byte{1}, Bytes(buf))
}

func TestSubmitRejectsOutOfOrderRecording(t *testing.T) {
	d := New()
	w := NewWindow(64, 32)
	require.NoError(t, d.ClaimWindow(w))
	p := testPipeline(t, d, gpu.VertexInputState{})

	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	tex, err := cb.WaitAndAcquireSwapchainTexture(w)
	require.NoError(t, err)
	rp := cb.BeginRenderPass([]gpu.ColorTargetInfo{{Texture: tex, LoadOp: gpu.LoadOpClear}}, nil)
	rp.DrawPrimitives(3, 1, 0, 0)
	rp.BindGraphicsPipeline(p)
	rp.End()

	err = cb.Submit()
	assert.True(t, errors.Is(err, gpu.ErrInvalidCommandOrder))
	assert.Empty(t, d.Submissions())
}

func TestDrawRequiresBoundVertexBuffers(t *testing.T) {
	d := New()
	w := NewWindow(64, 32)
	require.NoError(t, d.ClaimWindow(w))
	p := testPipeline(t, d, gpu.VertexInputState{
		VertexBufferDescriptions: []gpu.VertexBufferDescription{{Slot: 0, Pitch: 8}},
		VertexAttributes:         []gpu.VertexAttribute{{Location: 0, Format: gpu.VertexElementFormatFloat2}},
	})

	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	tex, err := cb.WaitAndAcquireSwapchainTexture(w)
	require.NoError(t, err)
	rp := cb.BeginRenderPass([]gpu.ColorTargetInfo{{Texture: tex}}, nil)
	rp.BindGraphicsPipeline(p)
	rp.DrawPrimitives(3, 1, 0, 0)
	rp.End()

	assert.True(t, errors.Is(cb.Submit(), gpu.ErrInvalidCommandOrder))
}

func TestRecordsDrawState(t *testing.T) {
	d := New()
	w := NewWindow(64, 32)
	require.NoError(t, d.ClaimWindow(w))
	p := testPipeline(t, d, gpu.VertexInputState{})

	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	tex, err := cb.WaitAndAcquireSwapchainTexture(w)
	require.NoError(t, err)
	require.NotNil(t, tex)
	assert.Equal(t, 64, tex.Width())

	rp := cb.BeginRenderPass([]gpu.ColorTargetInfo{{Texture: tex, ClearColor: gpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1}}}, nil)
	rp.BindGraphicsPipeline(p)
	rp.SetViewport(gpu.Viewport{W: 64, H: 32, MaxDepth: 1})
	cb.PushVertexUniformData(0, []byte{1})
	rp.DrawPrimitives(3, 1, 0, 0)
	cb.PushVertexUniformData(0, []byte{2})
	rp.DrawPrimitives(3, 1, 0, 0)
	rp.End()
	require.NoError(t, cb.Submit())

	subs := d.Submissions()
	require.Len(t, subs, 1)
	assert.True(t, subs[0].Presents)

	begin, ok := subs[0].Find(OpBeginRenderPass)
	require.True(t, ok)
	assert.Equal(t, float32(0.1), begin.ClearColor.R)

	draws := subs[0].Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, []byte{1}, draws[0].VertexUniforms[0])
	assert.Equal(t, []byte{2}, draws[1].VertexUniforms[0])
	assert.Equal(t, float32(64), draws[1].Viewport.W)
}

func TestSwapchainAcquisition(t *testing.T) {
	d := New(WithFramesInFlight(2))
	w := NewWindow(10, 10)

	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	_, err = cb.WaitAndAcquireSwapchainTexture(w)
	assert.True(t, errors.Is(err, gpu.ErrWindowNotClaimed))

	require.NoError(t, d.ClaimWindow(w))
	assert.Equal(t, gpu.TextureFormatB8G8R8A8Unorm, d.SwapchainTextureFormat(w))

	w.Minimize()
	cb, err = d.AcquireCommandBuffer()
	require.NoError(t, err)
	tex, err := cb.WaitAndAcquireSwapchainTexture(w)
	require.NoError(t, err)
	assert.Nil(t, tex)
	require.NoError(t, cb.Cancel())
	w.Restore()

	// Two frames may be in flight; the third acquisition retires the oldest.
	for i := 0; i < 3; i++ {
		cb, err := d.AcquireCommandBuffer()
		require.NoError(t, err)
		tex, err := cb.WaitAndAcquireSwapchainTexture(w)
		require.NoError(t, err)
		require.NotNil(t, tex)
		rp := cb.BeginRenderPass([]gpu.ColorTargetInfo{{Texture: tex}}, nil)
		rp.End()
		require.NoError(t, cb.Submit())
	}
	assert.Equal(t, 2, d.Pending())
	assert.True(t, d.Submissions()[0].Completed)
}

func TestInjectedFailures(t *testing.T) {
	d := New()
	w := NewWindow(10, 10)
	require.NoError(t, d.ClaimWindow(w))

	d.FailNextAcquire(errors.New("surface lost"))
	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	_, err = cb.WaitAndAcquireSwapchainTexture(w)
	assert.EqualError(t, err, "surface lost")
	require.NoError(t, cb.Cancel())

	d.FailNextSubmit(errors.New("queue full"))
	cb, err = d.AcquireCommandBuffer()
	require.NoError(t, err)
	assert.EqualError(t, cb.Submit(), "queue full")
	assert.Empty(t, d.Submissions())

	d.SetSwapchainAvailable(false)
	cb, err = d.AcquireCommandBuffer()
	require.NoError(t, err)
	tex, err := cb.WaitAndAcquireSwapchainTexture(w)
	require.NoError(t, err)
	assert.Nil(t, tex)
}

func TestCreateValidation(t *testing.T) {
	d := New()

	_, err := d.CreateShader(gpu.ShaderCreateInfo{Entrypoint: "main", Format: gpu.ShaderFormatSPIRV})
	assert.Error(t, err)
	_, err = d.CreateShader(gpu.ShaderCreateInfo{Code: []byte{1, 2, 3, 4}, Entrypoint: "main", Format: gpu.ShaderFormatSPIRV})
	assert.Error(t, err)
	_, err = d.CreateShader(gpu.ShaderCreateInfo{Code: spirv(), Entrypoint: "main", Format: gpu.ShaderFormatInvalid})
	assert.True(t, errors.Is(err, gpu.ErrUnsupportedFormat))

	_, err = d.CreateBuffer(gpu.BufferCreateInfo{Usage: gpu.BufferUsageVertex})
	assert.Error(t, err)
	_, err = d.CreateTexture(gpu.TextureCreateInfo{Format: gpu.TextureFormatR8G8B8A8Unorm, Usage: gpu.TextureUsageDepthStencilTarget, Width: 1, Height: 1})
	assert.True(t, errors.Is(err, gpu.ErrUnsupportedFormat))

	vs, err := d.CreateShader(gpu.ShaderCreateInfo{Code: spirv(), Entrypoint: "main", Format: gpu.ShaderFormatSPIRV, Stage: gpu.ShaderStageVertex})
	require.NoError(t, err)
	fs, err := d.CreateShader(gpu.ShaderCreateInfo{Code: spirv(), Entrypoint: "main", Format: gpu.ShaderFormatSPIRV, Stage: gpu.ShaderStageFragment})
	require.NoError(t, err)
	_, err = d.CreateGraphicsPipeline(gpu.GraphicsPipelineCreateInfo{
		VertexShader:   vs,
		FragmentShader: fs,
		VertexInputState: gpu.VertexInputState{
			VertexBufferDescriptions: []gpu.VertexBufferDescription{{Slot: 0, Pitch: 8}},
			VertexAttributes:         []gpu.VertexAttribute{{Location: 0, Format: gpu.VertexElementFormatFloat3}},
		},
		TargetInfo: gpu.GraphicsPipelineTargetInfo{
			ColorTargetDescriptions: []gpu.ColorTargetDescription{{Format: gpu.TextureFormatB8G8R8A8Unorm}},
		},
	})
	assert.ErrorContains(t, err, "overruns pitch")
}

func TestUseAfterRelease(t *testing.T) {
	d := New()
	buf, err := d.CreateBuffer(gpu.BufferCreateInfo{Usage: gpu.BufferUsageVertex, Size: 4})
	require.NoError(t, err)
	d.ReleaseBuffer(buf)

	tb, err := d.CreateTransferBuffer(gpu.TransferBufferCreateInfo{Usage: gpu.TransferBufferUsageUpload, Size: 4})
	require.NoError(t, err)
	cb, err := d.AcquireCommandBuffer()
	require.NoError(t, err)
	cp := cb.BeginCopyPass()
	cp.UploadToBuffer(gpu.TransferBufferLocation{TransferBuffer: tb}, gpu.BufferRegion{Buffer: buf, Size: 4}, false)
	cp.End()
	assert.True(t, errors.Is(cb.Submit(), gpu.ErrReleased))
}

func TestRegisteredDriver(t *testing.T) {
	assert.Contains(t, gpu.Drivers(), DriverName)
	dev, err := gpu.CreateDevice(gpu.ShaderFormatSPIRV, false, DriverName)
	require.NoError(t, err)
	assert.Equal(t, DriverName, dev.Driver())
	dev.Destroy()
}
