package utils

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/gpu/memgpu"
)

func TestUploadRoundTrip(t *testing.T) {
	dev := memgpu.New()
	rng := rand.New(rand.NewSource(1))

	for _, size := range []int{1, 3, 64, 4099} {
		data := make([]byte, size)
		rng.Read(data)

		buf, err := UploadBuffer(dev, gpu.BufferUsageVertex, data)
		require.NoError(t, err)
		assert.Equal(t, size, buf.Size())

		got, err := DownloadBuffer(dev, buf, size)
		require.NoError(t, err)
		assert.Equal(t, data, got, "size %d", size)
		dev.ReleaseBuffer(buf)
	}
	assert.Equal(t, 0, dev.Live())
}

func TestUploadReturnsBeforeCompletion(t *testing.T) {
	dev := memgpu.New()

	buf, err := UploadBuffer(dev, gpu.BufferUsageIndex, []byte{9, 9})
	require.NoError(t, err)
	assert.Equal(t, 1, dev.Pending())
	assert.Equal(t, []byte{0, 0}, memgpu.Bytes(buf))

	// The transfer buffer is released with the copy still pending and is
	// freed once the copy completes.
	var deferred bool
	for _, ev := range dev.Events() {
		if ev.Kind == memgpu.EventRelease && ev.Resource == "transfer-buffer" {
			deferred = ev.Deferred
		}
	}
	assert.True(t, deferred)

	require.NoError(t, dev.WaitForIdle())
	assert.Equal(t, []byte{9, 9}, memgpu.Bytes(buf))
	assert.Equal(t, 1, dev.Live())
}

func TestUploadBufferErrors(t *testing.T) {
	dev := memgpu.New()

	_, err := UploadBuffer(dev, gpu.BufferUsageVertex, nil)
	assert.Error(t, err)

	dev.FailNextSubmit(assert.AnError)
	_, err = UploadBuffer(dev, gpu.BufferUsageVertex, []byte{1})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 0, dev.Live())
}

type colorVertex struct {
	X, Y    float32 `vertex:"position"`
	R, G, B float32 `vertex:"color"`
}

func TestUploadSliceEncoding(t *testing.T) {
	dev := memgpu.New()
	vertices := []colorVertex{
		{X: -0.5, Y: -0.5, R: 1},
		{X: 0.5, Y: 0.5, G: 1, B: 0.25},
	}

	buf, err := UploadSlice(dev, gpu.BufferUsageVertex, vertices)
	require.NoError(t, err)
	require.NoError(t, dev.WaitForIdle())

	want, err := Encode(vertices)
	require.NoError(t, err)
	assert.Len(t, want, 40)
	assert.Equal(t, want, memgpu.Bytes(buf))
}

func TestEncodeRejectsPadding(t *testing.T) {
	type padded struct {
		A uint8
		B float32
	}
	_, err := Encode([]padded{{}})
	assert.Error(t, err)

	data, err := Encode([]uint32{0, 1, 2, 0, 3, 2})
	require.NoError(t, err)
	assert.Len(t, data, 24)

	data, err = Encode([]mgl32.Vec4{{1, 0, 0, 1}})
	require.NoError(t, err)
	assert.Len(t, data, 16)
}

func TestUploadTexture(t *testing.T) {
	dev := memgpu.New()

	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 128})
	img.SetNRGBA(1, 0, color.NRGBA{B: 255, A: 255})

	tex, err := UploadTexture(dev, img)
	require.NoError(t, err)
	assert.Equal(t, gpu.TextureFormatR8G8B8A8Unorm, tex.Format())
	require.NoError(t, dev.WaitForIdle())
	assert.Equal(t, []byte{255, 0, 0, 128, 0, 0, 255, 255}, memgpu.Pixels(tex))

	sub := img.SubImage(image.Rect(1, 0, 2, 1)).(*image.NRGBA)
	tex, err = UploadTexture(dev, sub)
	require.NoError(t, err)
	require.NoError(t, dev.WaitForIdle())
	assert.Equal(t, []byte{0, 0, 255, 255}, memgpu.Pixels(tex))
}

func TestCreateDepthTexture(t *testing.T) {
	dev := memgpu.New()

	tex, err := CreateDepthTexture(dev, gpu.TextureFormatD16Unorm, 1024, 720)
	require.NoError(t, err)
	assert.Equal(t, 1024, tex.Width())
	assert.Equal(t, 720, tex.Height())

	_, err = CreateDepthTexture(dev, gpu.TextureFormatR8G8B8A8Unorm, 4, 4)
	assert.ErrorIs(t, err, gpu.ErrUnsupportedFormat)
}

func TestDefaultSampler(t *testing.T) {
	info := DefaultSampler()
	assert.Equal(t, gpu.FilterLinear, info.MinFilter)
	assert.Equal(t, gpu.SamplerAddressModeClampToEdge, info.AddressModeV)
	assert.Equal(t, float32(1), info.MinLod)
	assert.Equal(t, float32(1), info.MaxLod)
	assert.False(t, info.EnableAnisotropy)
	assert.False(t, info.EnableCompare)
}
