package utils

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

type texturedVertex struct {
	X, Y, Z float32 `vertex:"position"`
	U, V    float32 `vertex:"uv"`
}

type vectorVertex struct {
	Position mgl32.Vec3
	Color    [4]uint8
	Layer    uint32
	Weight   float32
}

func TestLayoutMergesTaggedFields(t *testing.T) {
	state, err := LayoutOf[colorVertex](0)
	require.NoError(t, err)

	assert.Equal(t, []gpu.VertexBufferDescription{{Slot: 0, Pitch: 20, InputRate: gpu.VertexInputRateVertex}},
		state.VertexBufferDescriptions)
	assert.Equal(t, []gpu.VertexAttribute{
		{Location: 0, BufferSlot: 0, Format: gpu.VertexElementFormatFloat2, Offset: 0},
		{Location: 1, BufferSlot: 0, Format: gpu.VertexElementFormatFloat3, Offset: 8},
	}, state.VertexAttributes)

	state, err = LayoutOf[texturedVertex](2)
	require.NoError(t, err)
	assert.Equal(t, 20, state.VertexBufferDescriptions[0].Pitch)
	assert.Equal(t, []gpu.VertexAttribute{
		{Location: 0, BufferSlot: 2, Format: gpu.VertexElementFormatFloat3, Offset: 0},
		{Location: 1, BufferSlot: 2, Format: gpu.VertexElementFormatFloat2, Offset: 12},
	}, state.VertexAttributes)
}

func TestLayoutFieldTypes(t *testing.T) {
	state := MustLayoutOf[vectorVertex](0)
	assert.Equal(t, 24, state.VertexBufferDescriptions[0].Pitch)
	assert.Equal(t, []gpu.VertexAttribute{
		{Location: 0, Format: gpu.VertexElementFormatFloat3, Offset: 0},
		{Location: 1, Format: gpu.VertexElementFormatUbyte4Norm, Offset: 12},
		{Location: 2, Format: gpu.VertexElementFormatUint, Offset: 16},
		{Location: 3, Format: gpu.VertexElementFormatFloat, Offset: 20},
	}, state.VertexAttributes)
}

func TestLayoutUntaggedFieldsStaySeparate(t *testing.T) {
	type vertex struct {
		A, B float32
		C    float32 `vertex:"c"`
		D    float32 `vertex:"d"`
	}
	state := MustLayoutOf[vertex](0)
	require.Len(t, state.VertexAttributes, 4)
	for i, attr := range state.VertexAttributes {
		assert.Equal(t, gpu.VertexElementFormatFloat, attr.Format)
		assert.Equal(t, i*4, attr.Offset)
	}
}

func TestLayoutCapsMergeAtFloat4(t *testing.T) {
	type vertex struct {
		A, B, C, D, E float32 `vertex:"wide"`
	}
	state := MustLayoutOf[vertex](0)
	assert.Equal(t, []gpu.VertexAttribute{
		{Location: 0, Format: gpu.VertexElementFormatFloat4, Offset: 0},
		{Location: 1, Format: gpu.VertexElementFormatFloat, Offset: 16},
	}, state.VertexAttributes)
}

func TestLayoutErrors(t *testing.T) {
	_, err := LayoutOf[float32](0)
	assert.Error(t, err)

	_, err = LayoutOf[struct{}](0)
	assert.Error(t, err)

	_, err = LayoutOf[struct{ Pos [2]float64 }](0)
	assert.ErrorContains(t, err, "unsupported vertex type")

	assert.Panics(t, func() { MustLayoutOf[struct{ N int }](0) })
}

// The generated layout must satisfy pipeline validation.
func TestLayoutCreatesPipeline(t *testing.T) {
	s, _, _ := testSession(t)
	testPipeline(t, s, PipelineConfig{
		Blend:       DefaultBlend(),
		VertexInput: MustLayoutOf[vectorVertex](0),
	})
}
