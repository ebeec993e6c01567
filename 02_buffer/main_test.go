package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/utils"
)

func TestVertexLayoutMatchesShader(t *testing.T) {
	layout, err := utils.LayoutOf[Vertex](0)
	require.NoError(t, err)

	require.Len(t, layout.VertexBufferDescriptions, 1)
	assert.Equal(t, 20, layout.VertexBufferDescriptions[0].Pitch)
	assert.Equal(t, []gpu.VertexAttribute{
		{Location: 0, BufferSlot: 0, Format: gpu.VertexElementFormatFloat2, Offset: 0},
		{Location: 1, BufferSlot: 0, Format: gpu.VertexElementFormatFloat3, Offset: 8},
	}, layout.VertexAttributes)
}

func TestIndicesAddressQuad(t *testing.T) {
	require.Len(t, indices, 6)
	for _, i := range indices {
		assert.Less(t, int(i), len(vertices))
	}

	data, err := utils.Encode(indices)
	require.NoError(t, err)
	assert.Len(t, data, 6*gpu.IndexElementSize32Bit.Bytes())
}
