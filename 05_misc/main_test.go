package main

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/input"
	"github.com/vkngwrapper/gpuexamples/utils"
)

func TestVertexLayout(t *testing.T) {
	layout, err := utils.LayoutOf[Vertex](0)
	require.NoError(t, err)

	assert.Equal(t, 20, layout.VertexBufferDescriptions[0].Pitch)
	require.Len(t, layout.VertexAttributes, 2)
	assert.Equal(t, gpu.VertexElementFormatFloat3, layout.VertexAttributes[0].Format)
	assert.Equal(t, gpu.VertexElementFormatFloat2, layout.VertexAttributes[1].Format)
	assert.Equal(t, 12, layout.VertexAttributes[1].Offset)
}

func TestPlanesKeepInsertionOrder(t *testing.T) {
	planes := initPlanes(nil, nil)
	require.Len(t, planes, 3)

	assert.Equal(t, mgl32.Vec3{10, 10, 10}, planes[0].Scale)
	assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, planes[0].Color)
	assert.Equal(t, mgl32.Vec3{0.2, 0, -4}, planes[1].Position)
	assert.Equal(t, mgl32.Vec3{-0.2, 0, -3}, planes[2].Position)
	assert.Equal(t, mgl32.Vec4{0.5, 0, 0, 1}, planes[2].Color)
}

func TestUpdateFollowsCamera(t *testing.T) {
	app := newMiscApp(1024, 720)
	assert.Equal(t, utils.Perspective(1024, 720), app.mvp.Proj)

	assert.False(t, app.HandleEvent(input.KeyDownEvent{Key: input.KeyW}))
	app.Update()
	assert.Equal(t, utils.ViewMatrix(mgl32.Vec3{0, 0, -utils.CameraSpeed}, mgl32.Vec3{}), app.mvp.View)

	assert.True(t, app.HandleEvent(input.KeyDownEvent{Key: input.KeyEscape}))
}
