package utils

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/gpu/memgpu"
)

func draw3(f *Frame) {
	f.Pass.DrawPrimitives(3, 1, 0, 0)
}

func commandOps(sub *memgpu.Submission) []memgpu.Op {
	ops := make([]memgpu.Op, 0, len(sub.Commands))
	for _, c := range sub.Commands {
		ops = append(ops, c.Op)
	}
	return ops
}

func TestFrameRecordsInOrder(t *testing.T) {
	s, dev, _ := testSession(t)
	loop := NewFrameLoop(s, testPipeline(t, s, PipelineConfig{Blend: DefaultBlend()}))

	var during FrameState
	result, err := loop.Iterate(func(f *Frame) {
		during = loop.State()
		assert.Equal(t, DefaultWindowWidth, f.Width)
		assert.Equal(t, DefaultWindowHeight, f.Height)
		draw3(f)
	})
	require.NoError(t, err)
	assert.Equal(t, FrameRendered, result)
	assert.Equal(t, FrameRecording, during)
	assert.Equal(t, FrameIdle, loop.State())

	subs := dev.Submissions()
	require.Len(t, subs, 1)
	assert.True(t, subs[0].Presents)
	assert.Equal(t, []memgpu.Op{
		memgpu.OpBeginRenderPass,
		memgpu.OpBindPipeline,
		memgpu.OpSetViewport,
		memgpu.OpDraw,
		memgpu.OpEndRenderPass,
	}, commandOps(subs[0]))

	begin, _ := subs[0].Find(memgpu.OpBeginRenderPass)
	assert.Equal(t, DefaultClearColor, begin.ClearColor)
	assert.False(t, begin.HasDepth)
	assert.Equal(t, 1, loop.Stats().Frames)
}

func TestMinimizedWindowSkipsFrames(t *testing.T) {
	s, dev, ws := testSession(t)
	loop := NewFrameLoop(s, testPipeline(t, s, PipelineConfig{Blend: DefaultBlend()}))

	ws.win.Minimize()
	for i := 0; i < 5; i++ {
		result, err := loop.Iterate(draw3)
		require.NoError(t, err)
		assert.Equal(t, FrameSkippedMinimized, result)
		assert.Equal(t, FrameIdle, loop.State())
	}
	assert.Empty(t, dev.Submissions())
	assert.Zero(t, dev.CommandBuffersAcquired())
	assert.Equal(t, 5, loop.Stats().Skipped)

	ws.win.Restore()
	result, err := loop.Iterate(draw3)
	require.NoError(t, err)
	assert.Equal(t, FrameRendered, result)
	assert.Len(t, dev.Submissions(), 1)
}

func TestViewportFollowsResize(t *testing.T) {
	s, dev, ws := testSession(t)
	loop := NewFrameLoop(s, testPipeline(t, s, PipelineConfig{Blend: DefaultBlend()}))

	_, err := loop.Iterate(draw3)
	require.NoError(t, err)

	ws.win.Resize(800, 600)
	_, err = loop.Iterate(draw3)
	require.NoError(t, err)

	subs := dev.Submissions()
	require.Len(t, subs, 2)

	want := []gpu.Viewport{
		{W: DefaultWindowWidth, H: DefaultWindowHeight, MaxDepth: 1},
		{W: 800, H: 600, MaxDepth: 1},
	}
	for i, sub := range subs {
		vp, ok := sub.Find(memgpu.OpSetViewport)
		require.True(t, ok)
		assert.Equal(t, want[i], vp.Viewport)

		draws := sub.Draws()
		require.Len(t, draws, 1)
		assert.Equal(t, want[i], draws[0].Viewport)
	}
}

func TestNoSwapchainTargetCancels(t *testing.T) {
	s, dev, _ := testSession(t)
	loop := NewFrameLoop(s, testPipeline(t, s, PipelineConfig{Blend: DefaultBlend()}))

	dev.SetSwapchainAvailable(false)
	called := false
	result, err := loop.Iterate(func(f *Frame) { called = true })
	require.NoError(t, err)
	assert.Equal(t, FrameSkippedNoTarget, result)
	assert.False(t, called)
	assert.Empty(t, dev.Submissions())
	assert.Equal(t, 1, dev.CommandBuffersAcquired())

	dev.SetSwapchainAvailable(true)
	result, err = loop.Iterate(draw3)
	require.NoError(t, err)
	assert.Equal(t, FrameRendered, result)
}

func TestFrameFailuresAreNotFatal(t *testing.T) {
	s, dev, _ := testSession(t)
	loop := NewFrameLoop(s, testPipeline(t, s, PipelineConfig{Blend: DefaultBlend()}))

	dev.FailNextAcquire(assert.AnError)
	result, err := loop.Iterate(draw3)
	require.NoError(t, err)
	assert.Equal(t, FrameAcquireFailed, result)
	assert.Equal(t, FrameIdle, loop.State())

	dev.FailNextSubmit(assert.AnError)
	result, err = loop.Iterate(draw3)
	require.NoError(t, err)
	assert.Equal(t, FrameSubmitFailed, result)
	assert.Equal(t, FrameIdle, loop.State())

	result, err = loop.Iterate(draw3)
	require.NoError(t, err)
	assert.Equal(t, FrameRendered, result)

	stats := loop.Stats()
	assert.Equal(t, 1, stats.AcquireFailures)
	assert.Equal(t, 1, stats.SubmitFailures)
	assert.Equal(t, 1, stats.Frames)
	assert.Len(t, dev.Submissions(), 1)
}

func TestMisrecordedFrameIsRejected(t *testing.T) {
	s, dev, _ := testSession(t)
	vertexInput := MustLayoutOf[struct{ Pos mgl32.Vec2 }](0)
	loop := NewFrameLoop(s, testPipeline(t, s, PipelineConfig{Blend: DefaultBlend(), VertexInput: vertexInput}))

	// Drawing without the vertex buffer the pipeline reads.
	result, err := loop.Iterate(draw3)
	require.NoError(t, err)
	assert.Equal(t, FrameSubmitFailed, result)
	assert.Empty(t, dev.Submissions())
}

func TestDepthTargetFollowsWindowSize(t *testing.T) {
	s, dev, ws := testSession(t)
	p := testPipeline(t, s, PipelineConfig{Blend: DefaultBlend(), DepthFormat: gpu.TextureFormatD16Unorm})
	loop := NewFrameLoop(s, p)
	loop.DepthFormat = gpu.TextureFormatD16Unorm

	depthOf := func(sub *memgpu.Submission) interface{} {
		begin, ok := sub.Find(memgpu.OpBeginRenderPass)
		require.True(t, ok)
		require.True(t, begin.HasDepth)
		assert.Equal(t, float32(1), begin.ClearDepth)
		require.Len(t, begin.Resources, 2)
		return begin.Resources[1]
	}

	for i := 0; i < 2; i++ {
		_, err := loop.Iterate(draw3)
		require.NoError(t, err)
	}
	ws.win.Resize(640, 480)
	_, err := loop.Iterate(draw3)
	require.NoError(t, err)

	subs := dev.Submissions()
	require.Len(t, subs, 3)
	assert.Equal(t, depthOf(subs[0]), depthOf(subs[1]))
	assert.NotEqual(t, depthOf(subs[1]), depthOf(subs[2]))

	// The replaced depth texture outlives the frames that used it.
	for _, ev := range dev.Events() {
		if ev.Kind == memgpu.EventRelease && ev.Resource == "texture" {
			assert.True(t, ev.Deferred)
		}
	}
}

func TestFrameUniforms(t *testing.T) {
	s, dev, _ := testSession(t)
	loop := NewFrameLoop(s, testPipeline(t, s, PipelineConfig{Blend: DefaultBlend()}))

	mvp := NewMVP(DefaultWindowWidth, DefaultWindowHeight)
	_, err := loop.Iterate(func(f *Frame) {
		f.PushVertexUniform(0, mvp)
		f.PushFragmentUniform(0, mgl32.Vec4{1, 0.5, 0.25, 1})
		f.PushFragmentUniform(1, "not encodable")
		draw3(f)
	})
	require.NoError(t, err)

	draws := dev.Submissions()[0].Draws()
	require.Len(t, draws, 1)
	assert.Len(t, draws[0].VertexUniforms[0], 192)
	assert.Len(t, draws[0].FragmentUniforms[0], 16)
	assert.NotContains(t, draws[0].FragmentUniforms, 1)

	want, err := encodeUniform(mvp)
	require.NoError(t, err)
	assert.Equal(t, want, draws[0].VertexUniforms[0])
}
