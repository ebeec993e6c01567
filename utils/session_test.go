package utils

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/gpu/memgpu"
)

type claimFailingDevice struct {
	*memgpu.Device
}

func (claimFailingDevice) ClaimWindow(gpu.Window) error {
	return errors.New("no presentation support")
}

func TestOpenSession(t *testing.T) {
	s, dev, ws := testSession(t)

	assert.Same(t, dev, s.Device)
	assert.Same(t, ws.win, s.Window)
	assert.Equal(t, gpu.TextureFormatB8G8R8A8Unorm, dev.SwapchainTextureFormat(s.Window))
	assert.Equal(t, FrameIdle, NewFrameLoop(s, nil).State())

	w, h := s.Window.Size()
	assert.Equal(t, DefaultWindowWidth, w)
	assert.Equal(t, DefaultWindowHeight, h)
}

func TestOpenSessionFailures(t *testing.T) {
	t.Run("device", func(t *testing.T) {
		ws := &fakeWindowSystem{}
		cfg := DefaultConfig("test", t.TempDir())
		cfg.OpenDevice = func(gpu.ShaderFormat, bool, string) (gpu.Device, error) {
			return nil, gpu.ErrNoDriver
		}

		s, err := OpenSession(cfg, ws)
		assert.Nil(t, s)
		assert.True(t, errors.Is(err, gpu.ErrNoDriver))
		assert.Nil(t, ws.win)
		assert.True(t, ws.quit)
	})

	t.Run("window", func(t *testing.T) {
		dev := memgpu.New()
		ws := &fakeWindowSystem{createErr: errors.New("no display")}
		cfg := DefaultConfig("test", t.TempDir())
		cfg.OpenDevice = func(gpu.ShaderFormat, bool, string) (gpu.Device, error) { return dev, nil }

		_, err := OpenSession(cfg, ws)
		assert.ErrorContains(t, err, "no display")
		assert.True(t, dev.Destroyed())
		assert.True(t, ws.quit)
	})

	t.Run("claim", func(t *testing.T) {
		dev := memgpu.New()
		ws := &fakeWindowSystem{}
		cfg := DefaultConfig("test", t.TempDir())
		cfg.OpenDevice = func(gpu.ShaderFormat, bool, string) (gpu.Device, error) {
			return claimFailingDevice{dev}, nil
		}

		_, err := OpenSession(cfg, ws)
		assert.ErrorContains(t, err, "no presentation support")
		assert.True(t, dev.Destroyed())
		require.NotNil(t, ws.win)
		assert.True(t, ws.win.destroyed)
		for _, ev := range dev.Events() {
			assert.NotEqual(t, memgpu.EventReleaseWindow, ev.Kind)
		}
	})
}

func TestCloseWaitsForIdleBeforeReleasing(t *testing.T) {
	s, dev, ws := testSession(t)
	p := testPipeline(t, s, PipelineConfig{Blend: DefaultBlend()})
	buf, err := s.UploadBuffer(gpu.BufferUsageVertex, []byte{1, 2, 3, 4})
	require.NoError(t, err)

	loop := NewFrameLoop(s, p)
	for i := 0; i < 2; i++ {
		result, err := loop.Iterate(func(f *Frame) {
			f.Pass.BindVertexBuffers(0, gpu.BufferBinding{Buffer: buf})
			f.Pass.DrawPrimitives(3, 1, 0, 0)
		})
		require.NoError(t, err)
		require.Equal(t, FrameRendered, result)
	}
	require.NotZero(t, dev.Pending())

	closeStart := len(dev.Events())
	s.Close()
	events := dev.Events()[closeStart:]

	require.NotEmpty(t, events)
	assert.Equal(t, memgpu.EventWaitIdle, events[0].Kind)

	var released []string
	for _, ev := range events {
		if ev.Kind == memgpu.EventRelease {
			assert.False(t, ev.Deferred, "released %s while referenced by pending work", ev.Resource)
			released = append(released, ev.Resource)
		}
	}
	// Reverse creation order: buffer, pipeline, then the two shaders.
	assert.Equal(t, []string{"buffer", "pipeline", "shader", "shader"}, released)

	last := events[len(events)-1]
	assert.Equal(t, memgpu.EventDestroy, last.Kind)
	assert.Equal(t, 0, dev.Live())
	assert.True(t, ws.win.destroyed)
	assert.True(t, ws.quit)
}

func TestOwnedRelease(t *testing.T) {
	s, dev, _ := testSession(t)

	smp, err := CreateSampler(s.Device, DefaultSampler())
	require.NoError(t, err)
	id, _ := memgpu.IDOf(smp)

	owned := s.OwnSampler(smp)
	assert.Same(t, smp, owned.Get())
	live := dev.Live()

	owned.Release()
	owned.Release()
	assert.Equal(t, live-1, dev.Live())

	s.Close()
	s.Close()
	assert.True(t, s.Closed())

	releases := 0
	for _, ev := range dev.Events() {
		if ev.Kind == memgpu.EventRelease && ev.ID == id {
			releases++
		}
	}
	assert.Equal(t, 1, releases)
}
