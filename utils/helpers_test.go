package utils

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/gpu/memgpu"
	"github.com/vkngwrapper/gpuexamples/input"
)

func spirv() []byte {
	code := make([]byte, 20)
	binary.LittleEndian.PutUint32(code, 0x07230203)
	return code
}

type fakeWindow struct {
	*memgpu.Window
	destroyed bool
}

func (w *fakeWindow) Destroy() { w.destroyed = true }

type fakeWindowSystem struct {
	win       *fakeWindow
	createErr error
	events    [][]input.Event
	polls     int
	quitSent  bool
	relative  bool
	quit      bool
}

func (ws *fakeWindowSystem) CreateWindow(title string, width, height int, resizable bool) (Window, error) {
	if ws.createErr != nil {
		return nil, ws.createErr
	}
	ws.win = &fakeWindow{Window: memgpu.NewWindow(width, height)}
	return ws.win, nil
}

// PollEvent delivers one batch of events per frame, then a single quit
// event once the batches run out.
func (ws *fakeWindowSystem) PollEvent() input.Event {
	if ws.polls >= len(ws.events) {
		if ws.quitSent {
			return nil
		}
		ws.quitSent = true
		return input.QuitEvent{}
	}
	batch := ws.events[ws.polls]
	if len(batch) == 0 {
		ws.polls++
		return nil
	}
	ev := batch[0]
	ws.events[ws.polls] = batch[1:]
	return ev
}

func (ws *fakeWindowSystem) SetRelativeMouseMode(w Window, enabled bool) error {
	ws.relative = enabled
	return nil
}

func (ws *fakeWindowSystem) Quit() { ws.quit = true }

func writeShaders(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, VertexShaderFile), spirv(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, FragmentShaderFile), spirv(), 0o644))
}

// testSession opens a session on a fresh memgpu device with shaders in a
// temporary asset directory.
func testSession(t *testing.T, opts ...memgpu.Option) (*Session, *memgpu.Device, *fakeWindowSystem) {
	t.Helper()
	dev := memgpu.New(opts...)
	ws := &fakeWindowSystem{}

	cfg := DefaultConfig("test", t.TempDir())
	cfg.StatsInterval = 0
	cfg.OpenDevice = func(gpu.ShaderFormat, bool, string) (gpu.Device, error) { return dev, nil }
	writeShaders(t, cfg.AssetDir)

	s, err := OpenSession(cfg, ws)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, dev, ws
}

func testPipeline(t *testing.T, s *Session, cfg PipelineConfig) gpu.GraphicsPipeline {
	t.Helper()
	shaders, err := s.LoadShaderBundle(ShaderSpec{}, ShaderSpec{})
	require.NoError(t, err)
	cfg.Shaders = shaders
	p, err := s.CreatePipeline(cfg)
	require.NoError(t, err)
	return p
}
