package utils

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/gpu/memgpu"
	"github.com/vkngwrapper/gpuexamples/input"
)

type countingApp struct {
	initErr  error
	quitOn   input.Key
	updates  int
	draws    int
	received []input.Event
}

func (a *countingApp) Init(s *Session) (gpu.GraphicsPipeline, error) {
	if a.initErr != nil {
		return nil, a.initErr
	}
	shaders, err := s.LoadShaderBundle(ShaderSpec{}, ShaderSpec{})
	if err != nil {
		return nil, err
	}
	return s.CreatePipeline(PipelineConfig{Shaders: shaders, Blend: DefaultBlend()})
}

func (a *countingApp) HandleEvent(ev input.Event) bool {
	a.received = append(a.received, ev)
	if e, ok := ev.(input.KeyDownEvent); ok && a.quitOn != input.KeyUnknown {
		return e.Key == a.quitOn
	}
	return false
}

func (a *countingApp) Update() { a.updates++ }

func (a *countingApp) Draw(f *Frame) {
	a.draws++
	f.Pass.DrawPrimitives(3, 1, 0, 0)
}

func runConfig(t *testing.T, dev *memgpu.Device) Config {
	cfg := DefaultConfig("test", t.TempDir())
	cfg.StatsInterval = 0
	cfg.OpenDevice = func(gpu.ShaderFormat, bool, string) (gpu.Device, error) { return dev, nil }
	writeShaders(t, cfg.AssetDir)
	return cfg
}

func TestRunUntilQuit(t *testing.T) {
	dev := memgpu.New()
	ws := &fakeWindowSystem{events: [][]input.Event{
		{},
		{input.KeyDownEvent{Key: input.KeyW}},
		{input.WindowResizedEvent{Width: 800, Height: 600}},
	}}

	app := &countingApp{}
	require.NoError(t, Run(runConfig(t, dev), ws, app))

	assert.Equal(t, 3, app.updates)
	assert.Equal(t, 3, app.draws)
	assert.Len(t, app.received, 2)
	assert.Len(t, dev.Submissions(), 3)
	assert.True(t, dev.Destroyed())
	assert.Equal(t, 0, dev.Live())
	assert.True(t, ws.win.destroyed)
	assert.True(t, ws.quit)
}

func TestRunAppQuits(t *testing.T) {
	dev := memgpu.New()
	ws := &fakeWindowSystem{events: [][]input.Event{
		{},
		{input.KeyDownEvent{Key: input.KeyEscape}, input.KeyDownEvent{Key: input.KeyA}},
		{},
	}}

	app := &countingApp{quitOn: input.KeyEscape}
	require.NoError(t, Run(runConfig(t, dev), ws, app))

	// The rest of the batch is still delivered before stopping.
	assert.Len(t, app.received, 2)
	assert.Equal(t, 1, app.draws)
	assert.True(t, dev.Destroyed())
}

func TestRunSkipsMinimizedFrames(t *testing.T) {
	dev := memgpu.New()
	ws := &fakeWindowSystem{events: [][]input.Event{{}, {}, {}}}
	cfg := runConfig(t, dev)

	app := &minimizingApp{countingApp: &countingApp{}, ws: ws}
	require.NoError(t, Run(cfg, ws, app))

	assert.Equal(t, 3, app.updates)
	assert.Zero(t, app.draws)
	assert.Empty(t, dev.Submissions())
}

type minimizingApp struct {
	*countingApp
	ws *fakeWindowSystem
}

func (a *minimizingApp) Update() {
	a.ws.win.Minimize()
	a.countingApp.Update()
}

func TestRunInitFailureClosesSession(t *testing.T) {
	dev := memgpu.New()
	ws := &fakeWindowSystem{}

	err := Run(runConfig(t, dev), ws, &countingApp{initErr: errors.New("no assets")})
	assert.ErrorContains(t, err, "failed to initialize example")
	assert.ErrorContains(t, err, "no assets")
	assert.True(t, dev.Destroyed())
	assert.True(t, ws.win.destroyed)
}
