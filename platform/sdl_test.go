package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/gpuexamples/input"
)

func TestTranslateKey(t *testing.T) {
	cases := map[sdl.Keycode]input.Key{
		sdl.K_w:      input.KeyW,
		sdl.K_a:      input.KeyA,
		sdl.K_s:      input.KeyS,
		sdl.K_d:      input.KeyD,
		sdl.K_ESCAPE: input.KeyEscape,
		sdl.K_q:      input.KeyUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, translateKey(code))
	}
}

func TestTranslateEvents(t *testing.T) {
	s := &System{windows: make(map[uint32]*Window)}

	assert.Equal(t, []input.Event{input.QuitEvent{}}, s.translate(&sdl.QuitEvent{Type: sdl.QUIT}))

	down := &sdl.KeyboardEvent{Type: sdl.KEYDOWN, Repeat: 1, Keysym: sdl.Keysym{Sym: sdl.K_w}}
	assert.Equal(t, []input.Event{input.KeyDownEvent{Key: input.KeyW, Repeat: true}}, s.translate(down))

	up := &sdl.KeyboardEvent{Type: sdl.KEYUP, Keysym: sdl.Keysym{Sym: sdl.K_ESCAPE}}
	assert.Equal(t, []input.Event{input.KeyUpEvent{Key: input.KeyEscape}}, s.translate(up))

	motion := &sdl.MouseMotionEvent{Type: sdl.MOUSEMOTION, X: 10, Y: 20, XRel: -3, YRel: 4}
	assert.Equal(t, []input.Event{input.MouseMotionEvent{X: 10, Y: 20, XRel: -3, YRel: 4}}, s.translate(motion))

	// Events for windows this system did not create are dropped.
	assert.Empty(t, s.translate(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, WindowID: 7, Event: sdl.WINDOWEVENT_MINIMIZED}))
}

func TestWindowMinimizeTracking(t *testing.T) {
	s := &System{windows: make(map[uint32]*Window)}
	w := &Window{sys: s, id: 3}
	s.windows[3] = w

	evs := s.translate(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, WindowID: 3, Event: sdl.WINDOWEVENT_MINIMIZED})
	assert.Equal(t, []input.Event{input.WindowMinimizedEvent{}}, evs)
	assert.True(t, w.minimized)

	evs = s.translate(&sdl.WindowEvent{Type: sdl.WINDOWEVENT, WindowID: 3, Event: sdl.WINDOWEVENT_RESTORED})
	assert.Equal(t, []input.Event{input.WindowRestoredEvent{}}, evs)
	assert.False(t, w.minimized)
}
