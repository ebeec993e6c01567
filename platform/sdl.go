// Package platform is the SDL2 window system the examples run on. It
// creates Vulkan-capable windows and translates SDL events into input
// events.
package platform

import (
	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/gpuexamples/input"
	"github.com/vkngwrapper/gpuexamples/utils"
)

// System owns the SDL video subsystem. SDL must be driven from the thread
// that initialized it; callers lock main to its OS thread.
type System struct {
	windows map[uint32]*Window
	events  []input.Event
}

func Init() (*System, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, errors.Wrap(err, "failed to initialize SDL video")
	}
	return &System{windows: make(map[uint32]*Window)}, nil
}

func (s *System) CreateWindow(title string, width, height int, resizable bool) (utils.Window, error) {
	flags := uint32(sdl.WINDOW_SHOWN | sdl.WINDOW_VULKAN)
	if resizable {
		flags |= sdl.WINDOW_RESIZABLE
	}

	win, err := sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(width), int32(height), flags)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create window %q", title)
	}
	id, err := win.GetID()
	if err != nil {
		win.Destroy()
		return nil, errors.Wrap(err, "failed to get window id")
	}

	w := &Window{sys: s, win: win, id: id}
	s.windows[id] = w
	return w, nil
}

// PollEvent returns the next translated event, or nil once the SDL queue
// is drained. SDL events with no input counterpart are skipped.
func (s *System) PollEvent() input.Event {
	for {
		if len(s.events) > 0 {
			ev := s.events[0]
			s.events = s.events[1:]
			return ev
		}

		event := sdl.PollEvent()
		if event == nil {
			return nil
		}
		s.events = append(s.events, s.translate(event)...)
	}
}

func (s *System) translate(event sdl.Event) []input.Event {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		return []input.Event{input.QuitEvent{}}
	case *sdl.KeyboardEvent:
		key := translateKey(e.Keysym.Sym)
		if e.Type == sdl.KEYDOWN {
			return []input.Event{input.KeyDownEvent{Key: key, Repeat: e.Repeat != 0}}
		}
		return []input.Event{input.KeyUpEvent{Key: key}}
	case *sdl.MouseMotionEvent:
		return []input.Event{input.MouseMotionEvent{
			X:    e.X,
			Y:    e.Y,
			XRel: float32(e.XRel),
			YRel: float32(e.YRel),
		}}
	case *sdl.WindowEvent:
		w, ok := s.windows[e.WindowID]
		if !ok {
			return nil
		}
		return w.handle(e)
	}
	return nil
}

func (s *System) SetRelativeMouseMode(w utils.Window, enabled bool) error {
	if sdl.SetRelativeMouseMode(enabled) < 0 {
		return errors.Wrap(sdl.GetError(), "failed to set relative mouse mode")
	}
	return nil
}

func (s *System) Quit() {
	for id, w := range s.windows {
		w.win.Destroy()
		delete(s.windows, id)
	}
	sdl.Quit()
}

var keys = map[sdl.Keycode]input.Key{
	sdl.K_ESCAPE: input.KeyEscape,
	sdl.K_a:      input.KeyA,
	sdl.K_d:      input.KeyD,
	sdl.K_s:      input.KeyS,
	sdl.K_w:      input.KeyW,
	sdl.K_SPACE:  input.KeySpace,
	sdl.K_LEFT:   input.KeyLeft,
	sdl.K_RIGHT:  input.KeyRight,
	sdl.K_UP:     input.KeyUp,
	sdl.K_DOWN:   input.KeyDown,
}

func translateKey(code sdl.Keycode) input.Key {
	if key, ok := keys[code]; ok {
		return key
	}
	return input.KeyUnknown
}
