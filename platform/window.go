package platform

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/vkngwrapper/gpuexamples/input"
)

// Window is an SDL window created with Vulkan support.
type Window struct {
	sys *System
	win *sdl.Window
	id  uint32

	minimized bool
}

// SDLWindow exposes the underlying window to backends that create
// surfaces from it.
func (w *Window) SDLWindow() *sdl.Window {
	return w.win
}

// Size returns the drawable size, which differs from the window size on
// high density displays.
func (w *Window) Size() (int, int) {
	width, height := w.win.VulkanGetDrawableSize()
	return int(width), int(height)
}

func (w *Window) Minimized() bool {
	return w.minimized || w.win.GetFlags()&sdl.WINDOW_MINIMIZED != 0
}

func (w *Window) Destroy() {
	if _, ok := w.sys.windows[w.id]; !ok {
		return
	}
	delete(w.sys.windows, w.id)
	w.win.Destroy()
}

func (w *Window) handle(e *sdl.WindowEvent) []input.Event {
	switch e.Event {
	case sdl.WINDOWEVENT_MINIMIZED:
		w.minimized = true
		return []input.Event{input.WindowMinimizedEvent{}}
	case sdl.WINDOWEVENT_RESTORED:
		w.minimized = false
		return []input.Event{input.WindowRestoredEvent{}}
	case sdl.WINDOWEVENT_RESIZED:
		width, height := w.Size()
		return []input.Event{input.WindowResizedEvent{Width: width, Height: height}}
	}
	return nil
}
