package memgpu

// Window is an in-memory gpu.Window whose size and visibility are set
// directly.
type Window struct {
	W, H      int
	minimized bool
}

func NewWindow(w, h int) *Window {
	return &Window{W: w, H: h}
}

func (w *Window) Size() (int, int) { return w.W, w.H }

func (w *Window) Minimized() bool { return w.minimized }

func (w *Window) Resize(width, height int) {
	w.W, w.H = width, height
}

func (w *Window) Minimize() { w.minimized = true }

func (w *Window) Restore() { w.minimized = false }
