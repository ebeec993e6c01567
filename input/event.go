// Package input holds window and input events independent of the window
// system that produced them.
package input

type Event interface {
	isEvent()
}

type QuitEvent struct{}

type KeyDownEvent struct {
	Key    Key
	Repeat bool
}

type KeyUpEvent struct {
	Key Key
}

// MouseMotionEvent carries relative motion since the previous event.
type MouseMotionEvent struct {
	X, Y       int32
	XRel, YRel float32
}

type WindowResizedEvent struct {
	Width, Height int
}

type WindowMinimizedEvent struct{}

type WindowRestoredEvent struct{}

func (QuitEvent) isEvent()            {}
func (KeyDownEvent) isEvent()         {}
func (KeyUpEvent) isEvent()           {}
func (MouseMotionEvent) isEvent()     {}
func (WindowResizedEvent) isEvent()   {}
func (WindowMinimizedEvent) isEvent() {}
func (WindowRestoredEvent) isEvent()  {}

type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyA
	KeyD
	KeyS
	KeyW
	KeySpace
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

var keyNames = [...]string{
	KeyUnknown: "Unknown",
	KeyEscape:  "Escape",
	KeyA:       "A",
	KeyD:       "D",
	KeyS:       "S",
	KeyW:       "W",
	KeySpace:   "Space",
	KeyLeft:    "Left",
	KeyRight:   "Right",
	KeyUp:      "Up",
	KeyDown:    "Down",
}

func (k Key) String() string {
	if k < 0 || int(k) >= len(keyNames) {
		return "Unknown"
	}
	return keyNames[k]
}
