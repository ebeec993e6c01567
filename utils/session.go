package utils

import (
	"log"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/vkngwrapper/gpuexamples/gpu"
	"github.com/vkngwrapper/gpuexamples/input"
)

// Window is a platform window the device can present to.
type Window interface {
	gpu.Window
	Destroy()
}

// WindowSystem creates windows and delivers their events.
type WindowSystem interface {
	CreateWindow(title string, width, height int, resizable bool) (Window, error)
	// PollEvent returns the next pending event, or nil when there is none.
	PollEvent() input.Event
	SetRelativeMouseMode(w Window, enabled bool) error
	Quit()
}

type releasable interface {
	release()
}

// Session owns the device, the window, the window's claim on the device and
// every resource registered with Own. Close tears all of it down in reverse
// order once the device is idle.
type Session struct {
	Config Config
	Device gpu.Device
	Window Window

	ws      WindowSystem
	claimed bool
	owned   []releasable
	closed  bool
}

// OpenSession creates the device, then the window, then claims the window
// for the device. On failure everything created so far is torn down.
func OpenSession(cfg Config, ws WindowSystem) (*Session, error) {
	log.Printf("gpu drivers: %s", strings.Join(gpu.Drivers(), ", "))

	s := &Session{Config: cfg, ws: ws}

	dev, err := cfg.opener()(cfg.ShaderFormats, cfg.Debug, cfg.DriverName)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to create gpu device")
	}
	s.Device = dev

	win, err := ws.CreateWindow(cfg.Title, cfg.Width, cfg.Height, cfg.Resizable)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to create window")
	}
	s.Window = win

	if err := dev.ClaimWindow(win); err != nil {
		s.Close()
		return nil, errors.Wrap(err, "failed to claim window for gpu device")
	}
	s.claimed = true

	if cfg.RelativeMouseMode {
		if err := ws.SetRelativeMouseMode(win, true); err != nil {
			log.Printf("relative mouse mode unavailable: %v", err)
		}
	}

	log.Printf("gpu device on driver '%s', swapchain format %s", dev.Driver(), dev.SwapchainTextureFormat(win))
	return s, nil
}

// Close waits for the device to go idle and releases everything the
// session owns. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.Device != nil {
		if err := s.Device.WaitForIdle(); err != nil {
			log.Printf("wait for gpu idle failed: %+v", err)
		}
	}

	for i := len(s.owned) - 1; i >= 0; i-- {
		s.owned[i].release()
	}
	s.owned = nil

	if s.claimed {
		s.Device.ReleaseWindow(s.Window)
		s.claimed = false
	}
	if s.Device != nil {
		s.Device.Destroy()
	}
	if s.Window != nil {
		s.Window.Destroy()
	}
	if s.ws != nil {
		s.ws.Quit()
	}
}

func (s *Session) Closed() bool {
	return s.closed
}

func (s *Session) forget(r releasable) {
	for i := len(s.owned) - 1; i >= 0; i-- {
		if s.owned[i] == r {
			s.owned = append(s.owned[:i], s.owned[i+1:]...)
			return
		}
	}
}

// Owned is a resource whose release is tied to a Session.
type Owned[T any] struct {
	value    T
	session  *Session
	free     func(T)
	released bool
}

// Own registers v with s so that free(v) runs at Close, after every
// resource owned later than v.
func Own[T any](s *Session, v T, free func(T)) *Owned[T] {
	o := &Owned[T]{value: v, session: s, free: free}
	s.owned = append(s.owned, o)
	return o
}

func (o *Owned[T]) Get() T {
	return o.value
}

// Release frees the resource now instead of at Close.
func (o *Owned[T]) Release() {
	if o.released {
		return
	}
	o.session.forget(o)
	o.release()
}

func (o *Owned[T]) release() {
	if o.released {
		return
	}
	o.released = true
	o.free(o.value)
}

func (s *Session) OwnShader(sh gpu.Shader) *Owned[gpu.Shader] {
	return Own(s, sh, s.Device.ReleaseShader)
}

func (s *Session) OwnPipeline(p gpu.GraphicsPipeline) *Owned[gpu.GraphicsPipeline] {
	return Own(s, p, s.Device.ReleaseGraphicsPipeline)
}

func (s *Session) OwnBuffer(b gpu.Buffer) *Owned[gpu.Buffer] {
	return Own(s, b, s.Device.ReleaseBuffer)
}

func (s *Session) OwnTexture(t gpu.Texture) *Owned[gpu.Texture] {
	return Own(s, t, s.Device.ReleaseTexture)
}

func (s *Session) OwnSampler(smp gpu.Sampler) *Owned[gpu.Sampler] {
	return Own(s, smp, s.Device.ReleaseSampler)
}
