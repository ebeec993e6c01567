// Package memgpu implements gpu.Device in host memory.
//
// Copies are executed for real when the submission that records them
// completes, so data uploaded through a transfer buffer can be read back.
// Render passes execute nothing; their commands are recorded per
// submission for inspection. Submissions stay pending until WaitForIdle
// or until swapchain acquisition has to wait for a frame in flight.
// Every resource is identified by a uuid and every lifecycle step is
// appended to an event log.
package memgpu

import (
	"log"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

const DriverName = "memory"

const spirvMagic = 0x07230203

type Driver struct {
	Options []Option
}

func (Driver) Name() string { return DriverName }

func (Driver) Formats() gpu.ShaderFormat {
	return gpu.ShaderFormatSPIRV | gpu.ShaderFormatDXIL | gpu.ShaderFormatMSL
}

func (d Driver) Open(debug bool) (gpu.Device, error) {
	return New(append([]Option{WithDebug(debug)}, d.Options...)...), nil
}

func init() {
	gpu.Register(Driver{})
}

type Option func(d *Device)

// WithFramesInFlight sets how many presenting submissions may be pending
// before swapchain acquisition waits for the oldest one.
func WithFramesInFlight(n int) Option {
	return func(d *Device) {
		if n > 0 {
			d.framesInFlight = n
		}
	}
}

func WithSwapchainFormat(f gpu.TextureFormat) Option {
	return func(d *Device) { d.swapchainFormat = f }
}

func WithDebug(debug bool) Option {
	return func(d *Device) { d.debug = debug }
}

type Device struct {
	debug           bool
	framesInFlight  int
	swapchainFormat gpu.TextureFormat

	seq         int
	events      []Event
	live        map[uuid.UUID]*resource
	windows     map[gpu.Window]*swapchain
	pending     []*Submission
	submissions []*Submission

	commandBuffers int
	destroyed      bool

	acquireErr error
	submitErr  error
	noTarget   bool
}

var _ gpu.Device = (*Device)(nil)

func New(opts ...Option) *Device {
	d := &Device{
		framesInFlight:  2,
		swapchainFormat: gpu.TextureFormatB8G8R8A8Unorm,
		live:            make(map[uuid.UUID]*resource),
		windows:         make(map[gpu.Window]*swapchain),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) Driver() string { return DriverName }

func (d *Device) ShaderFormats() gpu.ShaderFormat { return Driver{}.Formats() }

func (d *Device) record(ev Event) {
	d.seq++
	ev.Seq = d.seq
	d.events = append(d.events, ev)
}

func (d *Device) track(r *resource) {
	r.id = uuid.New()
	r.dev = d
	d.live[r.id] = r
	d.record(Event{Kind: EventCreate, ID: r.id, Resource: r.kind})
}

func (d *Device) referenced(id uuid.UUID) bool {
	for _, sub := range d.pending {
		if _, ok := sub.refs[id]; ok {
			return true
		}
	}
	return false
}

func (d *Device) release(r *resource) {
	if r == nil {
		return
	}
	if r.released {
		log.Printf("[!] memgpu: %s %s released twice", r.kind, r.id)
		return
	}
	r.released = true
	deferred := d.referenced(r.id)
	d.record(Event{Kind: EventRelease, ID: r.id, Resource: r.kind, Deferred: deferred})
	if !deferred {
		d.free(r)
	}
}

func (d *Device) free(r *resource) {
	delete(d.live, r.id)
	d.record(Event{Kind: EventFree, ID: r.id, Resource: r.kind})
}

// complete executes the oldest pending submission and frees resources
// released while it was in flight.
func (d *Device) complete() {
	if len(d.pending) == 0 {
		return
	}
	sub := d.pending[0]
	d.pending = d.pending[1:]
	for _, op := range sub.ops {
		op()
	}
	sub.ops = nil
	sub.Completed = true
	d.record(Event{Kind: EventComplete, Submission: sub.Seq})

	for id := range sub.refs {
		r, ok := d.live[id]
		if ok && r.released && !d.referenced(id) {
			d.free(r)
		}
	}
}

func (d *Device) WaitForIdle() error {
	if d.destroyed {
		return gpu.ErrDeviceLost
	}
	d.record(Event{Kind: EventWaitIdle})
	for len(d.pending) > 0 {
		d.complete()
	}
	return nil
}

func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	for len(d.pending) > 0 {
		d.complete()
	}
	d.destroyed = true
	d.record(Event{Kind: EventDestroy})
	if len(d.live) > 0 {
		log.Printf("[!] memgpu: device destroyed with %d live resources", len(d.live))
	}
}

func (d *Device) ClaimWindow(w gpu.Window) error {
	if w == nil {
		return errors.New("memgpu: nil window")
	}
	if _, ok := d.windows[w]; ok {
		return errors.New("memgpu: window already claimed")
	}
	d.windows[w] = &swapchain{format: d.swapchainFormat}
	d.record(Event{Kind: EventClaimWindow})
	return nil
}

func (d *Device) ReleaseWindow(w gpu.Window) {
	if _, ok := d.windows[w]; !ok {
		return
	}
	delete(d.windows, w)
	d.record(Event{Kind: EventReleaseWindow})
}

func (d *Device) SwapchainTextureFormat(w gpu.Window) gpu.TextureFormat {
	sc, ok := d.windows[w]
	if !ok {
		return gpu.TextureFormatInvalid
	}
	return sc.format
}

func (d *Device) AcquireCommandBuffer() (gpu.CommandBuffer, error) {
	if d.destroyed {
		return nil, gpu.ErrDeviceLost
	}
	d.commandBuffers++
	return newCommandBuffer(d), nil
}

func (d *Device) submit(cb *commandBuffer) error {
	if d.submitErr != nil {
		err := d.submitErr
		d.submitErr = nil
		return err
	}

	d.seq++
	sub := cb.sub
	sub.Seq = d.seq
	d.events = append(d.events, Event{Seq: sub.Seq, Kind: EventSubmit, Submission: sub.Seq})
	d.pending = append(d.pending, sub)
	d.submissions = append(d.submissions, sub)
	return nil
}

// acquire blocks, in the model, until fewer than framesInFlight presenting
// submissions are pending.
func (d *Device) acquire(w gpu.Window) (gpu.Texture, error) {
	sc, ok := d.windows[w]
	if !ok {
		return nil, gpu.ErrWindowNotClaimed
	}
	if d.acquireErr != nil {
		err := d.acquireErr
		d.acquireErr = nil
		return nil, err
	}
	if d.noTarget || w.Minimized() {
		return nil, nil
	}

	width, height := w.Size()
	if width <= 0 || height <= 0 {
		return nil, nil
	}

	for d.presentingPending() >= d.framesInFlight {
		d.complete()
	}

	sc.acquired++
	tex := &texture{
		resource: resource{kind: "swapchain-texture"},
		info: gpu.TextureCreateInfo{
			Type:   gpu.TextureType2D,
			Format: sc.format,
			Usage:  gpu.TextureUsageColorTarget,
			Width:  width,
			Height: height,
		},
	}
	tex.id = uuid.New()
	tex.dev = d
	d.record(Event{Kind: EventAcquireSwapchain, ID: tex.id, Resource: tex.kind})
	return tex, nil
}

func (d *Device) presentingPending() int {
	n := 0
	for _, sub := range d.pending {
		if sub.Presents {
			n++
		}
	}
	return n
}

// FailNextAcquire makes the next swapchain acquisition return err.
func (d *Device) FailNextAcquire(err error) { d.acquireErr = err }

// FailNextSubmit makes the next Submit return err without executing.
func (d *Device) FailNextSubmit(err error) { d.submitErr = err }

// SetSwapchainAvailable controls whether acquisition yields a target.
func (d *Device) SetSwapchainAvailable(available bool) { d.noTarget = !available }

func (d *Device) Events() []Event {
	events := make([]Event, len(d.events))
	copy(events, d.events)
	return events
}

// Submissions returns every submission accepted so far, oldest first.
func (d *Device) Submissions() []*Submission {
	subs := make([]*Submission, len(d.submissions))
	copy(subs, d.submissions)
	return subs
}

func (d *Device) Pending() int { return len(d.pending) }

func (d *Device) CommandBuffersAcquired() int { return d.commandBuffers }

// Live returns the number of resources not yet freed.
func (d *Device) Live() int { return len(d.live) }

func (d *Device) Destroyed() bool { return d.destroyed }

func (d *Device) logf(format string, args ...interface{}) {
	if d.debug {
		log.Printf("memgpu: "+format, args...)
	}
}
