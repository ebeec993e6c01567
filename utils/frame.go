package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/loov/hrtime"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

type FrameState int

const (
	FrameIdle FrameState = iota
	FrameAcquiring
	FrameRecording
	FrameSubmitted
)

func (s FrameState) String() string {
	switch s {
	case FrameIdle:
		return "Idle"
	case FrameAcquiring:
		return "Acquiring"
	case FrameRecording:
		return "Recording"
	case FrameSubmitted:
		return "Submitted"
	}
	return fmt.Sprintf("FrameState(%d)", int(s))
}

type FrameResult int

const (
	FrameRendered FrameResult = iota
	FrameSkippedMinimized
	FrameSkippedNoTarget
	FrameAcquireFailed
	FrameSubmitFailed
)

func (r FrameResult) String() string {
	switch r {
	case FrameRendered:
		return "Rendered"
	case FrameSkippedMinimized:
		return "SkippedMinimized"
	case FrameSkippedNoTarget:
		return "SkippedNoTarget"
	case FrameAcquireFailed:
		return "AcquireFailed"
	case FrameSubmitFailed:
		return "SubmitFailed"
	}
	return fmt.Sprintf("FrameResult(%d)", int(r))
}

type FrameStats struct {
	Frames          int
	Skipped         int
	AcquireFailures int
	SubmitFailures  int
	LastFrame       time.Duration
	TotalFrame      time.Duration
}

func (s FrameStats) String() string {
	avg := time.Duration(0)
	if s.Frames > 0 {
		avg = s.TotalFrame / time.Duration(s.Frames)
	}
	return fmt.Sprintf("frames %d, skipped %d, acquire failures %d, submit failures %d, last %s, avg %s",
		s.Frames, s.Skipped, s.AcquireFailures, s.SubmitFailures, s.LastFrame, avg)
}

// Frame is the recording context handed to a draw function, with the
// pipeline bound and the viewport covering the window.
type Frame struct {
	Cmd    gpu.CommandBuffer
	Pass   gpu.RenderPass
	Target gpu.Texture
	Width  int
	Height int
}

func encodeUniform(v interface{}) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PushVertexUniform pushes the little-endian encoding of v to vertex
// uniform slot.
func (f *Frame) PushVertexUniform(slot int, v interface{}) {
	data, err := encodeUniform(v)
	if err != nil {
		log.Printf("failed to encode vertex uniform %d: %v", slot, err)
		return
	}
	f.Cmd.PushVertexUniformData(slot, data)
}

func (f *Frame) PushFragmentUniform(slot int, v interface{}) {
	data, err := encodeUniform(v)
	if err != nil {
		log.Printf("failed to encode fragment uniform %d: %v", slot, err)
		return
	}
	f.Cmd.PushFragmentUniformData(slot, data)
}

type DrawFunc func(f *Frame)

// FrameLoop runs the acquire, record, submit cycle against the session
// window. A frame never blocks after submission; pacing comes from the
// next acquisition.
type FrameLoop struct {
	session  *Session
	pipeline gpu.GraphicsPipeline

	ClearColor  gpu.Color
	DepthFormat gpu.TextureFormat

	depth  *Owned[gpu.Texture]
	state  FrameState
	stats  FrameStats
	logged time.Duration
}

func NewFrameLoop(s *Session, pipeline gpu.GraphicsPipeline) *FrameLoop {
	return &FrameLoop{
		session:     s,
		pipeline:    pipeline,
		ClearColor:  s.Config.ClearColor,
		DepthFormat: s.Config.DepthFormat,
		logged:      hrtime.Now(),
	}
}

func (l *FrameLoop) State() FrameState {
	return l.state
}

func (l *FrameLoop) Stats() FrameStats {
	return l.stats
}

// depthTarget returns a depth texture matching target, replacing the
// previous one when the target size changed.
func (l *FrameLoop) depthTarget(target gpu.Texture) (*gpu.DepthStencilTargetInfo, error) {
	if !l.DepthFormat.IsDepth() {
		return nil, nil
	}

	if l.depth != nil {
		cur := l.depth.Get()
		if cur.Width() != target.Width() || cur.Height() != target.Height() {
			l.depth.Release()
			l.depth = nil
		}
	}
	if l.depth == nil {
		tex, err := CreateDepthTexture(l.session.Device, l.DepthFormat, target.Width(), target.Height())
		if err != nil {
			return nil, err
		}
		l.depth = l.session.OwnTexture(tex)
	}

	return &gpu.DepthStencilTargetInfo{
		Texture:    l.depth.Get(),
		ClearDepth: 1,
		LoadOp:     gpu.LoadOpClear,
		StoreOp:    gpu.StoreOpDontCare,
	}, nil
}

// Iterate renders at most one frame. Per-frame failures are logged and
// reported through the result; only failing to create the depth target
// is returned as an error.
func (l *FrameLoop) Iterate(draw DrawFunc) (FrameResult, error) {
	dev, win := l.session.Device, l.session.Window

	if win.Minimized() {
		l.stats.Skipped++
		return FrameSkippedMinimized, nil
	}

	start := hrtime.Now()
	l.state = FrameAcquiring
	defer func() { l.state = FrameIdle }()

	cmd, err := dev.AcquireCommandBuffer()
	if err != nil {
		log.Printf("failed to acquire command buffer: %v", err)
		l.stats.AcquireFailures++
		return FrameAcquireFailed, nil
	}

	target, err := cmd.WaitAndAcquireSwapchainTexture(win)
	if err != nil {
		log.Printf("swapchain texture acquire failed: %v", err)
	}
	if target == nil {
		if cerr := cmd.Cancel(); cerr != nil {
			log.Printf("failed to cancel command buffer: %v", cerr)
		}
		if err != nil {
			l.stats.AcquireFailures++
			return FrameAcquireFailed, nil
		}
		l.stats.Skipped++
		return FrameSkippedNoTarget, nil
	}

	l.state = FrameRecording
	depth, err := l.depthTarget(target)
	if err != nil {
		// Acquired swapchain textures must be submitted back.
		if serr := cmd.Submit(); serr != nil {
			log.Printf("submit command buffer failed: %v", serr)
		}
		return FrameSubmitFailed, err
	}

	pass := cmd.BeginRenderPass([]gpu.ColorTargetInfo{{
		Texture:    target,
		ClearColor: l.ClearColor,
		LoadOp:     gpu.LoadOpClear,
		StoreOp:    gpu.StoreOpStore,
		Cycle:      true,
	}}, depth)
	pass.BindGraphicsPipeline(l.pipeline)

	w, h := win.Size()
	pass.SetViewport(gpu.Viewport{W: float32(w), H: float32(h), MinDepth: 0, MaxDepth: 1})

	if draw != nil {
		draw(&Frame{Cmd: cmd, Pass: pass, Target: target, Width: w, Height: h})
	}
	pass.End()

	l.state = FrameSubmitted
	if err := cmd.Submit(); err != nil {
		log.Printf("submit command buffer failed: %+v", err)
		l.stats.SubmitFailures++
		return FrameSubmitFailed, nil
	}

	l.stats.Frames++
	l.stats.LastFrame = hrtime.Since(start)
	l.stats.TotalFrame += l.stats.LastFrame
	l.maybeLogStats()
	return FrameRendered, nil
}

func (l *FrameLoop) maybeLogStats() {
	interval := l.session.Config.StatsInterval
	if interval <= 0 {
		return
	}
	now := hrtime.Now()
	if now-l.logged >= interval {
		l.logged = now
		l.LogStats()
	}
}

func (l *FrameLoop) LogStats() {
	log.Printf("frame stats: %s", l.stats)
}
