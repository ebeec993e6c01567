package gpu

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

type Phase int

const (
	PhaseRecording Phase = iota
	PhaseCopyPass
	PhaseRenderPass
	PhaseSubmitted
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseRecording:
		return "recording"
	case PhaseCopyPass:
		return "copy pass"
	case PhaseRenderPass:
		return "render pass"
	case PhaseSubmitted:
		return "submitted"
	case PhaseCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// CommandState tracks where a command buffer is in its recording sequence.
// Backends consult it before recording each command; an out-of-order
// command is dropped and the first such error is kept until Finish.
type CommandState struct {
	phase          Phase
	pipelineBound  bool
	acquiredTarget bool
	err            error
}

func (s *CommandState) Phase() Phase {
	return s.phase
}

// Err returns the first recording error, if any.
func (s *CommandState) Err() error {
	return s.err
}

func (s *CommandState) PipelineBound() bool {
	return s.pipelineBound
}

// AcquiredTarget reports whether a swapchain texture was acquired on this
// command buffer.
func (s *CommandState) AcquiredTarget() bool {
	return s.acquiredTarget
}

// Fail records err as the recording error unless one is already set.
func (s *CommandState) Fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *CommandState) fail(op string) bool {
	if s.err == nil {
		s.err = errors.Wrapf(ErrInvalidCommandOrder, "%s during %s", op, s.phase)
	}
	return false
}

func (s *CommandState) expect(op string, phase Phase) bool {
	if s.phase != phase {
		return s.fail(op)
	}
	return true
}

func (s *CommandState) BeginCopyPass() bool {
	return s.expect("begin copy pass", PhaseRecording) && s.enter(PhaseCopyPass)
}

func (s *CommandState) BeginRenderPass() bool {
	if !s.expect("begin render pass", PhaseRecording) {
		return false
	}
	s.pipelineBound = false
	return s.enter(PhaseRenderPass)
}

func (s *CommandState) enter(p Phase) bool {
	s.phase = p
	return true
}

// Copy permits a copy command inside a copy pass.
func (s *CommandState) Copy(op string) bool {
	return s.expect(op, PhaseCopyPass)
}

func (s *CommandState) EndCopyPass() bool {
	return s.expect("end copy pass", PhaseCopyPass) && s.enter(PhaseRecording)
}

func (s *CommandState) BindPipeline() bool {
	if !s.expect("bind pipeline", PhaseRenderPass) {
		return false
	}
	s.pipelineBound = true
	return true
}

// Bind permits a state or binding command inside a render pass.
func (s *CommandState) Bind(op string) bool {
	return s.expect(op, PhaseRenderPass)
}

// Draw permits a draw inside a render pass with a pipeline bound.
func (s *CommandState) Draw(op string) bool {
	if !s.expect(op, PhaseRenderPass) {
		return false
	}
	if !s.pipelineBound {
		if s.err == nil {
			s.err = errors.Wrapf(ErrInvalidCommandOrder, "%s without a bound pipeline", op)
		}
		return false
	}
	return true
}

func (s *CommandState) EndRenderPass() bool {
	if !s.expect("end render pass", PhaseRenderPass) {
		return false
	}
	s.pipelineBound = false
	return s.enter(PhaseRecording)
}

// PushUniform permits uniform pushes anywhere before the command buffer is
// finished, including inside a render pass.
func (s *CommandState) PushUniform(op string) bool {
	if s.phase == PhaseRecording || s.phase == PhaseRenderPass {
		return true
	}
	return s.fail(op)
}

// AcquireSwapchain permits swapchain acquisition outside of any pass.
func (s *CommandState) AcquireSwapchain() bool {
	if !s.expect("acquire swapchain texture", PhaseRecording) {
		return false
	}
	s.acquiredTarget = true
	return true
}

// Finish moves the command buffer to its terminal phase and returns the
// sticky recording error. Submitting with an open pass is an error;
// cancelling discards everything recorded.
func (s *CommandState) Finish(submit bool) error {
	switch s.phase {
	case PhaseSubmitted, PhaseCancelled:
		return errors.Wrapf(ErrInvalidCommandOrder, "command buffer already %s", s.phase)
	case PhaseCopyPass, PhaseRenderPass:
		if submit {
			s.fail("submit")
		}
	}

	if !submit {
		s.phase = PhaseCancelled
		return nil
	}
	s.phase = PhaseSubmitted
	return s.err
}
