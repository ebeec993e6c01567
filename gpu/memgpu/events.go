package memgpu

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/vkngwrapper/gpuexamples/gpu"
)

type EventKind string

const (
	EventCreate           EventKind = "create"
	EventRelease          EventKind = "release"
	EventFree             EventKind = "free"
	EventSubmit           EventKind = "submit"
	EventComplete         EventKind = "complete"
	EventWaitIdle         EventKind = "wait-idle"
	EventClaimWindow      EventKind = "claim-window"
	EventReleaseWindow    EventKind = "release-window"
	EventAcquireSwapchain EventKind = "acquire-swapchain"
	EventDestroy          EventKind = "destroy"
)

type Event struct {
	Seq      int
	Kind     EventKind
	ID       uuid.UUID
	Resource string
	// Submission is the sequence number of the submission a submit or
	// complete event refers to.
	Submission int
	// Deferred is set on release events whose resource was still
	// referenced by a pending submission.
	Deferred bool
}

func (e Event) String() string {
	switch e.Kind {
	case EventSubmit, EventComplete:
		return fmt.Sprintf("%d %s #%d", e.Seq, e.Kind, e.Submission)
	case EventCreate, EventRelease, EventFree, EventAcquireSwapchain:
		s := fmt.Sprintf("%d %s %s %s", e.Seq, e.Kind, e.Resource, e.ID)
		if e.Deferred {
			s += " (deferred)"
		}
		return s
	}
	return fmt.Sprintf("%d %s", e.Seq, e.Kind)
}

type Op string

const (
	OpUploadBuffer     Op = "upload-buffer"
	OpUploadTexture    Op = "upload-texture"
	OpDownloadBuffer   Op = "download-buffer"
	OpBeginRenderPass  Op = "begin-render-pass"
	OpBindPipeline     Op = "bind-pipeline"
	OpSetViewport      Op = "set-viewport"
	OpSetScissor       Op = "set-scissor"
	OpBindVertex       Op = "bind-vertex-buffers"
	OpBindIndex        Op = "bind-index-buffer"
	OpBindSamplers     Op = "bind-fragment-samplers"
	OpDraw             Op = "draw"
	OpDrawIndexed      Op = "draw-indexed"
	OpEndRenderPass    Op = "end-render-pass"
	OpPushVertexData   Op = "push-vertex-uniform"
	OpPushFragmentData Op = "push-fragment-uniform"
)

// Command is one recorded command. Fields not relevant to Op are zero.
type Command struct {
	Op Op

	// Resources referenced by the command, in binding order.
	Resources []uuid.UUID
	Bytes     int

	Viewport gpu.Viewport
	Scissor  gpu.Rect

	// Draw parameters. Count is the number of vertices or indices.
	Count        int
	Instances    int
	First        int
	VertexOffset int

	// Uniform data visible to a draw, or pushed by a push command, by slot.
	VertexUniforms   map[int][]byte
	FragmentUniforms map[int][]byte

	// Clear values of a render pass.
	ClearColor gpu.Color
	ClearDepth float32
	HasDepth   bool
}

type Submission struct {
	Seq      int
	Commands []Command
	// Presents is set when the submission acquired a swapchain texture.
	Presents  bool
	Completed bool

	refs map[uuid.UUID]struct{}
	ops  []func()
}

// Draws returns the draw commands of the submission in recording order.
func (s *Submission) Draws() []Command {
	var draws []Command
	for _, c := range s.Commands {
		if c.Op == OpDraw || c.Op == OpDrawIndexed {
			draws = append(draws, c)
		}
	}
	return draws
}

// Find returns the first command with op, if any.
func (s *Submission) Find(op Op) (Command, bool) {
	for _, c := range s.Commands {
		if c.Op == op {
			return c, true
		}
	}
	return Command{}, false
}
