package gpu

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandStateFrameSequence(t *testing.T) {
	var s CommandState

	require.True(t, s.AcquireSwapchain())
	require.True(t, s.BeginRenderPass())
	require.True(t, s.BindPipeline())
	require.True(t, s.Bind("set viewport"))
	require.True(t, s.Bind("bind vertex buffers"))
	require.True(t, s.PushUniform("push vertex uniform"))
	require.True(t, s.Draw("draw"))
	require.True(t, s.EndRenderPass())

	assert.True(t, s.AcquiredTarget())
	assert.NoError(t, s.Finish(true))
	assert.Equal(t, PhaseSubmitted, s.Phase())
}

func TestCommandStateCopySequence(t *testing.T) {
	var s CommandState

	require.True(t, s.BeginCopyPass())
	require.True(t, s.Copy("upload to buffer"))
	require.True(t, s.EndCopyPass())
	require.True(t, s.BeginCopyPass())
	require.True(t, s.Copy("upload to texture"))
	require.True(t, s.EndCopyPass())
	assert.NoError(t, s.Finish(true))
}

func TestCommandStateOrderViolations(t *testing.T) {
	cases := []struct {
		name   string
		record func(s *CommandState)
	}{
		{"end render pass before begin", func(s *CommandState) { s.EndRenderPass() }},
		{"end copy pass before begin", func(s *CommandState) { s.EndCopyPass() }},
		{"draw outside pass", func(s *CommandState) { s.Draw("draw") }},
		{"draw without pipeline", func(s *CommandState) {
			s.BeginRenderPass()
			s.Draw("draw")
			s.EndRenderPass()
		}},
		{"copy inside render pass", func(s *CommandState) {
			s.BeginRenderPass()
			s.Copy("upload to buffer")
			s.EndRenderPass()
		}},
		{"nested render pass", func(s *CommandState) {
			s.BeginRenderPass()
			s.BeginRenderPass()
			s.EndRenderPass()
		}},
		{"acquire inside pass", func(s *CommandState) {
			s.BeginRenderPass()
			s.AcquireSwapchain()
			s.EndRenderPass()
		}},
		{"submit with open pass", func(s *CommandState) {
			s.BeginRenderPass()
		}},
		{"push uniform in copy pass", func(s *CommandState) {
			s.BeginCopyPass()
			s.PushUniform("push vertex uniform")
			s.EndCopyPass()
		}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var s CommandState
			c.record(&s)
			err := s.Finish(true)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCommandOrder))
		})
	}
}

func TestCommandStateErrorIsSticky(t *testing.T) {
	var s CommandState

	s.Draw("first draw")
	first := s.Err()
	require.Error(t, first)

	s.BeginRenderPass()
	s.BindPipeline()
	s.Bind("set scissor")
	s.EndCopyPass()
	s.EndRenderPass()

	assert.Same(t, first, s.Err())
	assert.Contains(t, s.Finish(true).Error(), "first draw")
}

func TestCommandStatePipelineResetBetweenPasses(t *testing.T) {
	var s CommandState

	s.BeginRenderPass()
	s.BindPipeline()
	s.EndRenderPass()
	s.BeginRenderPass()
	assert.False(t, s.PipelineBound())
	assert.False(t, s.Draw("draw"))
}

func TestCommandStateFinishTwice(t *testing.T) {
	var s CommandState
	require.NoError(t, s.Finish(true))
	assert.True(t, errors.Is(s.Finish(true), ErrInvalidCommandOrder))

	var c CommandState
	c.BeginRenderPass()
	assert.NoError(t, c.Finish(false))
	assert.Equal(t, PhaseCancelled, c.Phase())
	assert.True(t, errors.Is(c.Finish(false), ErrInvalidCommandOrder))
}
