// Package agent defines the boundary to the agent-reasoning runtime and
// provides the default implementation: a tool-calling completion loop over
// an OpenAI-compatible endpoint.
package agent

import (
	"context"
	"time"

	"github.com/tailored-agentic-units/percept/core/protocol"
	"github.com/tailored-agentic-units/percept/observability"
	"github.com/tailored-agentic-units/percept/vision"
)

// ToolContext is the session-scoped execution context handed to a turn.
// The runtime dispatches tool calls against Buffer and reports lifecycle
// steps through Steps (optional).
type ToolContext struct {
	Buffer *vision.Buffer
	Steps  *observability.StepRecorder
	Agent  string
	Turn   int
}

// Record appends a step for this turn. Safe to call with a nil recorder.
func (tc ToolContext) Record(ctx context.Context, kind observability.StepKind, details map[string]any, d time.Duration) {
	if tc.Steps == nil {
		return
	}
	tc.Steps.Record(ctx, observability.Step{
		Kind:     kind,
		Agent:    tc.Agent,
		Turn:     tc.Turn,
		Details:  details,
		Duration: d,
	})
}

// ToolCallRecord is the explicit record of one tool invocation made during
// a turn, populated by the dispatch loop itself.
type ToolCallRecord struct {
	protocol.ToolCall
	Iteration int           // Loop cycle in which the call occurred.
	Result    string        // Tool execution output.
	IsError   bool          // Whether the result signals a tool-level failure.
	Duration  time.Duration // Wall time of the invocation.
}

// Result is the outcome of one completed turn. FinalOutput may still carry
// a reasoning preamble; callers strip it with protocol.StripReasoning.
type Result struct {
	FinalOutput string
	Iterations  int
	ToolCalls   []ToolCallRecord
}

// Runner is the agent-reasoning runtime boundary. A Runner is bound to one
// session at creation and is not assumed re-entrant: callers must not run
// two turns concurrently on the same Runner.
type Runner interface {
	Run(ctx context.Context, tc ToolContext, input string) (*Result, error)
}
