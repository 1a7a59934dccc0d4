// Package scheduler serializes agent turns for a single session. Each
// session owns one consumer goroutine that drains a bounded intake queue
// one submission at a time, so at most one turn is ever in flight against
// the session's mutable state.
package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/percept/agent"
	"github.com/tailored-agentic-units/percept/core/protocol"
	"github.com/tailored-agentic-units/percept/observability"
	"github.com/tailored-agentic-units/percept/transcript"
	"github.com/tailored-agentic-units/percept/vision"
)

// DefaultIntakeBuffer is the intake queue capacity used when none is set.
const DefaultIntakeBuffer = 64

// Deps are the session-scoped collaborators a Scheduler drives. Runner is
// not assumed re-entrant; the Scheduler is its sole caller for a session.
type Deps struct {
	Runner     agent.Runner
	Agent      string
	Transcript *transcript.Transcript
	Buffer     *vision.Buffer
	Steps      *observability.StepRecorder
}

// Scheduler is the gated turn loop for one session. Submissions are
// accepted in FIFO order and processed by a single consumer; a failed turn
// is recorded and skipped, never halting the loop.
type Scheduler struct {
	deps   Deps
	intake *Intake[string]

	running atomic.Bool
	waiting atomic.Bool
	turn    atomic.Int64
	done    chan struct{}
}

func New(deps Deps, intakeBuffer int) *Scheduler {
	return &Scheduler{
		deps:   deps,
		intake: NewIntake[string](intakeBuffer),
		done:   make(chan struct{}),
	}
}

// Start launches the consumer loop. It returns immediately; the loop runs
// until ctx is cancelled or Close is called.
func (s *Scheduler) Start(ctx context.Context) {
	go s.consume(ctx)
}

// Close shuts the intake queue. Queued submissions are still drained
// before the consumer exits.
func (s *Scheduler) Close() {
	s.intake.Close()
}

// Done is closed once the consumer loop has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Submit enqueues user text for the next available turn. The user entry is
// appended to the transcript synchronously, so the caller sees their own
// message immediately regardless of turn latency. Submit never waits for
// capacity; a full queue returns ErrIntakeFull and the appended entry
// remains visible without a corresponding turn.
func (s *Scheduler) Submit(text string) error {
	s.deps.Transcript.Append(transcript.User(text))
	return s.intake.TrySend(text)
}

// IsRunning reports whether a turn is currently executing. Callers use it
// for UI-level gating only; Submit itself always queues.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// IsWaiting reports whether the consumer is idle, blocked on intake.
func (s *Scheduler) IsWaiting() bool {
	return s.waiting.Load()
}

// Turn returns the number of the most recently started turn.
func (s *Scheduler) Turn() int {
	return int(s.turn.Load())
}

// QueueLength returns the number of submissions awaiting a turn.
func (s *Scheduler) QueueLength() int {
	return s.intake.QueueLength()
}

func (s *Scheduler) consume(ctx context.Context) {
	defer close(s.done)
	for {
		s.waiting.Store(true)
		text, err := s.intake.Receive(ctx)
		s.waiting.Store(false)
		if err != nil {
			return
		}
		s.runTurn(ctx, text)
		// Yield after every item so producers and sibling session loops
		// are not starved by a busy consumer.
		runtime.Gosched()
	}
}

func (s *Scheduler) runTurn(ctx context.Context, input string) {
	s.running.Store(true)
	defer s.running.Store(false)

	turn := int(s.turn.Add(1))
	tc := agent.ToolContext{
		Buffer: s.deps.Buffer,
		Steps:  s.deps.Steps,
		Agent:  s.deps.Agent,
		Turn:   turn,
	}

	start := time.Now()
	tc.Record(ctx, observability.StepTurnStart, map[string]any{"input": input}, 0)

	result, err := s.invoke(ctx, tc, input)
	if err != nil {
		// The transcript stays untouched on failure; the error is visible
		// only through the step log.
		tc.Record(ctx, observability.StepError, map[string]any{
			"error": err.Error(),
			"kind":  fmt.Sprintf("%T", err),
			"stack": string(debug.Stack()),
		}, time.Since(start))
		return
	}

	final := protocol.StripReasoning(result.FinalOutput)
	s.deps.Transcript.Append(transcript.Assistant(final))

	tc.Record(ctx, observability.StepAgentCall, map[string]any{
		"iterations": result.Iterations,
		"tool_calls": len(result.ToolCalls),
	}, time.Since(start))
	tc.Record(ctx, observability.StepFinalOutput, map[string]any{"output": final}, time.Since(start))
}

// invoke shields the loop from a panicking runtime: a panic is converted
// into a turn-level error so the session keeps serving queued input.
func (s *Scheduler) invoke(ctx context.Context, tc agent.ToolContext, input string) (result *agent.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("turn panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return s.deps.Runner.Run(ctx, tc, input)
}
