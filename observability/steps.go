package observability

import (
	"context"
	"sync"
	"time"
)

// DefaultStepLimit is the step log capacity when none is configured.
const DefaultStepLimit = 1000

// StepKind identifies a turn/tool lifecycle transition.
type StepKind string

const (
	StepTurnStart   StepKind = "turn-start"
	StepToolCall    StepKind = "tool-call"
	StepToolResult  StepKind = "tool-result"
	StepAgentCall   StepKind = "agent-call"
	StepFinalOutput StepKind = "final-output"
	StepError       StepKind = "error"
)

// Step is one structured record of turn or tool execution. It is populated
// explicitly by the scheduler and the tool-loop dispatch layer, never
// inferred from runtime internals. Duration is zero when not applicable.
type Step struct {
	Timestamp time.Time      `json:"timestamp"`
	Kind      StepKind       `json:"kind"`
	Agent     string         `json:"agent"`
	Turn      int            `json:"turn"`
	Details   map[string]any `json:"details,omitempty"`
	Duration  time.Duration  `json:"duration,omitempty"`
}

// StepRecorder keeps a capacity-bounded, oldest-evicting log of Steps and
// mirrors each record to a diagnostic sink. The log exists purely for
// observability; scheduling logic never consults it. Recording never
// panics out of the turn it observes — internal faults are swallowed.
type StepRecorder struct {
	mu    sync.RWMutex
	limit int
	steps []Step
	sink  Observer
}

// NewStepRecorder creates a StepRecorder holding at most limit steps.
// Non-positive limits fall back to DefaultStepLimit; a nil sink discards
// mirrored events.
func NewStepRecorder(limit int, sink Observer) *StepRecorder {
	if limit <= 0 {
		limit = DefaultStepLimit
	}
	if sink == nil {
		sink = NoOpObserver{}
	}
	return &StepRecorder{limit: limit, sink: sink}
}

// Record appends a step to the bounded log and emits it to the sink.
// A zero Timestamp is filled with the current time.
func (r *StepRecorder) Record(ctx context.Context, step Step) {
	defer func() {
		// Instrumentation must never abort the turn it is observing.
		_ = recover()
	}()

	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now()
	}

	r.mu.Lock()
	r.steps = append(r.steps, step)
	for len(r.steps) > r.limit {
		r.steps = r.steps[1:]
	}
	r.mu.Unlock()

	r.sink.OnEvent(ctx, Event{
		Type:      EventType("step." + string(step.Kind)),
		Level:     step.Kind.level(),
		Timestamp: step.Timestamp,
		Source:    step.Agent,
		Data: map[string]any{
			"turn":     step.Turn,
			"details":  step.Details,
			"duration": step.Duration,
		},
	})
}

// Steps returns a copy of the recorded steps, oldest first.
func (r *StepRecorder) Steps() []Step {
	r.mu.RLock()
	defer r.mu.RUnlock()

	copied := make([]Step, len(r.steps))
	copy(copied, r.steps)
	return copied
}

// Len returns the number of recorded steps.
func (r *StepRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.steps)
}

func (k StepKind) level() Level {
	switch k {
	case StepError:
		return LevelError
	case StepTurnStart, StepFinalOutput:
		return LevelInfo
	default:
		return LevelVerbose
	}
}
