package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/tailored-agentic-units/percept/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose maps to DEBUG", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info maps to INFO", level: observability.LevelInfo, want: "INFO"},
		{name: "warning maps to WARN", level: observability.LevelWarning, want: "WARN"},
		{name: "error maps to ERROR", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestSlogObserver_FlattensData(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	obs := observability.NewSlogObserver(logger)

	obs.OnEvent(context.Background(), observability.Event{
		Type:      "scheduler.turn.start",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "assistant",
		Data:      map[string]any{"turn": 3},
	})

	out := buf.String()
	if !strings.Contains(out, "scheduler.turn.start") {
		t.Errorf("output missing event type: %s", out)
	}
	if !strings.Contains(out, "turn=3") {
		t.Errorf("output missing flattened data attribute: %s", out)
	}
	if !strings.Contains(out, "source=assistant") {
		t.Errorf("output missing source attribute: %s", out)
	}
}

func TestMultiObserver_FansOut(t *testing.T) {
	var a, b countingObserver
	multi := observability.NewMultiObserver(&a, nil, &b)

	multi.OnEvent(context.Background(), observability.Event{Type: "test"})

	if a.count != 1 || b.count != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", a.count, b.count)
	}
}

type countingObserver struct {
	count int
}

func (c *countingObserver) OnEvent(ctx context.Context, event observability.Event) {
	c.count++
}

func TestGetObserver(t *testing.T) {
	if _, err := observability.GetObserver("noop"); err != nil {
		t.Errorf("noop observer should be pre-registered: %v", err)
	}
	if _, err := observability.GetObserver("slog"); err != nil {
		t.Errorf("slog observer should be pre-registered: %v", err)
	}
	if _, err := observability.GetObserver("missing"); err == nil {
		t.Error("unknown observer should return an error")
	}
}

func TestRegisterObserver(t *testing.T) {
	obs := &countingObserver{}
	observability.RegisterObserver("counting", obs)

	got, err := observability.GetObserver("counting")
	if err != nil {
		t.Fatalf("GetObserver: %v", err)
	}
	if got != obs {
		t.Error("GetObserver returned a different observer")
	}
}
