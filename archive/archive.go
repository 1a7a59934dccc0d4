// Package archive persists session records after idle eviction, so a
// transcript outlives its in-memory bundle. Storage is pluggable; the
// default backend is one JSON file per session.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/tailored-agentic-units/percept/observability"
)

// Sentinel errors for store operations.
var (
	ErrNotArchived = errors.New("session not archived")
	ErrLoadFailed  = errors.New("load failed")
	ErrSaveFailed  = errors.New("save failed")
)

// Record is the durable snapshot of an evicted session: the rendered
// transcript plus the step log at eviction time.
type Record struct {
	Session    string               `json:"session"`
	ArchivedAt time.Time            `json:"archived_at"`
	Entries    []map[string]any     `json:"entries"`
	Steps      []observability.Step `json:"steps,omitempty"`
}

// Store translates between external storage and session records.
// Implementations are stateless — they perform I/O on each call.
type Store interface {
	// List returns the identifiers of all archived sessions.
	List(ctx context.Context) ([]string, error)
	// Load retrieves the record for one session.
	Load(ctx context.Context, session string) (Record, error)
	// Save persists a record, overwriting any previous archive for the
	// same session.
	Save(ctx context.Context, record Record) error
	// Delete removes a session's archive. Missing sessions are ignored.
	Delete(ctx context.Context, session string) error
}
