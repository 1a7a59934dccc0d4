// Package registry maps session identifiers to isolated session bundles.
// Each bundle owns its transcript, frame buffer, step log, and turn
// scheduler; nothing is shared across sessions.
package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/percept/agent"
	"github.com/tailored-agentic-units/percept/archive"
	"github.com/tailored-agentic-units/percept/core/config"
	"github.com/tailored-agentic-units/percept/observability"
	"github.com/tailored-agentic-units/percept/scheduler"
	"github.com/tailored-agentic-units/percept/transcript"
	"github.com/tailored-agentic-units/percept/vision"
)

// Session is the per-identifier state bundle. The agent runner is bound
// exactly once at creation; the scheduler's consumer loop is already
// started when the bundle is handed out.
type Session struct {
	ID         string
	Transcript *transcript.Transcript
	Buffer     *vision.Buffer
	Steps      *observability.StepRecorder
	Scheduler  *scheduler.Scheduler

	lastSeen atomic.Int64
}

// Touch marks the session as recently used. Producers call it on every
// frame or chat delivery; the idle sweeper reads it.
func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns the time of the most recent Touch.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// RunnerFactory constructs a fresh agent runner for a new session.
type RunnerFactory func() agent.Runner

// Registry creates and tracks session bundles with lazy instantiation.
// Thread-safe for concurrent access.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	ctx     context.Context
	factory RunnerFactory
	agent   string
	cfg     config.SessionConfig
	sink    observability.Observer
	store   archive.Store
}

// New creates an empty Registry. ctx bounds the lifetime of every session
// consumer loop the registry starts. sink receives mirrored step events
// and may be nil.
func New(ctx context.Context, factory RunnerFactory, agentName string, cfg config.SessionConfig, sink observability.Observer) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		ctx:      ctx,
		factory:  factory,
		agent:    agentName,
		cfg:      cfg,
		sink:     sink,
	}
}

// SetArchive configures durable archiving of evicted sessions. Without a
// store, eviction discards session state.
func (r *Registry) SetArchive(store archive.Store) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = store
}

// Archived loads the archive record for a session evicted earlier.
func (r *Registry) Archived(ctx context.Context, id string) (archive.Record, error) {
	r.mu.RLock()
	store := r.store
	r.mu.RUnlock()
	if store == nil {
		return archive.Record{}, archive.ErrNotArchived
	}
	return store.Load(ctx, id)
}

// GetOrCreate returns the bundle for id, constructing and starting it on
// first access. An empty id is assigned a fresh identifier.
func (r *Registry) GetOrCreate(id string) *Session {
	if id == "" {
		id = newSessionID()
	}

	r.mu.RLock()
	s, exists := r.sessions[id]
	r.mu.RUnlock()
	if exists {
		s.Touch()
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if s, exists := r.sessions[id]; exists {
		s.Touch()
		return s
	}

	s = r.newSession(id)
	r.sessions[id] = s
	return s
}

// Get returns the bundle for id without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, exists := r.sessions[id]
	return s, exists
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// IDs returns the identifiers of all live sessions.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) newSession(id string) *Session {
	s := &Session{
		ID:         id,
		Transcript: transcript.New(),
		Buffer:     vision.NewBuffer(r.cfg.FrameLimit),
		Steps:      observability.NewStepRecorder(r.cfg.StepLimit, r.sink),
	}
	s.Scheduler = scheduler.New(scheduler.Deps{
		Runner:     r.factory(),
		Agent:      r.agent,
		Transcript: s.Transcript,
		Buffer:     s.Buffer,
		Steps:      s.Steps,
	}, r.cfg.IntakeBuffer)
	s.Touch()
	s.Scheduler.Start(r.ctx)
	return s
}

// StartSweeper evicts sessions idle longer than the configured TTL.
// It is a no-op when the TTL is zero (the default): sessions then live
// for the process lifetime.
func (r *Registry) StartSweeper(ctx context.Context) {
	ttl := r.cfg.IdleTTL()
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep(ttl)
			}
		}
	}()
}

func (r *Registry) sweep(ttl time.Duration) {
	cutoff := time.Now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.LastSeen().Before(cutoff) && !s.Scheduler.IsRunning() && s.Scheduler.QueueLength() == 0 {
			s.Scheduler.Close()
			delete(r.sessions, id)
			r.archiveSession(s)
		}
	}
}

func (r *Registry) archiveSession(s *Session) {
	if r.store == nil {
		return
	}
	record := archive.Record{
		Session:    s.ID,
		ArchivedAt: time.Now(),
		Entries:    s.Transcript.Render(),
		Steps:      s.Steps.Steps(),
	}
	if err := r.store.Save(r.ctx, record); err != nil && r.sink != nil {
		r.sink.OnEvent(r.ctx, observability.Event{
			Type:   "session.archive.failed",
			Level:  observability.LevelWarning,
			Source: "registry",
			Data:   map[string]any{"session": s.ID, "error": err.Error()},
		})
	}
}

func newSessionID() string {
	uid, err := uuid.NewV7()
	if err != nil {
		uid = uuid.New()
	}
	return uid.String()
}
