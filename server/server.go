// Package server exposes the session core over HTTP: chat and frame
// ingestion boundaries, transcript and step inspection, and a WebSocket
// frame stream.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tailored-agentic-units/percept/archive"
	"github.com/tailored-agentic-units/percept/observability"
	"github.com/tailored-agentic-units/percept/registry"
	"github.com/tailored-agentic-units/percept/scheduler"
	"github.com/tailored-agentic-units/percept/transcript"
	"github.com/tailored-agentic-units/percept/vision"
)

// maxFrameBytes bounds a single uploaded frame payload.
const maxFrameBytes = 8 << 20

// Server routes the ingestion and inspection boundaries to session bundles.
type Server struct {
	sessions *registry.Registry
	observer observability.Observer
	router   *mux.Router
}

func New(sessions *registry.Registry, observer observability.Observer) *Server {
	if observer == nil {
		observer = observability.NoOpObserver{}
	}
	s := &Server{sessions: sessions, observer: observer}
	s.router = mux.NewRouter()
	s.setupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the router in an http.Server bound to addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/sessions", s.handleSessions).Methods("GET")
	s.router.HandleFunc("/sessions/{id}/chat", s.handleChat).Methods("POST")
	s.router.HandleFunc("/sessions/{id}/frames", s.handleFrame).Methods("POST")
	s.router.HandleFunc("/sessions/{id}/transcript", s.handleTranscript).Methods("GET")
	s.router.HandleFunc("/sessions/{id}/steps", s.handleSteps).Methods("GET")
	s.router.HandleFunc("/sessions/{id}/archive", s.handleArchive).Methods("GET")
	s.router.HandleFunc("/sessions/{id}/stream", s.handleStream).Methods("GET")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.IDs()})
}

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Session     string `json:"session"`
	Accepted    bool   `json:"accepted"`
	Running     bool   `json:"running"`
	QueueLength int    `json:"queue_length"`
}

// handleChat accepts a text submission and returns immediately; the caller
// observes the transcript for the eventual assistant entry. Running and
// QueueLength let the caller gate its own input UI.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	session := s.sessions.GetOrCreate(mux.Vars(r)["id"])
	session.Touch()

	if err := session.Scheduler.Submit(req.Text); err != nil {
		if errors.Is(err, scheduler.ErrIntakeFull) {
			http.Error(w, "intake queue is full", http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.observer.OnEvent(r.Context(), observability.Event{
		Type:   "chat.submitted",
		Level:  observability.LevelInfo,
		Source: "server",
		Data:   map[string]any{"session": session.ID, "length": len(req.Text)},
	})

	writeJSON(w, http.StatusAccepted, chatResponse{
		Session:     session.ID,
		Accepted:    true,
		Running:     session.Scheduler.IsRunning(),
		QueueLength: session.Scheduler.QueueLength(),
	})
}

type snapshotPayload struct {
	Sender  string `json:"sender"`
	Content any    `json:"content"`
}

// handleFrame ingests one frame and returns the drained snapshot, if any,
// for the caller to render alongside the unmodified frame it already holds.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFrameBytes))
	if err != nil {
		http.Error(w, "failed to read frame payload", http.StatusBadRequest)
		return
	}
	if len(data) == 0 {
		http.Error(w, "empty frame payload", http.StatusBadRequest)
		return
	}

	session := s.sessions.GetOrCreate(mux.Vars(r)["id"])
	session.Touch()

	snap, ok := session.Buffer.Ingest(vision.NewFrame(data))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	attachSnapshot(session, snap)
	writeJSON(w, http.StatusOK, snapshotPayload{Sender: snap.Sender, Content: snap.Content()})
}

// attachSnapshot appends a drained snapshot to the transcript as a
// completed tool entry.
func attachSnapshot(session *registry.Session, snap vision.Snapshot) {
	session.Transcript.Append(transcript.ToolResult(snap.Content(), map[string]any{
		"title":  snap.Sender,
		"status": "done",
	}))
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": session.ID,
		"running": session.Scheduler.IsRunning(),
		"waiting": session.Scheduler.IsWaiting(),
		"entries": session.Transcript.Render(),
	})
}

func (s *Server) handleSteps(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(mux.Vars(r)["id"])
	if !ok {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": session.ID,
		"steps":   session.Steps.Steps(),
	})
}

// handleArchive serves the durable record of an evicted session.
func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	record, err := s.sessions.Archived(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, archive.ErrNotArchived) {
			http.Error(w, "session not archived", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
