package server

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gorilla/mux"

	"github.com/tailored-agentic-units/percept/observability"
	"github.com/tailored-agentic-units/percept/vision"
)

// handleStream is the continuous frame-ingestion boundary: the producer
// sends binary JPEG frames; for each frame that drains a snapshot, one
// JSON snapshot message comes back for the client to render.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.GetOrCreate(mux.Vars(r)["id"])

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.observer.OnEvent(r.Context(), observability.Event{
			Type:   "stream.accept.failed",
			Level:  observability.LevelWarning,
			Source: "server",
			Data:   map[string]any{"session": session.ID, "error": err.Error()},
		})
		return
	}
	conn.SetReadLimit(maxFrameBytes)
	defer conn.CloseNow()

	ctx := r.Context()
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageBinary || len(data) == 0 {
			continue
		}

		session.Touch()
		snap, ok := session.Buffer.Ingest(vision.NewFrame(data))
		if !ok {
			continue
		}

		attachSnapshot(session, snap)
		payload, err := json.Marshal(snapshotPayload{Sender: snap.Sender, Content: snap.Content()})
		if err != nil {
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			return
		}
	}
}
