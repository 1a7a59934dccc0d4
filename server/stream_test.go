package server_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/tailored-agentic-units/percept/vision"
)

func TestStream_FramesInSnapshotsOut(t *testing.T) {
	f := newFixture(t)

	session := f.sessions.GetOrCreate("s1")
	session.Buffer.PushSnapshot(vision.TextSnapshot("localize", "two boxes"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/sessions/s1/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := conn.Write(ctx, websocket.MessageBinary, []byte("frame-1")); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if typ != websocket.MessageText {
		t.Errorf("message type = %v, want text", typ)
	}

	var snap struct {
		Sender  string `json:"sender"`
		Content any    `json:"content"`
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if snap.Sender != "localize" || snap.Content != "two boxes" {
		t.Errorf("snapshot = %+v", snap)
	}

	if session.Buffer.Len() != 1 {
		t.Errorf("buffer len = %d, want 1", session.Buffer.Len())
	}
	if session.Transcript.Len() != 1 {
		t.Errorf("transcript len = %d, want the attached snapshot entry", session.Transcript.Len())
	}
}

func TestStream_FramesWithoutSnapshotsProduceNoMessages(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/sessions/s1/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	for i := 0; i < 3; i++ {
		if err := conn.Write(ctx, websocket.MessageBinary, []byte("frame")); err != nil {
			t.Fatalf("write frame %d: %v", i, err)
		}
	}

	session := f.sessions.GetOrCreate("s1")
	waitFor(t, func() bool { return session.Buffer.Len() == 3 }, "frames ingested")

	readCtx, readCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer readCancel()
	if _, _, err := conn.Read(readCtx); err == nil {
		t.Error("no snapshot message expected for frames with an empty queue")
	}
}
