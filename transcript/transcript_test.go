package transcript_test

import (
	"sync"
	"testing"

	"github.com/tailored-agentic-units/percept/core/protocol"
	"github.com/tailored-agentic-units/percept/transcript"
)

func TestNew(t *testing.T) {
	tr := transcript.New()

	if tr.Len() != 0 {
		t.Errorf("new transcript should have 0 entries, got %d", tr.Len())
	}
}

func TestTranscript_Append_PreservesOrder(t *testing.T) {
	tr := transcript.New()

	tr.Append(transcript.User("first"))
	tr.Append(transcript.Assistant("second"))
	tr.Append(transcript.User("third"))

	entries := tr.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	want := []string{"first", "second", "third"}
	for i, w := range want {
		if entries[i].Content != w {
			t.Errorf("entries[%d].Content = %v, want %q", i, entries[i].Content, w)
		}
	}
}

func TestTranscript_Entries_DefensiveCopy(t *testing.T) {
	tr := transcript.New()
	tr.Append(transcript.User("original"))

	entries := tr.Entries()
	entries[0].Content = "mutated"

	if got := tr.Entries()[0].Content; got != "original" {
		t.Errorf("transcript entry mutated through copy: got %v", got)
	}
}

func TestEntry_Constructors(t *testing.T) {
	tests := []struct {
		name     string
		entry    transcript.Entry
		wantRole protocol.Role
		wantMode transcript.DisplayMode
	}{
		{name: "user", entry: transcript.User("hi"), wantRole: protocol.RoleUser, wantMode: transcript.ModePlain},
		{name: "system", entry: transcript.System("hi"), wantRole: protocol.RoleSystem, wantMode: transcript.ModePlain},
		{name: "assistant", entry: transcript.Assistant("hi"), wantRole: protocol.RoleAssistant, wantMode: transcript.ModePlain},
		{name: "speech", entry: transcript.Speech("hi"), wantRole: protocol.RoleAssistant, wantMode: transcript.ModeSpeech},
		{name: "tool result", entry: transcript.ToolResult("hi", nil), wantRole: protocol.RoleAssistant, wantMode: transcript.ModeTool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.entry.Role != tt.wantRole {
				t.Errorf("Role = %q, want %q", tt.entry.Role, tt.wantRole)
			}
			if tt.entry.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", tt.entry.Mode, tt.wantMode)
			}
		})
	}
}

func TestEntry_Render_ToolMetadata(t *testing.T) {
	e := transcript.ToolResult("bounding boxes", map[string]any{
		"title":  "video caption",
		"status": "done",
	})

	rendered := e.Render()

	metadata, ok := rendered["metadata"].(map[string]any)
	if !ok {
		t.Fatal("tool entry should render metadata")
	}
	if metadata["title"] != "Video Caption" {
		t.Errorf("title = %v, want %q", metadata["title"], "Video Caption")
	}
	if metadata["status"] != "done" {
		t.Errorf("status = %v, want %q", metadata["status"], "done")
	}
}

func TestEntry_Render_PlainOmitsMetadata(t *testing.T) {
	rendered := transcript.User("hello").Render()

	if _, ok := rendered["metadata"]; ok {
		t.Error("plain entry should not render metadata")
	}
	if rendered["role"] != "user" {
		t.Errorf("role = %v, want user", rendered["role"])
	}
}

func TestTranscript_ConcurrentAppend(t *testing.T) {
	tr := transcript.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Append(transcript.User("msg"))
		}()
	}
	wg.Wait()

	if tr.Len() != 50 {
		t.Errorf("got %d entries, want 50", tr.Len())
	}
}
