// Package transcript maintains the append-only chat history for one
// session. Entries are immutable once appended; insertion order is the
// externally observed conversation.
package transcript

import (
	"strings"
	"sync"

	"github.com/tailored-agentic-units/percept/core/protocol"
)

// DisplayMode controls how an entry is rendered by the front-end.
type DisplayMode string

const (
	ModePlain  DisplayMode = ""
	ModeTool   DisplayMode = "tool"
	ModeSpeech DisplayMode = "tts"
)

// Entry is a single transcript record. Content is a string for text or a
// renderable artifact (e.g., a data URI) for image payloads. Metadata is
// present only on tool-result entries.
type Entry struct {
	Role     protocol.Role  `json:"role"`
	Content  any            `json:"content"`
	Mode     DisplayMode    `json:"mode,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// User creates a plain user entry.
func User(content string) Entry {
	return Entry{Role: protocol.RoleUser, Content: content}
}

// System creates a plain system entry.
func System(content string) Entry {
	return Entry{Role: protocol.RoleSystem, Content: content}
}

// Assistant creates a plain assistant entry.
func Assistant(content string) Entry {
	return Entry{Role: protocol.RoleAssistant, Content: content}
}

// Speech creates an assistant entry rendered through text-to-speech.
func Speech(content string) Entry {
	return Entry{Role: protocol.RoleAssistant, Content: content, Mode: ModeSpeech}
}

// ToolResult creates an assistant entry carrying a tool-produced artifact.
// Metadata keys pass through to the renderer.
func ToolResult(content any, metadata map[string]any) Entry {
	return Entry{
		Role:     protocol.RoleAssistant,
		Content:  content,
		Mode:     ModeTool,
		Metadata: metadata,
	}
}

// Render returns the entry in the wire shape consumed by chat front-ends.
// Tool-result entries carry their metadata with a title-cased title.
func (e Entry) Render() map[string]any {
	out := map[string]any{
		"role":    string(e.Role),
		"content": e.Content,
	}

	if e.Mode != ModeTool {
		return out
	}

	metadata := make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		metadata[k] = v
	}
	if title, ok := metadata["title"].(string); ok && title != "" {
		metadata["title"] = titleCase(title)
	}
	out["metadata"] = metadata
	return out
}

// titleCase upper-cases the first letter of each space-separated word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Transcript holds an ordered sequence of entries. Safe for concurrent use.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
}

// New creates an empty Transcript.
func New() *Transcript {
	return &Transcript{}
}

// Append adds an entry to the history.
func (t *Transcript) Append(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, e)
}

// Entries returns a defensive copy of the history in insertion order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make([]Entry, len(t.entries))
	copy(copied, t.entries)
	return copied
}

// Render returns the full history in front-end wire shape.
func (t *Transcript) Render() []map[string]any {
	entries := t.Entries()
	out := make([]map[string]any, len(entries))
	for i, e := range entries {
		out[i] = e.Render()
	}
	return out
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
