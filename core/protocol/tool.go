package protocol

// Tool defines a callable operation exposed to the reasoning runtime.
// This is the canonical tool definition type used across the registry and
// the runtime boundary. Parameters uses JSON Schema format to describe the
// operation's input.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
