// Package protocol defines the canonical conversation types shared by the
// transcript, the tool dispatch layer, and the agent-reasoning boundary.
package protocol

import (
	"encoding/json"
	"strings"
)

// Role identifies the sender of a conversation entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ReasoningDelimiter marks the end of a reasoning preamble in runtime
// output. Everything after the last occurrence is the user-visible text.
// This is a protocol contract with the reasoning runtime, not incidental
// parsing.
const ReasoningDelimiter = "</think>"

// StripReasoning removes a leading reasoning segment from runtime output.
// If the text contains ReasoningDelimiter, only the text after the last
// occurrence is kept; otherwise the text is returned unchanged.
func StripReasoning(text string) string {
	if i := strings.LastIndex(text, ReasoningDelimiter); i >= 0 {
		return text[i+len(ReasoningDelimiter):]
	}
	return text
}

// ToolCall is the canonical record of a single tool invocation requested by
// the reasoning runtime. Fields are flat (ID, Name, Arguments) for direct
// use across the scheduler and instrumentation. UnmarshalJSON transparently
// handles the nested LLM API format (function.name, function.arguments) so
// provider payloads decode correctly.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// MarshalJSON serializes to the nested LLM API format
// ({type, function: {name, arguments}}) ensuring round-trip fidelity with
// UnmarshalJSON for provider communication.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}{
		ID:   tc.ID,
		Type: "function",
		Function: struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		}{
			Name:      tc.Name,
			Arguments: tc.Arguments,
		},
	})
}

// UnmarshalJSON handles both the nested LLM API format
// ({function: {name, arguments}}) and the flat canonical format
// ({name, arguments}).
func (tc *ToolCall) UnmarshalJSON(data []byte) error {
	var nested struct {
		ID       string `json:"id"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &nested); err != nil {
		return err
	}

	if nested.Function.Name != "" {
		tc.ID = nested.ID
		tc.Name = nested.Function.Name
		tc.Arguments = nested.Function.Arguments
		return nil
	}

	type plain ToolCall
	return json.Unmarshal(data, (*plain)(tc))
}
