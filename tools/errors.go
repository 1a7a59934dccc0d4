package tools

import "errors"

// Sentinel errors for the tool registry and the builtin vision tools.
var (
	ErrNotFound      = errors.New("tool not found")
	ErrAlreadyExists = errors.New("tool already registered")
	ErrEmptyName     = errors.New("tool name is empty")
	ErrNoFrames      = errors.New("no frames buffered")
)
