package agent

import "errors"

var (
	// ErrMaxIterations is returned when the tool loop exhausts its
	// iteration budget without the model producing a final response.
	ErrMaxIterations = errors.New("max iterations reached")

	// ErrEmptyResponse is returned when the completion service answers
	// with no choices.
	ErrEmptyResponse = errors.New("completion returned no choices")
)
