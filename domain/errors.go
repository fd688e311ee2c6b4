package domain

import "errors"

var (
	// ErrQuotaExhausted marks failures caused by the backend's rate or quota limits.
	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrInvalidInput   = errors.New("invalid input")
)

// GenerationError is returned when no story could be produced. Message is
// safe to show to the reader.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return "story generation failed: " + e.Message
	}
	return "story generation failed: " + e.Message + ": " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }
