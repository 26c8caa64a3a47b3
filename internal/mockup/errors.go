package mockup

import (
	"errors"
	"fmt"
)

var (
	// ErrNoImageData is matched by every *GenerationError.
	ErrNoImageData = errors.New("no image data found in the response")

	// ErrInvalidRequest wraps input validation failures; no call is made.
	ErrInvalidRequest = errors.New("invalid mockup request")
)

// GenerationError reports a response that arrived but carried no inline image.
type GenerationError struct {
	// Text is whatever the model said instead, often a refusal.
	Text         string
	FinishReason string
	BlockReason  string
}

func (e *GenerationError) Error() string {
	return ErrNoImageData.Error()
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrNoImageData
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
