package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDt indicates a non-positive or non-finite frame time step.
	ErrInvalidDt = errors.New("sim: time step must be positive and finite")

	// ErrInvalidFrames indicates a run with no frames.
	ErrInvalidFrames = errors.New("sim: frame count must be positive")

	// ErrNonFinite indicates a ball left the finite range during a frame.
	ErrNonFinite = errors.New("sim: non-finite ball state")
)

// FrameError wraps a failure with the frame it happened in.
type FrameError struct {
	Frame   int
	Time    float64
	Wrapped error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d (t=%.4f): %v", e.Frame, e.Time, e.Wrapped)
}

func (e *FrameError) Unwrap() error {
	return e.Wrapped
}
