package raymarch

import "errors"

var (
	ErrInvalidSettings = errors.New("raymarch: invalid settings")
	ErrFrameSize       = errors.New("raymarch: frame size mismatch")
	ErrCamera          = errors.New("raymarch: degenerate camera")
	ErrNilSnapshot     = errors.New("raymarch: nil snapshot")
)
