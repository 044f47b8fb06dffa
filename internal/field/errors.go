package field

import "errors"

var (
	ErrInvalidParams = errors.New("field: invalid parameters")
	ErrInvalidBall   = errors.New("field: invalid metaball")
	ErrIndexRange    = errors.New("field: ball index out of range")
	ErrNonFinite     = errors.New("field: non-finite ball state")
	ErrFull          = errors.New("field: renderable ball capacity reached")
)
