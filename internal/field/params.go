package field

import (
	"fmt"

	"github.com/san-kum/metaballs/internal/compute"
)

// Params are the integrator and force constants of a scene.
type Params struct {
	Bound          float64
	Restitution    float64
	Damping        float64
	FrameRateScale float64

	Pair compute.PairParams

	PointRadius   float64
	PointStrength float64

	// Turbulence scales the perlin drift impulse. Zero disables drift.
	Turbulence float64
	DriftScale float64
}

func DefaultParams() Params {
	return Params{
		Bound:          8,
		Restitution:    0.8,
		Damping:        0.98,
		FrameRateScale: 60,
		Pair:           compute.DefaultPairParams(),
		PointRadius:    8,
		PointStrength:  0.0005,
		Turbulence:     0,
		DriftScale:     0.15,
	}
}

func (p Params) Validate() error {
	if p.Bound <= 0 {
		return fmt.Errorf("%w: bound must be positive, got %g", ErrInvalidParams, p.Bound)
	}
	if p.Restitution < 0 || p.Restitution > 1 {
		return fmt.Errorf("%w: restitution must be in [0, 1], got %g", ErrInvalidParams, p.Restitution)
	}
	if p.Damping < 0 || p.Damping > 1 {
		return fmt.Errorf("%w: damping must be in [0, 1], got %g", ErrInvalidParams, p.Damping)
	}
	if p.FrameRateScale <= 0 {
		return fmt.Errorf("%w: frame rate scale must be positive, got %g", ErrInvalidParams, p.FrameRateScale)
	}
	if p.Pair.InteractionRadius < 0 {
		return fmt.Errorf("%w: interaction radius must be non-negative, got %g", ErrInvalidParams, p.Pair.InteractionRadius)
	}
	if p.Pair.AttractionSoftening <= 0 || p.Pair.RepulsionOffset <= 0 {
		return fmt.Errorf("%w: force offsets must be positive", ErrInvalidParams)
	}
	if p.PointRadius < 0 {
		return fmt.Errorf("%w: point radius must be non-negative, got %g", ErrInvalidParams, p.PointRadius)
	}
	if p.Turbulence < 0 {
		return fmt.Errorf("%w: turbulence must be non-negative, got %g", ErrInvalidParams, p.Turbulence)
	}
	return nil
}
