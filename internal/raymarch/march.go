package raymarch

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/field"
)

const (
	DefaultThreshold   = 0.8
	DefaultMaxSteps    = 64
	DefaultMaxDistance = 30.0
	DefaultMinStep     = 0.01
	DefaultMaxStep     = 0.1
	NormalEpsilon      = 0.01
)

// Settings control the sphere tracer.
type Settings struct {
	Threshold   float64
	MaxSteps    int
	MaxDistance float64
	MinStep     float64
	MaxStep     float64

	// SkipEmpty starts each ray where it first comes within ReachRadius of
	// a ball centre instead of at the camera. No surface lies in the skipped
	// span, so the step budget is spent near the blobs.
	SkipEmpty bool
}

func DefaultSettings() Settings {
	return Settings{
		Threshold:   DefaultThreshold,
		MaxSteps:    DefaultMaxSteps,
		MaxDistance: DefaultMaxDistance,
		MinStep:     DefaultMinStep,
		MaxStep:     DefaultMaxStep,
	}
}

func (s Settings) Validate() error {
	if !(s.Threshold > 0) {
		return fmt.Errorf("%w: threshold must be positive, got %g", ErrInvalidSettings, s.Threshold)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive, got %d", ErrInvalidSettings, s.MaxSteps)
	}
	if !(s.MaxDistance > 0) {
		return fmt.Errorf("%w: max distance must be positive, got %g", ErrInvalidSettings, s.MaxDistance)
	}
	if !(s.MinStep > 0) || s.MaxStep < s.MinStep {
		return fmt.Errorf("%w: need 0 < min step <= max step, got %g and %g", ErrInvalidSettings, s.MinStep, s.MaxStep)
	}
	return nil
}

// Hit is the outcome of marching one ray. A miss is a normal result.
type Hit struct {
	Hit      bool
	Position mgl64.Vec3
	Distance float64
	Steps    int
}

// March sphere-traces the ray origin + dir*t. dir must be unit length.
func March(s *field.Snapshot, origin, dir mgl64.Vec3, set Settings) Hit {
	if set.SkipEmpty {
		return MarchBounded(s, origin, dir, set, ReachRadius(s, set.Threshold))
	}
	return march(s, origin, dir, set, 0)
}

// MarchBounded starts the march at Entry. Rays that never come within reach
// of a ball miss without marching.
func MarchBounded(s *field.Snapshot, origin, dir mgl64.Vec3, set Settings, reach float64) Hit {
	start, ok := Entry(s, origin, dir, reach)
	if !ok {
		return Hit{}
	}
	return march(s, origin, dir, set, start)
}

func march(s *field.Snapshot, origin, dir mgl64.Vec3, set Settings, t float64) Hit {
	for i := 0; i < set.MaxSteps; i++ {
		p := origin.Add(dir.Mul(t))
		if Field(s, p) > set.Threshold {
			return Hit{Hit: true, Position: p, Distance: t, Steps: i + 1}
		}

		t += StepSize(s, p, set.MinStep, set.MaxStep)
		if t > set.MaxDistance {
			return Hit{Distance: t, Steps: i + 1}
		}
	}
	return Hit{Distance: t, Steps: set.MaxSteps}
}

// enterSphere returns the ray parameter where the ray enters the sphere of
// radius r centred at the origin, 0 when it starts inside.
func enterSphere(origin, dir mgl64.Vec3, r float64) (float64, bool) {
	if r <= 0 {
		return 0, false
	}
	b := origin.Dot(dir)
	c := origin.Dot(origin) - r*r
	if c <= 0 {
		return 0, true
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		return 0, false
	}
	return t, true
}
