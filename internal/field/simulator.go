package field

import (
	"fmt"
	"math"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/compute"
)

// Simulator owns the metaballs of one scene.
type Simulator struct {
	balls   []Metaball
	params  Params
	pending []mgl64.Vec3
	backend compute.Backend
	noise   *perlin.Perlin

	positions []mgl64.Vec3
	radii     []float64
	impulses  []mgl64.Vec3
}

// NewSimulator takes ownership of balls. Params are not validated here; use
// Params.Validate for user-supplied values.
func NewSimulator(balls []Metaball, params Params) *Simulator {
	s := &Simulator{
		balls:   balls,
		params:  params,
		pending: make([]mgl64.Vec3, len(balls)),
		backend: compute.GetBackend(),
	}
	return s
}

// SetBackend replaces the backend used for pair impulses.
func (s *Simulator) SetBackend(b compute.Backend) {
	if b != nil {
		s.backend = b
	}
}

// EnableDrift seeds the turbulence noise field. Drift stays inactive while
// Params.Turbulence is zero.
func (s *Simulator) EnableDrift(seed int64) {
	s.noise = perlin.NewPerlin(2, 2, 3, seed)
}

func (s *Simulator) Backend() compute.Backend { return s.backend }
func (s *Simulator) Params() Params           { return s.params }
func (s *Simulator) SetParams(p Params)       { s.params = p }
func (s *Simulator) Len() int                 { return len(s.balls) }

// Balls returns the live ball slice. Callers must not retain it across Add or Remove.
func (s *Simulator) Balls() []Metaball { return s.balls }

// Ball returns a copy of ball i.
func (s *Simulator) Ball(i int) (Metaball, bool) {
	if i < 0 || i >= len(s.balls) {
		return Metaball{}, false
	}
	return s.balls[i], true
}

// Step advances every ball by dt seconds.
func (s *Simulator) Step(dt float64) {
	bound := s.params.Bound
	scale := dt * s.params.FrameRateScale

	for i := range s.balls {
		b := &s.balls[i]

		if f := s.pending[i]; f != (mgl64.Vec3{}) {
			b.Velocity = b.Velocity.Add(f.Mul(1 / b.Mass()))
			s.pending[i] = mgl64.Vec3{}
		}

		b.Position = b.Position.Add(b.Velocity.Mul(scale))

		for k := 0; k < 3; k++ {
			if math.Abs(b.Position[k]) > bound {
				b.Velocity[k] *= -s.params.Restitution
				b.Position[k] = math.Copysign(bound, b.Position[k])
			}
		}

		b.Velocity = b.Velocity.Mul(s.params.Damping)
		assertFinite(b)
	}
}

// ApplyPairwiseForces applies attraction and near-contact repulsion between
// every unordered pair directly to velocities.
func (s *Simulator) ApplyPairwiseForces() {
	n := len(s.balls)
	if n < 2 {
		return
	}
	s.positions = s.positions[:0]
	s.radii = s.radii[:0]
	for i := range s.balls {
		s.positions = append(s.positions, s.balls[i].Position)
		s.radii = append(s.radii, s.balls[i].Radius)
	}
	if cap(s.impulses) < n {
		s.impulses = make([]mgl64.Vec3, n)
	}
	s.impulses = s.impulses[:n]

	s.backend.PairImpulses(s.positions, s.radii, s.params.Pair, s.impulses)

	for i := range s.balls {
		b := &s.balls[i]
		b.Velocity = b.Velocity.Add(s.impulses[i].Mul(1 / b.Mass()))
	}
}

// ApplyPointForce pulls every ball within the configured radius toward point.
// The impulse is consumed by the next Step.
func (s *Simulator) ApplyPointForce(point mgl64.Vec3) int {
	return s.ApplyPointForceWith(point, s.params.PointRadius, s.params.PointStrength)
}

// ApplyPointForceWith is ApplyPointForce with explicit radius and strength.
// It returns the number of balls affected.
func (s *Simulator) ApplyPointForceWith(point mgl64.Vec3, radius, strength float64) int {
	affected := 0
	for i := range s.balls {
		delta := point.Sub(s.balls[i].Position)
		d := delta.Len()
		if d >= radius || d == 0 {
			continue
		}
		f := delta.Mul(1 / d).Mul(strength / (d + 0.1))
		s.pending[i] = s.pending[i].Add(f)
		affected++
	}
	return affected
}

// ApplyForce accumulates a raw impulse on ball i. Out of range indices are ignored.
func (s *Simulator) ApplyForce(i int, f mgl64.Vec3) {
	if i < 0 || i >= len(s.pending) {
		return
	}
	s.pending[i] = s.pending[i].Add(f)
}

// Pending returns the impulse waiting on ball i for the next Step.
func (s *Simulator) Pending(i int) mgl64.Vec3 {
	if i < 0 || i >= len(s.pending) {
		return mgl64.Vec3{}
	}
	return s.pending[i]
}

// ApplyDrift adds a perlin noise impulse to every ball, sampled at the ball
// position and time t.
func (s *Simulator) ApplyDrift(t float64) {
	if s.noise == nil || s.params.Turbulence == 0 {
		return
	}
	sc := s.params.DriftScale
	for i := range s.balls {
		p := s.balls[i].Position
		var f mgl64.Vec3
		for k := 0; k < 3; k++ {
			off := float64(k) * 17.3
			f[k] = s.noise.Noise3D(p[0]*sc+off, p[1]*sc+t*0.25, p[2]*sc-off)
		}
		s.pending[i] = s.pending[i].Add(f.Mul(s.params.Turbulence))
	}
}

// Add appends a ball and returns its index.
func (s *Simulator) Add(b Metaball) (int, error) {
	if !(b.Radius > 0) || math.IsInf(b.Radius, 0) {
		return -1, fmt.Errorf("%w: radius %g", ErrInvalidBall, b.Radius)
	}
	if !finiteVec(b.Position) || !finiteVec(b.Velocity) {
		return -1, fmt.Errorf("%w: non-finite position or velocity", ErrInvalidBall)
	}
	s.balls = append(s.balls, b)
	s.pending = append(s.pending, mgl64.Vec3{})
	return len(s.balls) - 1, nil
}

// AddVisible is Add for interactive scenes: it refuses a ball that the
// snapshot could not carry.
func (s *Simulator) AddVisible(b Metaball) (int, error) {
	if len(s.balls) >= MaxBalls {
		return -1, fmt.Errorf("%w: %d balls", ErrFull, MaxBalls)
	}
	return s.Add(b)
}

// Remove deletes ball i, preserving the order of the rest.
func (s *Simulator) Remove(i int) error {
	if i < 0 || i >= len(s.balls) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndexRange, i, len(s.balls))
	}
	s.balls = append(s.balls[:i], s.balls[i+1:]...)
	s.pending = append(s.pending[:i], s.pending[i+1:]...)
	return nil
}

// KineticEnergy returns the total ½mv² of the scene.
func (s *Simulator) KineticEnergy() float64 {
	e := 0.0
	for i := range s.balls {
		e += s.balls[i].KineticEnergy()
	}
	return e
}

// InBounds reports whether every position component lies within the bound.
func (s *Simulator) InBounds() bool {
	for i := range s.balls {
		for k := 0; k < 3; k++ {
			if math.Abs(s.balls[i].Position[k]) > s.params.Bound {
				return false
			}
		}
	}
	return true
}

func finiteVec(v mgl64.Vec3) bool {
	for k := 0; k < 3; k++ {
		if math.IsNaN(v[k]) || math.IsInf(v[k], 0) {
			return false
		}
	}
	return true
}
