package field

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	// MaxBalls is the capacity of a Snapshot and of the shader uniform arrays.
	MaxBalls = 16

	DefaultBallCount = 8
)

// DefaultPalette is cycled when more balls than colours are seeded.
var DefaultPalette = []mgl64.Vec3{
	{1.0, 0.3, 0.3},
	{0.3, 1.0, 0.3},
	{0.3, 0.3, 1.0},
	{1.0, 1.0, 0.3},
	{1.0, 0.3, 1.0},
	{0.3, 1.0, 1.0},
	{1.0, 0.6, 0.2},
	{0.6, 0.3, 1.0},
}

// Metaball is one spherical influence field.
type Metaball struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Radius   float64
	Color    mgl64.Vec3
}

// Mass scales applied impulses. Heavier balls resist both attraction and repulsion.
func (b *Metaball) Mass() float64 { return b.Radius * b.Radius }

// Strength is the numerator of the ball's field contribution.
func (b *Metaball) Strength() float64 { return b.Radius * b.Radius }

// KineticEnergy returns ½mv².
func (b *Metaball) KineticEnergy() float64 {
	return 0.5 * b.Mass() * b.Velocity.Dot(b.Velocity)
}

// NewRNG returns the deterministic generator used for seeding scenes.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// RandomBalls seeds n metaballs inside a 10-unit cube around the origin.
func RandomBalls(seed int64, n int, palette []mgl64.Vec3) []Metaball {
	return RandomBallsFrom(NewRNG(seed), n, palette)
}

// RandomBallsFrom is RandomBalls with a caller-owned generator.
func RandomBallsFrom(rng *rand.Rand, n int, palette []mgl64.Vec3) []Metaball {
	if n < 0 {
		n = 0
	}
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	balls := make([]Metaball, n)
	for i := range balls {
		balls[i] = RandomBall(rng, palette[i%len(palette)])
	}
	return balls
}

// RandomBall draws a single ball with the given colour.
func RandomBall(rng *rand.Rand, color mgl64.Vec3) Metaball {
	pos := mgl64.Vec3{
		(rng.Float64() - 0.5) * 10,
		(rng.Float64() - 0.5) * 10,
		(rng.Float64() - 0.5) * 10,
	}
	radius := 1.0 + rng.Float64()*1.5
	vel := mgl64.Vec3{
		(rng.Float64() - 0.5) * 0.02,
		(rng.Float64() - 0.5) * 0.02,
		(rng.Float64() - 0.5) * 0.02,
	}
	return Metaball{Position: pos, Velocity: vel, Radius: radius, Color: color}
}
