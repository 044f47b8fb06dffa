package analysis

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/field"
)

// LyapunovExponent estimates the largest Lyapunov exponent of the ball
// dynamics. A reference scene and a copy with ball 0 nudged by perturbation
// along x are stepped together; after every frame the separation is logged
// and rescaled back to the initial distance.
//
// The damped dynamics usually give a negative value; a positive one means
// nearby scenes diverge.
func LyapunovExponent(balls []field.Metaball, params field.Params, dt float64, frames int, perturbation float64) float64 {
	if len(balls) == 0 || frames <= 0 || dt <= 0 || perturbation <= 0 {
		return 0
	}

	ref := append([]field.Metaball(nil), balls...)
	pert := append([]field.Metaball(nil), balls...)
	pert[0].Position[0] += perturbation

	a := field.NewSimulator(ref, params)
	b := field.NewSimulator(pert, params)
	serial := compute.NewSerialBackend()
	a.SetBackend(serial)
	b.SetBackend(serial)

	d0 := perturbation
	sumLog := 0.0
	count := 0

	for i := 0; i < frames; i++ {
		a.Step(dt)
		a.ApplyPairwiseForces()
		b.Step(dt)
		b.ApplyPairwiseForces()

		sep := separation(a.Balls(), b.Balls())
		if sep == 0 {
			continue
		}
		sumLog += math.Log(sep / d0)
		count++

		scale := d0 / sep
		xs, ys := a.Balls(), b.Balls()
		for k := range ys {
			ys[k].Position = xs[k].Position.Add(ys[k].Position.Sub(xs[k].Position).Mul(scale))
			ys[k].Velocity = xs[k].Velocity.Add(ys[k].Velocity.Sub(xs[k].Velocity).Mul(scale))
		}
	}

	if count == 0 {
		return 0
	}
	return sumLog / (float64(count) * dt)
}

// separation is the phase-space distance between two scenes of equal size.
func separation(a, b []field.Metaball) float64 {
	sum := 0.0
	for i := range a {
		dp := b[i].Position.Sub(a[i].Position)
		dv := b[i].Velocity.Sub(a[i].Velocity)
		sum += dp.Dot(dp) + dv.Dot(dv)
	}
	return math.Sqrt(sum)
}

// Centroid returns the mean ball position.
func Centroid(balls []field.Metaball) mgl64.Vec3 {
	var c mgl64.Vec3
	if len(balls) == 0 {
		return c
	}
	for i := range balls {
		c = c.Add(balls[i].Position)
	}
	return c.Mul(1 / float64(len(balls)))
}
