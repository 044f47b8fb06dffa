package raymarch

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/field"
)

// FieldEpsilon softens the field at ball centres.
const FieldEpsilon = 0.01

// Neutral is the colour used when no ball has any influence.
var Neutral = mgl64.Vec3{0.5, 0.5, 0.5}

// Contribution is one ball's share of the field at squared distance d2.
func Contribution(radius, d2 float64) float64 {
	return radius * radius / (d2 + FieldEpsilon)
}

// Field evaluates F(p) = Σ r² / (|p - c|² + ε) over the snapshot.
func Field(s *field.Snapshot, p mgl64.Vec3) float64 {
	n := s.Len()
	f := 0.0
	for i := 0; i < n; i++ {
		d := p.Sub(s.Positions[i])
		f += Contribution(s.Radii[i], d.Dot(d))
	}
	return f
}

// Influence is ball i's contribution to F at p, zero for out of range i.
func Influence(s *field.Snapshot, i int, p mgl64.Vec3) float64 {
	if i < 0 || i >= s.Len() {
		return 0
	}
	d := p.Sub(s.Positions[i])
	return Contribution(s.Radii[i], d.Dot(d))
}

// BlendColor averages ball colours weighted by their influence at p.
func BlendColor(s *field.Snapshot, p mgl64.Vec3) mgl64.Vec3 {
	n := s.Len()
	var c mgl64.Vec3
	total := 0.0
	for i := 0; i < n; i++ {
		d := p.Sub(s.Positions[i])
		w := Contribution(s.Radii[i], d.Dot(d))
		c = c.Add(s.Colors[i].Mul(w))
		total += w
	}
	if total <= 0 {
		return Neutral
	}
	return c.Mul(1 / total)
}

// Normal is the normalized central-difference gradient of F at p.
func Normal(s *field.Snapshot, p mgl64.Vec3, eps float64) mgl64.Vec3 {
	dx := mgl64.Vec3{eps, 0, 0}
	dy := mgl64.Vec3{0, eps, 0}
	dz := mgl64.Vec3{0, 0, eps}
	g := mgl64.Vec3{
		Field(s, p.Add(dx)) - Field(s, p.Sub(dx)),
		Field(s, p.Add(dy)) - Field(s, p.Sub(dy)),
		Field(s, p.Add(dz)) - Field(s, p.Sub(dz)),
	}
	if l := g.Len(); l > 0 {
		return g.Mul(1 / l)
	}
	return mgl64.Vec3{}
}

// StepSize is the conservative march step at p: the smallest lower bound on
// the distance to any ball surface, floored at minStep and capped at maxStep.
func StepSize(s *field.Snapshot, p mgl64.Vec3, minStep, maxStep float64) float64 {
	step := maxStep
	n := s.Len()
	for i := 0; i < n; i++ {
		d := p.Sub(s.Positions[i]).Len() - s.Radii[i]
		step = math.Min(step, math.Max(minStep, d))
	}
	return step
}

// ReachRadius bounds the region where F can exceed threshold: outside a
// sphere of this radius around every centre the field is at most threshold.
func ReachRadius(s *field.Snapshot, threshold float64) float64 {
	if threshold <= 0 {
		return math.Inf(1)
	}
	sum := 0.0
	n := s.Len()
	for i := 0; i < n; i++ {
		sum += s.Radii[i] * s.Radii[i]
	}
	return math.Sqrt(sum / threshold)
}

// Entry returns the smallest ray parameter at which origin + dir*t comes
// within reach of any ball centre, 0 when it starts within reach. ok is false
// when the ray never gets within reach and so cannot hit the surface.
func Entry(s *field.Snapshot, origin, dir mgl64.Vec3, reach float64) (t float64, ok bool) {
	n := s.Len()
	t = math.Inf(1)
	for i := 0; i < n; i++ {
		if ti, hit := enterSphere(origin.Sub(s.Positions[i]), dir, reach); hit && ti < t {
			t = ti
			ok = true
		}
	}
	if !ok {
		return 0, false
	}
	return t, true
}
