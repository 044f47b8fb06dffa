package viz

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/raymarch"
)

const (
	minDistance = 4.0
	maxDistance = 40.0
)

// SpringRig is an orbit camera whose angle and distance ease toward their
// targets on critically damped springs. It satisfies sim.CameraRig; the
// pose only changes in Advance.
type SpringRig struct {
	Height     float64
	FOV        float64
	OrbitSpeed float64
	AutoOrbit  bool

	angle, angleVel, angleTarget float64
	dist, distVel, distTarget    float64

	spring harmonica.Spring
}

func NewSpringRig(distance, height, fov, orbitSpeed float64, fps int) *SpringRig {
	if fps <= 0 {
		fps = 60
	}
	distance = clampDistance(distance)
	return &SpringRig{
		Height:     height,
		FOV:        fov,
		OrbitSpeed: orbitSpeed,
		AutoOrbit:  true,
		dist:       distance,
		distTarget: distance,
		spring:     harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Advance moves the springs one tick. With AutoOrbit the angle target
// drifts at OrbitSpeed radians per second.
func (r *SpringRig) Advance(dt float64) {
	if r.AutoOrbit {
		r.angleTarget += r.OrbitSpeed * dt
	}
	r.angle, r.angleVel = r.spring.Update(r.angle, r.angleVel, r.angleTarget)
	r.dist, r.distVel = r.spring.Update(r.dist, r.distVel, r.distTarget)
}

func (r *SpringRig) Orbit(delta float64) { r.angleTarget += delta }

// SetAngle moves the camera immediately, without easing.
func (r *SpringRig) SetAngle(a float64) {
	r.angle, r.angleTarget, r.angleVel = a, a, 0
}

// Zoom scales the target distance; factors below 1 move closer.
func (r *SpringRig) Zoom(factor float64) { r.distTarget = clampDistance(r.distTarget * factor) }

func (r *SpringRig) Angle() float64    { return r.angle }
func (r *SpringRig) Distance() float64 { return r.dist }
func (r *SpringRig) Target() (angle, distance float64) {
	return r.angleTarget, r.distTarget
}

func (r *SpringRig) Camera(float64) raymarch.Camera {
	pos := mgl64.Vec3{
		math.Cos(r.angle) * r.dist,
		r.Height,
		math.Sin(r.angle) * r.dist,
	}
	return raymarch.NewCamera(pos, mgl64.Vec3{}, r.FOV)
}

func clampDistance(d float64) float64 {
	return math.Max(minDistance, math.Min(maxDistance, d))
}
