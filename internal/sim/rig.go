package sim

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/raymarch"
)

const (
	DefaultOrbitDistance = 15.0
	DefaultOrbitSpeed    = 0.5
	DefaultFOV           = 75.0

	// PointerDepth is how far along the camera ray a pointer is projected.
	PointerDepth = 15.0
)

// CameraRig supplies the camera pose for a given scene time.
type CameraRig interface {
	Camera(t float64) raymarch.Camera
}

type FixedRig struct {
	Cam raymarch.Camera
}

func (r FixedRig) Camera(float64) raymarch.Camera { return r.Cam }

// OrbitRig circles the target in the horizontal plane.
type OrbitRig struct {
	Target   mgl64.Vec3
	Distance float64
	Height   float64
	Speed    float64
	FOV      float64
	Phase    float64
}

func NewOrbitRig() *OrbitRig {
	return &OrbitRig{
		Distance: DefaultOrbitDistance,
		Speed:    DefaultOrbitSpeed,
		FOV:      DefaultFOV,
	}
}

func (r *OrbitRig) Camera(t float64) raymarch.Camera {
	a := t*r.Speed + r.Phase
	pos := r.Target.Add(mgl64.Vec3{
		math.Cos(a) * r.Distance,
		r.Height,
		math.Sin(a) * r.Distance,
	})
	return raymarch.NewCamera(pos, r.Target, r.FOV)
}
