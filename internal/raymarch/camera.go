package raymarch

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Camera is a pinhole camera with a vertical field of view in degrees.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
	Up       mgl64.Vec3
	FOV      float64
}

func NewCamera(pos, target mgl64.Vec3, fov float64) Camera {
	return Camera{Position: pos, Target: target, Up: mgl64.Vec3{0, 1, 0}, FOV: fov}
}

// Basis returns the camera's forward, right and up unit vectors.
func (c Camera) Basis() (forward, right, up mgl64.Vec3, err error) {
	f := c.Target.Sub(c.Position)
	if f.Len() == 0 {
		return f, f, f, fmt.Errorf("%w: position equals target", ErrCamera)
	}
	forward = f.Normalize()
	r := forward.Cross(c.Up)
	if r.Len() < 1e-12 {
		return forward, r, r, fmt.Errorf("%w: up is parallel to view direction", ErrCamera)
	}
	right = r.Normalize()
	up = right.Cross(forward)
	return forward, right, up, nil
}

func (c Camera) Validate() error {
	if !(c.FOV > 0 && c.FOV < 180) {
		return fmt.Errorf("%w: fov %g not in (0, 180)", ErrCamera, c.FOV)
	}
	_, _, _, err := c.Basis()
	return err
}

// Projector maps pixel coordinates to world rays for a fixed camera and
// frame size.
type Projector struct {
	Origin  mgl64.Vec3
	forward mgl64.Vec3
	right   mgl64.Vec3
	up      mgl64.Vec3
	halfH   float64
	halfW   float64
	w, h    float64
}

func (c Camera) Projector(width, height int) (Projector, error) {
	if err := c.Validate(); err != nil {
		return Projector{}, err
	}
	if width <= 0 || height <= 0 {
		return Projector{}, fmt.Errorf("%w: %dx%d", ErrFrameSize, width, height)
	}
	f, r, u, _ := c.Basis()
	halfH := math.Tan(mgl64.DegToRad(c.FOV) / 2)
	return Projector{
		Origin:  c.Position,
		forward: f,
		right:   r,
		up:      u,
		halfH:   halfH,
		halfW:   halfH * float64(width) / float64(height),
		w:       float64(width),
		h:       float64(height),
	}, nil
}

// Ray returns the unit direction through screen point (x, y), with (0, 0)
// the top-left corner. Pixel centres are at half-integer coordinates.
func (p Projector) Ray(x, y float64) mgl64.Vec3 {
	nx := (2*x/p.w - 1) * p.halfW
	ny := (1 - 2*y/p.h) * p.halfH
	return p.forward.Add(p.right.Mul(nx)).Add(p.up.Mul(ny)).Normalize()
}

// PixelRay is Ray at the centre of pixel (px, py).
func (p Projector) PixelRay(px, py int) mgl64.Vec3 {
	return p.Ray(float64(px)+0.5, float64(py)+0.5)
}

// PointerWorld projects a screen point to the world point depth units along
// its ray.
func (p Projector) PointerWorld(x, y, depth float64) mgl64.Vec3 {
	return p.Origin.Add(p.Ray(x, y).Mul(depth))
}
