package raymarch

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/field"
)

const (
	Ambient      = 0.3
	Diffuse      = 0.7
	FresnelTint  = 0.2
	SurfaceAlpha = 0.9
)

// LightDir is the fixed directional light, normalized (1, 1, 1).
var LightDir = mgl64.Vec3{1, 1, 1}.Normalize()

// Pixel is a straight-alpha colour. Channels may exceed 1 before quantization.
type Pixel struct {
	R, G, B, A float64
}

// Transparent is written for rays that miss.
var Transparent = Pixel{}

// Shade lights a hit seen from eye.
func Shade(s *field.Snapshot, hit mgl64.Vec3, eye mgl64.Vec3) Pixel {
	n := Normal(s, hit, NormalEpsilon)
	c := BlendColor(s, hit)

	lambert := math.Max(n.Dot(LightDir), 0)
	view := eye.Sub(hit)
	if l := view.Len(); l > 0 {
		view = view.Mul(1 / l)
	}
	rim := 1 - math.Max(n.Dot(view), 0)
	fresnel := FresnelTint * rim * rim

	k := Ambient + Diffuse*lambert
	return Pixel{
		R: c[0]*k + fresnel,
		G: c[1]*k + fresnel,
		B: c[2]*k + fresnel,
		A: SurfaceAlpha,
	}
}
