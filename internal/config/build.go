package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
)

func (c *Config) FieldParams() field.Params {
	p := field.DefaultParams()
	p.Bound = c.Sim.Bound
	p.Restitution = c.Sim.Restitution
	p.Damping = c.Sim.Damping
	p.Pair.InteractionRadius = c.Sim.InteractionRadius
	p.Pair.Attraction = c.Sim.Attraction
	p.Pair.Repulsion = c.Sim.Repulsion
	p.Pair.ContactFactor = c.Sim.ContactFactor
	p.PointRadius = c.Sim.PointRadius
	p.PointStrength = c.Sim.PointStrength
	p.Turbulence = c.Sim.Turbulence
	return p
}

func (c *Config) RenderSettings() raymarch.Settings {
	s := raymarch.DefaultSettings()
	s.Threshold = c.Render.Threshold
	s.MaxSteps = c.Render.MaxSteps
	s.MaxDistance = c.Render.MaxDistance
	s.SkipEmpty = c.Render.SkipEmpty
	return s
}

// Rig returns the camera rig described by the camera section.
func (c *Config) Rig() sim.CameraRig {
	if c.Camera.Mode == "fixed" {
		pos := mgl64.Vec3(c.Camera.Position)
		if pos == (mgl64.Vec3{}) {
			pos = mgl64.Vec3{0, c.Camera.Height, c.Camera.Distance}
		}
		return sim.FixedRig{Cam: raymarch.NewCamera(pos, mgl64.Vec3{}, c.Camera.FOV)}
	}
	rig := sim.NewOrbitRig()
	rig.Distance = c.Camera.Distance
	rig.Height = c.Camera.Height
	rig.FOV = c.Camera.FOV
	rig.Speed = c.Camera.OrbitSpeed
	return rig
}

// Backend resolves sim.backend, honouring render.workers when positive.
func (c *Config) Backend() (compute.Backend, error) {
	if c.Render.Workers > 0 {
		return compute.NewCPUBackendWorkers(c.Render.Workers), nil
	}
	b, ok := compute.ByName(c.Sim.Backend)
	if !ok {
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Sim.Backend)
	}
	return b, nil
}

// InitialBalls returns the explicit scene if one is set, otherwise Balls
// random balls drawn from seed.
func (c *Config) InitialBalls(seed int64) ([]field.Metaball, error) {
	palette, err := c.ParsePalette()
	if err != nil {
		return nil, err
	}
	if len(c.Scene) == 0 {
		return field.RandomBalls(seed, c.Balls, palette), nil
	}
	if palette == nil {
		palette = field.DefaultPalette
	}
	balls := make([]field.Metaball, len(c.Scene))
	for i, b := range c.Scene {
		col := palette[i%len(palette)]
		if b.Color != "" {
			if col, err = ParseColor(b.Color); err != nil {
				return nil, err
			}
		}
		balls[i] = field.Metaball{
			Position: mgl64.Vec3(b.Position),
			Velocity: mgl64.Vec3(b.Velocity),
			Radius:   b.Radius,
			Color:    col,
		}
	}
	return balls, nil
}

// NewLoop assembles simulator, renderer and rig for one run. A headless
// loop skips rendering.
func (c *Config) NewLoop(seed int64, headless bool) (*sim.Loop, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	balls, err := c.InitialBalls(seed)
	if err != nil {
		return nil, err
	}
	backend, err := c.Backend()
	if err != nil {
		return nil, err
	}

	s := field.NewSimulator(balls, c.FieldParams())
	s.SetBackend(backend)

	var r *raymarch.Renderer
	if !headless {
		r = raymarch.NewRenderer(c.RenderSettings(), backend)
	}
	loop := sim.NewLoop(s, r, c.Rig(), c.Render.Width, c.Render.Height)
	if c.Sim.Turbulence > 0 {
		s.EnableDrift(seed)
		loop.EnableDrift(true)
	}
	return loop, nil
}
