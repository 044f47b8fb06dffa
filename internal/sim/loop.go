package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/analysis"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

// Loop runs simulate, snapshot and render strictly in that order. RunFrame
// returns only after the render has finished, so the snapshot is never
// written while it is being read.
type Loop struct {
	sim      *field.Simulator
	renderer *raymarch.Renderer
	rig      CameraRig

	snap   field.Snapshot
	frame  *raymarch.Frame
	camera raymarch.Camera
	hasCam bool

	metrics   []Metric
	observers []Observer

	countBlobs bool
	drift      bool

	time  float64
	count int
}

// NewLoop builds a loop. A nil renderer runs the simulation headless.
func NewLoop(sim *field.Simulator, renderer *raymarch.Renderer, rig CameraRig, width, height int) *Loop {
	if rig == nil {
		rig = NewOrbitRig()
	}
	l := &Loop{
		sim:      sim,
		renderer: renderer,
		rig:      rig,
		metrics:  make([]Metric, 0),
	}
	if renderer != nil {
		l.frame = raymarch.NewFrame(width, height)
	}
	return l
}

func (l *Loop) AddMetric(m Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// CountBlobs enables connected-surface counting in FrameStats.
func (l *Loop) CountBlobs(on bool) { l.countBlobs = on }

// EnableDrift applies the simulator's noise drift every frame.
func (l *Loop) EnableDrift(on bool) { l.drift = on }

func (l *Loop) Simulator() *field.Simulator  { return l.sim }
func (l *Loop) Renderer() *raymarch.Renderer { return l.renderer }
func (l *Loop) Frame() *raymarch.Frame       { return l.frame }
func (l *Loop) Snapshot() *field.Snapshot    { return &l.snap }
func (l *Loop) Camera() raymarch.Camera      { return l.camera }
func (l *Loop) Posed() bool                  { return l.hasCam }
func (l *Loop) Time() float64                { return l.time }
func (l *Loop) FrameCount() int              { return l.count }
func (l *Loop) SetRig(rig CameraRig)         { l.rig = rig }
func (l *Loop) Rig() CameraRig               { return l.rig }

// Resize replaces the frame buffer. It must not be called during RunFrame.
func (l *Loop) Resize(width, height int) {
	if l.renderer == nil {
		return
	}
	if l.frame != nil && l.frame.Width == width && l.frame.Height == height {
		return
	}
	l.frame = raymarch.NewFrame(width, height)
}

// SetRenderer swaps the renderer. nil switches the loop to headless; a
// non-nil renderer gets a frame of the given size.
func (l *Loop) SetRenderer(r *raymarch.Renderer, width, height int) {
	l.renderer = r
	if r == nil {
		l.frame = nil
		return
	}
	l.frame = nil
	l.Resize(width, height)
}

// RunFrame advances the scene by dt seconds and renders it.
func (l *Loop) RunFrame(dt float64) (FrameStats, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return FrameStats{}, fmt.Errorf("%w: got %v", ErrInvalidDt, dt)
	}

	l.sim.Step(dt)
	l.sim.ApplyPairwiseForces()
	if l.drift {
		l.sim.ApplyDrift(l.time)
	}
	l.sim.SnapshotInto(&l.snap)

	l.camera = l.rig.Camera(l.time)
	l.hasCam = true

	stats := FrameStats{
		Frame:         l.count,
		Time:          l.time,
		Balls:         l.sim.Len(),
		KineticEnergy: l.sim.KineticEnergy(),
		InBounds:      l.sim.InBounds(),
		Blobs:         -1,
	}

	if l.renderer != nil {
		if err := l.renderer.Render(&l.snap, l.camera, l.frame); err != nil {
			return stats, &FrameError{Frame: l.count, Time: l.time, Wrapped: err}
		}
		stats.Rendered = true
		stats.Hits = l.frame.Hits()
		stats.Coverage = l.frame.Coverage()
		stats.MeanSteps = l.frame.MeanSteps()
	}
	if l.countBlobs {
		threshold := raymarch.DefaultThreshold
		if l.renderer != nil {
			threshold = l.renderer.Settings.Threshold
		}
		stats.Blobs = analysis.Blobs(&l.snap, threshold)
	}

	for _, m := range l.metrics {
		m.Observe(stats, l.sim.Balls())
	}
	for _, o := range l.observers {
		o.OnFrame(stats, &l.snap, l.frame)
	}

	l.time += dt
	l.count++
	return stats, nil
}

// Redraw refreshes the snapshot and camera from the current state without
// stepping the simulation, and re-renders when the loop has a renderer. Used
// for scene, camera or setting changes while paused.
func (l *Loop) Redraw() error {
	l.sim.SnapshotInto(&l.snap)
	l.camera = l.rig.Camera(l.time)
	l.hasCam = true
	if l.renderer == nil {
		return nil
	}
	if err := l.renderer.Render(&l.snap, l.camera, l.frame); err != nil {
		return &FrameError{Frame: l.count, Time: l.time, Wrapped: err}
	}
	return nil
}

// Run executes cfg.Frames frames, checking ctx between frames.
func (l *Loop) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := validateRunConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Stats:   make([]FrameStats, 0, cfg.Frames),
		Metrics: make(map[string]float64),
	}
	if cfg.RecordTrajectory {
		result.Trajectory = make([][]field.Metaball, 0, cfg.Frames+1)
		result.Trajectory = append(result.Trajectory, cloneBalls(l.sim.Balls()))
	}

	for _, m := range l.metrics {
		m.Reset()
	}

	for i := 0; i < cfg.Frames; i++ {
		select {
		case <-ctx.Done():
			l.collect(result)
			return result, ctx.Err()
		default:
		}

		stats, err := l.RunFrame(cfg.Dt)
		if err != nil {
			l.collect(result)
			return result, err
		}

		if cfg.ValidateState && !finiteBalls(l.sim.Balls()) {
			l.collect(result)
			return result, &FrameError{Frame: stats.Frame, Time: stats.Time, Wrapped: ErrNonFinite}
		}

		result.Stats = append(result.Stats, stats)
		result.FramesRun++
		if cfg.RecordTrajectory {
			result.Trajectory = append(result.Trajectory, cloneBalls(l.sim.Balls()))
		}
	}

	l.collect(result)
	return result, nil
}

func (l *Loop) collect(result *Result) {
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// PointerAt pulls nearby balls toward the world point under screen
// coordinates (x, y) of the last rendered camera. It returns the world point
// and the number of balls affected.
func (l *Loop) PointerAt(x, y float64, width, height int) (mgl64.Vec3, int, error) {
	if !l.hasCam {
		l.camera = l.rig.Camera(l.time)
		l.hasCam = true
	}
	proj, err := l.camera.Projector(width, height)
	if err != nil {
		return mgl64.Vec3{}, 0, err
	}
	p := proj.PointerWorld(x, y, PointerDepth)
	n := l.sim.ApplyPointForce(p)
	return p, n, nil
}

func validateRunConfig(cfg RunConfig) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidDt, cfg.Dt)
	}
	if cfg.Frames <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidFrames, cfg.Frames)
	}
	return nil
}

func cloneBalls(balls []field.Metaball) []field.Metaball {
	out := make([]field.Metaball, len(balls))
	copy(out, balls)
	return out
}

func finiteBalls(balls []field.Metaball) bool {
	for i := range balls {
		for k := 0; k < 3; k++ {
			p, v := balls[i].Position[k], balls[i].Velocity[k]
			if math.IsNaN(p) || math.IsInf(p, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
