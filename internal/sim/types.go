package sim

import (
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

// FrameStats summarizes one completed frame.
type FrameStats struct {
	Frame         int
	Time          float64
	Balls         int
	KineticEnergy float64
	InBounds      bool

	// Render statistics are zero when the loop has no renderer.
	Rendered  bool
	Hits      int
	Coverage  float64
	MeanSteps float64

	// Blobs is -1 unless blob counting is enabled.
	Blobs int
}

// Metric aggregates a value over the frames of a run.
type Metric interface {
	Name() string
	Observe(stats FrameStats, balls []field.Metaball)
	Value() float64
	Reset()
}

// Observer sees every frame after it completes. snap and frame are reused by
// the next frame and must be copied if retained.
type Observer interface {
	OnFrame(stats FrameStats, snap *field.Snapshot, frame *raymarch.Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(FrameStats, *field.Snapshot, *raymarch.Frame)

func (f ObserverFunc) OnFrame(stats FrameStats, snap *field.Snapshot, frame *raymarch.Frame) {
	f(stats, snap, frame)
}

type RunConfig struct {
	Frames int
	Dt     float64

	RecordTrajectory bool
	ValidateState    bool
}

type Result struct {
	Stats      []FrameStats
	Trajectory [][]field.Metaball
	Metrics    map[string]float64
	FramesRun  int
}

// Series extracts one column of the frame statistics.
func (r *Result) Series(column string) ([]float64, bool) {
	pick, ok := StatColumns[column]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(r.Stats))
	for i, s := range r.Stats {
		out[i] = pick(s)
	}
	return out, true
}

// StatColumns maps column names to FrameStats accessors.
var StatColumns = map[string]func(FrameStats) float64{
	"time":       func(s FrameStats) float64 { return s.Time },
	"balls":      func(s FrameStats) float64 { return float64(s.Balls) },
	"energy":     func(s FrameStats) float64 { return s.KineticEnergy },
	"hits":       func(s FrameStats) float64 { return float64(s.Hits) },
	"coverage":   func(s FrameStats) float64 { return s.Coverage },
	"mean_steps": func(s FrameStats) float64 { return s.MeanSteps },
	"blobs":      func(s FrameStats) float64 { return float64(s.Blobs) },
}
