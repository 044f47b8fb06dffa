package analysis

import (
	"context"
	"fmt"

	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

// SweepPoint is the rendered outcome of one threshold.
type SweepPoint struct {
	Threshold float64
	Hits      int
	Coverage  float64
	MeanSteps float64
	Blobs     int
}

// ThresholdSweep renders one snapshot at every threshold in a grid.
type ThresholdSweep struct {
	Thresholds []float64
	Settings   raymarch.Settings
	Width      int
	Height     int
	Backend    compute.Backend
}

func NewThresholdSweep(thresholds []float64, width, height int) *ThresholdSweep {
	return &ThresholdSweep{
		Thresholds: thresholds,
		Settings:   raymarch.DefaultSettings(),
		Width:      width,
		Height:     height,
		Backend:    compute.GetBackend(),
	}
}

// Run renders snap through cam once per threshold, checking ctx between renders.
func (g *ThresholdSweep) Run(ctx context.Context, snap *field.Snapshot, cam raymarch.Camera) ([]SweepPoint, error) {
	if len(g.Thresholds) == 0 {
		return nil, fmt.Errorf("analysis: empty threshold grid")
	}
	frame := raymarch.NewFrame(g.Width, g.Height)
	points := make([]SweepPoint, 0, len(g.Thresholds))

	for _, th := range g.Thresholds {
		select {
		case <-ctx.Done():
			return points, ctx.Err()
		default:
		}

		set := g.Settings
		set.Threshold = th
		r := raymarch.NewRenderer(set, g.Backend)
		if err := r.Render(snap, cam, frame); err != nil {
			return points, fmt.Errorf("threshold %g: %w", th, err)
		}
		points = append(points, SweepPoint{
			Threshold: th,
			Hits:      frame.Hits(),
			Coverage:  frame.Coverage(),
			MeanSteps: frame.MeanSteps(),
			Blobs:     Blobs(snap, th),
		})
	}
	return points, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

// BestCoverage returns the point whose coverage is closest to target.
func BestCoverage(points []SweepPoint, target float64) (SweepPoint, bool) {
	if len(points) == 0 {
		return SweepPoint{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if abs(p.Coverage-target) < abs(best.Coverage-target) {
			best = p
		}
	}
	return best, true
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
