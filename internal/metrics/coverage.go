package metrics

import (
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/sim"
)

// Coverage is the mean fraction of pixels that hit the surface. Frames that
// were not rendered are ignored.
type Coverage struct {
	name    string
	samples int
	total   float64
}

func NewCoverage() *Coverage {
	return &Coverage{name: "coverage"}
}

func (c *Coverage) Name() string { return c.name }

func (c *Coverage) Observe(stats sim.FrameStats, balls []field.Metaball) {
	if !stats.Rendered {
		return
	}
	c.total += stats.Coverage
	c.samples++
}

func (c *Coverage) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.total / float64(c.samples)
}

func (c *Coverage) Reset() {
	c.total = 0
	c.samples = 0
}

// Spread is the mean pairwise distance between ball centres, averaged over
// frames with at least two balls.
type Spread struct {
	name    string
	samples int
	total   float64
}

func NewSpread() *Spread {
	return &Spread{name: "spread"}
}

func (s *Spread) Name() string { return s.name }

func (s *Spread) Observe(stats sim.FrameStats, balls []field.Metaball) {
	if len(balls) < 2 {
		return
	}
	s.total += MeanPairDistance(balls)
	s.samples++
}

func (s *Spread) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.total / float64(s.samples)
}

func (s *Spread) Reset() {
	s.total = 0
	s.samples = 0
}

// MeanPairDistance averages |c_i - c_j| over all unordered pairs.
func MeanPairDistance(balls []field.Metaball) float64 {
	n := len(balls)
	if n < 2 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sum += balls[i].Position.Sub(balls[j].Position).Len()
		}
	}
	return sum / float64(n*(n-1)/2)
}
