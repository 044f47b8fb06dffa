package metrics

import (
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/sim"
)

// Containment is the fraction of frames that ended with every ball inside
// the simulation bounds.
type Containment struct {
	name       string
	violations int
	samples    int
}

func NewContainment() *Containment {
	return &Containment{name: "containment"}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(stats sim.FrameStats, balls []field.Metaball) {
	c.samples++
	if !stats.InBounds {
		c.violations++
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
