package metrics

import (
	"math"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/sim"
)

// KineticEnergy is the mean total kinetic energy per frame.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(stats sim.FrameStats, balls []field.Metaball) {
	e.total += stats.KineticEnergy
	e.samples++
}

func (e *KineticEnergy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

func (e *KineticEnergy) Reset() {
	e.total = 0
	e.samples = 0
}

// EnergyDrift is the largest relative change of kinetic energy from the
// first observed frame. Damping makes it approach 1 as the scene settles.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(stats sim.FrameStats, balls []field.Metaball) {
	if e.samples == 0 {
		e.initial = stats.KineticEnergy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(stats.KineticEnergy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}
