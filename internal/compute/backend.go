package compute

import "github.com/go-gl/mathgl/mgl64"

// PairParams holds the constants of the pairwise metaball interaction.
type PairParams struct {
	InteractionRadius   float64
	Attraction          float64
	AttractionSoftening float64
	Repulsion           float64
	RepulsionOffset     float64
	ContactFactor       float64
}

// DefaultPairParams returns the interaction constants of the reference scene.
func DefaultPairParams() PairParams {
	return PairParams{
		InteractionRadius:   12,
		Attraction:          0.02,
		AttractionSoftening: 0.1,
		Repulsion:           0.05,
		RepulsionOffset:     0.1,
		ContactFactor:       1.2,
	}
}

type Backend interface {
	Name() string
	Available() bool
	// PairImpulses writes the summed pairwise impulse of every body into out.
	// len(out) must equal len(pos).
	PairImpulses(pos []mgl64.Vec3, radii []float64, p PairParams, out []mgl64.Vec3)
	// ParallelRows calls fn over disjoint [start, end) bands covering [0, rows)
	// and returns once every band is done.
	ParallelRows(rows int, fn func(start, end int))
	Cleanup()
}

var activeBackend Backend

func init() {
	activeBackend = AutoSelectBackend()
}

func SetBackend(b Backend) {
	if activeBackend != nil {
		activeBackend.Cleanup()
	}
	activeBackend = b
}

func GetBackend() Backend {
	return activeBackend
}

func AutoSelectBackend() Backend {
	cpu := NewCPUBackend()
	if cpu.Workers() > 1 {
		return cpu
	}
	return NewSerialBackend()
}

// ByName resolves the backend names accepted on the command line.
func ByName(name string) (Backend, bool) {
	switch name {
	case "", "auto":
		return AutoSelectBackend(), true
	case "cpu":
		return NewCPUBackend(), true
	case "serial":
		return NewSerialBackend(), true
	}
	return nil, false
}
