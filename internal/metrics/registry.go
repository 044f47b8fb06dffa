package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/metaballs/internal/sim"
)

var constructors = map[string]func() sim.Metric{
	"energy":       func() sim.Metric { return NewKineticEnergy() },
	"energy_drift": func() sim.Metric { return NewEnergyDrift() },
	"coverage":     func() sim.Metric { return NewCoverage() },
	"spread":       func() sim.Metric { return NewSpread() },
	"containment":  func() sim.Metric { return NewContainment() },
}

// New returns a fresh metric by name.
func New(name string) (sim.Metric, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return ctor(), nil
}

// Names lists the registered metrics in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns one instance of every registered metric.
func All() []sim.Metric {
	names := Names()
	out := make([]sim.Metric, len(names))
	for i, n := range names {
		out[i], _ = New(n)
	}
	return out
}
