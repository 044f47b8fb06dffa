package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/metaballs/internal/analysis"
	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/metrics"
	"github.com/san-kum/metaballs/internal/sim"
	"github.com/san-kum/metaballs/internal/storage"
)

var ErrEmptyScenario = errors.New("automation: scenario has no steps")

// Scenario is a scripted sequence of stored runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep describes one run. Zero fields keep the value from the preset
// or scene file.
type ScenarioStep struct {
	Preset    string             `yaml:"preset"`
	Config    string             `yaml:"config"`
	Seed      int64              `yaml:"seed"`
	Frames    int                `yaml:"frames"`
	Dt        float64            `yaml:"dt"`
	Threshold float64            `yaml:"threshold"`
	Params    map[string]float64 `yaml:"params"`
	SaveAs    string             `yaml:"save_as"`
}

// LoadScenario reads a scenario file. Step config paths are taken relative
// to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	dir := filepath.Dir(path)
	for i := range sc.Steps {
		if c := sc.Steps[i].Config; c != "" && !filepath.IsAbs(c) {
			sc.Steps[i].Config = filepath.Join(dir, c)
		}
	}
	return &sc, nil
}

// Resolve builds the validated config for the step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		if cfg = config.GetPreset(s.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if s.Config != "" {
		loaded, err := config.Load(s.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if s.Seed != 0 {
		cfg.Seed = s.Seed
	}
	if s.Frames > 0 {
		cfg.Frames = s.Frames
	}
	if s.Dt > 0 {
		cfg.Dt = s.Dt
	}
	if s.Threshold > 0 {
		cfg.Render.Threshold = s.Threshold
	}
	for _, name := range sortedKeys(s.Params) {
		if err := SetParam(cfg, name, s.Params[name]); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

// Name is the scene name used for the step's run id.
func (s ScenarioStep) Name(index int) string {
	switch {
	case s.SaveAs != "":
		return s.SaveAs
	case s.Preset != "":
		return s.Preset
	}
	return fmt.Sprintf("step%d", index+1)
}

// StepResult is one finished, stored scenario step.
type StepResult struct {
	Step   int
	RunID  string
	Result *sim.Result
}

// RunScenario executes every step in order and saves each run to st.
func RunScenario(ctx context.Context, sc *Scenario, st *storage.Store) ([]StepResult, error) {
	if len(sc.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	if err := st.Init(); err != nil {
		return nil, err
	}
	results := make([]StepResult, 0, len(sc.Steps))

	for i, step := range sc.Steps {
		name := step.Name(i)
		log.Info("scenario step", "step", fmt.Sprintf("%d/%d", i+1, len(sc.Steps)), "scene", name)

		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		loop, err := newMeasuredLoop(cfg, false)
		if err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		res, err := loop.Run(ctx, sim.RunConfig{Frames: cfg.Frames, Dt: cfg.Dt, RecordTrajectory: true})
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		runID, err := st.Create(name)
		if err != nil {
			return results, err
		}
		meta := storage.RunMetadata{
			Scene:     name,
			Seed:      cfg.Seed,
			Balls:     loop.Simulator().Len(),
			Dt:        cfg.Dt,
			Width:     cfg.Render.Width,
			Height:    cfg.Render.Height,
			Threshold: cfg.Render.Threshold,
			Backend:   loop.Simulator().Backend().Name(),
		}
		if err := st.Save(runID, meta, res); err != nil {
			return results, err
		}
		if err := st.SaveScene(runID, cfg); err != nil {
			return results, err
		}
		results = append(results, StepResult{Step: i, RunID: runID, Result: res})
	}
	return results, nil
}

// ParameterSweep runs one scene across a range of a single sim parameter.
type ParameterSweep struct {
	Base     *config.Config
	Param    string
	Min, Max float64
	Steps    int
	Headless bool
}

// SweepResult holds the metrics of one parameter value and the number of
// separate surfaces in the final frame.
type SweepResult struct {
	Value      float64
	Metrics    map[string]float64
	FinalBlobs int
}

// RunSweep executes the sweep, one run per value.
func RunSweep(ctx context.Context, sw *ParameterSweep) ([]SweepResult, error) {
	if sw.Steps <= 0 {
		return nil, fmt.Errorf("automation: sweep needs at least one step")
	}
	if err := SetParam(sw.Base.Clone(), sw.Param, sw.Min); err != nil {
		return nil, err
	}

	values := analysis.Linspace(sw.Min, sw.Max, sw.Steps)
	results := make([]SweepResult, 0, len(values))
	for i, v := range values {
		cfg := sw.Base.Clone()
		if err := SetParam(cfg, sw.Param, v); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sw.Param, v, err)
		}
		loop, err := newMeasuredLoop(cfg, sw.Headless)
		if err != nil {
			return nil, err
		}
		res, err := loop.Run(ctx, sim.RunConfig{Frames: cfg.Frames, Dt: cfg.Dt})
		if err != nil {
			return nil, err
		}
		results = append(results, SweepResult{
			Value:      v,
			Metrics:    res.Metrics,
			FinalBlobs: analysis.Blobs(loop.Simulator().Snapshot(), cfg.Render.Threshold),
		})
		log.Debug("sweep point", "n", fmt.Sprintf("%d/%d", i+1, len(values)), sw.Param, v)
	}
	return results, nil
}

func newMeasuredLoop(cfg *config.Config, headless bool) (*sim.Loop, error) {
	loop, err := cfg.NewLoop(cfg.Seed, headless)
	if err != nil {
		return nil, err
	}
	for _, m := range metrics.All() {
		loop.AddMetric(m)
	}
	return loop, nil
}

var params = map[string]func(*config.Config) *float64{
	"bound":              func(c *config.Config) *float64 { return &c.Sim.Bound },
	"restitution":        func(c *config.Config) *float64 { return &c.Sim.Restitution },
	"damping":            func(c *config.Config) *float64 { return &c.Sim.Damping },
	"interaction_radius": func(c *config.Config) *float64 { return &c.Sim.InteractionRadius },
	"attraction":         func(c *config.Config) *float64 { return &c.Sim.Attraction },
	"repulsion":          func(c *config.Config) *float64 { return &c.Sim.Repulsion },
	"contact_factor":     func(c *config.Config) *float64 { return &c.Sim.ContactFactor },
	"point_radius":       func(c *config.Config) *float64 { return &c.Sim.PointRadius },
	"point_strength":     func(c *config.Config) *float64 { return &c.Sim.PointStrength },
	"turbulence":         func(c *config.Config) *float64 { return &c.Sim.Turbulence },
	"threshold":          func(c *config.Config) *float64 { return &c.Render.Threshold },
}

// SetParam sets a named sim or render parameter on cfg.
func SetParam(cfg *config.Config, name string, v float64) error {
	field, ok := params[name]
	if !ok {
		return fmt.Errorf("unknown parameter %q (available: %v)", name, ParamNames())
	}
	*field(cfg) = v
	return nil
}

func ParamNames() []string {
	names := make([]string, 0, len(params))
	for n := range params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
