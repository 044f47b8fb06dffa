package config

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Dt != 0.016 {
		t.Errorf("expected dt 0.016, got %f", cfg.Dt)
	}
	if cfg.Balls != field.DefaultBallCount {
		t.Errorf("expected %d balls, got %d", field.DefaultBallCount, cfg.Balls)
	}
	if !cfg.Render.SkipEmpty {
		t.Error("expected skip_empty on by default")
	}
	if cfg.FieldParams() != field.DefaultParams() {
		t.Error("default sim section should map to default field params")
	}
	set := cfg.RenderSettings()
	set.SkipEmpty = false
	if set != raymarch.DefaultSettings() {
		t.Error("default render section should map to default settings")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	cfg := GetPreset("lava")
	cfg.Seed = 99

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seed != 99 || got.Sim.Turbulence != cfg.Sim.Turbulence || len(got.Palette) != 4 {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"negative balls", func(c *Config) { c.Balls = -1 }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"zero frames", func(c *Config) { c.Frames = 0 }},
		{"bad size", func(c *Config) { c.Render.Width = 0 }},
		{"bad camera", func(c *Config) { c.Camera.Mode = "dolly" }},
		{"bad palette", func(c *Config) { c.Palette = []string{"red"} }},
		{"bad background", func(c *Config) { c.Render.Background = "#zzzzzz" }},
		{"bad ball", func(c *Config) { c.Scene = []BallConfig{{Radius: 0}} }},
		{"bad damping", func(c *Config) { c.Sim.Damping = 2 }},
		{"bad threshold", func(c *Config) { c.Render.Threshold = 0 }},
		{"zero fov", func(c *Config) { c.Camera.FOV = 0 }},
		{"wide fov", func(c *Config) { c.Camera.FOV = 180 }},
		{"zero orbit distance", func(c *Config) { c.Camera.Distance = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateCameraPose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Camera.Mode = "fixed"
	cfg.Camera.Position = [3]float64{0, 15, 0}
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, raymarch.ErrCamera) {
		t.Errorf("expected a camera error for a view along up, got %v", err)
	}

	cfg.Camera.Position = [3]float64{0, 15, 1}
	if err := cfg.Validate(); err != nil {
		t.Errorf("tilted fixed camera should validate: %v", err)
	}
	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestParseColor(t *testing.T) {
	v, err := ParseColor("#ff0000")
	if err != nil {
		t.Fatal(err)
	}
	if v != (mgl64.Vec3{1, 0, 0}) {
		t.Errorf("expected pure red, got %v", v)
	}
	if HexColor(v) != "#ff0000" {
		t.Errorf("expected #ff0000, got %s", HexColor(v))
	}
	if _, err := ParseColor("nope"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	bg, err := DefaultConfig().BackgroundColor()
	if err != nil {
		t.Fatal(err)
	}
	if bg != raymarch.Background {
		t.Errorf("expected %v, got %v", raymarch.Background, bg)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("pair")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	balls, err := cfg.InitialBalls(cfg.Seed)
	if err != nil {
		t.Fatal(err)
	}
	if len(balls) != 2 || balls[0].Position[0] != -1.5 {
		t.Errorf("unexpected pair scene: %+v", balls)
	}

	cfg.Balls = 12
	if Presets["pair"].Balls == 12 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	for _, name := range presets {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestRig(t *testing.T) {
	cfg := DefaultConfig()
	orbit, ok := cfg.Rig().(*sim.OrbitRig)
	if !ok {
		t.Fatalf("expected orbit rig, got %T", cfg.Rig())
	}
	cam := orbit.Camera(0)
	if math.Abs(cam.Position[0]-15) > 1e-12 || cam.FOV != 75 {
		t.Errorf("unexpected orbit camera at t=0: %+v", cam)
	}

	cfg.Camera.Mode = "fixed"
	fixed, ok := cfg.Rig().(sim.FixedRig)
	if !ok {
		t.Fatalf("expected fixed rig, got %T", cfg.Rig())
	}
	if fixed.Cam.Position != (mgl64.Vec3{0, 0, 15}) {
		t.Errorf("unexpected fixed camera: %v", fixed.Cam.Position)
	}
}

func TestNewLoop(t *testing.T) {
	cfg := GetPreset("split")
	cfg.Render.Width, cfg.Render.Height = 24, 18
	cfg.Sim.Backend = "serial"

	loop, err := cfg.NewLoop(cfg.Seed, false)
	if err != nil {
		t.Fatal(err)
	}
	if loop.Simulator().Len() != 2 {
		t.Errorf("expected 2 balls, got %d", loop.Simulator().Len())
	}
	if _, err := loop.RunFrame(cfg.Dt); err != nil {
		t.Fatal(err)
	}
	if loop.Frame().Width != 24 {
		t.Errorf("expected frame width 24, got %d", loop.Frame().Width)
	}

	headless, err := cfg.NewLoop(cfg.Seed, true)
	if err != nil {
		t.Fatal(err)
	}
	if headless.Renderer() != nil {
		t.Error("expected headless loop")
	}

	cfg.Sim.Backend = "gpu"
	if _, err := cfg.NewLoop(cfg.Seed, true); err == nil {
		t.Error("expected unknown backend error")
	}
}
