package config

import "sort"

// Presets are named scenes. GetPreset returns a copy, so callers may edit it.
var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"pair": withScene(DefaultConfig(), "fixed", []BallConfig{
		{Position: [3]float64{-1.5, 0, 0}, Radius: 1, Color: "#ff4d4d"},
		{Position: [3]float64{1.5, 0, 0}, Radius: 1, Color: "#4d4dff"},
	}),
	"split": withScene(DefaultConfig(), "fixed", []BallConfig{
		{Position: [3]float64{-3, 0, 0}, Radius: 1, Color: "#ff4d4d"},
		{Position: [3]float64{3, 0, 0}, Radius: 1, Color: "#4dff4d"},
	}),
	"swarm": func() *Config {
		c := DefaultConfig()
		c.Balls = 16
		c.Render.MaxSteps = 128
		c.Sim.InteractionRadius = 6
		return c
	}(),
	"lava": func() *Config {
		c := DefaultConfig()
		c.Balls = 6
		c.Palette = []string{"#ff3300", "#ff6600", "#ff9900", "#ffcc00"}
		c.Sim.Turbulence = 0.002
		c.Sim.Damping = 0.99
		c.Camera.OrbitSpeed = 0.2
		return c
	}(),
	"still": func() *Config {
		c := DefaultConfig()
		c.Sim.InteractionRadius = 0
		c.Camera.Mode = "fixed"
		return c
	}(),
}

func withScene(c *Config, mode string, scene []BallConfig) *Config {
	c.Scene = scene
	c.Balls = len(scene)
	c.Camera.Mode = mode
	c.Sim.InteractionRadius = 0
	return c
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
