package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/metaballs/internal/field"
)

const (
	DefaultDt         = 0.016
	DefaultFrames     = 600
	DefaultSeed       = 1
	DefaultWidth      = 160
	DefaultHeight     = 120
	DefaultBackground = "#0a0a0a"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Seed    int64        `yaml:"seed"`
	Balls   int          `yaml:"balls"`
	Dt      float64      `yaml:"dt"`
	Frames  int          `yaml:"frames"`
	Palette []string     `yaml:"palette,omitempty"`
	Scene   []BallConfig `yaml:"scene,omitempty"`
	Sim     SimConfig    `yaml:"sim"`
	Render  RenderConfig `yaml:"render"`
	Camera  CameraConfig `yaml:"camera"`
}

// BallConfig places one ball explicitly. A non-empty Scene replaces the
// random seeding.
type BallConfig struct {
	Position [3]float64 `yaml:"position"`
	Velocity [3]float64 `yaml:"velocity,omitempty"`
	Radius   float64    `yaml:"radius"`
	Color    string     `yaml:"color,omitempty"`
}

type SimConfig struct {
	Bound             float64 `yaml:"bound"`
	Restitution       float64 `yaml:"restitution"`
	Damping           float64 `yaml:"damping"`
	InteractionRadius float64 `yaml:"interaction_radius"`
	Attraction        float64 `yaml:"attraction"`
	Repulsion         float64 `yaml:"repulsion"`
	ContactFactor     float64 `yaml:"contact_factor"`
	PointRadius       float64 `yaml:"point_radius"`
	PointStrength     float64 `yaml:"point_strength"`
	Turbulence        float64 `yaml:"turbulence"`
	Backend           string  `yaml:"backend"`
}

type RenderConfig struct {
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	Threshold   float64 `yaml:"threshold"`
	MaxSteps    int     `yaml:"max_steps"`
	MaxDistance float64 `yaml:"max_distance"`
	SkipEmpty   bool    `yaml:"skip_empty"`
	Background  string  `yaml:"background"`
	Workers     int     `yaml:"workers"`
}

type CameraConfig struct {
	Mode       string     `yaml:"mode"`
	Distance   float64    `yaml:"distance"`
	Height     float64    `yaml:"height"`
	FOV        float64    `yaml:"fov"`
	OrbitSpeed float64    `yaml:"orbit_speed"`
	Position   [3]float64 `yaml:"position,omitempty"`
}

func DefaultConfig() *Config {
	fp := field.DefaultParams()
	return &Config{
		Seed:   DefaultSeed,
		Balls:  field.DefaultBallCount,
		Dt:     DefaultDt,
		Frames: DefaultFrames,
		Sim: SimConfig{
			Bound:             fp.Bound,
			Restitution:       fp.Restitution,
			Damping:           fp.Damping,
			InteractionRadius: fp.Pair.InteractionRadius,
			Attraction:        fp.Pair.Attraction,
			Repulsion:         fp.Pair.Repulsion,
			ContactFactor:     fp.Pair.ContactFactor,
			PointRadius:       fp.PointRadius,
			PointStrength:     fp.PointStrength,
			Backend:           "auto",
		},
		Render: RenderConfig{
			Width:       DefaultWidth,
			Height:      DefaultHeight,
			Threshold:   0.8,
			MaxSteps:    64,
			MaxDistance: 30,
			SkipEmpty:   true,
			Background:  DefaultBackground,
		},
		Camera: CameraConfig{
			Mode:       "orbit",
			Distance:   15,
			FOV:        75,
			OrbitSpeed: 0.5,
		},
	}
}

// Load reads a YAML file over DefaultConfig, so omitted keys keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Palette = append([]string(nil), c.Palette...)
	out.Scene = append([]BallConfig(nil), c.Scene...)
	return &out
}

func (c *Config) Validate() error {
	if c.Balls < 0 {
		return fmt.Errorf("%w: balls must be non-negative, got %d", ErrInvalidConfig, c.Balls)
	}
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.Frames <= 0 {
		return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalidConfig, c.Frames)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("%w: render size must be positive, got %dx%d", ErrInvalidConfig, c.Render.Width, c.Render.Height)
	}
	switch c.Camera.Mode {
	case "orbit", "fixed":
	default:
		return fmt.Errorf("%w: unknown camera mode %q", ErrInvalidConfig, c.Camera.Mode)
	}
	if c.Camera.Mode == "orbit" && !(c.Camera.Distance > 0) {
		return fmt.Errorf("%w: orbit distance must be positive, got %g", ErrInvalidConfig, c.Camera.Distance)
	}
	if err := c.Rig().Camera(0).Validate(); err != nil {
		return fmt.Errorf("%w: camera: %w", ErrInvalidConfig, err)
	}
	if _, err := c.ParsePalette(); err != nil {
		return err
	}
	if _, err := c.BackgroundColor(); err != nil {
		return err
	}
	for i, b := range c.Scene {
		if b.Radius <= 0 {
			return fmt.Errorf("%w: scene ball %d has radius %g", ErrInvalidConfig, i, b.Radius)
		}
		if b.Color != "" {
			if _, err := ParseColor(b.Color); err != nil {
				return fmt.Errorf("scene ball %d: %w", i, err)
			}
		}
	}
	if err := c.FieldParams().Validate(); err != nil {
		return err
	}
	return c.RenderSettings().Validate()
}

// ParseColor converts a "#rrggbb" string to a linear 0..1 colour vector.
func ParseColor(hex string) (mgl64.Vec3, error) {
	col, err := colorful.Hex(hex)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("%w: colour %q: %v", ErrInvalidConfig, hex, err)
	}
	return mgl64.Vec3{col.R, col.G, col.B}, nil
}

// HexColor is the inverse of ParseColor.
func HexColor(v mgl64.Vec3) string {
	return colorful.Color{R: v[0], G: v[1], B: v[2]}.Clamped().Hex()
}

// ParsePalette returns nil when no palette is configured.
func (c *Config) ParsePalette() ([]mgl64.Vec3, error) {
	if len(c.Palette) == 0 {
		return nil, nil
	}
	out := make([]mgl64.Vec3, len(c.Palette))
	for i, h := range c.Palette {
		v, err := ParseColor(h)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Config) BackgroundColor() (color.RGBA, error) {
	hex := c.Render.Background
	if hex == "" {
		hex = DefaultBackground
	}
	col, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: background %q: %v", ErrInvalidConfig, hex, err)
	}
	r, g, b := col.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}
