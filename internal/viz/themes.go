package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

// Theme is the colour scheme of the stats panel.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Text      lipgloss.Color
	Muted     lipgloss.Color
	Warning   lipgloss.Color
}

var ink, _ = colorful.MakeColor(raymarch.Background)

// paletteTheme takes the panel colours from a ball palette. Muted labels are
// the lead colour sunk toward the miss background; text is the lead colour
// washed almost to white.
func paletteTheme(name string, palette ...colorful.Color) Theme {
	at := func(i int) colorful.Color { return palette[i%len(palette)].Clamped() }
	white := colorful.Color{R: 1, G: 1, B: 1}
	return Theme{
		Name:      name,
		Primary:   lipgloss.Color(at(0).Hex()),
		Secondary: lipgloss.Color(at(1).Hex()),
		Accent:    lipgloss.Color(at(2).Hex()),
		Text:      lipgloss.Color(at(0).BlendLab(white, 0.85).Hex()),
		Muted:     lipgloss.Color(at(0).BlendLab(ink, 0.55).Hex()),
		Warning:   lipgloss.Color(at(3).Hex()),
	}
}

func fromVec(vs ...mgl64.Vec3) []colorful.Color {
	out := make([]colorful.Color, len(vs))
	for i, v := range vs {
		out[i] = colorful.Color{R: v[0], G: v[1], B: v[2]}
	}
	return out
}

func fromHex(hs ...string) []colorful.Color {
	out := make([]colorful.Color, len(hs))
	for i, h := range hs {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}

var (
	// ThemeSpectrum follows the default ball palette.
	ThemeSpectrum = paletteTheme("spectrum", fromVec(field.DefaultPalette...)...)

	ThemeOrchid = paletteTheme("orchid", fromVec(
		field.DefaultPalette[4], field.DefaultPalette[7], field.DefaultPalette[5], field.DefaultPalette[6],
	)...)

	// ThemeLava matches the lava preset palette.
	ThemeLava = paletteTheme("lava", fromHex("#ff6600", "#ffcc00", "#ff3300", "#ff9900")...)

	ThemeGlacier = paletteTheme("glacier", fromHex("#66ccff", "#3366ff", "#ccf2ff", "#ff9966")...)

	// ThemeAsh is for terminals with poor truecolour support.
	ThemeAsh = Theme{
		Name:      "ash",
		Primary:   lipgloss.Color("#e0e0e0"),
		Secondary: lipgloss.Color("#a0a0a0"),
		Accent:    lipgloss.Color("#ffffff"),
		Text:      lipgloss.Color("#d0d0d0"),
		Muted:     lipgloss.Color("#5a5a5a"),
		Warning:   lipgloss.Color("#ff8800"),
	}

	Themes = []Theme{ThemeSpectrum, ThemeOrchid, ThemeLava, ThemeGlacier, ThemeAsh}
)

// GetTheme returns a theme by name, falling back to the first.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// NextTheme cycles through Themes.
func NextTheme(current Theme) Theme {
	for i, t := range Themes {
		if t.Name == current.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
