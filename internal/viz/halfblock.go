package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/metaballs/internal/raymarch"
)

const upperHalf = "▀"

// PixelColor composites one frame pixel over bg.
func PixelColor(p raymarch.Pixel, bg colorful.Color) colorful.Color {
	c := colorful.Color{R: p.R, G: p.G, B: p.B}.Clamped()
	return bg.BlendRgb(c, p.A)
}

// HalfBlock draws the frame with one character cell per two pixel rows:
// the upper half block takes the top pixel as foreground and the bottom
// pixel as background.
func HalfBlock(frame *raymarch.Frame, bg colorful.Color) string {
	if frame == nil || frame.Width == 0 || frame.Height == 0 {
		return ""
	}
	cache := make(map[[2]string]lipgloss.Style)
	var b strings.Builder
	for y := 0; y < frame.Height; y += 2 {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < frame.Width; x++ {
			top := PixelColor(frame.At(x, y), bg).Hex()
			bottom := bg.Hex()
			if y+1 < frame.Height {
				bottom = PixelColor(frame.At(x, y+1), bg).Hex()
			}
			key := [2]string{top, bottom}
			style, ok := cache[key]
			if !ok {
				style = lipgloss.NewStyle().
					Foreground(lipgloss.Color(top)).
					Background(lipgloss.Color(bottom))
				cache[key] = style
			}
			b.WriteString(style.Render(upperHalf))
		}
	}
	return b.String()
}

// Braille draws the frame's hit mask on a canvas of cols x rows cells.
func Braille(frame *raymarch.Frame, cols, rows int) string {
	c := NewCanvas(cols, rows)
	if frame != nil {
		c.PlotMask(frame.HitMask(), frame.Width, frame.Height)
	}
	return c.String()
}
