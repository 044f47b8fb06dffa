package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

// Plane selects the two world axes a trajectory is projected on.
type Plane string

const (
	PlaneXY Plane = "xy"
	PlaneXZ Plane = "xz"
	PlaneZY Plane = "zy"
)

func (p Plane) axes() (int, int, error) {
	switch p {
	case PlaneXY, "":
		return 0, 1, nil
	case PlaneXZ:
		return 0, 2, nil
	case PlaneZY:
		return 2, 1, nil
	}
	return 0, 0, fmt.Errorf("unknown plane %q", p)
}

func hex(c mgl64.Vec3) string {
	return colorful.Color{R: c[0], G: c[1], B: c[2]}.Clamped().Hex()
}

// TrajectorySVG draws one path per ball through every recorded frame, in
// the ball's colour, with a dot at its final position. Balls added or
// removed mid-run are drawn for the frames they exist in.
func TrajectorySVG(traj [][]field.Metaball, plane Plane, width, height int) (string, error) {
	if len(traj) < 2 {
		return "", fmt.Errorf("need at least 2 frames, got %d", len(traj))
	}
	ax, ay, err := plane.axes()
	if err != nil {
		return "", err
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	balls := 0
	for _, frame := range traj {
		balls = max(balls, len(frame))
		for _, b := range frame {
			minX, maxX = math.Min(minX, b.Position[ax]), math.Max(maxX, b.Position[ax])
			minY, maxY = math.Min(minY, b.Position[ay]), math.Max(maxY, b.Position[ay])
		}
	}
	if balls == 0 {
		return "", fmt.Errorf("trajectory has no balls")
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	project := func(p mgl64.Vec3) (float64, float64) {
		x := (p[ax] - minX) / rangeX * float64(width)
		y := float64(height) - (p[ay]-minY)/rangeY*float64(height)
		return x, y
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for i := 0; i < balls; i++ {
		var path strings.Builder
		var last *field.Metaball
		for _, frame := range traj {
			if i >= len(frame) {
				continue
			}
			x, y := project(frame[i].Position)
			if last == nil {
				path.WriteString(fmt.Sprintf("M%.1f,%.1f", x, y))
			} else {
				path.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
			last = &frame[i]
		}
		if last == nil {
			continue
		}
		col := hex(last.Color)
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, col, path.String()))
		x, y := project(last.Position)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, last.Radius/rangeX*float64(width), col))
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

// FrameSVG draws every hit pixel of a rendered frame as a dot in its shaded
// colour.
func FrameSVG(frame *raymarch.Frame, scale float64) string {
	if frame == nil {
		return ""
	}
	width := float64(frame.Width) * scale
	height := float64(frame.Height) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	dotRadius := scale * 0.5
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			p := frame.At(x, y)
			if p.A == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s" fill-opacity="%.2f"/>
`, float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius, hex(mgl64.Vec3{p.R, p.G, p.B}), p.A))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}
