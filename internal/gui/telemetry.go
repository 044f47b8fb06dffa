package gui

import (
	"image"
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// history is a bounded series for the telemetry strip.
type history struct {
	values []float64
	max    int
}

func newHistory(size int) *history {
	return &history{values: make([]float64, 0, size), max: size}
}

func (h *history) push(v float64) {
	if len(h.values) == h.max {
		copy(h.values, h.values[1:])
		h.values = h.values[:h.max-1]
	}
	h.values = append(h.values, v)
}

func (h *history) clear()   { h.values = h.values[:0] }
func (h *history) len() int { return len(h.values) }

func (h *history) last() float64 {
	if len(h.values) == 0 {
		return 0
	}
	return h.values[len(h.values)-1]
}

// points maps the series into the rectangle at (x, y), largest value at
// the top. A flat series sits on the bottom edge.
func (h *history) points(x, y, width, height float32) []rl.Vector2 {
	if len(h.values) == 0 {
		return nil
	}
	lo, hi := h.values[0], h.values[0]
	for _, v := range h.values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	pts := make([]rl.Vector2, len(h.values))
	for i, v := range h.values {
		px := x + float32(i)/float32(len(h.values))*width
		py := y + height - float32((v-lo)/(hi-lo))*height
		pts[i] = rl.NewVector2(px, py)
	}
	return pts
}

// cpuFrameSize keeps the configured width and matches the window's aspect.
func cpuFrameSize(width, screenW, screenH int) (int, int) {
	if width <= 0 {
		width = 1
	}
	if screenW <= 0 || screenH <= 0 {
		return width, max(1, width*3/4)
	}
	return width, max(1, (width*screenH+screenW/2)/screenW)
}

func copyPixels(dst []color.RGBA, img *image.RGBA) {
	for i := range dst {
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		dst[i] = color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
}
