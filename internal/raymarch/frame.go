package raymarch

import (
	"image"
	"image/color"
	"math"
)

// Background is the clear colour frames are composited over.
var Background = color.RGBA{R: 0x0a, G: 0x0a, B: 0x0a, A: 0xff}

// Frame is a CPU colour buffer with per-row march statistics.
type Frame struct {
	Width, Height int
	Pix           []Pixel

	rowHits  []int
	rowSteps []int
}

func NewFrame(width, height int) *Frame {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Frame{
		Width:    width,
		Height:   height,
		Pix:      make([]Pixel, width*height),
		rowHits:  make([]int, height),
		rowSteps: make([]int, height),
	}
}

func (f *Frame) At(x, y int) Pixel {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return Transparent
	}
	return f.Pix[y*f.Width+x]
}

// Hits is the number of pixels that hit the surface in the last render.
func (f *Frame) Hits() int {
	n := 0
	for _, h := range f.rowHits {
		n += h
	}
	return n
}

// Coverage is the fraction of pixels that hit the surface.
func (f *Frame) Coverage() float64 {
	total := f.Width * f.Height
	if total == 0 {
		return 0
	}
	return float64(f.Hits()) / float64(total)
}

// MeanSteps is the mean march iteration count per pixel.
func (f *Frame) MeanSteps() float64 {
	total := f.Width * f.Height
	if total == 0 {
		return 0
	}
	n := 0
	for _, s := range f.rowSteps {
		n += s
	}
	return float64(n) / float64(total)
}

// HitMask reports, per pixel, whether the ray hit.
func (f *Frame) HitMask() []bool {
	mask := make([]bool, len(f.Pix))
	for i, p := range f.Pix {
		mask[i] = p.A > 0
	}
	return mask
}

// Image returns the straight-alpha frame; misses are fully transparent.
func (f *Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			p := f.Pix[y*f.Width+x]
			img.SetNRGBA(x, y, color.NRGBA{quant(p.R), quant(p.G), quant(p.B), quant(p.A)})
		}
	}
	return img
}

// Composite blends the frame over an opaque background.
func (f *Frame) Composite(bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	f.CompositeInto(img, bg)
	return img
}

// CompositeInto is Composite into a caller-owned image, which must be at
// least as large as the frame.
func (f *Frame) CompositeInto(img *image.RGBA, bg color.Color) {
	br, bgc, bb, _ := bg.RGBA()
	back := [3]float64{float64(br) / 0xffff, float64(bgc) / 0xffff, float64(bb) / 0xffff}
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			p := f.Pix[y*f.Width+x]
			a := p.A
			img.SetRGBA(x, y, color.RGBA{
				R: quant(clamp01(p.R)*a + back[0]*(1-a)),
				G: quant(clamp01(p.G)*a + back[1]*(1-a)),
				B: quant(clamp01(p.B)*a + back[2]*(1-a)),
				A: 0xff,
			})
		}
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func quant(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255))
}
