package export

import (
	"errors"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"io"
	"os"

	"golang.org/x/image/draw"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
)

var ErrNoFrames = errors.New("export: no frames recorded")

// GIFRecorder collects rendered frames as a sim.Observer. Every Every-th
// frame is kept, dithered to the Plan 9 palette.
type GIFRecorder struct {
	Background color.Color
	Scale      int
	Every      int
	Delay      int

	anim gif.GIF
	seen int
}

func NewGIFRecorder(bg color.Color, scale int) *GIFRecorder {
	return &GIFRecorder{Background: bg, Scale: scale, Every: 1, Delay: 2}
}

func (g *GIFRecorder) OnFrame(_ sim.FrameStats, _ *field.Snapshot, frame *raymarch.Frame) {
	if frame == nil {
		return
	}
	g.seen++
	if g.Every > 1 && (g.seen-1)%g.Every != 0 {
		return
	}
	g.Add(FrameImage(frame, g.Background, g.Scale))
}

// Add appends one image to the animation.
func (g *GIFRecorder) Add(img image.Image) {
	b := img.Bounds()
	p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
	draw.FloydSteinberg.Draw(p, p.Bounds(), img, b.Min)
	g.anim.Image = append(g.anim.Image, p)
	g.anim.Delay = append(g.anim.Delay, g.Delay)
}

func (g *GIFRecorder) Len() int { return len(g.anim.Image) }

func (g *GIFRecorder) Encode(w io.Writer) error {
	if len(g.anim.Image) == 0 {
		return ErrNoFrames
	}
	return gif.EncodeAll(w, &g.anim)
}

func (g *GIFRecorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
