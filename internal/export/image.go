package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"

	"github.com/san-kum/metaballs/internal/raymarch"
)

// FrameImage composites a frame over bg and enlarges it by an integer scale.
func FrameImage(frame *raymarch.Frame, bg color.Color, scale int) *image.RGBA {
	return Scale(frame.Composite(bg), scale)
}

// Scale enlarges img by factor with nearest-neighbour sampling, keeping the
// raymarched pixels sharp. Factors below 2 return img unchanged.
func Scale(img *image.RGBA, factor int) *image.RGBA {
	if factor < 2 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Resize smooths img into a width x height image.
func Resize(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
