package storage

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/metaballs/internal/export"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
)

// ImagePool recycles composite buffers of one size.
type ImagePool struct {
	pool          sync.Pool
	width, height int
}

func NewImagePool(width, height int) *ImagePool {
	return &ImagePool{
		width:  width,
		height: height,
		pool: sync.Pool{
			New: func() interface{} {
				return image.NewRGBA(image.Rect(0, 0, width, height))
			},
		},
	}
}

func (p *ImagePool) Get() *image.RGBA {
	return p.pool.Get().(*image.RGBA)
}

func (p *ImagePool) Put(img *image.RGBA) {
	if b := img.Bounds(); b.Dx() == p.width && b.Dy() == p.height {
		p.pool.Put(img)
	}
}

// FrameWriter is a sim.Observer that encodes every rendered frame to
// frames/NNNNN.png. The frame is composited synchronously, since the loop
// reuses its buffer, and encoded in the background.
type FrameWriter struct {
	dir        string
	background color.Color
	scale      int

	pool    *ImagePool
	g       errgroup.Group
	mu      sync.Mutex
	written int
}

func NewFrameWriter(dir string, bg color.Color, scale, workers int) (*FrameWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 4
	}
	w := &FrameWriter{dir: dir, background: bg, scale: scale}
	w.g.SetLimit(workers)
	return w, nil
}

func (w *FrameWriter) OnFrame(stats sim.FrameStats, _ *field.Snapshot, frame *raymarch.Frame) {
	if frame == nil {
		return
	}
	if w.pool == nil || w.pool.width != frame.Width || w.pool.height != frame.Height {
		w.pool = NewImagePool(frame.Width, frame.Height)
	}
	pool := w.pool
	img := pool.Get()
	frame.CompositeInto(img, w.background)

	path := filepath.Join(w.dir, fmt.Sprintf("%05d.png", stats.Frame))
	w.g.Go(func() error {
		defer pool.Put(img)
		if err := export.WritePNG(path, export.Scale(img, w.scale)); err != nil {
			return err
		}
		w.mu.Lock()
		w.written++
		w.mu.Unlock()
		return nil
	})
}

// Wait blocks until every queued frame is written and returns the first
// error.
func (w *FrameWriter) Wait() error {
	return w.g.Wait()
}

func (w *FrameWriter) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
