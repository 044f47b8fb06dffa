package raymarch

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/field"
)

// Renderer sphere-traces a snapshot into a Frame.
type Renderer struct {
	Settings Settings
	backend  compute.Backend
}

func NewRenderer(settings Settings, backend compute.Backend) *Renderer {
	if backend == nil {
		backend = compute.GetBackend()
	}
	return &Renderer{Settings: settings, backend: backend}
}

func (r *Renderer) Backend() compute.Backend { return r.backend }

// Render fills frame from snap as seen through cam. It returns only after
// every row is written, so the caller may mutate the simulator afterwards.
// Rays that miss are written as Transparent and are not errors.
func (r *Renderer) Render(snap *field.Snapshot, cam Camera, frame *Frame) error {
	if snap == nil {
		return ErrNilSnapshot
	}
	if frame == nil || len(frame.Pix) != frame.Width*frame.Height || len(frame.rowHits) != frame.Height {
		return fmt.Errorf("%w: frame buffer does not match its dimensions", ErrFrameSize)
	}
	if err := r.Settings.Validate(); err != nil {
		return err
	}
	proj, err := cam.Projector(frame.Width, frame.Height)
	if err != nil {
		return err
	}

	set := r.Settings
	trace := func(dir mgl64.Vec3) Hit { return march(snap, proj.Origin, dir, set, 0) }
	if set.SkipEmpty {
		reach := ReachRadius(snap, set.Threshold)
		trace = func(dir mgl64.Vec3) Hit { return MarchBounded(snap, proj.Origin, dir, set, reach) }
	}

	w := frame.Width
	r.backend.ParallelRows(frame.Height, func(start, end int) {
		for y := start; y < end; y++ {
			hits, steps := 0, 0
			row := frame.Pix[y*w : (y+1)*w]
			for x := range row {
				h := trace(proj.PixelRay(x, y))
				steps += h.Steps
				row[x] = shadeHit(snap, h, proj.Origin)
				if h.Hit {
					hits++
				}
			}
			frame.rowHits[y] = hits
			frame.rowSteps[y] = steps
		}
	})
	return nil
}

// Trace marches and shades a single ray with the renderer's settings. It
// yields the same pixel Render writes for that ray.
func (r *Renderer) Trace(snap *field.Snapshot, origin, dir mgl64.Vec3) (Hit, Pixel) {
	h := March(snap, origin, dir, r.Settings)
	return h, shadeHit(snap, h, origin)
}

func shadeHit(snap *field.Snapshot, h Hit, eye mgl64.Vec3) Pixel {
	if !h.Hit {
		return Transparent
	}
	return Shade(snap, h.Position, eye)
}
