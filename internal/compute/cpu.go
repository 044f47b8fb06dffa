package compute

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
)

// parallelThreshold is the body count below which pair forces run serially.
const parallelThreshold = 16

// bandsPerWorker oversubscribes render bands so workers that hit empty sky
// pick up rows from the ones marching through blobs.
const bandsPerWorker = 4

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

// NewSerialBackend runs everything on the calling goroutine.
func NewSerialBackend() *CPUBackend {
	return &CPUBackend{workers: 1}
}

// NewCPUBackendWorkers pins the worker count; n <= 0 means NumCPU.
func NewCPUBackendWorkers(n int) *CPUBackend {
	if n <= 0 {
		return NewCPUBackend()
	}
	return &CPUBackend{workers: n}
}

func (c *CPUBackend) Name() string {
	if c.workers == 1 {
		return "serial"
	}
	return fmt.Sprintf("cpu (%d workers)", c.workers)
}

func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}
func (c *CPUBackend) Workers() int    { return c.workers }

// PairImpulse returns the impulse exerted on the body at pi by the body at pj,
// and the attraction component of it. Swapping the arguments yields the exact
// negation of both values.
func PairImpulse(pi, pj mgl64.Vec3, ri, rj float64, p PairParams) (total, attraction mgl64.Vec3) {
	delta := pj.Sub(pi)
	d := delta.Len()
	if d == 0 || d >= p.InteractionRadius {
		return mgl64.Vec3{}, mgl64.Vec3{}
	}
	dir := delta.Mul(1 / d)
	attraction = dir.Mul(p.Attraction / (d*d + p.AttractionSoftening))
	total = attraction
	if d < p.ContactFactor*(ri+rj) {
		total = total.Sub(dir.Mul(p.Repulsion / (d + p.RepulsionOffset)))
	}
	return total, attraction
}

func (c *CPUBackend) PairImpulses(pos []mgl64.Vec3, radii []float64, p PairParams, out []mgl64.Vec3) {
	n := len(pos)
	for i := range out {
		out[i] = mgl64.Vec3{}
	}

	if n < parallelThreshold || c.workers <= 1 {
		c.pairsSerial(pos, radii, p, out)
		return
	}

	c.pairsParallel(pos, radii, p, out)
}

func (c *CPUBackend) pairsSerial(pos []mgl64.Vec3, radii []float64, p PairParams, out []mgl64.Vec3) {
	n := len(pos)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			f, _ := PairImpulse(pos[i], pos[j], radii[i], radii[j], p)
			out[i] = out[i].Add(f)
			out[j] = out[j].Sub(f)
		}
	}
}

// pairsParallel gives each worker a contiguous range of bodies and lets it
// sum the impulses from every other body. Each out[i] is written by exactly
// one worker, and the per-body summation order matches pairsSerial.
func (c *CPUBackend) pairsParallel(pos []mgl64.Vec3, radii []float64, p PairParams, out []mgl64.Vec3) {
	n := len(pos)
	chunkSize := (n + c.workers - 1) / c.workers

	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
		end := start + chunkSize
		if end > n {
			end = n
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			for i := start; i < end; i++ {
				acc := mgl64.Vec3{}
				for j := 0; j < n; j++ {
					if i == j {
						continue
					}
					f, _ := PairImpulse(pos[i], pos[j], radii[i], radii[j], p)
					acc = acc.Add(f)
				}
				out[i] = acc
			}
		}(start, end)
	}

	wg.Wait()
}

func (c *CPUBackend) ParallelRows(rows int, fn func(start, end int)) {
	if rows <= 0 {
		return
	}
	if c.workers <= 1 || rows < 2 {
		fn(0, rows)
		return
	}

	bands := c.workers * bandsPerWorker
	if bands > rows {
		bands = rows
	}
	bandSize := (rows + bands - 1) / bands

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(c.workers)

	for w := 0; w < c.workers; w++ {
		go func() {
			defer wg.Done()
			for {
				b := int(next.Add(1)) - 1
				start := b * bandSize
				if start >= rows {
					return
				}
				end := start + bandSize
				if end > rows {
					end = rows
				}
				fn(start, end)
			}
		}()
	}

	wg.Wait()
}
