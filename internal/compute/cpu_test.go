package compute

import (
	"math"
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPairImpulseAntisymmetric(t *testing.T) {
	p := DefaultPairParams()
	tests := []struct {
		name   string
		pi, pj mgl64.Vec3
		ri, rj float64
	}{
		{"far apart", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0}, 1, 1},
		{"contact", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 0}, 1.5, 2},
		{"diagonal", mgl64.Vec3{-3, 2, 1}, mgl64.Vec3{1, -1, 4}, 1.2, 2.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fij, aij := PairImpulse(tt.pi, tt.pj, tt.ri, tt.rj, p)
			fji, aji := PairImpulse(tt.pj, tt.pi, tt.rj, tt.ri, p)
			for k := 0; k < 3; k++ {
				if aij[k] != -aji[k] {
					t.Errorf("attraction axis %d: %v vs %v", k, aij[k], aji[k])
				}
				if math.Abs(fij[k]+fji[k]) > 1e-15 {
					t.Errorf("total axis %d: %v vs %v", k, fij[k], fji[k])
				}
			}
		})
	}
}

func TestPairImpulseMagnitudes(t *testing.T) {
	p := DefaultPairParams()

	// d = 5, radii sum 2: attraction only
	f, a := PairImpulse(mgl64.Vec3{}, mgl64.Vec3{5, 0, 0}, 1, 1, p)
	want := 0.02 / (25 + 0.1)
	if math.Abs(a[0]-want) > 1e-15 || f != a {
		t.Errorf("expected pure attraction %v, got total %v attraction %v", want, f, a)
	}

	// d = 2 < 1.2 * 2: repulsion superposed
	f, a = PairImpulse(mgl64.Vec3{}, mgl64.Vec3{2, 0, 0}, 1, 1, p)
	wantA := 0.02 / (4 + 0.1)
	wantF := wantA - 0.05/(2+0.1)
	if math.Abs(a[0]-wantA) > 1e-15 {
		t.Errorf("attraction: expected %v, got %v", wantA, a[0])
	}
	if math.Abs(f[0]-wantF) > 1e-15 {
		t.Errorf("total: expected %v, got %v", wantF, f[0])
	}
	if f[0] >= 0 {
		t.Errorf("expected net repulsion at contact, got %v", f[0])
	}
}

func TestPairImpulseCutoffs(t *testing.T) {
	p := DefaultPairParams()
	tests := []struct {
		name string
		pj   mgl64.Vec3
	}{
		{"beyond interaction radius", mgl64.Vec3{12, 0, 0}},
		{"coincident", mgl64.Vec3{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, a := PairImpulse(mgl64.Vec3{}, tt.pj, 1, 1, p)
			if f != (mgl64.Vec3{}) || a != (mgl64.Vec3{}) {
				t.Errorf("expected zero impulse, got %v / %v", f, a)
			}
		})
	}
}

func ringBodies(n int) ([]mgl64.Vec3, []float64) {
	pos := make([]mgl64.Vec3, n)
	radii := make([]float64, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		pos[i] = mgl64.Vec3{6 * math.Cos(angle), 0.3 * float64(i%3), 6 * math.Sin(angle)}
		radii[i] = 1 + 0.1*float64(i%5)
	}
	return pos, radii
}

func TestPairImpulsesSerialMatchesParallel(t *testing.T) {
	pos, radii := ringBodies(40)
	p := DefaultPairParams()

	serial := make([]mgl64.Vec3, len(pos))
	parallel := make([]mgl64.Vec3, len(pos))
	NewSerialBackend().PairImpulses(pos, radii, p, serial)
	NewCPUBackendWorkers(4).PairImpulses(pos, radii, p, parallel)

	for i := range serial {
		for k := 0; k < 3; k++ {
			if math.Abs(serial[i][k]-parallel[i][k]) > 1e-12 {
				t.Fatalf("body %d axis %d: serial %v parallel %v", i, k, serial[i][k], parallel[i][k])
			}
		}
	}
}

func TestPairImpulsesMomentumConserved(t *testing.T) {
	pos, radii := ringBodies(8)
	out := make([]mgl64.Vec3, len(pos))
	NewSerialBackend().PairImpulses(pos, radii, DefaultPairParams(), out)

	var sum mgl64.Vec3
	for _, f := range out {
		sum = sum.Add(f)
	}
	if sum.Len() > 1e-12 {
		t.Errorf("expected impulses to cancel, got %v", sum)
	}
}

func TestParallelRowsCoversEveryRow(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		rows    int
	}{
		{"serial", 1, 37},
		{"more workers than rows", 8, 3},
		{"uneven bands", 3, 101},
		{"single row", 4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := make([]int32, tt.rows)
			NewCPUBackendWorkers(tt.workers).ParallelRows(tt.rows, func(start, end int) {
				for y := start; y < end; y++ {
					atomic.AddInt32(&seen[y], 1)
				}
			})
			for y, n := range seen {
				if n != 1 {
					t.Fatalf("row %d visited %d times", y, n)
				}
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "auto", "cpu", "serial"} {
		if b, ok := ByName(name); !ok || b == nil {
			t.Errorf("expected backend for %q", name)
		}
	}
	if _, ok := ByName("cuda"); ok {
		t.Error("expected unknown backend to be rejected")
	}
}

func BenchmarkPairImpulses(b *testing.B) {
	pos, radii := ringBodies(16)
	out := make([]mgl64.Vec3, len(pos))
	backend := NewSerialBackend()
	p := DefaultPairParams()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		backend.PairImpulses(pos, radii, p, out)
	}
}
