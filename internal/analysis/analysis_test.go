package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
)

func unitBalls(xs ...float64) *field.Snapshot {
	balls := make([]field.Metaball, len(xs))
	for i, x := range xs {
		balls[i] = field.Metaball{Position: mgl64.Vec3{x, 0, 0}, Radius: 1}
	}
	return field.NewSnapshot(balls)
}

func TestBlobs(t *testing.T) {
	tests := []struct {
		name string
		snap *field.Snapshot
		want int
	}{
		{"empty", &field.Snapshot{}, 0},
		{"single", unitBalls(0), 1},
		{"three apart merge", unitBalls(0, 3), 1},
		{"six apart split", unitBalls(0, 6), 2},
		{"chain bridges transitively", unitBalls(0, 3, 6), 1},
		{"pair plus loner", unitBalls(0, 3, 12), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Blobs(tt.snap, raymarch.DefaultThreshold); got != tt.want {
				t.Errorf("expected %d blobs, got %d", tt.want, got)
			}
		})
	}
}

func TestBlobLabelsDense(t *testing.T) {
	labels := BlobLabels(unitBalls(20, 0, 3, -20), raymarch.DefaultThreshold)
	want := []int{0, 1, 1, 2}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("expected labels %v, got %v", want, labels)
		}
	}
}

func TestBlobsFollowThreshold(t *testing.T) {
	snap := unitBalls(0, 3)
	if Blobs(snap, 0.95) != 2 {
		t.Error("expected a higher threshold to split the pair")
	}
	if Blobs(snap, 0.5) != 1 {
		t.Error("expected a lower threshold to keep the pair merged")
	}
}

func TestPowerSpectrumFindsSine(t *testing.T) {
	const (
		n    = 256
		dt   = 0.1
		freq = 1.25
	)
	data := make([]float64, n)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*freq*float64(i)*dt)
	}

	ps := PowerSpectrum(data)
	if len(ps) != n/2 {
		t.Fatalf("expected %d bins, got %d", n/2, len(ps))
	}
	if ps[0] > 1e-9 {
		t.Errorf("expected mean removed, DC bin %v", ps[0])
	}

	f, p := DominantFrequency(data, dt)
	if math.Abs(f-freq) > 1/(n*dt) {
		t.Errorf("expected dominant frequency %v, got %v", freq, f)
	}
	if p <= 0 {
		t.Errorf("expected positive power, got %v", p)
	}
}

func TestPowerSpectrumShortInput(t *testing.T) {
	if PowerSpectrum([]float64{1}) != nil {
		t.Error("expected nil spectrum for a single sample")
	}
	if f, p := DominantFrequency([]float64{1, 2, 3}, 0); f != 0 || p != 0 {
		t.Error("expected zero for invalid dt")
	}
}

func TestThresholdSweep(t *testing.T) {
	snap := unitBalls(-1.5, 1.5)
	cam := raymarch.NewCamera(mgl64.Vec3{0, 0, 6}, mgl64.Vec3{}, 60)

	sweep := NewThresholdSweep([]float64{0.5, 0.8, 1.5}, 32, 24)
	sweep.Backend = compute.NewSerialBackend()
	points, err := sweep.Run(context.Background(), snap, cam)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Coverage > points[i-1].Coverage {
			t.Errorf("expected coverage to shrink as threshold rises: %+v", points)
		}
	}
	if points[0].Hits == 0 {
		t.Error("expected the low threshold to hit")
	}

	best, ok := BestCoverage(points, 0)
	if !ok || best.Threshold != 1.5 {
		t.Errorf("expected the highest threshold closest to zero coverage, got %+v", best)
	}
}

func TestThresholdSweepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sweep := NewThresholdSweep([]float64{0.8}, 4, 4)
	if _, err := sweep.Run(ctx, unitBalls(0), raymarch.NewCamera(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{}, 60)); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0.5, 1.0, 3)
	want := []float64{0.5, 0.75, 1.0}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if Linspace(1, 2, 0) != nil {
		t.Error("expected nil for n=0")
	}
}

func TestLyapunovExponentFinite(t *testing.T) {
	balls := field.RandomBalls(21, 6, nil)
	l := LyapunovExponent(balls, field.DefaultParams(), 1.0/60, 200, 1e-6)
	if math.IsNaN(l) || math.IsInf(l, 0) {
		t.Fatalf("expected finite exponent, got %v", l)
	}
	if LyapunovExponent(nil, field.DefaultParams(), 1.0/60, 10, 1e-6) != 0 {
		t.Error("expected zero for an empty scene")
	}
}

func TestCentroid(t *testing.T) {
	c := Centroid([]field.Metaball{{Position: mgl64.Vec3{2, 0, 0}}, {Position: mgl64.Vec3{0, 4, 0}}})
	if c != (mgl64.Vec3{1, 2, 0}) {
		t.Errorf("expected (1,2,0), got %v", c)
	}
}
