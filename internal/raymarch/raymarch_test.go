package raymarch

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/field"
)

func snapshotOf(balls ...field.Metaball) *field.Snapshot {
	return field.NewSnapshot(balls)
}

func ball(x, y, z, r float64) field.Metaball {
	return field.Metaball{Position: mgl64.Vec3{x, y, z}, Radius: r, Color: mgl64.Vec3{1, 0.3, 0.3}}
}

func TestFieldNonNegativeAndMonotonic(t *testing.T) {
	snap := field.NewSnapshot(field.RandomBalls(3, 6, nil))
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 200; i++ {
		p := mgl64.Vec3{rng.Float64()*30 - 15, rng.Float64()*30 - 15, rng.Float64()*30 - 15}
		if f := Field(snap, p); f < 0 {
			t.Fatalf("F(%v) = %v < 0", p, f)
		}
	}

	for b := 0; b < snap.Count; b++ {
		dir := mgl64.Vec3{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5}.Normalize()
		prev := math.Inf(1)
		for d := 0.0; d < 20; d += 0.25 {
			v := Influence(snap, b, snap.Positions[b].Add(dir.Mul(d)))
			if v > prev {
				t.Fatalf("ball %d: influence increased from %v to %v at d=%v", b, prev, v, d)
			}
			prev = v
		}
	}
}

func TestFieldIgnoresSlotsBeyondCount(t *testing.T) {
	snap := snapshotOf(ball(0, 0, 0, 1))
	snap.Radii[1] = 5
	snap.Positions[1] = mgl64.Vec3{0.5, 0, 0}

	want := Contribution(1, 0)
	if got := Field(snap, mgl64.Vec3{}); got != want {
		t.Errorf("expected stale slot ignored, got %v want %v", got, want)
	}
}

func TestStepSizeBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	empty := &field.Snapshot{}
	if s := StepSize(empty, mgl64.Vec3{}, DefaultMinStep, DefaultMaxStep); s != DefaultMaxStep {
		t.Errorf("expected cap step with no balls, got %v", s)
	}

	for trial := 0; trial < 50; trial++ {
		snap := field.NewSnapshot(field.RandomBalls(int64(trial), 1+trial%field.MaxBalls, nil))
		for i := 0; i < 50; i++ {
			p := mgl64.Vec3{rng.Float64()*20 - 10, rng.Float64()*20 - 10, rng.Float64()*20 - 10}
			s := StepSize(snap, p, DefaultMinStep, DefaultMaxStep)
			if !(s > 0 && s <= DefaultMaxStep) {
				t.Fatalf("step %v outside (0, 0.1] at %v", s, p)
			}
		}
	}
}

func TestSingleBallAnalyticHit(t *testing.T) {
	tests := []struct {
		name   string
		radius float64
		from   float64
	}{
		{"unit ball", 1, 5},
		{"large ball", 2, 6},
		{"small ball", 0.5, 3},
	}

	set := DefaultSettings()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := snapshotOf(ball(0, 0, 0, tt.radius))
			surface := math.Sqrt(tt.radius*tt.radius/set.Threshold - FieldEpsilon)

			h := March(snap, mgl64.Vec3{0, 0, tt.from}, mgl64.Vec3{0, 0, -1}, set)
			if !h.Hit {
				t.Fatalf("expected hit, got %+v", h)
			}
			want := tt.from - surface
			if h.Distance < want-1e-9 || h.Distance > want+DefaultMaxStep+DefaultMinStep {
				t.Errorf("hit at %v, expected within a step after %v", h.Distance, want)
			}
		})
	}
}

func TestMergedVersusSeparateBalls(t *testing.T) {
	set := DefaultSettings()

	merged := snapshotOf(ball(0, 0, 0, 1), ball(3, 0, 0, 1))
	mid := Field(merged, mgl64.Vec3{1.5, 0, 0})
	if math.Abs(mid-2/(2.25+0.01)) > 1e-12 || mid <= set.Threshold {
		t.Fatalf("expected merged midpoint field ~0.885, got %v", mid)
	}
	if h := March(merged, mgl64.Vec3{1.5, 0, 5}, mgl64.Vec3{0, 0, -1}, set); !h.Hit {
		t.Error("expected ray through the midpoint to hit the bridge")
	}

	apart := snapshotOf(ball(0, 0, 0, 1), ball(6, 0, 0, 1))
	mid = Field(apart, mgl64.Vec3{3, 0, 0})
	if mid >= set.Threshold {
		t.Fatalf("expected separated midpoint field ~0.222, got %v", mid)
	}
	if h := March(apart, mgl64.Vec3{3, 0, 5}, mgl64.Vec3{0, 0, -1}, set); h.Hit {
		t.Errorf("expected no bridge between separated balls, hit at %v", h.Position)
	}
}

func TestZeroBallsNeverHit(t *testing.T) {
	snap := &field.Snapshot{}
	frame := NewFrame(32, 24)
	cam := NewCamera(mgl64.Vec3{0, 0, 15}, mgl64.Vec3{}, 75)

	r := NewRenderer(DefaultSettings(), compute.NewSerialBackend())
	if err := r.Render(snap, cam, frame); err != nil {
		t.Fatalf("render: %v", err)
	}
	if frame.Hits() != 0 {
		t.Errorf("expected no hits, got %d", frame.Hits())
	}
	for i, p := range frame.Pix {
		if p != Transparent {
			t.Fatalf("pixel %d not transparent: %+v", i, p)
		}
	}

	set := DefaultSettings()
	set.SkipEmpty = true
	if h := March(snap, cam.Position, mgl64.Vec3{0, 0, -1}, set); h.Hit {
		t.Error("expected miss with skip-empty and no balls")
	}
}

func TestSkipEmptyReachesDistantBalls(t *testing.T) {
	snap := snapshotOf(ball(0, 0, 0, 1.5))
	origin := mgl64.Vec3{0, 0, 15}
	dir := mgl64.Vec3{0, 0, -1}

	set := DefaultSettings()
	if h := March(snap, origin, dir, set); h.Hit {
		t.Fatal("expected the step budget to run out before the ball")
	}

	set.SkipEmpty = true
	h := March(snap, origin, dir, set)
	if !h.Hit {
		t.Fatal("expected hit when marching from the reach sphere")
	}
	surface := math.Sqrt(1.5*1.5/set.Threshold - FieldEpsilon)
	if math.Abs(h.Distance-(15-surface)) > DefaultMaxStep+DefaultMinStep {
		t.Errorf("hit at %v, expected near %v", h.Distance, 15-surface)
	}
}

func TestShade(t *testing.T) {
	snap := snapshotOf(field.Metaball{Radius: 1, Color: mgl64.Vec3{0.2, 0.4, 0.6}})
	d := mgl64.Vec3{1, 1, 1}.Normalize()
	eye := d.Mul(11)

	// The field gradient points toward the centre, so the side facing the
	// light and the eye gets ambient plus a full rim.
	front := Shade(snap, d.Mul(1.1), eye)
	if front.A != SurfaceAlpha {
		t.Errorf("expected alpha %v, got %v", SurfaceAlpha, front.A)
	}
	if want := 0.2*Ambient + FresnelTint; math.Abs(front.R-want) > 1e-6 {
		t.Errorf("front: expected R %v, got %v", want, front.R)
	}

	back := Shade(snap, d.Mul(-1.1), eye)
	if want := 0.2 * (Ambient + Diffuse); math.Abs(back.R-want) > 1e-6 {
		t.Errorf("back: expected R %v, got %v", want, back.R)
	}
}

func TestBlendColor(t *testing.T) {
	if c := BlendColor(&field.Snapshot{}, mgl64.Vec3{}); c != Neutral {
		t.Errorf("expected neutral grey, got %v", c)
	}

	snap := snapshotOf(
		field.Metaball{Position: mgl64.Vec3{-1, 0, 0}, Radius: 1, Color: mgl64.Vec3{1, 0, 0}},
		field.Metaball{Position: mgl64.Vec3{1, 0, 0}, Radius: 1, Color: mgl64.Vec3{0, 0, 1}},
	)
	c := BlendColor(snap, mgl64.Vec3{})
	if math.Abs(c[0]-0.5) > 1e-12 || math.Abs(c[2]-0.5) > 1e-12 {
		t.Errorf("expected even blend at midpoint, got %v", c)
	}
	c = BlendColor(snap, mgl64.Vec3{-0.9, 0, 0})
	if c[0] <= c[2] {
		t.Errorf("expected red to dominate near the red ball, got %v", c)
	}
}

func TestNormalIsFieldGradient(t *testing.T) {
	snap := snapshotOf(ball(1, 2, 3, 1))
	p := mgl64.Vec3{1, 2, 3}.Add(mgl64.Vec3{0, 1.1, 0})
	n := Normal(snap, p, NormalEpsilon)
	// F decreases outward, so the gradient points toward the centre.
	if n.Sub(mgl64.Vec3{0, -1, 0}).Len() > 1e-6 {
		t.Errorf("expected gradient (0,-1,0), got %v", n)
	}
}

func TestRenderSerialMatchesParallel(t *testing.T) {
	snap := snapshotOf(ball(0, 0, 0, 1.5), ball(2, 1, 0, 1), ball(-2, -1, 1, 1.2))
	cam := NewCamera(mgl64.Vec3{0, 0, 15}, mgl64.Vec3{}, 75)
	set := DefaultSettings()
	set.SkipEmpty = true

	a, b := NewFrame(48, 32), NewFrame(48, 32)
	if err := NewRenderer(set, compute.NewSerialBackend()).Render(snap, cam, a); err != nil {
		t.Fatal(err)
	}
	if err := NewRenderer(set, compute.NewCPUBackendWorkers(4)).Render(snap, cam, b); err != nil {
		t.Fatal(err)
	}
	if a.Hits() == 0 {
		t.Fatal("expected the scene to be visible")
	}
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("pixel %d differs between backends", i)
		}
	}
	if a.MeanSteps() != b.MeanSteps() {
		t.Error("expected identical step statistics")
	}
}

func TestTraceMatchesRender(t *testing.T) {
	snap := snapshotOf(ball(0, 0, 0, 1.5), ball(2, 1, 0, 1))
	cam := NewCamera(mgl64.Vec3{0, 0, 15}, mgl64.Vec3{}, 75)
	for _, skip := range []bool{false, true} {
		set := DefaultSettings()
		set.SkipEmpty = skip
		r := NewRenderer(set, compute.NewSerialBackend())
		frame := NewFrame(24, 16)
		if err := r.Render(snap, cam, frame); err != nil {
			t.Fatal(err)
		}
		proj, err := cam.Projector(frame.Width, frame.Height)
		if err != nil {
			t.Fatal(err)
		}
		hits := 0
		for y := 0; y < frame.Height; y++ {
			for x := 0; x < frame.Width; x++ {
				h, px := r.Trace(snap, proj.Origin, proj.PixelRay(x, y))
				if px != frame.At(x, y) {
					t.Fatalf("skip=%v: pixel (%d,%d) differs from the rendered frame", skip, x, y)
				}
				if h.Hit {
					hits++
				}
			}
		}
		if hits != frame.Hits() || hits == 0 {
			t.Errorf("skip=%v: traced %d hits, frame has %d", skip, hits, frame.Hits())
		}
	}
}

func TestRenderErrors(t *testing.T) {
	snap := snapshotOf(ball(0, 0, 0, 1))
	good := NewCamera(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{}, 75)
	r := NewRenderer(DefaultSettings(), compute.NewSerialBackend())

	tests := []struct {
		name  string
		snap  *field.Snapshot
		cam   Camera
		frame *Frame
		want  error
	}{
		{"nil snapshot", nil, good, NewFrame(4, 4), ErrNilSnapshot},
		{"nil frame", snap, good, nil, ErrFrameSize},
		{"corrupt frame", snap, good, &Frame{Width: 4, Height: 4}, ErrFrameSize},
		{"camera on target", snap, NewCamera(mgl64.Vec3{}, mgl64.Vec3{}, 75), NewFrame(4, 4), ErrCamera},
		{"bad fov", snap, NewCamera(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{}, 0), NewFrame(4, 4), ErrCamera},
		{"up parallel", snap, Camera{Position: mgl64.Vec3{0, 5, 0}, Up: mgl64.Vec3{0, 1, 0}, FOV: 60}, NewFrame(4, 4), ErrCamera},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Render(tt.snap, tt.cam, tt.frame); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	bad := NewRenderer(Settings{}, compute.NewSerialBackend())
	if err := bad.Render(snap, good, NewFrame(4, 4)); !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}

func TestProjectorCentreRay(t *testing.T) {
	cam := NewCamera(mgl64.Vec3{0, 0, 15}, mgl64.Vec3{}, 75)
	proj, err := cam.Projector(100, 50)
	if err != nil {
		t.Fatal(err)
	}
	if d := proj.Ray(50, 25).Sub(mgl64.Vec3{0, 0, -1}).Len(); d > 1e-12 {
		t.Errorf("expected centre ray along -z, off by %v", d)
	}
	if proj.Ray(0, 25)[0] >= 0 || proj.Ray(50, 0)[1] <= 0 {
		t.Error("expected left edge to look left and top edge to look up")
	}
	p := proj.PointerWorld(50, 25, 15)
	if p.Len() > 1e-9 {
		t.Errorf("expected pointer at origin, got %v", p)
	}
}

func TestCompositeAndImage(t *testing.T) {
	frame := NewFrame(2, 1)
	frame.Pix[0] = Pixel{R: 1.4, G: 0.5, B: 0, A: SurfaceAlpha}

	img := frame.Image()
	if c := img.NRGBAAt(0, 0); c.R != 255 || c.A != 230 {
		t.Errorf("unexpected straight pixel %+v", c)
	}
	if c := img.NRGBAAt(1, 0); c.A != 0 {
		t.Errorf("expected transparent miss, got %+v", c)
	}

	comp := frame.Composite(Background)
	if c := comp.RGBAAt(1, 0); c.R != Background.R || c.A != 255 {
		t.Errorf("expected background on miss, got %+v", c)
	}
}

func TestFragmentShader(t *testing.T) {
	src := FragmentShader(0)
	for _, want := range []string{"#version 330", "#define MAX_BALLS 16", "#define MAX_STEPS 64", "0.01", "0.9)"} {
		if !strings.Contains(src, want) {
			t.Errorf("shader missing %q", want)
		}
	}
}

func TestUniforms(t *testing.T) {
	snap := field.NewSnapshot(field.RandomBalls(1, 20, nil))
	cam := NewCamera(mgl64.Vec3{0, 0, 15}, mgl64.Vec3{}, 75)

	u, err := NewUniforms(snap, cam, DefaultSettings(), 2.5)
	if err != nil {
		t.Fatal(err)
	}
	if u.NumBalls != field.MaxBalls || len(u.Radii) != field.MaxBalls || len(u.Positions) != field.MaxBalls*3 {
		t.Fatalf("unexpected uniform sizes: %v %d %d", u.NumBalls, len(u.Radii), len(u.Positions))
	}
	if u.Radii[3] != float32(snap.Radii[3]) || u.Positions[3*3+1] != float32(snap.Positions[3][1]) {
		t.Error("uniform arrays do not mirror the snapshot")
	}
	if u.Reach != -1 {
		t.Errorf("expected reach disabled, got %v", u.Reach)
	}
}

func BenchmarkMarch(b *testing.B) {
	snap := field.NewSnapshot(field.RandomBalls(5, field.DefaultBallCount, nil))
	set := DefaultSettings()
	set.SkipEmpty = true
	origin := mgl64.Vec3{0, 0, 15}
	dir := mgl64.Vec3{0.05, 0.02, -1}.Normalize()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		March(snap, origin, dir, set)
	}
}

func BenchmarkRender(b *testing.B) {
	snap := field.NewSnapshot(field.RandomBalls(5, field.DefaultBallCount, nil))
	cam := NewCamera(mgl64.Vec3{0, 0, 15}, mgl64.Vec3{}, 75)
	set := DefaultSettings()
	set.SkipEmpty = true
	r := NewRenderer(set, compute.GetBackend())
	frame := NewFrame(160, 90)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := r.Render(snap, cam, frame); err != nil {
			b.Fatal(err)
		}
	}
}
