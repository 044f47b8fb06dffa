package sim_test

import (
	"context"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/metaballs/internal/analysis"
	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/metrics"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
)

var _ = Describe("Frame loop", func() {
	var (
		settings raymarch.Settings
		camera   raymarch.Camera
	)

	BeforeEach(func() {
		settings = raymarch.DefaultSettings()
		settings.SkipEmpty = true
		camera = raymarch.NewCamera(mgl64.Vec3{0, 0, 15}, mgl64.Vec3{}, 75)
	})

	newLoop := func(balls []field.Metaball, params field.Params) *sim.Loop {
		s := field.NewSimulator(balls, params)
		s.SetBackend(compute.NewSerialBackend())
		r := raymarch.NewRenderer(settings, compute.NewCPUBackendWorkers(3))
		return sim.NewLoop(s, r, sim.FixedRig{Cam: camera}, 40, 30)
	}

	Context("with the default random scene", func() {
		It("keeps every ball inside the bounds", func() {
			loop := newLoop(field.RandomBalls(42, field.DefaultBallCount, nil), field.DefaultParams())
			containment := metrics.NewContainment()
			loop.AddMetric(containment)

			result, err := loop.Run(context.Background(), sim.RunConfig{Frames: 120, Dt: 1.0 / 60})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FramesRun).To(Equal(120))
			Expect(result.Metrics[containment.Name()]).To(Equal(1.0))
		})

		It("renders something every frame", func() {
			loop := newLoop(field.RandomBalls(7, field.DefaultBallCount, nil), field.DefaultParams())
			result, err := loop.Run(context.Background(), sim.RunConfig{Frames: 5, Dt: 1.0 / 60})
			Expect(err).NotTo(HaveOccurred())
			for _, s := range result.Stats {
				Expect(s.Rendered).To(BeTrue())
				Expect(s.Coverage).To(BeNumerically(">", 0))
				Expect(s.MeanSteps).To(BeNumerically("<=", float64(raymarch.DefaultMaxSteps)))
			}
		})

		It("is deterministic for a given seed", func() {
			a := newLoop(field.RandomBalls(9, 10, nil), field.DefaultParams())
			b := newLoop(field.RandomBalls(9, 10, nil), field.DefaultParams())
			cfg := sim.RunConfig{Frames: 60, Dt: 1.0 / 60, RecordTrajectory: true}

			ra, err := a.Run(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())
			rb, err := b.Run(context.Background(), cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(ra.Trajectory).To(Equal(rb.Trajectory))
			Expect(ra.Stats).To(Equal(rb.Stats))
		})
	})

	Context("with two unit balls", func() {
		still := func() field.Params {
			p := field.DefaultParams()
			p.Pair.InteractionRadius = 0
			return p
		}

		It("shows one blob when three units apart", func() {
			balls := []field.Metaball{
				{Position: mgl64.Vec3{-1.5, 0, 0}, Radius: 1, Color: mgl64.Vec3{1, 0, 0}},
				{Position: mgl64.Vec3{1.5, 0, 0}, Radius: 1, Color: mgl64.Vec3{0, 0, 1}},
			}
			loop := newLoop(balls, still())
			loop.CountBlobs(true)
			stats, err := loop.RunFrame(1.0 / 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Blobs).To(Equal(1))

			frame := loop.Frame()
			centre := frame.At(frame.Width/2, frame.Height/2)
			Expect(centre.A).To(Equal(raymarch.SurfaceAlpha))
		})

		It("shows two blobs and a gap when six units apart", func() {
			balls := []field.Metaball{
				{Position: mgl64.Vec3{-3, 0, 0}, Radius: 1},
				{Position: mgl64.Vec3{3, 0, 0}, Radius: 1},
			}
			loop := newLoop(balls, still())
			loop.CountBlobs(true)
			stats, err := loop.RunFrame(1.0 / 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Blobs).To(Equal(2))

			frame := loop.Frame()
			Expect(frame.At(frame.Width/2, frame.Height/2)).To(Equal(raymarch.Transparent))
		})
	})

	Context("with no balls", func() {
		It("renders an empty frame without error", func() {
			loop := newLoop(nil, field.DefaultParams())
			stats, err := loop.RunFrame(1.0 / 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Hits).To(BeZero())
			Expect(analysis.Blobs(loop.Snapshot(), settings.Threshold)).To(BeZero())
		})
	})

	Context("with more balls than the snapshot holds", func() {
		It("simulates all of them and renders the first sixteen", func() {
			loop := newLoop(field.RandomBalls(3, field.MaxBalls+4, nil), field.DefaultParams())
			stats, err := loop.RunFrame(1.0 / 60)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Balls).To(Equal(field.MaxBalls + 4))
			Expect(loop.Snapshot().Count).To(Equal(field.MaxBalls))
		})
	})
})
