package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/metaballs/internal/analysis"
	"github.com/san-kum/metaballs/internal/automation"
	"github.com/san-kum/metaballs/internal/compute"
	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/export"
	"github.com/san-kum/metaballs/internal/metrics"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
	"github.com/san-kum/metaballs/internal/storage"
)

// advance runs n headless frames of cfg and returns the loop.
func advance(cfg *config.Config, n int) (*sim.Loop, error) {
	loop, err := cfg.NewLoop(cfg.Seed, true)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if _, err := loop.RunFrame(cfg.Dt); err != nil {
			return nil, err
		}
	}
	return loop, nil
}

func renderFrame(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return err
	}
	b, err := cfg.Backend()
	if err != nil {
		return err
	}

	loop, err := advance(cfg, atFrame)
	if err != nil {
		return err
	}
	loop.SetRenderer(raymarch.NewRenderer(cfg.RenderSettings(), b), cfg.Render.Width, cfg.Render.Height)

	start := time.Now()
	if err := loop.Redraw(); err != nil {
		return err
	}
	frame := loop.Frame()
	if err := export.WritePNG(outPath, export.FrameImage(frame, bg, scale)); err != nil {
		return err
	}
	log.Info("rendered", "out", outPath, "elapsed", time.Since(start).Round(time.Millisecond))
	fmt.Printf("%s: %dx%d, coverage %.1f%%, mean steps %.1f\n",
		outPath, frame.Width*max(scale, 1), frame.Height*max(scale, 1), frame.Coverage()*100, frame.MeanSteps())
	return nil
}

func runScene(cmd *cobra.Command, args []string) error {
	cfg, scene, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if headless && (savePNG || gifPath != "") {
		return fmt.Errorf("--headless cannot write images")
	}
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	runID, err := st.Create(scene)
	if err != nil {
		return err
	}

	loop, err := cfg.NewLoop(cfg.Seed, headless)
	if err != nil {
		return err
	}
	for _, m := range metrics.All() {
		loop.AddMetric(m)
	}
	loop.CountBlobs(true)

	var frames *storage.FrameWriter
	if savePNG {
		frames, err = storage.NewFrameWriter(st.FramesDir(runID), bg, scale, cfg.Render.Workers)
		if err != nil {
			return err
		}
		loop.AddObserver(frames)
	}
	var recorder *export.GIFRecorder
	if gifPath != "" {
		recorder = export.NewGIFRecorder(bg, scale)
		recorder.Every = gifEvery
		loop.AddObserver(recorder)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.Info("running", "run", runID, "frames", cfg.Frames, "balls", loop.Simulator().Len())
	start := time.Now()
	result, runErr := loop.Run(ctx, sim.RunConfig{
		Frames:           cfg.Frames,
		Dt:               cfg.Dt,
		RecordTrajectory: true,
		ValidateState:    true,
	})
	elapsed := time.Since(start)
	if result == nil {
		return runErr
	}
	if runErr != nil {
		log.Warn("run stopped early", "frames", result.FramesRun, "err", runErr)
	}

	meta := storage.RunMetadata{
		Scene:     scene,
		Seed:      cfg.Seed,
		Balls:     loop.Simulator().Len(),
		Dt:        cfg.Dt,
		Width:     cfg.Render.Width,
		Height:    cfg.Render.Height,
		Threshold: cfg.Render.Threshold,
		Backend:   loop.Simulator().Backend().Name(),
	}
	if frames != nil {
		if err := frames.Wait(); err != nil {
			return err
		}
		meta.Images = frames.Written()
	}
	if err := st.Save(runID, meta, result); err != nil {
		return err
	}
	if err := st.SaveScene(runID, cfg); err != nil {
		return err
	}
	if recorder != nil {
		if err := recorder.Save(gifPath); err != nil {
			return err
		}
		log.Info("gif written", "out", gifPath, "frames", recorder.Len())
	}

	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", result.FramesRun)
	fmt.Println("\nmetrics:")
	printMetrics(result.Metrics)
	return runErr
}

func printMetrics(m map[string]float64) {
	for _, name := range sortedKeys(m) {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	factory := func(s int64) (*sim.Loop, error) {
		loop, err := cfg.NewLoop(s, !renderAll)
		if err != nil {
			return nil, err
		}
		for _, m := range metrics.All() {
			loop.AddMetric(m)
		}
		return loop, nil
	}

	ens := sim.NewEnsemble(factory, numRuns, cfg.Seed)
	if cfg.Render.Workers > 0 {
		ens.SetLimit(cfg.Render.Workers)
	}
	start := time.Now()
	results, err := ens.Run(context.Background(), sim.RunConfig{Frames: cfg.Frames, Dt: cfg.Dt})
	if err != nil {
		return err
	}
	log.Info("ensemble done", "runs", numRuns, "elapsed", time.Since(start).Round(time.Millisecond))

	names := metrics.Names()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "SEED")
	for _, n := range names {
		fmt.Fprintf(w, "\t%s", n)
	}
	fmt.Fprintln(w)

	avg := make([]float64, len(names))
	for i, res := range results {
		fmt.Fprintf(w, "%d", cfg.Seed+int64(i))
		for j, n := range names {
			v := res.Metrics[n]
			avg[j] += v / float64(len(results))
			fmt.Fprintf(w, "\t%.4f", v)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, "MEAN")
	for _, v := range avg {
		fmt.Fprintf(w, "\t%.4f", v)
	}
	fmt.Fprintln(w)
	return w.Flush()
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := automation.RunScenario(ctx, sc, storage.New(dataDir))
	if len(results) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STEP\tRUN ID\tFRAMES\tENERGY\tSPREAD\tCONTAINMENT")
		for _, r := range results {
			m := r.Result.Metrics
			fmt.Fprintf(w, "%d\t%s\t%d\t%.4f\t%.3f\t%.3f\n",
				r.Step+1, r.RunID, r.Result.FramesRun, m["energy"], m["spread"], m["containment"])
		}
		if ferr := w.Flush(); ferr != nil && err == nil {
			err = ferr
		}
	}
	return err
}

func runParamSweep(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	results, err := automation.RunSweep(context.Background(), &automation.ParameterSweep{
		Base:     cfg,
		Param:    paramName,
		Min:      paramLo,
		Max:      paramHi,
		Steps:    paramN,
		Headless: !renderAll,
	})
	if err != nil {
		return err
	}

	names := metrics.Names()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, paramName)
	for _, n := range names {
		fmt.Fprintf(w, "\t%s", n)
	}
	fmt.Fprintln(w, "\tblobs")
	for _, r := range results {
		fmt.Fprintf(w, "%.4f", r.Value)
		for _, n := range names {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[n])
		}
		fmt.Fprintf(w, "\t%d\n", r.FinalBlobs)
	}
	return w.Flush()
}

func sweepThreshold(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	b, err := cfg.Backend()
	if err != nil {
		return err
	}
	loop, err := advance(cfg, atFrame)
	if err != nil {
		return err
	}

	sweep := analysis.NewThresholdSweep(analysis.Linspace(sweepLo, sweepHi, sweepN), cfg.Render.Width, cfg.Render.Height)
	sweep.Settings = cfg.RenderSettings()
	sweep.Backend = b

	snap := loop.Simulator().Snapshot()
	points, err := sweep.Run(context.Background(), snap, loop.Rig().Camera(loop.Time()))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THRESHOLD\tHITS\tCOVERAGE\tSTEPS\tBLOBS")
	for _, p := range points {
		fmt.Fprintf(w, "%.3f\t%d\t%.1f%%\t%.1f\t%d\n", p.Threshold, p.Hits, p.Coverage*100, p.MeanSteps, p.Blobs)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if cmd.Flags().Changed("target") {
		if best, ok := analysis.BestCoverage(points, sweepGoal); ok {
			fmt.Printf("\nclosest to %.1f%% coverage: threshold %.3f (%.1f%%)\n", sweepGoal*100, best.Threshold, best.Coverage*100)
		}
	}
	return nil
}

func benchScene(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	n := min(cfg.Frames, 120)
	backends := []compute.Backend{compute.NewSerialBackend(), compute.NewCPUBackend()}

	fmt.Printf("benchmarking %dx%d, %d frames\n\n", cfg.Render.Width, cfg.Render.Height, n)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BACKEND\tBALLS\tSKIP\tTIME\tFRAMES/SEC\tSTEPS")

	for _, b := range backends {
		for _, ballCount := range []int{4, 8, 16} {
			for _, skip := range []bool{false, true} {
				c := cfg.Clone()
				c.Balls = ballCount
				c.Scene = nil
				c.Render.SkipEmpty = skip
				loop, err := c.NewLoop(c.Seed, false)
				if err != nil {
					return err
				}
				loop.Simulator().SetBackend(b)
				loop.SetRenderer(raymarch.NewRenderer(c.RenderSettings(), b), c.Render.Width, c.Render.Height)

				start := time.Now()
				res, err := loop.Run(context.Background(), sim.RunConfig{Frames: n, Dt: c.Dt})
				if err != nil {
					return err
				}
				elapsed := time.Since(start)
				steps, _ := res.Series("mean_steps")
				fmt.Fprintf(w, "%s\t%d\t%v\t%v\t%.1f\t%.1f\n",
					b.Name(), ballCount, skip, elapsed.Round(time.Millisecond),
					float64(res.FramesRun)/elapsed.Seconds(), mean(steps))
			}
		}
	}
	return w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
