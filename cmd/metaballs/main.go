package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/gui"
	"github.com/san-kum/metaballs/internal/viz"
)

var (
	dataDir  string
	logLevel string

	// Scene flags
	configFile string
	preset     string
	seed       int64
	balls      int
	frames     int
	dt         float64
	width      int
	height     int
	threshold  float64
	maxSteps   int
	backend    string
	workers    int
	skipEmpty  bool

	// Output flags
	outPath   string
	scale     int
	savePNG   bool
	gifPath   string
	gifEvery  int
	headless  bool
	renderAll bool
	svgOut    string
	useCPU    bool
	column    string
	plane     string
	numRuns   int
	sweepLo   float64
	sweepHi   float64
	sweepN    int
	sweepGoal float64
	atFrame   int
	paramName string
	paramLo   float64
	paramHi   float64
	paramN    int
)

// main registers the commands and opens the window when no subcommand is
// given. It exits with status 1 if the command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "metaballs",
		Short:         "metaball field simulation and raymarch renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
		RunE: runGUI,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".metaballs", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	addSceneFlags(rootCmd)
	rootCmd.Flags().BoolVar(&useCPU, "cpu", false, "render on the CPU instead of the shader")

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "render one frame to PNG",
		Args:  cobra.NoArgs,
		RunE:  renderFrame,
	}
	addSceneFlags(renderCmd)
	renderCmd.Flags().StringVarP(&outPath, "out", "o", "metaballs.png", "output file")
	renderCmd.Flags().IntVar(&scale, "scale", 1, "integer upscale factor")
	renderCmd.Flags().IntVar(&atFrame, "at", 0, "frames to simulate before rendering")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a scene and store the results",
		Args:  cobra.NoArgs,
		RunE:  runScene,
	}
	addSceneFlags(runCmd)
	runCmd.Flags().BoolVar(&savePNG, "png", false, "write every frame as PNG into the run directory")
	runCmd.Flags().StringVar(&gifPath, "gif", "", "write an animated GIF")
	runCmd.Flags().IntVar(&gifEvery, "gif-every", 2, "keep every n-th frame in the GIF")
	runCmd.Flags().IntVar(&scale, "scale", 1, "integer upscale factor for images")
	runCmd.Flags().BoolVar(&headless, "headless", false, "simulate without rendering")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a per-frame statistic",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "statistic to plot (default energy and coverage)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export per-frame statistics to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "draw ball trajectories as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&plane, "plane", "xz", "projection plane (xy, xz, zy)")
	exportSVGCmd.Flags().StringVarP(&svgOut, "out", "o", "", "output file (default stdout)")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "energy spectrum, blob count and trajectory analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	addSceneFlags(analyzeCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "render one scene across a range of thresholds",
		Args:  cobra.NoArgs,
		RunE:  sweepThreshold,
	}
	addSceneFlags(sweepCmd)
	sweepCmd.Flags().Float64Var(&sweepLo, "from", 0.2, "lowest threshold")
	sweepCmd.Flags().Float64Var(&sweepHi, "to", 2.0, "highest threshold")
	sweepCmd.Flags().IntVar(&sweepN, "steps", 10, "number of thresholds")
	sweepCmd.Flags().Float64Var(&sweepGoal, "target", 0, "report the threshold closest to this coverage")
	sweepCmd.Flags().IntVar(&atFrame, "at", 0, "frames to simulate before sweeping")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "run a scene from several seeds concurrently",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addSceneFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 8, "number of seeds")
	ensembleCmd.Flags().BoolVar(&renderAll, "render", false, "render every frame for coverage statistics")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and store every step of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	paramSweepCmd := &cobra.Command{
		Use:   "param-sweep",
		Short: "run a scene across a range of one parameter",
		Args:  cobra.NoArgs,
		RunE:  runParamSweep,
	}
	addSceneFlags(paramSweepCmd)
	paramSweepCmd.Flags().StringVar(&paramName, "param", "attraction", "parameter to vary")
	paramSweepCmd.Flags().Float64Var(&paramLo, "from", 0, "first value")
	paramSweepCmd.Flags().Float64Var(&paramHi, "to", 0.02, "last value")
	paramSweepCmd.Flags().IntVar(&paramN, "steps", 5, "number of values")
	paramSweepCmd.Flags().BoolVar(&renderAll, "render", false, "render every frame for coverage statistics")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "benchmark simulation and rendering",
		Args:  cobra.NoArgs,
		RunE:  benchScene,
	}
	addSceneFlags(benchCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "render the scene live in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return viz.RunLive(cfg)
		},
	}
	addSceneFlags(liveCmd)

	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "pick a preset, then run it live in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	guiCmd := &cobra.Command{
		Use:   "gui",
		Short: "open the scene in a window",
		Args:  cobra.NoArgs,
		RunE:  runGUI,
	}
	addSceneFlags(guiCmd)
	guiCmd.Flags().BoolVar(&useCPU, "cpu", false, "render on the CPU instead of the shader")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "scene configuration files",
	}
	configInitCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "write a scene file from defaults, a preset or flags",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	addSceneFlags(configInitCmd)
	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(renderCmd, runCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, exportSVGCmd,
		analyzeCmd, sweepCmd, ensembleCmd, scenarioCmd, paramSweepCmd, benchCmd, liveCmd, tuiCmd, guiCmd, presetsCmd, configCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "scene file (yaml)")
	f.StringVar(&preset, "preset", "", "start from a preset")
	f.Int64Var(&seed, "seed", config.DefaultSeed, "random seed")
	f.IntVar(&balls, "balls", 8, "number of random balls")
	f.IntVar(&frames, "frames", config.DefaultFrames, "frames to simulate")
	f.Float64Var(&dt, "dt", config.DefaultDt, "seconds per frame")
	f.IntVar(&width, "width", config.DefaultWidth, "frame width in pixels")
	f.IntVar(&height, "height", config.DefaultHeight, "frame height in pixels")
	f.Float64Var(&threshold, "threshold", 0.8, "surface threshold")
	f.IntVar(&maxSteps, "max-steps", 64, "march steps per ray")
	f.StringVar(&backend, "backend", "cpu", "compute backend (cpu, serial)")
	f.IntVar(&workers, "workers", 0, "render workers (0 = one per CPU)")
	f.BoolVar(&skipEmpty, "skip-empty", true, "start rays where they first reach a ball")
}

// resolveConfig layers defaults, preset, scene file and changed flags, in
// that order. It also returns a scene name for run ids.
func resolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	cfg := config.DefaultConfig()
	name := "default"

	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, "", fmt.Errorf("unknown preset: %s (available: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		name = preset
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		name = strings.TrimSuffix(filepath.Base(configFile), filepath.Ext(configFile))
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("balls") {
		cfg.Balls = balls
		cfg.Scene = nil
	}
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("width") {
		cfg.Render.Width = width
	}
	if flags.Changed("height") {
		cfg.Render.Height = height
	}
	if flags.Changed("threshold") {
		cfg.Render.Threshold = threshold
	}
	if flags.Changed("max-steps") {
		cfg.Render.MaxSteps = maxSteps
	}
	if flags.Changed("backend") {
		cfg.Sim.Backend = backend
	}
	if flags.Changed("workers") {
		cfg.Render.Workers = workers
	}
	if flags.Changed("skip-empty") {
		cfg.Render.SkipEmpty = skipEmpty
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	log.Debug("scene resolved", "scene", name, "seed", cfg.Seed, "balls", cfg.Balls, "frames", cfg.Frames)
	return cfg, name, nil
}

func runGUI(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	return gui.Run(cfg, !useCPU)
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("presets:")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		n := p.Balls
		if len(p.Scene) > 0 {
			n = len(p.Scene)
		}
		fmt.Printf("  %-10s %2d balls  camera %s\n", name, n, p.Camera.Mode)
	}
	return nil
}

func initConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	path := "metaballs.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
