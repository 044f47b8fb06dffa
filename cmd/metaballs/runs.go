package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/metaballs/internal/analysis"
	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/export"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/sim"
	"github.com/san-kum/metaballs/internal/storage"
	"github.com/san-kum/metaballs/internal/viz"
)

// csvColumns is the export-csv column order.
var csvColumns = []string{"time", "balls", "energy", "hits", "coverage", "mean_steps", "blobs"}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tFRAMES\tBALLS\tDT\tTHRESHOLD\tBACKEND")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4fs\t%.2f\t%s\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Balls,
			run.Dt,
			run.Threshold,
			run.Backend,
		)
	}
	return w.Flush()
}

func loadResult(runID string) (*storage.RunMetadata, *sim.Result, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	stats, err := st.LoadStats(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(stats) == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, &sim.Result{Stats: stats, Metrics: meta.Metrics, FramesRun: len(stats)}, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, result, err := loadResult(args[0])
	if err != nil {
		return err
	}

	columns := []string{"energy", "coverage"}
	if column != "" {
		columns = []string{column}
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d\n\n", len(result.Stats))

	for _, c := range columns {
		data, ok := result.Series(c)
		if !ok {
			return fmt.Errorf("unknown column %q (available: %s)", c, strings.Join(csvColumns, ", "))
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(c+" vs frame"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, result, err := loadResult(args[0])
	if err != nil {
		return err
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write(append([]string{"frame"}, csvColumns...)); err != nil {
		return err
	}
	series := make([][]float64, len(csvColumns))
	for i, c := range csvColumns {
		series[i], _ = result.Series(c)
	}
	for i, s := range result.Stats {
		row := []string{strconv.Itoa(s.Frame)}
		for _, col := range series {
			row = append(row, strconv.FormatFloat(col[i], 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func exportSVG(cmd *cobra.Command, args []string) error {
	traj, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	svg, err := export.TrajectorySVG(traj, export.Plane(plane), 600, 600)
	if err != nil {
		return err
	}
	if svgOut == "" {
		_, err = fmt.Print(svg)
		return err
	}
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", svgOut)
	return nil
}

// recordedConfig returns the config a run was made with, falling back to the
// command's scene flags for runs stored without one.
func recordedConfig(cmd *cobra.Command, runID string) (*config.Config, error) {
	cfg, err := storage.New(dataDir).LoadScene(runID)
	if errors.Is(err, storage.ErrNoScene) {
		log.Warn("run has no recorded scene, using flags", "run", runID)
		cfg, _, err = resolveConfig(cmd)
	}
	return cfg, err
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	meta, result, err := loadResult(runID)
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	energy, _ := result.Series("energy")
	n := 1
	for n < len(energy) {
		n *= 2
	}
	padded := make([]float64, n)
	copy(padded, energy)
	ps := analysis.PowerSpectrum(padded)
	if plotData := ps[:max(len(ps)/4, 1)]; len(plotData) > 1 {
		fmt.Println(asciigraph.Plot(plotData,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (kinetic energy)"),
		))
		fmt.Println()
	}
	freq, power := analysis.DominantFrequency(energy, meta.Dt)
	fmt.Printf("dominant frequency: %.3f hz (power %.3g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	traj, err := storage.New(dataDir).LoadTrajectory(runID)
	if err != nil || len(traj) == 0 {
		fmt.Println("\nno trajectory recorded")
		return nil
	}

	last := traj[len(traj)-1]
	snap := field.NewSnapshot(last)
	fmt.Printf("\nfinal blobs at threshold %.2f: %d\n", meta.Threshold, analysis.Blobs(snap, meta.Threshold))

	first, final := analysis.Centroid(traj[0]), analysis.Centroid(last)
	fmt.Printf("centroid: (%.2f, %.2f, %.2f) -> (%.2f, %.2f, %.2f), moved %.3f\n",
		first[0], first[1], first[2], final[0], final[1], final[2], final.Sub(first).Len())

	cfg, err := recordedConfig(cmd, runID)
	if err != nil {
		return err
	}
	lyap := analysis.LyapunovExponent(traj[0], cfg.FieldParams(), meta.Dt, min(len(traj)-1, 300), 1e-6)
	fmt.Printf("lyapunov estimate: %.4f /s\n", lyap)

	canvas := viz.NewCanvas(40, 12)
	bound := cfg.Sim.Bound
	dw, dh := canvas.Dots()
	k := float64(min(dw, dh)-1) / (2 * bound)
	for _, frame := range traj {
		c := analysis.Centroid(frame)
		canvas.Set((dw-1)/2+int(c[0]*k), (dh-1)/2+int(c[2]*k))
	}
	canvas.PlotTopDown(snap.Positions[:snap.Len()], snap.Radii[:snap.Len()], bound)
	fmt.Println("\ncentroid path and final balls (top-down, x/z):")
	fmt.Println(canvas.String())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nMETRIC\tVALUE")
	for _, name := range sortedKeys(meta.Metrics) {
		fmt.Fprintf(w, "%s\t%.6f\n", name, meta.Metrics[name])
	}
	return w.Flush()
}
