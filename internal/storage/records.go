package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/sim"
)

var statsHeader = []string{"frame", "time", "balls", "energy", "in_bounds", "rendered", "hits", "coverage", "mean_steps", "blobs"}

var trajectoryHeader = []string{"frame", "ball", "x", "y", "z", "vx", "vy", "vz", "radius", "r", "g", "b"}

func statsRows(stats []sim.FrameStats) [][]string {
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{
			strconv.Itoa(s.Frame),
			ftoa(s.Time),
			strconv.Itoa(s.Balls),
			ftoa(s.KineticEnergy),
			strconv.FormatBool(s.InBounds),
			strconv.FormatBool(s.Rendered),
			strconv.Itoa(s.Hits),
			ftoa(s.Coverage),
			ftoa(s.MeanSteps),
			strconv.Itoa(s.Blobs),
		}
	}
	return rows
}

func trajectoryRows(traj [][]field.Metaball) [][]string {
	rows := make([][]string, 0, len(traj)*field.DefaultBallCount)
	for f, balls := range traj {
		for i, b := range balls {
			rows = append(rows, []string{
				strconv.Itoa(f), strconv.Itoa(i),
				ftoa(b.Position[0]), ftoa(b.Position[1]), ftoa(b.Position[2]),
				ftoa(b.Velocity[0]), ftoa(b.Velocity[1]), ftoa(b.Velocity[2]),
				ftoa(b.Radius),
				ftoa(b.Color[0]), ftoa(b.Color[1]), ftoa(b.Color[2]),
			})
		}
	}
	return rows
}

// LoadStats reads a run's frames.csv.
func (s *Store) LoadStats(runID string) ([]sim.FrameStats, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), framesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	stats := make([]sim.FrameStats, 0, len(records))
	for line, rec := range records {
		if len(rec) != len(statsHeader) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", framesFile, line+2, len(statsHeader), len(rec))
		}
		p := parser{rec: rec}
		st := sim.FrameStats{
			Frame:         p.int(0),
			Time:          p.float(1),
			Balls:         p.int(2),
			KineticEnergy: p.float(3),
			InBounds:      p.bool(4),
			Rendered:      p.bool(5),
			Hits:          p.int(6),
			Coverage:      p.float(7),
			MeanSteps:     p.float(8),
			Blobs:         p.int(9),
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", framesFile, line+2, p.err)
		}
		stats = append(stats, st)
	}
	return stats, nil
}

// LoadTrajectory reads a run's trajectory.csv, one ball slice per frame.
func (s *Store) LoadTrajectory(runID string) ([][]field.Metaball, error) {
	records, err := readCSV(filepath.Join(s.Dir(runID), trajectoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s has no trajectory", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var traj [][]field.Metaball
	for line, rec := range records {
		if len(rec) != len(trajectoryHeader) {
			return nil, fmt.Errorf("%s line %d: expected %d fields, got %d", trajectoryFile, line+2, len(trajectoryHeader), len(rec))
		}
		p := parser{rec: rec}
		frame := p.int(0)
		b := field.Metaball{
			Position: mgl64.Vec3{p.float(2), p.float(3), p.float(4)},
			Velocity: mgl64.Vec3{p.float(5), p.float(6), p.float(7)},
			Radius:   p.float(8),
			Color:    mgl64.Vec3{p.float(9), p.float(10), p.float(11)},
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, line+2, p.err)
		}
		if frame < 0 || frame > len(traj) {
			return nil, fmt.Errorf("%s line %d: frame %d out of order", trajectoryFile, line+2, frame)
		}
		if frame == len(traj) {
			traj = append(traj, nil)
		}
		traj[frame] = append(traj[frame], b)
	}
	return traj, nil
}

// parser keeps the first conversion error of a record.
type parser struct {
	rec []string
	err error
}

func (p *parser) float(i int) float64 {
	v, err := strconv.ParseFloat(p.rec[i], 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) int(i int) int {
	v, err := strconv.Atoi(p.rec[i])
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *parser) bool(i int) bool {
	v, err := strconv.ParseBool(p.rec[i])
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}
