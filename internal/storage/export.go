package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/sim"
)

type ExportData struct {
	Metadata   RunMetadata      `json:"metadata"`
	Stats      []sim.FrameStats `json:"stats"`
	Trajectory [][]ExportedBall `json:"trajectory,omitempty"`
}

type ExportedBall struct {
	Position [3]float64 `json:"position"`
	Velocity [3]float64 `json:"velocity"`
	Radius   float64    `json:"radius"`
	Color    [3]float64 `json:"color"`
}

// ExportJSON writes a stored run, trajectory included when present, as one
// indented JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	stats, err := s.LoadStats(runID)
	if err != nil {
		return err
	}
	traj, err := s.LoadTrajectory(runID)
	if err != nil {
		traj = nil
	}

	data := ExportData{
		Metadata:   *meta,
		Stats:      stats,
		Trajectory: make([][]ExportedBall, len(traj)),
	}
	for i, balls := range traj {
		data.Trajectory[i] = exportBalls(balls)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func exportBalls(balls []field.Metaball) []ExportedBall {
	out := make([]ExportedBall, len(balls))
	for i, b := range balls {
		out[i] = ExportedBall{
			Position: b.Position,
			Velocity: b.Velocity,
			Radius:   b.Radius,
			Color:    b.Color,
		}
	}
	return out
}
