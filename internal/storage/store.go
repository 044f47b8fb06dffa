package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/sim"
)

var (
	ErrRunNotFound = errors.New("storage: run not found")
	ErrNoScene     = errors.New("storage: run has no recorded scene")
)

const (
	metadataFile   = "metadata.json"
	framesFile     = "frames.csv"
	trajectoryFile = "trajectory.csv"
	sceneFile      = "scene.yaml"
	framesDir      = "frames"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// FramesDir is where a run's PNG frames are written.
func (s *Store) FramesDir(runID string) string {
	return filepath.Join(s.baseDir, runID, framesDir)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Scene     string             `json:"scene"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Balls     int                `json:"balls"`
	Dt        float64            `json:"dt"`
	Frames    int                `json:"frames"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
	Threshold float64            `json:"threshold"`
	Backend   string             `json:"backend"`
	Images    int                `json:"images,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Create reserves a fresh run directory named after the scene and returns
// its id.
func (s *Store) Create(scene string) (string, error) {
	if scene == "" {
		scene = "run"
	}
	base := fmt.Sprintf("%s_%s", scene, time.Now().Format("20060102-150405"))
	runID := base
	for i := 1; ; i++ {
		err := os.Mkdir(s.Dir(runID), 0755)
		if err == nil {
			return runID, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

// Save writes metadata, per-frame stats and, when recorded, the trajectory
// of a finished run into the directory reserved by Create.
func (s *Store) Save(runID string, meta RunMetadata, result *sim.Result) error {
	runDir := s.Dir(runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return err
	}

	meta.ID = runID
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Frames = result.FramesRun
	meta.Metrics = result.Metrics

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return err
	}
	if err := writeCSV(filepath.Join(runDir, framesFile), statsHeader, statsRows(result.Stats)); err != nil {
		return err
	}
	if len(result.Trajectory) > 0 {
		if err := writeCSV(filepath.Join(runDir, trajectoryFile), trajectoryHeader, trajectoryRows(result.Trajectory)); err != nil {
			return err
		}
	}
	return nil
}

// SaveScene records the resolved config a run was made with.
func (s *Store) SaveScene(runID string, cfg *config.Config) error {
	return config.Save(filepath.Join(s.Dir(runID), sceneFile), cfg)
}

// LoadScene returns the config recorded by SaveScene.
func (s *Store) LoadScene(runID string) (*config.Config, error) {
	cfg, err := config.Load(filepath.Join(s.Dir(runID), sceneFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoScene, runID)
	}
	return cfg, err
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
