package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
)

func testResult() *sim.Result {
	ball := field.Metaball{
		Position: mgl64.Vec3{1, 2, 3},
		Velocity: mgl64.Vec3{0.1, 0, -0.1},
		Radius:   1.25,
		Color:    mgl64.Vec3{1, 0.3, 0.3},
	}
	moved := ball
	moved.Position = mgl64.Vec3{1.1, 2, 2.9}
	return &sim.Result{
		Stats: []sim.FrameStats{
			{Frame: 0, Time: 0, Balls: 1, KineticEnergy: 0.5, InBounds: true, Rendered: true, Hits: 10, Coverage: 0.25, MeanSteps: 12.5, Blobs: 1},
			{Frame: 1, Time: 0.016, Balls: 1, KineticEnergy: 0.4, InBounds: true, Blobs: -1},
		},
		Trajectory: [][]field.Metaball{{ball}, {moved}, {moved, ball}},
		Metrics:    map[string]float64{"energy": 0.45},
		FramesRun:  2,
	}
}

func saveRun(t *testing.T, st *Store) string {
	t.Helper()
	runID, err := st.Create("test")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := st.Save(runID, RunMetadata{Scene: "test", Seed: 42, Dt: 0.016}, testResult()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	return runID
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID := saveRun(t, st)

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.ID != runID || meta.Seed != 42 || meta.Frames != 2 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if meta.Metrics["energy"] != 0.45 {
		t.Errorf("expected energy 0.45, got %f", meta.Metrics["energy"])
	}

	stats, err := st.LoadStats(runID)
	if err != nil {
		t.Fatalf("load stats failed: %v", err)
	}
	want := testResult().Stats
	if len(stats) != len(want) {
		t.Fatalf("expected %d stats, got %d", len(want), len(stats))
	}
	for i := range want {
		if stats[i] != want[i] {
			t.Errorf("frame %d: expected %+v, got %+v", i, want[i], stats[i])
		}
	}

	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}
	wantTraj := testResult().Trajectory
	if len(traj) != len(wantTraj) || len(traj[2]) != 2 {
		t.Fatalf("unexpected trajectory shape: %d frames", len(traj))
	}
	if traj[1][0] != wantTraj[1][0] {
		t.Errorf("expected %+v, got %+v", wantTraj[1][0], traj[1][0])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	a := saveRun(t, st)
	b := saveRun(t, st)
	if a == b {
		t.Fatal("expected distinct run ids")
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	runID := saveRun(t, st)

	for _, name := range []string{metadataFile, framesFile, trajectoryFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestStoreScene(t *testing.T) {
	st := New(t.TempDir())
	runID := saveRun(t, st)
	if _, err := st.LoadScene(runID); !errors.Is(err, ErrNoScene) {
		t.Errorf("expected ErrNoScene before SaveScene, got %v", err)
	}

	cfg := config.GetPreset("still")
	cfg.Sim.Damping = 0.9
	cfg.Sim.Bound = 5
	if err := st.SaveScene(runID, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := st.LoadScene(runID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sim != cfg.Sim || got.Camera.Mode != "fixed" {
		t.Errorf("expected recorded sim %+v, got %+v", cfg.Sim, got.Sim)
	}
}

func TestStoreMissingRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if _, err := st.LoadStats("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	runID := saveRun(t, st)

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatal(err)
	}
	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if data.Metadata.ID != runID || len(data.Stats) != 2 || len(data.Trajectory) != 3 {
		t.Errorf("unexpected export: %+v", data.Metadata)
	}
	if data.Trajectory[0][0].Radius != 1.25 {
		t.Errorf("expected radius 1.25, got %f", data.Trajectory[0][0].Radius)
	}
}

func TestFrameWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	w, err := NewFrameWriter(dir, raymarch.Background, 2, 2)
	if err != nil {
		t.Fatal(err)
	}

	frame := raymarch.NewFrame(6, 4)
	frame.Pix[3] = raymarch.Pixel{R: 1, A: 1}
	for i := 0; i < 5; i++ {
		w.OnFrame(sim.FrameStats{Frame: i}, nil, frame)
	}
	w.OnFrame(sim.FrameStats{Frame: 5}, nil, nil)
	if err := w.Wait(); err != nil {
		t.Fatal(err)
	}
	if w.Written() != 5 {
		t.Errorf("expected 5 frames written, got %d", w.Written())
	}
	if _, err := os.Stat(filepath.Join(dir, "00004.png")); err != nil {
		t.Errorf("expected 00004.png: %v", err)
	}
}

func TestImagePool(t *testing.T) {
	p := NewImagePool(3, 2)
	img := p.Get()
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
	p.Put(img)
	p.Put(raymarch.NewFrame(1, 1).Composite(raymarch.Background))
}
