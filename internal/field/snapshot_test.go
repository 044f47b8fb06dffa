package field

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSnapshotTruncatesAtCapacity(t *testing.T) {
	balls := RandomBalls(4, MaxBalls+5, nil)
	snap := NewSnapshot(balls)

	if snap.Count != MaxBalls {
		t.Fatalf("expected count %d, got %d", MaxBalls, snap.Count)
	}
	for i := 0; i < MaxBalls; i++ {
		if snap.Positions[i] != balls[i].Position || snap.Radii[i] != balls[i].Radius {
			t.Fatalf("slot %d does not match ball %d", i, i)
		}
	}
}

func TestSnapshotPackClearsStaleSlots(t *testing.T) {
	var snap Snapshot
	snap.Pack(RandomBalls(4, 6, nil))
	snap.Pack([]Metaball{{Position: mgl64.Vec3{1, 2, 3}, Radius: 1}})

	if snap.Count != 1 {
		t.Fatalf("expected count 1, got %d", snap.Count)
	}
	for i := 1; i < MaxBalls; i++ {
		if snap.Radii[i] != 0 {
			t.Errorf("slot %d still holds radius %v", i, snap.Radii[i])
		}
	}
}

func TestSnapshotLenClamps(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{-3, 0},
		{0, 0},
		{5, 5},
		{MaxBalls, MaxBalls},
	}
	for _, tt := range tests {
		s := Snapshot{Count: tt.count}
		if got := s.Len(); got != tt.want {
			t.Errorf("Count=%d: expected %d, got %d", tt.count, tt.want, got)
		}
	}

	var nilSnap *Snapshot
	if nilSnap.Len() != 0 {
		t.Error("expected nil snapshot to report zero balls")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewSimulator(RandomBalls(2, 3, nil), DefaultParams())
	var snap Snapshot
	s.SnapshotInto(&snap)
	before := snap.Positions[0]

	s.Balls()[0].Position = mgl64.Vec3{7, 7, 7}
	if snap.Positions[0] != before {
		t.Error("snapshot aliased simulator state")
	}
}
