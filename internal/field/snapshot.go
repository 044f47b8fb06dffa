package field

import "github.com/go-gl/mathgl/mgl64"

// Snapshot is the read-only view of the scene handed to the renderer.
type Snapshot struct {
	Positions [MaxBalls]mgl64.Vec3
	Radii     [MaxBalls]float64
	Colors    [MaxBalls]mgl64.Vec3
	Count     int
}

// NewSnapshot packs balls into a snapshot, ignoring any beyond MaxBalls.
func NewSnapshot(balls []Metaball) *Snapshot {
	s := &Snapshot{}
	s.Pack(balls)
	return s
}

// Pack overwrites s with balls, ignoring any beyond MaxBalls.
func (s *Snapshot) Pack(balls []Metaball) {
	n := len(balls)
	if n > MaxBalls {
		n = MaxBalls
	}
	for i := 0; i < n; i++ {
		s.Positions[i] = balls[i].Position
		s.Radii[i] = balls[i].Radius
		s.Colors[i] = balls[i].Color
	}
	for i := n; i < MaxBalls; i++ {
		s.Positions[i] = mgl64.Vec3{}
		s.Radii[i] = 0
		s.Colors[i] = mgl64.Vec3{}
	}
	s.Count = n
}

// Len returns Count clamped to [0, MaxBalls].
func (s *Snapshot) Len() int {
	if s == nil || s.Count < 0 {
		return 0
	}
	if s.Count > MaxBalls {
		assertCount(s.Count)
		return MaxBalls
	}
	return s.Count
}

// SnapshotInto packs the current ball state into dst.
func (s *Simulator) SnapshotInto(dst *Snapshot) {
	dst.Pack(s.balls)
}

// Snapshot returns a freshly packed snapshot.
func (s *Simulator) Snapshot() *Snapshot {
	return NewSnapshot(s.balls)
}
