// Package field simulates a set of moving metaballs.
//
// A [Simulator] owns every [Metaball] of one scene and advances them with a
// fixed frame-normalized integrator:
//
//   - [Simulator.Step]: external impulses, integration, boundary reflection, damping
//   - [Simulator.ApplyPairwiseForces]: long-range attraction, near-contact repulsion
//   - [Simulator.ApplyPointForce]: pointer-driven pull toward a world point
//
// After each frame the ball state is packed into a fixed-capacity [Snapshot]
// that the renderer reads without touching the simulator.
//
// # Example
//
//	balls := field.RandomBalls(42, field.DefaultBallCount, field.DefaultPalette)
//	s := field.NewSimulator(balls, field.DefaultParams())
//	s.Step(1.0 / 60)
//	s.ApplyPairwiseForces()
//	var snap field.Snapshot
//	s.SnapshotInto(&snap)
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. The frame loop must not call
// Step while a render of the previous snapshot is still in flight.
package field
