// Package compute provides the execution backends behind the frame loop.
//
// A [Backend] does the two data-parallel jobs of a frame:
//
//   - PairImpulses: all-pairs metaball attraction/repulsion
//   - ParallelRows: fan-out of per-pixel raymarching over row bands
//
// The CPU backend spreads work over runtime.NumCPU goroutines; the serial
// backend keeps everything on the caller's goroutine and is the reference
// for determinism tests:
//
//	backend := compute.GetBackend()
//	backend.PairImpulses(positions, radii, compute.DefaultPairParams(), impulses)
//
// Both backends produce bit-identical pair impulses: every body sums the
// contributions of the others in index order regardless of worker layout.
package compute
