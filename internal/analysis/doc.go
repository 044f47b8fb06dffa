// Package analysis provides post-run tools for metaball scenes.
//
//   - [Blobs]: number of connected surfaces at a threshold
//   - [ThresholdSweep]: coverage and blob count over a grid of thresholds
//   - [PowerSpectrum] and [DominantFrequency]: periodicity of a stats series
//   - [LyapunovExponent]: sensitivity of the ball dynamics to a small nudge
//
// # Merged Surfaces
//
// Two unit balls three units apart share one surface at threshold 0.8 and
// split in two at six units:
//
//	snap := field.NewSnapshot(balls)
//	if analysis.Blobs(snap, 0.8) == 1 {
//	    // bridged
//	}
package analysis
