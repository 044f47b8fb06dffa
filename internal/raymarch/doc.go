// Package raymarch renders a metaball field snapshot by sphere tracing.
//
// The field is F(p) = Σ r² / (|p - c|² + ε). The visible surface is the set
// where F crosses Settings.Threshold. Each pixel marches its camera ray with
// a conservative adaptive step, then shades the first sample above the
// threshold with a gradient normal, influence-weighted colour, lambert
// lighting and a fresnel rim.
//
// Rays that miss produce a Transparent pixel; only malformed input (frame
// size, camera, settings) yields an error.
//
// The same kernel is available as GLSL through FragmentShader and NewUniforms
// for presenters that render on the GPU.
package raymarch
