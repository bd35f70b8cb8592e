// Package shading turns a scale-space of blurred elevation fields into a
// tinted, translucent relief wash.
//
// For every pixel and every radius r in Radii the concavity at that scale is
//
//	delta_r = max(0, blur_r - original)
//
// The deltas are combined with per-zoom weights and mapped through a
// saturating Response into an alpha value:
//
//	alpha = respond(Σ delta_r * weight_r)
//
// Ridges produce no delta, so only valleys and depressions are shaded.
// Shade is the single per-pixel formula; Composite applies it to whole
// fields, and the GPU backend evaluates the same expression in WGSL.
package shading
