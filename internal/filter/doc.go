// Package filter implements the Gaussian scale-space used by terrain
// shading: normalized 1D kernels and a separable blur over elevation fields.
//
// A blur is two O(w*h*(2r+1)) passes, horizontal then vertical, instead of
// one O(w*h*(2r+1)^2) 2D convolution. Samples outside the field are clamped
// to the nearest edge, so flat terrain stays flat up to the border.
//
// Rows and columns are split into bands and run on a parallel.WorkerPool.
// Cancellation is checked at every band and between the two passes.
package filter
