// Package propagation computes participant network values.
//
// A participant's value is its profile-derived base plus the strength-weighted
// values of its neighbours:
//
//	v = base + A·v
//
// LocalValue is the single-step approximation used on the interactive path.
// Converge iterates the whole graph to a fixed point for the periodic job.
// Both clamp results to [0, ceiling], so values stay finite even when the
// spectral radius of A is above one. Nothing here performs I/O.
package propagation
