// Package dynamic estimates legislator trajectories across multiple
// legislative periods by bridging per-period spatial fits with polynomial
// drift.
//
// Each legislator's position on each dimension is a polynomial in the
// centered period index τ_t = t − (T−1)/2. The joint fit alternates
// per-period bill steps with a smoothing legislator step: raw per-period
// positions are re-estimated, then replaced by the values of a weighted
// polynomial fit through them, with each period weighted by the
// legislator's valid-ballot count there. β and the dimension weights are
// shared across periods and re-fit jointly.
//
// Identification requires at least order+2 periods; fewer is an
// insufficient-data error. Sign indeterminacy is resolved once, globally,
// after the joint fit converges, so a legislator's trajectory is never
// broken by per-period flips.
package dynamic
