package dynamic

import (
	"math"

	apperrors "nomcli/internal/errors"
	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

// GlobalAnchor orients the joint solution once, after convergence. The
// named legislator's period-averaged coordinate on dimension d must match
// ExpectedSigns[d] (−1 or +1; 0 leaves the dimension to the row fallback).
// A named anchor absent from every period falls back to the row policy
// with a warning.
type GlobalAnchor struct {
	LegislatorID  string    `json:"legislator_id"`
	ExpectedSigns []float64 `json:"expected_signs"`
}

// Options controls a multi-period joint estimation run.
type Options struct {
	// Dims is the number of spatial dimensions D.
	Dims int `json:"dims"`
	// Order is the polynomial drift order: 0 static, 1 linear, 2 quadratic.
	Order int `json:"order"`
	// MinVotes drops legislators below this valid-ballot count per period.
	MinVotes int `json:"min_votes"`
	// Lop drops votes whose minority share of valid ballots is below it.
	Lop float64 `json:"lop"`
	// MaxIterations bounds the joint alternating sweeps.
	MaxIterations int `json:"max_iterations"`
	// Tolerance is the aggregate log-likelihood gain below which the joint
	// fit converges.
	Tolerance float64 `json:"tolerance"`
	// BetaWInterval re-fits the shared β and weights every k-th sweep.
	BetaWInterval int `json:"beta_w_interval"`
	// Seed makes the run deterministic.
	Seed int64 `json:"seed"`
	// MaxConcurrency caps parallel workers; 0 means NumCPU.
	MaxConcurrency int `json:"max_concurrency"`
	// Anchor resolves global sign indeterminacy after the fit.
	Anchor GlobalAnchor `json:"anchor"`
}

// DefaultOptions returns the standard linear-drift configuration. The
// per-period minimum ballot count is lower than the single-period default
// because trajectory smoothing pools information across periods.
func DefaultOptions() Options {
	return Options{
		Dims:          2,
		Order:         1,
		MinVotes:      5,
		Lop:           0.025,
		MaxIterations: 30,
		Tolerance:     1e-4,
		BetaWInterval: 3,
		Seed:          42,
	}
}

// IsValid reports whether the options are internally consistent.
func (o Options) IsValid() bool { return o.Validate() == nil }

// Validate checks the options, returning an input error on the first
// violation.
func (o Options) Validate() error {
	switch {
	case o.Dims < 1:
		return apperrors.Input("dims must be >= 1, got %d", o.Dims)
	case o.Order < 0:
		return apperrors.Input("order must be >= 0, got %d", o.Order)
	case o.MinVotes < 0:
		return apperrors.Input("min_votes must be >= 0, got %d", o.MinVotes)
	case o.Lop < 0 || o.Lop >= 0.5:
		return apperrors.Input("lop must be in [0, 0.5), got %g", o.Lop)
	case o.MaxIterations < 1:
		return apperrors.Input("max_iterations must be >= 1, got %d", o.MaxIterations)
	case o.Tolerance <= 0 || math.IsNaN(o.Tolerance):
		return apperrors.Input("tolerance must be > 0, got %g", o.Tolerance)
	case o.BetaWInterval < 1:
		return apperrors.Input("beta_w_interval must be >= 1, got %d", o.BetaWInterval)
	case o.MaxConcurrency < 0:
		return apperrors.Input("max_concurrency must be >= 0, got %d", o.MaxConcurrency)
	}
	for d, sign := range o.Anchor.ExpectedSigns {
		if sign != 0 && sign != 1 && sign != -1 {
			return apperrors.Input("expected sign for dimension %d must be -1, 0 or +1, got %g", d+1, sign)
		}
	}
	return nil
}

// Trajectory is one legislator's fitted drift: Coeffs[d] holds the
// polynomial coefficients for dimension d in ascending powers of the
// centered period index τ.
type Trajectory struct {
	LegislatorID string      `json:"legislator_id"`
	Coeffs       [][]float64 `json:"coeffs"`
}

// At evaluates the trajectory on dimension d at centered period index tau.
func (t Trajectory) At(d int, tau float64) float64 {
	pos, pow := 0.0, 1.0
	for _, c := range t.Coeffs[d] {
		pos += c * pow
		pow *= tau
	}
	return pos
}

// PeriodEstimate is one period's slice of the joint fit.
type PeriodEstimate struct {
	Period      int                   `json:"period"`
	Tau         float64               `json:"tau"`
	Legislators []nominate.IdealPoint `json:"legislators"`
	Bills       []nominate.BillParams `json:"bills"`
	Stats       nominate.FitStats     `json:"stats"`
}

// Result is a completed multi-period estimation.
type Result struct {
	RunID        string               `json:"run_id"`
	Dims         int                  `json:"dims"`
	Order        int                  `json:"order"`
	Trajectories []Trajectory         `json:"trajectories"`
	Periods      []PeriodEstimate     `json:"periods"`
	Beta         float64              `json:"beta"`
	Weights      []float64            `json:"weights"`
	LogLik       float64              `json:"log_likelihood"`
	Converged    bool                 `json:"converged"`
	Iterations   int                  `json:"iterations"`
	Trace        []float64            `json:"trace"`
	Excluded     []rollcall.Exclusion `json:"excluded,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
}
