package nominate

import (
	"math"

	apperrors "nomcli/internal/errors"
	"nomcli/internal/rollcall"
)

// AnchorKind selects how sign indeterminacy is resolved per dimension.
type AnchorKind int

const (
	// AnchorRowFallback orients every dimension by the first and last matrix
	// rows: the first row is expected negative, the last row positive.
	AnchorRowFallback AnchorKind = iota
	// AnchorByIdentity orients each dimension by a named legislator pair;
	// dimensions without a pair, or whose pair did not survive filtering,
	// fall back to the row policy with a warning.
	AnchorByIdentity
)

// DimensionAnchor names the legislators whose relative order fixes one
// dimension's sign: Negative is expected left of Positive.
type DimensionAnchor struct {
	Negative string `json:"negative"`
	Positive string `json:"positive"`
}

// AnchorPolicy bundles the anchor kind with its per-dimension pairs.
type AnchorPolicy struct {
	Kind  AnchorKind        `json:"kind"`
	Pairs []DimensionAnchor `json:"pairs,omitempty"`
}

// Options controls a single-period estimation run.
type Options struct {
	// Dims is the number of spatial dimensions D.
	Dims int `json:"dims"`
	// MinVotes drops legislators with fewer valid ballots after the vote
	// filter.
	MinVotes int `json:"min_votes"`
	// Lop drops votes whose minority share of valid ballots is below it.
	Lop float64 `json:"lop"`
	// Trials is the number of random restarts joined by max log-likelihood.
	Trials int `json:"trials"`
	// MaxIterations bounds the alternating sweeps per trial.
	MaxIterations int `json:"max_iterations"`
	// Tolerance is the log-likelihood gain below which a trial converges.
	Tolerance float64 `json:"tolerance"`
	// BetaWInterval re-fits β and the dimension weights every k-th sweep.
	BetaWInterval int `json:"beta_w_interval"`
	// Seed makes the whole run, trials included, deterministic.
	Seed int64 `json:"seed"`
	// MaxConcurrency caps parallel half-step workers; 0 means NumCPU.
	MaxConcurrency int `json:"max_concurrency"`
	// Anchors resolves sign indeterminacy after the best trial is chosen.
	Anchors AnchorPolicy `json:"anchors"`
}

// DefaultOptions returns the standard two-dimensional configuration.
func DefaultOptions() Options {
	return Options{
		Dims:          2,
		MinVotes:      20,
		Lop:           0.025,
		Trials:        3,
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
	case o.MinVotes < 0:
		return apperrors.Input("min_votes must be >= 0, got %d", o.MinVotes)
	case o.Lop < 0 || o.Lop >= 0.5:
		return apperrors.Input("lop must be in [0, 0.5), got %g", o.Lop)
	case o.Trials < 1:
		return apperrors.Input("trials must be >= 1, got %d", o.Trials)
	case o.MaxIterations < 1:
		return apperrors.Input("max_iterations must be >= 1, got %d", o.MaxIterations)
	case o.Tolerance <= 0 || math.IsNaN(o.Tolerance):
		return apperrors.Input("tolerance must be > 0, got %g", o.Tolerance)
	case o.BetaWInterval < 1:
		return apperrors.Input("beta_w_interval must be >= 1, got %d", o.BetaWInterval)
	case o.MaxConcurrency < 0:
		return apperrors.Input("max_concurrency must be >= 0, got %d", o.MaxConcurrency)
	case o.Anchors.Kind == AnchorByIdentity && len(o.Anchors.Pairs) == 0:
		return apperrors.Input("identity anchor policy needs at least one pair")
	}
	for d, p := range o.Anchors.Pairs {
		if (p.Negative == "") != (p.Positive == "") {
			return apperrors.Input("anchor pair for dimension %d is half-empty", d+1)
		}
	}
	return nil
}

// IdealPoint is one legislator's estimated position.
type IdealPoint struct {
	LegislatorID string    `json:"legislator_id"`
	Coords       []float64 `json:"coords"`
	ValidBallots int       `json:"valid_ballots"`
}

// BillParams holds one vote's fitted yea and nay reference points.
type BillParams struct {
	VoteID string    `json:"vote_id"`
	Yea    []float64 `json:"yea"`
	Nay    []float64 `json:"nay"`
}

// FitStats summarizes in-sample fit quality.
type FitStats struct {
	// Classification is the share of valid ballots predicted correctly.
	Classification float64 `json:"classification"`
	// APRE is the aggregate proportional reduction in error over the
	// minority-vote baseline.
	APRE float64 `json:"apre"`
	// GMP is the geometric mean of the probabilities assigned to the
	// choices actually made.
	GMP float64 `json:"gmp"`
}

// Result is a completed single-period estimation.
type Result struct {
	RunID       string               `json:"run_id"`
	Period      int                  `json:"period"`
	Dims        int                  `json:"dims"`
	Legislators []IdealPoint         `json:"legislators"`
	Bills       []BillParams         `json:"bills"`
	Beta        float64              `json:"beta"`
	Weights     []float64            `json:"weights"`
	Stats       FitStats             `json:"stats"`
	LogLik      float64              `json:"log_likelihood"`
	Converged   bool                 `json:"converged"`
	Iterations  int                  `json:"iterations"`
	BestTrial   int                  `json:"best_trial"`
	Trace       []float64            `json:"trace"`
	Excluded    []rollcall.Exclusion `json:"excluded,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}
