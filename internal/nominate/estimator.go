package nominate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "nomcli/internal/errors"
	"nomcli/internal/rollcall"
)

// Estimate runs a full single-period estimation: filter, spectral starts,
// concurrent trials, max-by-likelihood reduction, anchor sign fix, and fit
// statistics. A nil logger falls back to slog.Default(). Non-convergence is
// reported on the result, not as an error.
func Estimate(ctx context.Context, m *rollcall.Matrix, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := uuid.NewString()
	logger.InfoContext(ctx, "estimation started",
		slog.String("run_id", runID),
		slog.Int("period", m.Period),
		slog.Int("legislators", m.NumLegislators()),
		slog.Int("votes", m.NumVotes()),
		slog.Int("dims", opts.Dims),
		slog.Int("trials", opts.Trials))

	filtered, excluded := m.Filter(opts.MinVotes, opts.Lop)
	logger.InfoContext(ctx, "matrix filtered",
		slog.String("run_id", runID),
		slog.Int("legislators", filtered.NumLegislators()),
		slog.Int("votes", filtered.NumVotes()),
		slog.Int("excluded", len(excluded)))

	// The model needs more rows and columns than parameters per entity.
	if min := opts.Dims + 2; filtered.NumLegislators() < min || filtered.NumVotes() < min {
		return nil, apperrors.WithDetails(apperrors.InsufficientData(
			"need at least %d legislators and votes after filtering, have %d legislators and %d votes",
			min, filtered.NumLegislators(), filtered.NumVotes()), excluded)
	}

	anchors, warnings := resolveAnchorPairs(opts.Anchors, filtered, opts.Dims)
	for _, w := range warnings {
		logger.WarnContext(ctx, "anchor fallback", slog.String("run_id", runID), slog.String("detail", w))
	}

	outcomes, bestIdx, err := runTrials(ctx, filtered, opts, logger)
	if err != nil {
		return nil, err
	}
	best := outcomes[bestIdx]
	applySignFix(best.state, anchors)

	result := assembleResult(runID, filtered, best, bestIdx, opts)
	result.Excluded = excluded
	result.Warnings = warnings

	logger.InfoContext(ctx, "estimation finished",
		slog.String("run_id", runID),
		slog.Int("best_trial", bestIdx),
		slog.Float64("log_likelihood", result.LogLik),
		slog.Float64("classification", result.Stats.Classification),
		slog.Bool("converged", result.Converged),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

func assembleResult(runID string, m *rollcall.Matrix, best trialOutcome, bestIdx int, opts Options) *Result {
	s := best.state

	legislators := make([]IdealPoint, m.NumLegislators())
	for i, id := range m.LegislatorIDs() {
		legislators[i] = IdealPoint{
			LegislatorID: id,
			Coords:       append([]float64(nil), s.X[i]...),
			ValidBallots: m.ValidBallots(i),
		}
	}

	bills := make([]BillParams, m.NumVotes())
	for j, id := range m.VoteIDs() {
		bills[j] = BillParams{
			VoteID: id,
			Yea:    append([]float64(nil), s.Yea[j]...),
			Nay:    append([]float64(nil), s.Nay[j]...),
		}
	}

	return &Result{
		RunID:       runID,
		Period:      m.Period,
		Dims:        opts.Dims,
		Legislators: legislators,
		Bills:       bills,
		Beta:        s.Beta,
		Weights:     append([]float64(nil), s.W...),
		Stats:       computeStats(s),
		LogLik:      best.logLik,
		Converged:   best.converged,
		Iterations:  best.iterations,
		BestTrial:   bestIdx,
		Trace:       best.trace,
	}
}
