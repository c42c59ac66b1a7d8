package nominate

import (
	"context"
	"log/slog"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"

	"nomcli/internal/rollcall"
)

// trialOutcome is one restart's fitted state plus its convergence record.
type trialOutcome struct {
	state      *state
	logLik     float64
	iterations int
	converged  bool
	trace      []float64
}

// runTrials runs opts.Trials random restarts concurrently and returns every
// outcome plus the index of the winner. The winner is the exact maximum by
// final log-likelihood, ties broken by fewer iterations, then lower trial
// index, so the reduction is deterministic regardless of completion order.
func runTrials(ctx context.Context, m *rollcall.Matrix, opts Options, logger *slog.Logger) ([]trialOutcome, int, error) {
	// Per-trial seeds are drawn up front from the master stream, so trial k
	// sees the same seed no matter how the scheduler interleaves.
	master := rand.New(rand.NewSource(opts.Seed))
	seeds := make([]int64, opts.Trials)
	for t := range seeds {
		seeds[t] = master.Int63()
	}

	limit := opts.MaxConcurrency
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	outcomes := make([]trialOutcome, opts.Trials)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for t := 0; t < opts.Trials; t++ {
		t := t
		g.Go(func() error {
			out, err := runTrial(gctx, m, opts, t, seeds[t], logger)
			if err != nil {
				return err
			}
			outcomes[t] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	best := 0
	for t := 1; t < opts.Trials; t++ {
		if betterTrial(outcomes[t], outcomes[best]) {
			best = t
		}
	}
	return outcomes, best, nil
}

func betterTrial(a, b trialOutcome) bool {
	if a.logLik != b.logLik {
		return a.logLik > b.logLik
	}
	return a.iterations < b.iterations
}

// runTrial performs one full alternating-MLE fit from a (possibly perturbed)
// spectral start. Trial 0 uses the unperturbed start; later trials jitter it.
func runTrial(ctx context.Context, m *rollcall.Matrix, opts Options, trial int, seed int64, logger *slog.Logger) (trialOutcome, error) {
	X, err := SpectralStart(m, opts.Dims)
	if err != nil {
		return trialOutcome{}, err
	}
	if trial > 0 {
		rng := rand.New(rand.NewSource(seed))
		for i := range X {
			for d := range X[i] {
				X[i][d] += rng.NormFloat64() * 0.1
			}
			ClampToBall(X[i])
		}
	}

	s := newState(m, opts.Dims)
	s.X = X
	s.Yea, s.Nay, err = InitBillPoints(m, X, opts.Dims)
	if err != nil {
		return trialOutcome{}, err
	}

	out := trialOutcome{trace: make([]float64, 0, opts.MaxIterations)}
	prev := s.logLik()

	for it := 1; it <= opts.MaxIterations; it++ {
		if err := sweepBills(ctx, s, opts); err != nil {
			return trialOutcome{}, err
		}
		if err := sweepLegislators(ctx, s, opts); err != nil {
			return trialOutcome{}, err
		}
		if it%opts.BetaWInterval == 0 {
			s.refitScale()
		}

		ll := s.logLik()
		out.trace = append(out.trace, ll)
		out.iterations = it

		gain := ll - prev
		prev = ll
		logger.DebugContext(ctx, "sweep complete",
			slog.Int("trial", trial),
			slog.Int("iteration", it),
			slog.Float64("log_likelihood", ll),
			slog.Float64("gain", gain))
		if it > 1 && gain >= 0 && gain < opts.Tolerance {
			out.converged = true
			break
		}
	}

	out.state = s
	out.logLik = prev
	if !out.converged {
		logger.WarnContext(ctx, "trial did not converge within iteration budget",
			slog.Int("trial", trial),
			slog.Int("iterations", out.iterations),
			slog.Float64("log_likelihood", out.logLik))
	}
	return out, nil
}

// sweepBills runs the bill half-step as a parallel map over votes. Every
// worker reads the same frozen legislator positions, so a barrier after the
// map is the only synchronization needed.
func sweepBills(ctx context.Context, s *state, opts Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stepLimit(opts))
	for j := 0; j < s.m.NumVotes(); j++ {
		j := j
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			yea, nay := BillStep(s.m, s.X, s.Beta, s.W, j, s.Yea[j], s.Nay[j])
			copy(s.Yea[j], yea)
			copy(s.Nay[j], nay)
			return nil
		})
	}
	return g.Wait()
}

// sweepLegislators runs the legislator half-step as a parallel map over rows
// against the frozen bill parameters.
func sweepLegislators(ctx context.Context, s *state, opts Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stepLimit(opts))
	for i := 0; i < s.m.NumLegislators(); i++ {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			copy(s.X[i], LegislatorStep(s.m, s.Yea, s.Nay, s.Beta, s.W, i, s.X[i]))
			return nil
		})
	}
	return g.Wait()
}

func stepLimit(opts Options) int {
	if opts.MaxConcurrency > 0 {
		return opts.MaxConcurrency
	}
	return runtime.NumCPU()
}
