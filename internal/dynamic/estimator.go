package dynamic

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "nomcli/internal/errors"
	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

// panel is the joint estimation state across all periods.
type panel struct {
	periods []*rollcall.Matrix
	taus    []float64
	dims    int
	order   int

	// ids is the sorted union of surviving legislator ids; rows[t][g] is
	// the row of ids[g] in period t, or -1 when absent.
	ids  []string
	rows [][]int

	X   [][][]float64 // X[t][i][d]
	Yea [][][]float64
	Nay [][][]float64

	Beta float64
	W    []float64

	trajs []Trajectory
}

// Estimate runs the joint multi-period fit: per-period filtering, aligned
// spectral starts, alternating bill and trajectory-smoothed legislator
// sweeps with a shared β/w refit, and a single global polarity fix at the
// end. A nil logger falls back to slog.Default().
func Estimate(ctx context.Context, matrices []*rollcall.Matrix, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	// order+1 coefficients per trajectory need more periods than that to
	// be identified rather than interpolated.
	if len(matrices) < opts.Order+2 {
		return nil, apperrors.InsufficientData(
			"order-%d drift needs at least %d periods, got %d", opts.Order, opts.Order+2, len(matrices))
	}

	start := time.Now()
	runID := uuid.NewString()
	logger.InfoContext(ctx, "joint estimation started",
		slog.String("run_id", runID),
		slog.Int("periods", len(matrices)),
		slog.Int("dims", opts.Dims),
		slog.Int("order", opts.Order))

	filtered := make([]*rollcall.Matrix, len(matrices))
	var excluded []rollcall.Exclusion
	for t, m := range matrices {
		f, ex := m.Filter(opts.MinVotes, opts.Lop)
		for _, e := range ex {
			e.Reason = fmt.Sprintf("period %d: %s", m.Period, e.Reason)
			excluded = append(excluded, e)
		}
		if min := opts.Dims + 2; f.NumLegislators() < min || f.NumVotes() < min {
			return nil, apperrors.WithDetails(apperrors.InsufficientData(
				"period %d has %d legislators and %d votes after filtering, need at least %d",
				m.Period, f.NumLegislators(), f.NumVotes(), min), excluded)
		}
		filtered[t] = f
	}

	p, err := newPanel(ctx, filtered, opts)
	if err != nil {
		return nil, err
	}

	trace := make([]float64, 0, opts.MaxIterations)
	converged := false
	iterations := 0
	prev := p.logLik()

	for it := 1; it <= opts.MaxIterations; it++ {
		if err := p.sweepBills(ctx, opts); err != nil {
			return nil, err
		}
		if err := p.sweepTrajectories(ctx, opts); err != nil {
			return nil, err
		}
		if it%opts.BetaWInterval == 0 {
			p.Beta, p.W = nominate.FitScale(p.aggregateLogLik, p.W)
		}

		ll := p.logLik()
		trace = append(trace, ll)
		iterations = it

		gain := ll - prev
		prev = ll
		logger.DebugContext(ctx, "joint sweep complete",
			slog.Int("iteration", it),
			slog.Float64("log_likelihood", ll),
			slog.Float64("gain", gain))
		if it > 1 && gain >= 0 && gain < opts.Tolerance {
			converged = true
			break
		}
	}
	if !converged {
		logger.WarnContext(ctx, "joint fit did not converge within iteration budget",
			slog.String("run_id", runID),
			slog.Int("iterations", iterations))
	}

	warnings := p.applyGlobalPolarity(opts.Anchor)
	for _, w := range warnings {
		logger.WarnContext(ctx, "polarity fallback", slog.String("run_id", runID), slog.String("detail", w))
	}

	result := p.assembleResult(runID, opts)
	result.LogLik = prev
	result.Converged = converged
	result.Iterations = iterations
	result.Trace = trace
	result.Excluded = excluded
	result.Warnings = warnings

	logger.InfoContext(ctx, "joint estimation finished",
		slog.String("run_id", runID),
		slog.Float64("log_likelihood", result.LogLik),
		slog.Bool("converged", converged),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// newPanel builds the joint state: the legislator union, per-period
// spectral starts aligned across adjacent periods, and initial bill points.
func newPanel(ctx context.Context, filtered []*rollcall.Matrix, opts Options) (*panel, error) {
	p := &panel{
		periods: filtered,
		taus:    centeredTaus(len(filtered)),
		dims:    opts.Dims,
		order:   opts.Order,
		Beta:    nominate.DefaultBeta,
		W:       make([]float64, opts.Dims),
	}
	p.W[0] = 1
	for d := 1; d < opts.Dims; d++ {
		p.W[d] = nominate.DefaultWeight
	}

	seen := map[string]bool{}
	for _, m := range filtered {
		for _, id := range m.LegislatorIDs() {
			if !seen[id] {
				seen[id] = true
				p.ids = append(p.ids, id)
			}
		}
	}
	sort.Strings(p.ids)

	p.rows = make([][]int, len(filtered))
	for t, m := range filtered {
		p.rows[t] = make([]int, len(p.ids))
		for g, id := range p.ids {
			p.rows[t][g] = m.LegislatorIndex(id)
		}
	}

	p.trajs = make([]Trajectory, len(p.ids))
	for g, id := range p.ids {
		coeffs := make([][]float64, opts.Dims)
		for d := range coeffs {
			coeffs[d] = make([]float64, opts.Order+1)
		}
		p.trajs[g] = Trajectory{LegislatorID: id, Coeffs: coeffs}
	}

	p.X = make([][][]float64, len(filtered))
	p.Yea = make([][][]float64, len(filtered))
	p.Nay = make([][][]float64, len(filtered))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(opts.MaxConcurrency))
	for t := range filtered {
		t := t
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			X, err := nominate.SpectralStart(filtered[t], opts.Dims)
			if err != nil {
				return fmt.Errorf("period %d: %w", filtered[t].Period, err)
			}
			p.X[t] = X
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	p.alignStartSigns()

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(opts.MaxConcurrency))
	for t := range filtered {
		t := t
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			yea, nay, err := nominate.InitBillPoints(filtered[t], p.X[t], opts.Dims)
			if err != nil {
				return fmt.Errorf("period %d: %w", filtered[t].Period, err)
			}
			p.Yea[t], p.Nay[t] = yea, nay
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return p, nil
}

// alignStartSigns flips each period's starting dimensions to agree with the
// previous period over their shared legislators. Spectral signs are
// arbitrary per period; without alignment the trajectory fits would chase
// sign flips instead of drift.
func (p *panel) alignStartSigns() {
	for t := 1; t < len(p.periods); t++ {
		for d := 0; d < p.dims; d++ {
			dot := 0.0
			for g := range p.ids {
				prevRow, curRow := p.rows[t-1][g], p.rows[t][g]
				if prevRow < 0 || curRow < 0 {
					continue
				}
				dot += p.X[t-1][prevRow][d] * p.X[t][curRow][d]
			}
			if dot < 0 {
				for i := range p.X[t] {
					p.X[t][i][d] = -p.X[t][i][d]
				}
			}
		}
	}
}

// sweepBills runs the bill half-step over every (period, vote) pair as one
// parallel map; all workers read frozen legislator positions.
func (p *panel) sweepBills(ctx context.Context, opts Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(opts.MaxConcurrency))
	for t := range p.periods {
		t := t
		for j := 0; j < p.periods[t].NumVotes(); j++ {
			j := j
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				yea, nay := nominate.BillStep(p.periods[t], p.X[t], p.Beta, p.W, j, p.Yea[t][j], p.Nay[t][j])
				copy(p.Yea[t][j], yea)
				copy(p.Nay[t][j], nay)
				return nil
			})
		}
	}
	return g.Wait()
}

// sweepTrajectories is the smoothing legislator half-step: each
// legislator's per-period positions are re-estimated against the frozen
// bill parameters, then projected onto a weighted polynomial in τ, and the
// projected values become the new positions.
func (p *panel) sweepTrajectories(ctx context.Context, opts Options) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerLimit(opts.MaxConcurrency))
	for gi := range p.ids {
		gi := gi
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return p.smoothLegislator(gi)
		})
	}
	return g.Wait()
}

func (p *panel) smoothLegislator(g int) error {
	var (
		taus    []float64
		weights []float64
		present []int
	)
	raw := make([][]float64, 0, len(p.periods))

	for t, m := range p.periods {
		row := p.rows[t][g]
		if row < 0 {
			continue
		}
		x := nominate.LegislatorStep(m, p.Yea[t], p.Nay[t], p.Beta, p.W, row, p.X[t][row])
		raw = append(raw, x)
		taus = append(taus, p.taus[t])
		weights = append(weights, float64(m.ValidBallots(row)))
		present = append(present, t)
	}
	if len(present) == 0 {
		return nil
	}

	// A legislator seen in few periods cannot support the full drift
	// order; the fit degrades gracefully down to a constant.
	order := p.order
	if max := len(present) - 1; order > max {
		order = max
	}

	for d := 0; d < p.dims; d++ {
		ys := make([]float64, len(raw))
		for k := range raw {
			ys[k] = raw[k][d]
		}
		coeffs, err := fitPolynomial(taus, ys, weights, order)
		if err != nil {
			return fmt.Errorf("legislator %s, dimension %d: %w", p.ids[g], d+1, err)
		}
		full := p.trajs[g].Coeffs[d]
		for k := range full {
			full[k] = 0
		}
		copy(full, coeffs)
	}

	for k, t := range present {
		row := p.rows[t][g]
		for d := 0; d < p.dims; d++ {
			p.X[t][row][d] = p.trajs[g].At(d, taus[k])
		}
		nominate.ClampToBall(p.X[t][row])
	}
	return nil
}

func (p *panel) logLik() float64 {
	return p.aggregateLogLik(p.Beta, p.W)
}

func (p *panel) aggregateLogLik(beta float64, w []float64) float64 {
	ll := 0.0
	for t, m := range p.periods {
		ll += nominate.TotalLogLikelihood(m, p.X[t], p.Yea[t], p.Nay[t], beta, w)
	}
	return ll
}

// applyGlobalPolarity orients the whole panel once. Dimensions covered by
// the anchor's expected signs flip when the anchor's period-averaged
// coordinate has the wrong sign; the rest use the row fallback, comparing
// the first and last legislators of the sorted union.
func (p *panel) applyGlobalPolarity(anchor GlobalAnchor) []string {
	var warnings []string

	anchorIdx := -1
	if anchor.LegislatorID != "" {
		anchorIdx = p.globalIndex(anchor.LegislatorID)
		if anchorIdx < 0 {
			warnings = append(warnings, fmt.Sprintf(
				"anchor legislator %q not found in any period after filtering, using row fallback", anchor.LegislatorID))
		}
	}

	for d := 0; d < p.dims; d++ {
		expected := 0.0
		if anchorIdx >= 0 && d < len(anchor.ExpectedSigns) {
			expected = anchor.ExpectedSigns[d]
		}

		flip := false
		if expected != 0 {
			flip = p.meanCoord(anchorIdx, d)*expected < 0
		} else {
			first := p.meanCoord(0, d)
			last := p.meanCoord(len(p.ids)-1, d)
			flip = first >= last && first != last
		}
		if flip {
			p.flipDimension(d)
		}
	}
	return warnings
}

func (p *panel) flipDimension(d int) {
	for t := range p.periods {
		for i := range p.X[t] {
			p.X[t][i][d] = -p.X[t][i][d]
		}
		for j := range p.Yea[t] {
			p.Yea[t][j][d] = -p.Yea[t][j][d]
			p.Nay[t][j][d] = -p.Nay[t][j][d]
		}
	}
	for g := range p.trajs {
		for k := range p.trajs[g].Coeffs[d] {
			p.trajs[g].Coeffs[d][k] = -p.trajs[g].Coeffs[d][k]
		}
	}
}

func (p *panel) globalIndex(id string) int {
	idx := sort.SearchStrings(p.ids, id)
	if idx < len(p.ids) && p.ids[idx] == id {
		return idx
	}
	return -1
}

// meanCoord averages a legislator's coordinate over the periods where they
// appear; NaN-free because every union member appears somewhere.
func (p *panel) meanCoord(g, d int) float64 {
	sum, n := 0.0, 0
	for t := range p.periods {
		if row := p.rows[t][g]; row >= 0 {
			sum += p.X[t][row][d]
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func (p *panel) assembleResult(runID string, opts Options) *Result {
	periods := make([]PeriodEstimate, len(p.periods))
	for t, m := range p.periods {
		legislators := make([]nominate.IdealPoint, m.NumLegislators())
		for i, id := range m.LegislatorIDs() {
			legislators[i] = nominate.IdealPoint{
				LegislatorID: id,
				Coords:       append([]float64(nil), p.X[t][i]...),
				ValidBallots: m.ValidBallots(i),
			}
		}
		bills := make([]nominate.BillParams, m.NumVotes())
		for j, id := range m.VoteIDs() {
			bills[j] = nominate.BillParams{
				VoteID: id,
				Yea:    append([]float64(nil), p.Yea[t][j]...),
				Nay:    append([]float64(nil), p.Nay[t][j]...),
			}
		}
		periods[t] = PeriodEstimate{
			Period:      m.Period,
			Tau:         p.taus[t],
			Legislators: legislators,
			Bills:       bills,
			Stats:       nominate.Score(m, p.X[t], p.Yea[t], p.Nay[t], p.Beta, p.W),
		}
	}

	trajectories := make([]Trajectory, len(p.trajs))
	for g := range p.trajs {
		coeffs := make([][]float64, p.dims)
		for d := range coeffs {
			coeffs[d] = append([]float64(nil), p.trajs[g].Coeffs[d]...)
		}
		trajectories[g] = Trajectory{LegislatorID: p.ids[g], Coeffs: coeffs}
	}

	return &Result{
		RunID:        runID,
		Dims:         opts.Dims,
		Order:        opts.Order,
		Trajectories: trajectories,
		Periods:      periods,
		Beta:         p.Beta,
		Weights:      append([]float64(nil), p.W...),
	}
}

func workerLimit(maxConcurrency int) int {
	if maxConcurrency > 0 {
		return maxConcurrency
	}
	return runtime.NumCPU()
}
