package dynamic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	apperrors "nomcli/internal/errors"
	"nomcli/internal/rollcall"
)

func TestCenteredTaus(t *testing.T) {
	assert.Equal(t, []float64{-2, -1, 0, 1, 2}, centeredTaus(5))
	assert.Equal(t, []float64{-1.5, -0.5, 0.5, 1.5}, centeredTaus(4))
	assert.Equal(t, []float64{0}, centeredTaus(1))
}

func TestTrajectoryAt(t *testing.T) {
	traj := Trajectory{
		LegislatorID: "x",
		Coeffs:       [][]float64{{1, 2, 3}, {-0.5, 0}},
	}
	assert.InDelta(t, 17.0, traj.At(0, 2), 1e-12)  // 1 + 2·2 + 3·4
	assert.InDelta(t, 1.0, traj.At(0, 0), 1e-12)
	assert.InDelta(t, -0.5, traj.At(1, 3), 1e-12)
}

func TestFitPolynomialExactRecovery(t *testing.T) {
	taus := []float64{-2, -1, 0, 1, 2}
	weights := []float64{3, 1, 2, 1, 3}

	// y = 0.4 − 0.25·τ is recovered exactly regardless of weights.
	ys := make([]float64, len(taus))
	for i, tau := range taus {
		ys[i] = 0.4 - 0.25*tau
	}
	coeffs, err := fitPolynomial(taus, ys, weights, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, coeffs[0], 1e-9)
	assert.InDelta(t, -0.25, coeffs[1], 1e-9)

	// Order 0 is the weighted mean.
	coeffs, err = fitPolynomial([]float64{-1, 0, 1}, []float64{1, 2, 4}, []float64{1, 2, 1}, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.25, coeffs[0], 1e-9)
}

func TestFitPolynomialErrors(t *testing.T) {
	_, err := fitPolynomial([]float64{0, 1}, []float64{1}, []float64{1, 1}, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInput))

	_, err = fitPolynomial([]float64{0}, []float64{1}, []float64{1}, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientData))
}

func TestFitPolynomialSingularFallsBackToSVD(t *testing.T) {
	// Two observations at the same τ cannot identify a slope; the SVD
	// path returns the minimum-norm solution instead of failing.
	coeffs, err := fitPolynomial([]float64{1, 1}, []float64{2, 2}, []float64{1, 1}, 1)
	require.NoError(t, err)
	require.Len(t, coeffs, 2)
	assert.InDelta(t, 2.0, coeffs[0]+coeffs[1], 1e-9, "fit must still pass through the data")
}

// driftPanel builds a noise-free panel where every legislator moves
// linearly: x_i(τ) = a_i + b_i·τ, with cutline voting in each period.
func driftPanel(t *testing.T, rng *rand.Rand, nLegs, nVotes, nPeriods int) ([]*rollcall.Matrix, []float64, []float64) {
	t.Helper()

	intercepts := make([]float64, nLegs)
	slopes := make([]float64, nLegs)
	legIDs := make([]string, nLegs)
	for i := range legIDs {
		legIDs[i] = fmt.Sprintf("leg%02d", i)
		intercepts[i] = rng.Float64()*1.4 - 0.7
		slopes[i] = rng.Float64()*0.3 - 0.15
	}

	taus := centeredTaus(nPeriods)
	matrices := make([]*rollcall.Matrix, nPeriods)
	for p := 0; p < nPeriods; p++ {
		voteIDs := make([]string, nVotes)
		for j := range voteIDs {
			voteIDs[j] = fmt.Sprintf("p%d-vote%03d", p, j)
		}
		m, err := rollcall.NewMatrix(p, legIDs, voteIDs)
		require.NoError(t, err)

		for j := 0; j < nVotes; j++ {
			cut := rng.Float64()*1.2 - 0.6
			for i := 0; i < nLegs; i++ {
				if rng.Float64() < 0.05 {
					m.Set(i, j, rollcall.Abstain)
					continue
				}
				if intercepts[i]+slopes[i]*taus[p] < cut {
					m.Set(i, j, rollcall.Yea)
				} else {
					m.Set(i, j, rollcall.Nay)
				}
			}
		}
		matrices[p] = m
	}
	return matrices, intercepts, slopes
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Dims = 1
	opts.Order = 1
	opts.MinVotes = 0
	opts.Lop = 0.01
	opts.MaxIterations = 6
	opts.MaxConcurrency = 4
	return opts
}

func TestEstimateRequiresEnoughPeriods(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	matrices, _, _ := driftPanel(t, rng, 10, 12, 2)

	opts := testOptions()
	opts.Order = 1 // needs 3 periods

	_, err := Estimate(context.Background(), matrices, opts, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientData))
	assert.True(t, apperrors.IsFatal(err))
}

func TestEstimateLinearDrift(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	matrices, intercepts, _ := driftPanel(t, rng, 15, 25, 4)

	// Anchor the globally most extreme legislator on the negative side.
	lo := 0
	for i, v := range intercepts {
		if v < intercepts[lo] {
			lo = i
		}
	}

	opts := testOptions()
	opts.Anchor = GlobalAnchor{
		LegislatorID:  fmt.Sprintf("leg%02d", lo),
		ExpectedSigns: []float64{-1},
	}

	result, err := Estimate(context.Background(), matrices, opts, nil)
	require.NoError(t, err)

	require.Len(t, result.Periods, 4)
	require.Len(t, result.Trajectories, 15)
	assert.Empty(t, result.Warnings)

	// Every period must classify well and rank legislators consistently
	// with the drifting truth.
	for p, pe := range result.Periods {
		assert.Greater(t, pe.Stats.Classification, 0.9, "period %d", p)

		truth := make([]float64, 0, len(pe.Legislators))
		est := make([]float64, 0, len(pe.Legislators))
		for _, pt := range pe.Legislators {
			var idx int
			_, err := fmt.Sscanf(pt.LegislatorID, "leg%02d", &idx)
			require.NoError(t, err)
			truth = append(truth, intercepts[idx]) // slope term is small
			est = append(est, pt.Coords[0])
		}
		r := stat.Correlation(truth, est, nil)
		assert.Greater(t, math.Abs(r), 0.85, "period %d correlation %v", p, r)
	}

	// The anchored legislator must average negative across periods.
	sum, n := 0.0, 0
	for _, pe := range result.Periods {
		for _, pt := range pe.Legislators {
			if pt.LegislatorID == fmt.Sprintf("leg%02d", lo) {
				sum += pt.Coords[0]
				n++
			}
		}
	}
	require.Positive(t, n)
	assert.Negative(t, sum/float64(n))

	// Trajectories evaluate to the reported per-period coordinates.
	taus := centeredTaus(4)
	byID := map[string]Trajectory{}
	for _, traj := range result.Trajectories {
		byID[traj.LegislatorID] = traj
	}
	for p, pe := range result.Periods {
		for _, pt := range pe.Legislators {
			at := byID[pt.LegislatorID].At(0, taus[p])
			if math.Abs(at) <= 1 {
				assert.InDelta(t, at, pt.Coords[0], 1e-9,
					"legislator %s period %d", pt.LegislatorID, p)
			}
		}
	}
}

func TestEstimateDeterministicUnderSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(29))
	matrices, _, _ := driftPanel(t, rng, 10, 15, 3)

	opts := testOptions()
	opts.MaxIterations = 3

	first, err := Estimate(context.Background(), matrices, opts, nil)
	require.NoError(t, err)
	second, err := Estimate(context.Background(), matrices, opts, nil)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
	assert.Equal(t, first.Beta, second.Beta)
	for g := range first.Trajectories {
		assert.Equal(t, first.Trajectories[g].Coeffs, second.Trajectories[g].Coeffs)
	}
}

func TestEstimateMissingAnchorWarns(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	matrices, _, _ := driftPanel(t, rng, 10, 15, 3)

	opts := testOptions()
	opts.MaxIterations = 2
	opts.Anchor = GlobalAnchor{LegislatorID: "nobody", ExpectedSigns: []float64{-1}}

	result, err := Estimate(context.Background(), matrices, opts, nil)
	require.NoError(t, err, "a missing global anchor must not abort the run")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "row fallback")
}

func TestOptionsValidate(t *testing.T) {
	assert.True(t, DefaultOptions().IsValid())

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero dims", func(o *Options) { o.Dims = 0 }},
		{"negative order", func(o *Options) { o.Order = -1 }},
		{"lop too large", func(o *Options) { o.Lop = 0.6 }},
		{"zero iterations", func(o *Options) { o.MaxIterations = 0 }},
		{"bad expected sign", func(o *Options) {
			o.Anchor = GlobalAnchor{LegislatorID: "x", ExpectedSigns: []float64{2}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			err := opts.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindInput))
		})
	}
}
