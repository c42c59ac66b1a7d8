package nominate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	apperrors "nomcli/internal/errors"
	"nomcli/internal/rollcall"
)

// cutlineMatrix builds a noise-free one-dimensional voting record: each vote
// has a random cutline and every legislator left of it votes yea. A small
// abstention rate leaves some cells invalid.
func cutlineMatrix(t *testing.T, rng *rand.Rand, nLegs, nVotes int) (*rollcall.Matrix, []float64) {
	t.Helper()

	legIDs := make([]string, nLegs)
	truth := make([]float64, nLegs)
	for i := range legIDs {
		legIDs[i] = fmt.Sprintf("leg%02d", i)
		truth[i] = rng.Float64()*2 - 1
	}
	voteIDs := make([]string, nVotes)
	for j := range voteIDs {
		voteIDs[j] = fmt.Sprintf("vote%03d", j)
	}

	m, err := rollcall.NewMatrix(0, legIDs, voteIDs)
	require.NoError(t, err)
	for j := range voteIDs {
		cut := rng.Float64()*1.4 - 0.7
		for i := range legIDs {
			if rng.Float64() < 0.05 {
				m.Set(i, j, rollcall.Abstain)
				continue
			}
			if truth[i] < cut {
				m.Set(i, j, rollcall.Yea)
			} else {
				m.Set(i, j, rollcall.Nay)
			}
		}
	}
	return m, truth
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Dims = 1
	opts.MinVotes = 0
	opts.Lop = 0.01
	opts.Trials = 2
	opts.MaxIterations = 8
	opts.MaxConcurrency = 4
	return opts
}

func TestEstimateRecoversOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	m, truth := cutlineMatrix(t, rng, 25, 40)

	result, err := Estimate(context.Background(), m, testOptions(), nil)
	require.NoError(t, err)

	require.Len(t, result.Legislators, 25)
	est := make([]float64, len(result.Legislators))
	for i, p := range result.Legislators {
		require.Len(t, p.Coords, 1)
		est[i] = p.Coords[0]
	}

	// Perfectly separable data must classify almost everything and place
	// the estimated scale in near-monotone agreement with the truth. The
	// sign is fixed arbitrarily by the row fallback, so compare |r|.
	r := stat.Correlation(truth, est, nil)
	assert.Greater(t, math.Abs(r), 0.9, "correlation with truth: %v", r)
	assert.Greater(t, result.Stats.Classification, 0.95)
	assert.Greater(t, result.Stats.APRE, 0.8)
	assert.Greater(t, result.Stats.GMP, 0.7)
	assert.NotEmpty(t, result.Trace)
	assert.NotEmpty(t, result.RunID)
}

func TestEstimateDeterministicUnderSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	m, _ := cutlineMatrix(t, rng, 15, 20)

	opts := testOptions()
	opts.MaxIterations = 5

	first, err := Estimate(context.Background(), m, opts, nil)
	require.NoError(t, err)
	second, err := Estimate(context.Background(), m, opts, nil)
	require.NoError(t, err)

	// Bit-for-bit identical coordinates, likelihoods, and trial choice.
	assert.Equal(t, first.BestTrial, second.BestTrial)
	assert.Equal(t, first.LogLik, second.LogLik)
	assert.Equal(t, first.Trace, second.Trace)
	for i := range first.Legislators {
		assert.Equal(t, first.Legislators[i].Coords, second.Legislators[i].Coords)
	}
	for j := range first.Bills {
		assert.Equal(t, first.Bills[j].Yea, second.Bills[j].Yea)
	}
}

func TestRunTrialsPicksExactMaximum(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m, _ := cutlineMatrix(t, rng, 15, 20)
	filtered, _ := m.Filter(0, 0.01)

	opts := testOptions()
	opts.Trials = 3
	opts.MaxIterations = 4

	outcomes, bestIdx, err := runTrials(context.Background(), filtered, opts, discardLogger())
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	for _, out := range outcomes {
		assert.LessOrEqual(t, out.logLik, outcomes[bestIdx].logLik)
	}
}

func TestEstimateAnchorFallbackWarns(t *testing.T) {
	rng := rand.New(rand.NewSource(31))
	m, _ := cutlineMatrix(t, rng, 15, 20)

	opts := testOptions()
	opts.MaxIterations = 3
	opts.Anchors = AnchorPolicy{
		Kind:  AnchorByIdentity,
		Pairs: []DimensionAnchor{{Negative: "nobody", Positive: "missing"}},
	}

	result, err := Estimate(context.Background(), m, opts, nil)
	require.NoError(t, err, "a missing anchor must not abort the run")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "row fallback")
}

func TestEstimateAnchorOrientsDimension(t *testing.T) {
	rng := rand.New(rand.NewSource(47))
	m, truth := cutlineMatrix(t, rng, 15, 25)

	// Anchor on the true extremes: the most-left legislator is declared
	// negative, so its estimated coordinate must come out below the
	// most-right legislator's.
	lo, hi := 0, 0
	for i, v := range truth {
		if v < truth[lo] {
			lo = i
		}
		if v > truth[hi] {
			hi = i
		}
	}
	ids := m.LegislatorIDs()

	opts := testOptions()
	opts.Anchors = AnchorPolicy{
		Kind:  AnchorByIdentity,
		Pairs: []DimensionAnchor{{Negative: ids[lo], Positive: ids[hi]}},
	}

	result, err := Estimate(context.Background(), m, opts, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	coords := map[string]float64{}
	for _, p := range result.Legislators {
		coords[p.LegislatorID] = p.Coords[0]
	}
	assert.Less(t, coords[ids[lo]], coords[ids[hi]])
}

func TestEstimateInsufficientData(t *testing.T) {
	m, err := rollcall.NewMatrix(0, []string{"a", "b", "c"}, []string{"v1", "v2"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		m.Set(i, 0, rollcall.Yea)
		m.Set(i, 1, rollcall.Nay)
	}
	m.Set(0, 0, rollcall.Nay)
	m.Set(0, 1, rollcall.Yea)

	_, err = Estimate(context.Background(), m, testOptions(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInsufficientData))
	assert.True(t, apperrors.IsFatal(err))
}

func TestEstimateRejectsBadOptions(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m, _ := cutlineMatrix(t, rng, 10, 10)

	opts := testOptions()
	opts.Dims = 0
	_, err := Estimate(context.Background(), m, opts, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindInput))
}

func TestSpectralStartSeparatesBlocs(t *testing.T) {
	legIDs := make([]string, 12)
	for i := range legIDs {
		legIDs[i] = fmt.Sprintf("leg%02d", i)
	}
	voteIDs := make([]string, 15)
	for j := range voteIDs {
		voteIDs[j] = fmt.Sprintf("vote%02d", j)
	}
	m, err := rollcall.NewMatrix(0, legIDs, voteIDs)
	require.NoError(t, err)

	// Two cohesive blocs voting in strict opposition.
	for j := range voteIDs {
		for i := range legIDs {
			if (i < 6) == (j%2 == 0) {
				m.Set(i, j, rollcall.Yea)
			} else {
				m.Set(i, j, rollcall.Nay)
			}
		}
	}

	X, err := SpectralStart(m, 1)
	require.NoError(t, err)

	blocA := stat.Mean(column(X[:6], 0), nil)
	blocB := stat.Mean(column(X[6:], 0), nil)
	assert.Less(t, blocA*blocB, 0.0, "blocs must land on opposite sides")
	for i := 1; i < 6; i++ {
		assert.InDelta(t, X[0][0], X[i][0], 1e-9, "bloc members must coincide")
	}
}

func column(grid [][]float64, d int) []float64 {
	col := make([]float64, len(grid))
	for i := range grid {
		col[i] = grid[i][d]
	}
	return col
}
