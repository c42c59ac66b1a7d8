package nominate

import (
	apperrors "nomcli/internal/errors"
	"nomcli/internal/rollcall"
)

// InitBillPoints seeds each vote's yea and nay reference points at the mean
// positions of its yea and nay voters. A surviving unanimous vote makes the
// conditional fit singular, so it is reported as a degeneracy rather than
// papered over.
func InitBillPoints(m *rollcall.Matrix, X [][]float64, dims int) (yeaPts, nayPts [][]float64, err error) {
	yeaPts = makeGrid(m.NumVotes(), dims)
	nayPts = makeGrid(m.NumVotes(), dims)

	for j := 0; j < m.NumVotes(); j++ {
		yeas, nays := 0, 0
		for i := 0; i < m.NumLegislators(); i++ {
			switch m.At(i, j) {
			case rollcall.Yea:
				yeas++
				for d := 0; d < dims; d++ {
					yeaPts[j][d] += X[i][d]
				}
			case rollcall.Nay:
				nays++
				for d := 0; d < dims; d++ {
					nayPts[j][d] += X[i][d]
				}
			}
		}
		if yeas == 0 || nays == 0 {
			return nil, nil, apperrors.Degeneracy(
				"vote %q is unanimous after filtering (%d yea, %d nay)", m.VoteIDs()[j], yeas, nays)
		}
		for d := 0; d < dims; d++ {
			yeaPts[j][d] /= float64(yeas)
			nayPts[j][d] /= float64(nays)
		}
	}
	return yeaPts, nayPts, nil
}

// BillStep fits vote j's yea and nay reference points by coordinate descent,
// holding all legislator positions fixed. It is a pure function of its
// inputs: the passed-in points seed the search and are not modified.
func BillStep(m *rollcall.Matrix, X [][]float64, beta float64, w []float64, j int, yea, nay []float64) (newYea, newNay []float64) {
	newYea = append([]float64(nil), yea...)
	newNay = append([]float64(nil), nay...)

	for pass := 0; pass < 2; pass++ {
		for d := range newYea {
			newYea[d] = MaximizeScalar(func(v float64) float64 {
				saved := newYea[d]
				newYea[d] = v
				ll := voteLogLik(m, X, beta, w, j, newYea, newNay)
				newYea[d] = saved
				return ll
			}, -billBound, billBound, 1e-4)

			newNay[d] = MaximizeScalar(func(v float64) float64 {
				saved := newNay[d]
				newNay[d] = v
				ll := voteLogLik(m, X, beta, w, j, newYea, newNay)
				newNay[d] = saved
				return ll
			}, -billBound, billBound, 1e-4)
		}
	}
	return newYea, newNay
}

// LegislatorStep re-estimates legislator i's position by coordinate descent,
// holding all bill parameters fixed. The result is clamped to the unit ball.
// Like BillStep it is pure: the passed-in position only seeds the search.
func LegislatorStep(m *rollcall.Matrix, yeaPts, nayPts [][]float64, beta float64, w []float64, i int, x []float64) []float64 {
	newX := append([]float64(nil), x...)

	for pass := 0; pass < 2; pass++ {
		for d := range newX {
			newX[d] = MaximizeScalar(func(v float64) float64 {
				saved := newX[d]
				newX[d] = v
				ll := legislatorLogLik(m, yeaPts, nayPts, beta, w, i, newX)
				newX[d] = saved
				return ll
			}, -legislatorBound, legislatorBound, 1e-4)
		}
	}

	ClampToBall(newX)
	return newX
}

// FitScale re-fits β and the free dimension weights by bounded line search
// over an arbitrary aggregate log-likelihood, returning the new values.
// w[0] stays pinned at 1. The dynamic estimator shares this to refit scale
// jointly across periods.
func FitScale(ll func(beta float64, w []float64) float64, w []float64) (float64, []float64) {
	w = append([]float64(nil), w...)

	beta := MaximizeScalar(func(b float64) float64 {
		return ll(b, w)
	}, betaMin, betaMax, 1e-3)

	for d := 1; d < len(w); d++ {
		w[d] = MaximizeScalar(func(v float64) float64 {
			saved := w[d]
			w[d] = v
			out := ll(beta, w)
			w[d] = saved
			return out
		}, weightMin, weightMax, 1e-3)
	}
	return beta, w
}

func (s *state) refitScale() {
	s.Beta, s.W = FitScale(func(beta float64, w []float64) float64 {
		return TotalLogLikelihood(s.m, s.X, s.Yea, s.Nay, beta, w)
	}, s.W)
}
