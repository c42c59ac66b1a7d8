package nominate

import (
	"math"

	"nomcli/internal/rollcall"
)

// Score rates fitted parameters against the observed ballots:
// classification accuracy, aggregate proportional reduction in error over
// the minority-vote baseline, and the geometric mean probability. The
// dynamic estimator reuses it to score each period of a joint fit.
func Score(m *rollcall.Matrix, X, yeaPts, nayPts [][]float64, beta float64, w []float64) FitStats {
	var (
		total, correct       int
		minorityTotal        int
		classificationErrors int
		sumLogP              float64
	)

	for j := 0; j < m.NumVotes(); j++ {
		yeas, nays := m.VoteTallies(j)
		minority := yeas
		if nays < minority {
			minority = nays
		}
		minorityTotal += minority

		for i := 0; i < m.NumLegislators(); i++ {
			choice := m.At(i, j)
			if !choice.IsValidBallot() {
				continue
			}
			p := YeaProbability(beta, w, X[i], yeaPts[j], nayPts[j])

			total++
			predYea := p >= 0.5
			if predYea == (choice == rollcall.Yea) {
				correct++
			} else {
				classificationErrors++
			}

			if choice == rollcall.Yea {
				sumLogP += math.Log(p)
			} else {
				sumLogP += math.Log(1 - p)
			}
		}
	}

	if total == 0 {
		return FitStats{}
	}
	stats := FitStats{
		Classification: float64(correct) / float64(total),
		GMP:            math.Exp(sumLogP / float64(total)),
	}
	if minorityTotal > 0 {
		stats.APRE = float64(minorityTotal-classificationErrors) / float64(minorityTotal)
	}
	return stats
}

func computeStats(s *state) FitStats {
	return Score(s.m, s.X, s.Yea, s.Nay, s.Beta, s.W)
}
