package nominate

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"nomcli/internal/rollcall"
)

// Coordinate and parameter bounds for the line searches. Legislators live in
// the unit ball; bill reference points may sit outside it so extreme votes
// can still be separated.
const (
	legislatorBound = 1.0
	billBound       = 1.5
	betaMin         = 0.5
	betaMax         = 30.0
	weightMin       = 0.1
	weightMax       = 1.5

	// probFloor keeps log-probabilities finite when Φ saturates.
	probFloor = 1e-9
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// state is one trial's full parameter set over a filtered matrix.
type state struct {
	m    *rollcall.Matrix
	dims int

	// X[i] is legislator i's position, Yea[j]/Nay[j] are vote j's
	// reference points.
	X   [][]float64
	Yea [][]float64
	Nay [][]float64

	// Beta is the global signal strength, W the per-dimension weights
	// with W[0] pinned to 1.
	Beta float64
	W    []float64
}

func newState(m *rollcall.Matrix, dims int) *state {
	s := &state{
		m:    m,
		dims: dims,
		X:    makeGrid(m.NumLegislators(), dims),
		Yea:  makeGrid(m.NumVotes(), dims),
		Nay:  makeGrid(m.NumVotes(), dims),
		Beta: DefaultBeta,
		W:    make([]float64, dims),
	}
	s.W[0] = 1
	for d := 1; d < dims; d++ {
		s.W[d] = DefaultWeight
	}
	return s
}

// Starting scale parameters, kept from the classic calibration so results on
// reference datasets line up with published coordinates.
const (
	DefaultBeta   = 8.8633
	DefaultWeight = 0.4619
)

func makeGrid(n, dims int) [][]float64 {
	rows := make([][]float64, n)
	buf := make([]float64, n*dims)
	for i := range rows {
		rows[i] = buf[i*dims : (i+1)*dims : (i+1)*dims]
	}
	return rows
}

// kernelUtility is the Gaussian random utility of outcome point z for a
// legislator at x: β·exp(−½·Σ_d w_d²(x_d−z_d)²).
func kernelUtility(beta float64, w, x, z []float64) float64 {
	sum := 0.0
	for d := range x {
		diff := x[d] - z[d]
		sum += w[d] * w[d] * diff * diff
	}
	return beta * math.Exp(-0.5*sum)
}

// YeaProbability is the model probability that a legislator at x votes yea
// on a bill with reference points yea and nay, clamped away from 0 and 1.
func YeaProbability(beta float64, w, x, yea, nay []float64) float64 {
	p := stdNormal.CDF(kernelUtility(beta, w, x, yea) - kernelUtility(beta, w, x, nay))
	return clampProb(p)
}

func clampProb(p float64) float64 {
	if p < probFloor {
		return probFloor
	}
	if p > 1-probFloor {
		return 1 - probFloor
	}
	return p
}

// voteLogLik sums the log-likelihood of vote j's valid ballots for candidate
// reference points yea and nay.
func voteLogLik(m *rollcall.Matrix, X [][]float64, beta float64, w []float64, j int, yea, nay []float64) float64 {
	ll := 0.0
	for i := 0; i < m.NumLegislators(); i++ {
		switch m.At(i, j) {
		case rollcall.Yea:
			ll += math.Log(YeaProbability(beta, w, X[i], yea, nay))
		case rollcall.Nay:
			ll += math.Log(1 - YeaProbability(beta, w, X[i], yea, nay))
		}
	}
	return ll
}

// legislatorLogLik sums the log-likelihood of legislator i's valid ballots
// for a candidate position x.
func legislatorLogLik(m *rollcall.Matrix, yeaPts, nayPts [][]float64, beta float64, w []float64, i int, x []float64) float64 {
	ll := 0.0
	for j := 0; j < m.NumVotes(); j++ {
		switch m.At(i, j) {
		case rollcall.Yea:
			ll += math.Log(YeaProbability(beta, w, x, yeaPts[j], nayPts[j]))
		case rollcall.Nay:
			ll += math.Log(1 - YeaProbability(beta, w, x, yeaPts[j], nayPts[j]))
		}
	}
	return ll
}

// TotalLogLikelihood sums the model log-likelihood over every valid ballot.
func TotalLogLikelihood(m *rollcall.Matrix, X, yeaPts, nayPts [][]float64, beta float64, w []float64) float64 {
	ll := 0.0
	for j := 0; j < m.NumVotes(); j++ {
		ll += voteLogLik(m, X, beta, w, j, yeaPts[j], nayPts[j])
	}
	return ll
}

func (s *state) logLik() float64 {
	return TotalLogLikelihood(s.m, s.X, s.Yea, s.Nay, s.Beta, s.W)
}

// ClampToBall rescales x into the unit ball when its norm exceeds 1.
func ClampToBall(x []float64) {
	norm := 0.0
	for _, v := range x {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > legislatorBound {
		scale := legislatorBound / norm
		for d := range x {
			x[d] *= scale
		}
	}
}
