package nominate

import (
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "nomcli/internal/errors"
	"nomcli/internal/rollcall"
)

// SpectralStart computes starting legislator positions by classical scaling
// of pairwise disagreement: the squared disagreement matrix is
// double-centered and its leading eigenvectors, scaled by the square roots
// of their eigenvalues, become the coordinates. Pairs with no shared valid
// ballots are assumed to half-agree.
func SpectralStart(m *rollcall.Matrix, dims int) ([][]float64, error) {
	n := m.NumLegislators()
	if n < dims+1 {
		return nil, apperrors.InsufficientData("spectral start needs at least %d legislators, got %d", dims+1, n)
	}

	// Squared disagreement distances.
	d2 := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for k := i + 1; k < n; k++ {
			dist := 1 - agreement(m, i, k)
			d2.SetSym(i, k, dist*dist)
		}
	}

	// Double-center: B = −½·J·D²·J with J the centering matrix.
	rowMean := make([]float64, n)
	grand := 0.0
	for i := 0; i < n; i++ {
		sum := 0.0
		for k := 0; k < n; k++ {
			sum += d2.At(i, k)
		}
		rowMean[i] = sum / float64(n)
		grand += sum
	}
	grand /= float64(n * n)

	b := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for k := i; k < n; k++ {
			b.SetSym(i, k, -0.5*(d2.At(i, k)-rowMean[i]-rowMean[k]+grand))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(b, true) {
		return nil, apperrors.Degeneracy("eigendecomposition of the agreement matrix failed")
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// Eigenvalues come back ascending; the leading dims are at the end.
	coords := makeGrid(n, dims)
	for d := 0; d < dims; d++ {
		k := n - 1 - d
		lambda := values[k]
		if lambda < 0 {
			lambda = 0
		}
		scale := math.Sqrt(lambda)
		for i := 0; i < n; i++ {
			coords[i][d] = vectors.At(i, k) * scale
		}
	}

	normalizeToBall(coords)
	return coords, nil
}

// agreement is the share of shared valid ballots on which legislators i and
// k voted the same way; 0.5 when they share none.
func agreement(m *rollcall.Matrix, i, k int) float64 {
	shared, same := 0, 0
	for j := 0; j < m.NumVotes(); j++ {
		ci, ck := m.At(i, j), m.At(k, j)
		if !ci.IsValidBallot() || !ck.IsValidBallot() {
			continue
		}
		shared++
		if ci == ck {
			same++
		}
	}
	if shared == 0 {
		return 0.5
	}
	return float64(same) / float64(shared)
}

// normalizeToBall rescales all positions uniformly so the farthest sits at
// radius 0.9, leaving the line searches room to move outward.
func normalizeToBall(coords [][]float64) {
	maxNorm := 0.0
	for _, x := range coords {
		norm := 0.0
		for _, v := range x {
			norm += v * v
		}
		if norm > maxNorm {
			maxNorm = norm
		}
	}
	maxNorm = math.Sqrt(maxNorm)
	if maxNorm == 0 {
		return
	}
	scale := 0.9 / maxNorm
	for _, x := range coords {
		for d := range x {
			x[d] *= scale
		}
	}
}
