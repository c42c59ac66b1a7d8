package dynamic

import (
	"math"

	"gonum.org/v1/gonum/mat"

	apperrors "nomcli/internal/errors"
)

// fitPolynomial fits y ≈ Σ_k b_k·τ^k by weighted least squares over the
// normal equations (XᵀWX)b = XᵀWy, falling back to an SVD solve when the
// Gram matrix is ill-conditioned. Returned coefficients are in ascending
// powers of τ.
func fitPolynomial(taus, ys, weights []float64, order int) ([]float64, error) {
	n := len(taus)
	if len(ys) != n || len(weights) != n {
		return nil, apperrors.Input("polynomial fit needs matching series lengths, got %d/%d/%d", n, len(ys), len(weights))
	}
	if n < order+1 {
		return nil, apperrors.InsufficientData("order-%d fit needs %d points, got %d", order, order+1, n)
	}

	p := order + 1
	design := mat.NewDense(n, p, nil)
	for i, tau := range taus {
		pow := 1.0
		for k := 0; k < p; k++ {
			design.Set(i, k, pow)
			pow *= tau
		}
	}

	gram := mat.NewDense(p, p, nil)
	rhs := mat.NewVecDense(p, nil)
	for k := 0; k < p; k++ {
		for l := k; l < p; l++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += weights[i] * design.At(i, k) * design.At(i, l)
			}
			gram.Set(k, l, sum)
			gram.Set(l, k, sum)
		}
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += weights[i] * design.At(i, k) * ys[i]
		}
		rhs.SetVec(k, sum)
	}

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(gram, rhs); err != nil {
		return solveBySVD(design, taus, ys, weights, p)
	}

	out := make([]float64, p)
	for k := 0; k < p; k++ {
		out[k] = coeffs.AtVec(k)
	}
	return out, nil
}

// solveBySVD solves the √W-scaled least-squares problem directly. Repeated
// taus or a zero weight pattern can make the Gram matrix singular while the
// scaled problem still has a minimum-norm solution.
func solveBySVD(design *mat.Dense, taus, ys, weights []float64, p int) ([]float64, error) {
	n := len(taus)
	scaled := mat.NewDense(n, p, nil)
	target := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(weights[i])
		for k := 0; k < p; k++ {
			scaled.Set(i, k, sw*design.At(i, k))
		}
		target.Set(i, 0, sw*ys[i])
	}

	var svd mat.SVD
	if !svd.Factorize(scaled, mat.SVDThin) {
		return nil, apperrors.Degeneracy("SVD of the trajectory design matrix failed")
	}

	rank := 0
	values := svd.Values(nil)
	for _, v := range values {
		if v > 1e-12*values[0] {
			rank++
		}
	}
	if rank == 0 {
		return nil, apperrors.Degeneracy("trajectory design matrix has rank zero")
	}

	var sol mat.Dense
	svd.SolveTo(&sol, target, rank)

	out := make([]float64, p)
	for k := 0; k < p; k++ {
		out[k] = sol.At(k, 0)
	}
	return out, nil
}

// centeredTaus returns τ_t = t − (T−1)/2 for t = 0..T−1, so the drift
// polynomial is expanded around the panel midpoint.
func centeredTaus(numPeriods int) []float64 {
	taus := make([]float64, numPeriods)
	mid := float64(numPeriods-1) / 2
	for t := range taus {
		taus[t] = float64(t) - mid
	}
	return taus
}
