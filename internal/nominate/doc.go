// Package nominate implements single-period ideal-point estimation for
// roll-call voting records in the NOMINATE family.
//
// The estimator alternates two conditional maximum-likelihood half-steps
// under a Gaussian-kernel random-utility spatial voting model:
//
//  1. Bill step: holding legislator positions fixed, fit each vote's yea and
//     nay reference points.
//  2. Legislator step: holding bill parameters fixed, re-estimate each
//     legislator's D-dimensional position.
//
// Every few sweeps the global signal strength β and the per-dimension
// weights w (w₀ ≡ 1) are re-fit by bounded line search over the aggregate
// log-likelihood. Sweeps stop when the log-likelihood gain falls below the
// tolerance or the iteration budget runs out; non-convergence is reported as
// a flag on the result, never as an error.
//
// Both half-steps are pure functions (fixed side in, best-fit other side
// out), which keeps them independently testable and lets the estimator run
// them as a parallel map with a barrier between the halves. Random restarts
// ("trials") run concurrently and are joined by an exact max-by-likelihood
// reduction, so a fixed seed yields a fully deterministic result.
//
// Sign indeterminacy is resolved by polarity anchors: either an identity
// pair (expected-negative, expected-positive legislator) per dimension, or a
// first-row/last-row fallback. A separate post-hoc pass, ResolveByGroupMeans,
// corrects orientation from group means when anchors are unavailable.
package nominate
