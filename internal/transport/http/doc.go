// Package http exposes the estimators as a JSON service: single-period and
// multi-period estimation endpoints, a health probe, and Prometheus metrics.
// Estimation errors map onto HTTP statuses through the shared error
// taxonomy; non-convergence is a flagged 200, never a failure status.
package http
