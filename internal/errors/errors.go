// Package errors defines the estimation error taxonomy shared by the
// roll-call data model, the estimators, and the HTTP transport.
//
// Two of the kinds are fatal (InputError, InsufficientDataError,
// NumericalDegeneracyError abort the run); AnchorNotFound is recoverable and
// is normally reported as a warning after falling back to the row policy.
// Non-convergence is deliberately NOT an error: estimators return their
// best-effort result with a convergence flag instead.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies estimation errors.
type Kind string

const (
	// KindInput marks malformed input: duplicate ids, ragged matrices,
	// dimension mismatches across periods.
	KindInput Kind = "INPUT_ERROR"
	// KindInsufficientData marks runs that cannot proceed after filtering:
	// too few legislators or votes, or too few periods for the model order.
	KindInsufficientData Kind = "INSUFFICIENT_DATA"
	// KindAnchorNotFound marks a named polarity anchor that did not survive
	// filtering. Recoverable: callers fall back to the row policy.
	KindAnchorNotFound Kind = "ANCHOR_NOT_FOUND"
	// KindNumericalDegeneracy marks singular fits that the lopsided-vote
	// filter should have prevented. Fatal, because it indicates a filtering
	// defect rather than bad luck.
	KindNumericalDegeneracy Kind = "NUMERICAL_DEGENERACY"
)

// EstimationError is the concrete error type for all estimation failures.
type EstimationError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EstimationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Input creates a fatal input error.
func Input(format string, args ...any) error {
	return &EstimationError{Kind: KindInput, Message: fmt.Sprintf(format, args...)}
}

// InsufficientData creates a fatal insufficient-data error.
func InsufficientData(format string, args ...any) error {
	return &EstimationError{Kind: KindInsufficientData, Message: fmt.Sprintf(format, args...)}
}

// AnchorNotFound creates a recoverable missing-anchor error.
func AnchorNotFound(format string, args ...any) error {
	return &EstimationError{Kind: KindAnchorNotFound, Message: fmt.Sprintf(format, args...)}
}

// Degeneracy creates a fatal numerical-degeneracy error.
func Degeneracy(format string, args ...any) error {
	return &EstimationError{Kind: KindNumericalDegeneracy, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details (e.g. an exclusion list) to an
// estimation error. Non-estimation errors are returned unchanged.
func WithDetails(err error, details any) error {
	var ee *EstimationError
	if errors.As(err, &ee) {
		return &EstimationError{Kind: ee.Kind, Message: ee.Message, Details: details}
	}
	return err
}

// KindOf reports the kind of err, or "" when err is not an EstimationError.
func KindOf(err error) Kind {
	var ee *EstimationError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return ""
}

// IsKind reports whether err is an EstimationError of kind k.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// IsFatal reports whether err should abort the whole estimation.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindInput, KindInsufficientData, KindNumericalDegeneracy:
		return true
	}
	return false
}
