package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// APIError is the JSON error envelope returned by the HTTP transport.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// HTTPStatus maps an estimation error kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInput:
		return http.StatusBadRequest
	case KindInsufficientData:
		return http.StatusUnprocessableEntity
	case KindAnchorNotFound:
		// Recoverable; a handler seeing it unwrapped treats it as a bad request.
		return http.StatusBadRequest
	case KindNumericalDegeneracy:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// ToAPIError converts any error into a renderable APIError.
func ToAPIError(err error) *APIError {
	var ee *EstimationError
	if errors.As(err, &ee) {
		return &APIError{
			StatusCode: HTTPStatus(err),
			ErrorCode:  string(ee.Kind),
			Message:    ee.Message,
			Details:    ee.Details,
		}
	}
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  "INTERNAL_ERROR",
		Message:    err.Error(),
	}
}
