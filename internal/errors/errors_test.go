package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"input error", Input("duplicate legislator id %q", "1043"), KindInput},
		{"insufficient data", InsufficientData("2 legislators remain, need 4"), KindInsufficientData},
		{"anchor not found", AnchorNotFound("anchor %q filtered out", "959"), KindAnchorNotFound},
		{"degeneracy", Degeneracy("unanimous vote survived filtering"), KindNumericalDegeneracy},
		{"plain error", fmt.Errorf("boom"), Kind("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("filter matrix: %w", InsufficientData("too few votes"))
	assert.Equal(t, KindInsufficientData, KindOf(err))
	assert.True(t, IsKind(err, KindInsufficientData))
	assert.True(t, IsFatal(err))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(Input("bad")))
	assert.True(t, IsFatal(InsufficientData("bad")))
	assert.True(t, IsFatal(Degeneracy("bad")))
	assert.False(t, IsFatal(AnchorNotFound("missing")))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
}

func TestWithDetails(t *testing.T) {
	base := InsufficientData("1 vote remains")
	detailed := WithDetails(base, []string{"V1", "V2"})

	var ee *EstimationError
	require.ErrorAs(t, detailed, &ee)
	assert.Equal(t, KindInsufficientData, ee.Kind)
	assert.Equal(t, []string{"V1", "V2"}, ee.Details)
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"input", Input("ragged matrix"), http.StatusBadRequest, "INPUT_ERROR"},
		{"insufficient", InsufficientData("too few"), http.StatusUnprocessableEntity, "INSUFFICIENT_DATA"},
		{"degeneracy", Degeneracy("singular"), http.StatusInternalServerError, "NUMERICAL_DEGENERACY"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ToAPIError(tt.err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.code, apiErr.ErrorCode)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}
