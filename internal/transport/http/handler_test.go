package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nomcli/internal/config"
	"nomcli/internal/dynamic"
	"nomcli/internal/nominate"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.Estimation.MaxIterations = 5
	cfg.Dynamic.MaxIterations = 5

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	ts := httptest.NewServer(NewRouter(&cfg, logger, metrics, registry))
	t.Cleanup(ts.Close)
	return ts
}

// cutlinePayload builds a small perfectly separable voting record.
func cutlinePayload(period, nLegs, nVotes int) PeriodPayload {
	p := PeriodPayload{Period: period}
	positions := make([]float64, nLegs)
	for i := 0; i < nLegs; i++ {
		p.Legislators = append(p.Legislators, fmt.Sprintf("leg%02d", i))
		positions[i] = -1 + 2*float64(i)/float64(nLegs-1)
	}
	for j := 0; j < nVotes; j++ {
		p.Votes = append(p.Votes, fmt.Sprintf("p%d-v%02d", period, j))
	}
	for i := 0; i < nLegs; i++ {
		row := make([]string, nVotes)
		for j := 0; j < nVotes; j++ {
			cut := -0.6 + 1.2*float64(j)/float64(nVotes-1)
			if positions[i] < cut {
				row[j] = "1"
			} else {
				row[j] = "0"
			}
		}
		p.Ballots = append(p.Ballots, row)
	}
	return p
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestEstimateEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req := EstimateRequest{
		PeriodPayload: cutlinePayload(0, 9, 12),
		Options: &EstimateOptions{
			Dims:     intPtr(1),
			MinVotes: intPtr(0),
			Lop:      floatPtr(0.01),
			Trials:   intPtr(1),
		},
	}
	resp := postJSON(t, ts.URL+"/api/estimate", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result nominate.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Legislators, 9)
	assert.Equal(t, 1, result.Dims)
	assert.Greater(t, result.Stats.Classification, 0.9)
	assert.NotEmpty(t, result.RunID)
}

func TestEstimateEndpointRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/estimate", "application/json", strings.NewReader("{nope"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var apiErr map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "INPUT_ERROR", apiErr["error_code"])
}

func TestEstimateEndpointValidatesShape(t *testing.T) {
	ts := newTestServer(t)

	req := EstimateRequest{
		PeriodPayload: PeriodPayload{
			Legislators: []string{"a"},
			Votes:       []string{"v1", "v2", "v3"},
			Ballots:     [][]string{{"1", "0", "1"}},
		},
	}
	resp := postJSON(t, ts.URL+"/api/estimate", req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEstimateEndpointInsufficientData(t *testing.T) {
	ts := newTestServer(t)

	req := EstimateRequest{
		PeriodPayload: cutlinePayload(0, 9, 12),
		Options: &EstimateOptions{
			Dims:     intPtr(1),
			MinVotes: intPtr(1000), // drops every legislator
			Trials:   intPtr(1),
		},
	}
	resp := postJSON(t, ts.URL+"/api/estimate", req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var apiErr map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "INSUFFICIENT_DATA", apiErr["error_code"])
}

func TestDynamicEndpoint(t *testing.T) {
	ts := newTestServer(t)

	req := DynamicRequest{
		Periods: []PeriodPayload{
			cutlinePayload(0, 9, 10),
			cutlinePayload(1, 9, 10),
			cutlinePayload(2, 9, 10),
		},
		Options: &DynamicOptions{
			Dims:     intPtr(1),
			Order:    intPtr(1),
			MinVotes: intPtr(0),
			Lop:      floatPtr(0.01),
		},
	}
	resp := postJSON(t, ts.URL+"/api/estimate/dynamic", req)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result dynamic.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Len(t, result.Periods, 3)
	assert.Len(t, result.Trajectories, 9)
}

func TestDynamicEndpointTooFewPeriods(t *testing.T) {
	ts := newTestServer(t)

	req := DynamicRequest{
		Periods: []PeriodPayload{
			cutlinePayload(0, 9, 10),
			cutlinePayload(1, 9, 10),
		},
		Options: &DynamicOptions{
			Dims:  intPtr(1),
			Order: intPtr(1), // needs 3 periods
		},
	}
	resp := postJSON(t, ts.URL+"/api/estimate/dynamic", req)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "nominate_http_requests_total")
}
