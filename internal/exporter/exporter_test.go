package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"nomcli/internal/dynamic"
	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

func sampleResult() *nominate.Result {
	return &nominate.Result{
		RunID:  "test-run",
		Period: 0,
		Dims:   2,
		Legislators: []nominate.IdealPoint{
			{LegislatorID: "1043", Coords: []float64{-0.7, 0.1}, ValidBallots: 120},
			{LegislatorID: "959", Coords: []float64{0.8, -0.2}, ValidBallots: 95},
		},
		Bills: []nominate.BillParams{
			{VoteID: "v1", Yea: []float64{0.3, 0.0}, Nay: []float64{-0.4, 0.1}},
		},
		Beta:      8.9,
		Weights:   []float64{1, 0.46},
		Stats:     nominate.FitStats{Classification: 0.93, APRE: 0.61, GMP: 0.78},
		LogLik:    -512.3,
		Converged: true,
	}
}

func TestWriteCoordinatesCSV(t *testing.T) {
	reg := rollcall.NewRegistry()
	reg.AddMeta(rollcall.LegislatorMeta{ID: "1043", Group: "PC", Name: "Labra"})

	var buf bytes.Buffer
	require.NoError(t, WriteCoordinatesCSV(&buf, sampleResult().Legislators, reg, 2))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"legislator_id", "group", "valid_ballots", "coord1", "coord2"}, rows[0])
	assert.Equal(t, []string{"1043", "PC", "120", "-0.700000", "0.100000"}, rows[1])
	assert.Equal(t, "", rows[2][1], "unknown legislator has no group")
}

func TestWriteBillParamsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBillParamsCSV(&buf, sampleResult().Bills, 2))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"vote_id", "yea1", "yea2", "nay1", "nay2"}, rows[0])
	assert.Equal(t, "0.300000", rows[1][1])
	assert.Equal(t, "-0.400000", rows[1][3])
}

func TestWriteTrajectoriesCSV(t *testing.T) {
	trajectories := []dynamic.Trajectory{
		{LegislatorID: "1043", Coeffs: [][]float64{{-0.6, 0.05}, {0.1, -0.02}}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTrajectoriesCSV(&buf, trajectories, 1))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "one row per dimension")
	assert.Equal(t, []string{"legislator_id", "dimension", "c0", "c1"}, rows[0])
	assert.Equal(t, []string{"1043", "1", "-0.600000", "0.050000"}, rows[1])
	assert.Equal(t, []string{"1043", "2", "0.100000", "-0.020000"}, rows[2])
}

func TestSummaryJSONRoundTrip(t *testing.T) {
	summary := SummaryFromResult(sampleResult())
	assert.Equal(t, "test-run", summary.RunID)
	assert.Equal(t, 2, summary.Legislators)
	assert.Equal(t, []int{0}, summary.Periods)

	var buf bytes.Buffer
	require.NoError(t, WriteSummaryJSON(&buf, summary))

	var decoded RunSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, summary.RunID, decoded.RunID)
	assert.Equal(t, summary.Stats, decoded.Stats)
}

func TestSaveWorkbookXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.xlsx")
	reg := rollcall.NewRegistry()
	reg.AddMeta(rollcall.LegislatorMeta{ID: "959", Group: "UDI"})

	require.NoError(t, SaveWorkbookXLSX(path, sampleResult(), reg))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Coordinates", "Bills", "Summary"}, f.GetSheetList())

	got, err := f.GetCellValue("Coordinates", "A2")
	require.NoError(t, err)
	assert.Equal(t, "1043", got)

	got, err = f.GetCellValue("Coordinates", "B3")
	require.NoError(t, err)
	assert.Equal(t, "UDI", got)

	got, err = f.GetCellValue("Bills", "A2")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	got, err = f.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "test-run", got)
}

func TestSaveCoordinatesCSVCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "nested", "coords.csv")
	require.NoError(t, SaveCoordinatesCSV(path, sampleResult().Legislators, nil, 2))
	assert.FileExists(t, path)
}
