package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"nomcli/internal/dynamic"
	"nomcli/internal/nominate"
)

// RunSummary is the JSON run report written next to the CSV outputs.
type RunSummary struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Dims        int               `json:"dims"`
	Periods     []int             `json:"periods"`
	Legislators int               `json:"legislators"`
	Votes       int               `json:"votes"`
	Beta        float64           `json:"beta"`
	Weights     []float64         `json:"weights"`
	LogLik      float64           `json:"log_likelihood"`
	Converged   bool              `json:"converged"`
	Iterations  int               `json:"iterations"`
	Stats       nominate.FitStats `json:"stats"`
	Excluded    int               `json:"excluded"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// SummaryFromResult builds the run report for a single-period fit.
func SummaryFromResult(r *nominate.Result) RunSummary {
	return RunSummary{
		RunID:       r.RunID,
		GeneratedAt: time.Now().UTC(),
		Dims:        r.Dims,
		Periods:     []int{r.Period},
		Legislators: len(r.Legislators),
		Votes:       len(r.Bills),
		Beta:        r.Beta,
		Weights:     r.Weights,
		LogLik:      r.LogLik,
		Converged:   r.Converged,
		Iterations:  r.Iterations,
		Stats:       r.Stats,
		Excluded:    len(r.Excluded),
		Warnings:    r.Warnings,
	}
}

// SummaryFromDynamic builds the run report for a multi-period fit. The fit
// statistics are the vote-weighted average of the per-period statistics.
func SummaryFromDynamic(r *dynamic.Result) RunSummary {
	summary := RunSummary{
		RunID:       r.RunID,
		GeneratedAt: time.Now().UTC(),
		Dims:        r.Dims,
		Legislators: len(r.Trajectories),
		Beta:        r.Beta,
		Weights:     r.Weights,
		LogLik:      r.LogLik,
		Converged:   r.Converged,
		Iterations:  r.Iterations,
		Excluded:    len(r.Excluded),
		Warnings:    r.Warnings,
	}

	totalVotes := 0
	for _, pe := range r.Periods {
		summary.Periods = append(summary.Periods, pe.Period)
		n := len(pe.Bills)
		totalVotes += n
		summary.Stats.Classification += pe.Stats.Classification * float64(n)
		summary.Stats.APRE += pe.Stats.APRE * float64(n)
		summary.Stats.GMP += pe.Stats.GMP * float64(n)
	}
	summary.Votes = totalVotes
	if totalVotes > 0 {
		summary.Stats.Classification /= float64(totalVotes)
		summary.Stats.APRE /= float64(totalVotes)
		summary.Stats.GMP /= float64(totalVotes)
	}
	return summary
}

// WriteSummaryJSON writes the run report with stable indentation.
func WriteSummaryJSON(w io.Writer, summary RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// SaveSummaryJSON writes the run report to path.
func SaveSummaryJSON(path string, summary RunSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteSummaryJSON(f, summary); err != nil {
		return err
	}
	return f.Close()
}
