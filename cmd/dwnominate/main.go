// Command dwnominate runs a multi-period joint estimation over a set of CSV
// vote matrices and writes per-period coordinates, drift trajectories, and a
// run summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"nomcli/internal/config"
	"nomcli/internal/dynamic"
	"nomcli/internal/exporter"
	"nomcli/internal/rollcall"
)

func main() {
	periodsPath := flag.String("periods", "", "periods definition YAML (required)")
	outDir := flag.String("out", "results", "output directory")
	configPath := flag.String("config", "", "YAML config file (optional)")
	dims := flag.Int("dims", 0, "dimensions (overrides config)")
	order := flag.Int("order", -1, "drift polynomial order (overrides config)")
	minVotes := flag.Int("minvotes", -1, "minimum valid ballots per legislator per period (overrides config)")
	lop := flag.Float64("lop", -1, "lopsided vote threshold (overrides config)")
	seed := flag.Int64("seed", 0, "random seed (overrides config)")
	anchor := flag.String("anchor", "", "global anchor legislator id (overrides config)")
	signs := flag.String("signs", "", "expected anchor signs per dimension, e.g. -1,1")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	if *periodsPath == "" {
		logger.Error("Missing required -periods flag")
		flag.Usage()
		os.Exit(1)
	}

	opts := cfg.Dynamic.Options()
	if *dims > 0 {
		opts.Dims = *dims
	}
	if *order >= 0 {
		opts.Order = *order
	}
	if *minVotes >= 0 {
		opts.MinVotes = *minVotes
	}
	if *lop >= 0 {
		opts.Lop = *lop
	}
	if *seed != 0 {
		opts.Seed = *seed
	}
	if *anchor != "" {
		opts.Anchor.LegislatorID = *anchor
	}
	if *signs != "" {
		expected, err := parseSigns(*signs)
		if err != nil {
			logger.Error("Invalid -signs flag", "error", err)
			os.Exit(1)
		}
		opts.Anchor.ExpectedSigns = expected
	}

	defs, err := config.LoadPeriods(*periodsPath)
	if err != nil {
		logger.Error("Failed to load periods definition", "error", err)
		os.Exit(1)
	}

	baseDir := filepath.Dir(*periodsPath)
	reg := rollcall.NewRegistry()
	matrices := make([]*rollcall.Matrix, len(defs))
	for t, def := range defs {
		path := resolvePath(baseDir, def.Matrix)
		logger.Info("Loading vote matrix", "period", def.Period, "label", def.Label, "path", path)
		m, err := rollcall.LoadMatrixCSV(path, def.Period)
		if err != nil {
			logger.Error("Failed to load vote matrix", "period", def.Period, "error", err)
			os.Exit(1)
		}
		matrices[t] = m
		reg.ObserveMatrix(m)

		if def.Metadata != "" {
			metas, err := rollcall.LoadMetadataCSV(resolvePath(baseDir, def.Metadata))
			if err != nil {
				logger.Error("Failed to load legislator metadata", "period", def.Period, "error", err)
				os.Exit(1)
			}
			for _, meta := range metas {
				reg.AddMeta(meta)
			}
		}
	}

	result, err := dynamic.Estimate(context.Background(), matrices, opts, logger)
	if err != nil {
		logger.Error("Joint estimation failed", "error", err)
		os.Exit(1)
	}
	if !result.Converged {
		logger.Warn("Joint estimation did not converge; results are best-effort",
			"iterations", result.Iterations)
	}

	if err := writeOutputs(*outDir, result, reg); err != nil {
		logger.Error("Failed to write outputs", "error", err)
		os.Exit(1)
	}

	logger.Info("Joint estimation complete",
		"run_id", result.RunID,
		"periods", len(result.Periods),
		"trajectories", len(result.Trajectories),
		"output_dir", *outDir)
}

func writeOutputs(outDir string, result *dynamic.Result, reg *rollcall.Registry) error {
	for _, pe := range result.Periods {
		name := fmt.Sprintf("coordinates_p%d.csv", pe.Period)
		if err := exporter.SaveCoordinatesCSV(filepath.Join(outDir, name), pe.Legislators, reg, result.Dims); err != nil {
			return err
		}
		name = fmt.Sprintf("bills_p%d.csv", pe.Period)
		if err := exporter.SaveBillParamsCSV(filepath.Join(outDir, name), pe.Bills, result.Dims); err != nil {
			return err
		}
	}
	if err := exporter.SaveTrajectoriesCSV(filepath.Join(outDir, "trajectories.csv"), result.Trajectories, result.Order); err != nil {
		return err
	}
	return exporter.SaveSummaryJSON(filepath.Join(outDir, "summary.json"), exporter.SummaryFromDynamic(result))
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// parseSigns parses "-1,1"-style expected sign lists.
func parseSigns(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	signs := make([]float64, len(parts))
	for d, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("sign %q: %w", part, err)
		}
		signs[d] = v
	}
	return signs, nil
}
