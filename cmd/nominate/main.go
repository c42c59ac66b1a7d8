// Command nominate runs a single-period ideal-point estimation over a CSV
// vote matrix and writes coordinates, bill parameters, and a run summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"nomcli/internal/config"
	"nomcli/internal/exporter"
	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

func main() {
	votesPath := flag.String("votes", "", "vote matrix CSV (required)")
	metaPath := flag.String("meta", "", "legislator metadata CSV (optional)")
	outDir := flag.String("out", "results", "output directory")
	configPath := flag.String("config", "", "YAML config file (optional)")
	dims := flag.Int("dims", 0, "dimensions (overrides config)")
	trials := flag.Int("trials", 0, "random restarts (overrides config)")
	minVotes := flag.Int("minvotes", -1, "minimum valid ballots per legislator (overrides config)")
	lop := flag.Float64("lop", -1, "lopsided vote threshold (overrides config)")
	seed := flag.Int64("seed", 0, "random seed (overrides config)")
	anchors := flag.String("anchors", "", "per-dimension anchor pairs, e.g. 1043:959[,negID:posID...]")
	groups := flag.String("groups", "", "post-hoc group polarity rules, e.g. PC:UDI (needs -meta)")
	xlsx := flag.Bool("xlsx", false, "also write an XLSX workbook")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	if *votesPath == "" {
		logger.Error("Missing required -votes flag")
		flag.Usage()
		os.Exit(1)
	}

	opts := cfg.Estimation.Options()
	if *dims > 0 {
		opts.Dims = *dims
	}
	if *trials > 0 {
		opts.Trials = *trials
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
	if *anchors != "" {
		pairs, err := parseAnchorPairs(*anchors)
		if err != nil {
			logger.Error("Invalid -anchors flag", "error", err)
			os.Exit(1)
		}
		opts.Anchors = nominate.AnchorPolicy{Kind: nominate.AnchorByIdentity, Pairs: pairs}
	}

	logger.Info("Loading vote matrix", "path", *votesPath)
	m, err := rollcall.LoadMatrixCSV(*votesPath, 0)
	if err != nil {
		logger.Error("Failed to load vote matrix", "error", err)
		os.Exit(1)
	}
	logger.Info("Vote matrix loaded",
		"legislators", m.NumLegislators(),
		"votes", m.NumVotes())

	reg := rollcall.NewRegistry()
	if *metaPath != "" {
		metas, err := rollcall.LoadMetadataCSV(*metaPath)
		if err != nil {
			logger.Error("Failed to load legislator metadata", "error", err)
			os.Exit(1)
		}
		for _, meta := range metas {
			reg.AddMeta(meta)
		}
		reg.ObserveMatrix(m)
		logger.Info("Metadata loaded", "legislators", reg.Len())
	}

	result, err := nominate.Estimate(context.Background(), m, opts, logger)
	if err != nil {
		logger.Error("Estimation failed", "error", err)
		os.Exit(1)
	}
	if !result.Converged {
		logger.Warn("Estimation did not converge; results are best-effort",
			"iterations", result.Iterations)
	}

	if *groups != "" {
		rules, err := parseGroupRules(*groups)
		if err != nil {
			logger.Error("Invalid -groups flag", "error", err)
			os.Exit(1)
		}
		groupByID := map[string]string{}
		for _, p := range result.Legislators {
			groupByID[p.LegislatorID] = reg.Group(p.LegislatorID)
		}
		warnings := nominate.ResolveByGroupMeans(result.Legislators, result.Bills, groupByID, rules, logger)
		result.Warnings = append(result.Warnings, warnings...)
	}

	if err := writeOutputs(*outDir, result, reg, *xlsx); err != nil {
		logger.Error("Failed to write outputs", "error", err)
		os.Exit(1)
	}

	logger.Info("Estimation complete",
		"run_id", result.RunID,
		"classification", fmt.Sprintf("%.4f", result.Stats.Classification),
		"apre", fmt.Sprintf("%.4f", result.Stats.APRE),
		"gmp", fmt.Sprintf("%.4f", result.Stats.GMP),
		"output_dir", *outDir)
}

func writeOutputs(outDir string, result *nominate.Result, reg *rollcall.Registry, xlsx bool) error {
	if err := exporter.SaveCoordinatesCSV(filepath.Join(outDir, "coordinates.csv"), result.Legislators, reg, result.Dims); err != nil {
		return err
	}
	if err := exporter.SaveBillParamsCSV(filepath.Join(outDir, "bills.csv"), result.Bills, result.Dims); err != nil {
		return err
	}
	if err := exporter.SaveSummaryJSON(filepath.Join(outDir, "summary.json"), exporter.SummaryFromResult(result)); err != nil {
		return err
	}
	if xlsx {
		return exporter.SaveWorkbookXLSX(filepath.Join(outDir, "result.xlsx"), result, reg)
	}
	return nil
}

// parseAnchorPairs parses "neg:pos[,neg:pos...]", one pair per dimension.
func parseAnchorPairs(s string) ([]nominate.DimensionAnchor, error) {
	var pairs []nominate.DimensionAnchor
	for _, part := range strings.Split(s, ",") {
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return nil, fmt.Errorf("anchor pair %q is not neg:pos", part)
		}
		pairs = append(pairs, nominate.DimensionAnchor{Negative: fields[0], Positive: fields[1]})
	}
	return pairs, nil
}

// parseGroupRules parses "negGroup:posGroup[,negGroup:posGroup...]".
func parseGroupRules(s string) ([]nominate.GroupRule, error) {
	var rules []nominate.GroupRule
	for _, part := range strings.Split(s, ",") {
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 || fields[0] == "" || fields[1] == "" {
			return nil, fmt.Errorf("group rule %q is not negGroup:posGroup", part)
		}
		rules = append(rules, nominate.GroupRule{NegativeGroup: fields[0], PositiveGroup: fields[1]})
	}
	return rules, nil
}
