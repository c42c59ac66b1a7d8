package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

// SaveWorkbookXLSX writes a three-sheet workbook: legislator coordinates,
// bill parameters, and the run summary.
func SaveWorkbookXLSX(path string, result *nominate.Result, reg *rollcall.Registry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeCoordinatesSheet(f, "Coordinates", result, reg); err != nil {
		return err
	}
	if err := writeBillsSheet(f, "Bills", result); err != nil {
		return err
	}
	if err := writeSummarySheet(f, "Summary", result); err != nil {
		return err
	}

	// Drop the default sheet so Coordinates opens first.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func writeCoordinatesSheet(f *excelize.File, sheet string, result *nominate.Result, reg *rollcall.Registry) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []any{"legislator_id", "group", "valid_ballots"}
	for d := 0; d < result.Dims; d++ {
		header = append(header, fmt.Sprintf("coord%d", d+1))
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	for i, p := range result.Legislators {
		group := ""
		if reg != nil {
			group = reg.Group(p.LegislatorID)
		}
		row := []any{p.LegislatorID, group, p.ValidBallots}
		for d := 0; d < result.Dims; d++ {
			row = append(row, p.Coords[d])
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeBillsSheet(f *excelize.File, sheet string, result *nominate.Result) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []any{"vote_id"}
	for d := 0; d < result.Dims; d++ {
		header = append(header, fmt.Sprintf("yea%d", d+1))
	}
	for d := 0; d < result.Dims; d++ {
		header = append(header, fmt.Sprintf("nay%d", d+1))
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}

	for j, b := range result.Bills {
		row := []any{b.VoteID}
		for d := 0; d < result.Dims; d++ {
			row = append(row, b.Yea[d])
		}
		for d := 0; d < result.Dims; d++ {
			row = append(row, b.Nay[d])
		}
		if err := writeRow(f, sheet, j+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, sheet string, result *nominate.Result) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	rows := [][]any{
		{"run_id", result.RunID},
		{"period", result.Period},
		{"dims", result.Dims},
		{"legislators", len(result.Legislators)},
		{"votes", len(result.Bills)},
		{"beta", result.Beta},
		{"log_likelihood", result.LogLik},
		{"classification", result.Stats.Classification},
		{"apre", result.Stats.APRE},
		{"gmp", result.Stats.GMP},
		{"converged", result.Converged},
		{"iterations", result.Iterations},
		{"excluded", len(result.Excluded)},
	}
	for i, row := range rows {
		if err := writeRow(f, sheet, i+1, row); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, val := range values {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("column %d: %w", col+1, err)
		}
		cell := fmt.Sprintf("%s%d", name, row)
		if err := f.SetCellValue(sheet, cell, val); err != nil {
			return fmt.Errorf("set %s!%s: %w", sheet, cell, err)
		}
	}
	return nil
}
