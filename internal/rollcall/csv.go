package rollcall

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	apperrors "nomcli/internal/errors"
)

// ReadMatrixCSV parses a wide-format vote matrix: the header row holds vote
// ids (first cell is the legislator-id column label), each following row is
// one legislator's choices as numeric codes.
func ReadMatrixCSV(r io.Reader, period int) (*Matrix, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 2 {
		return nil, apperrors.Input("vote matrix needs at least one vote column, got %d columns", len(header))
	}
	voteIDs := header[1:]

	var legislatorIDs []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		if len(record) != len(header) {
			return nil, apperrors.Input("row %d has %d fields, header has %d", len(rows)+2, len(record), len(header))
		}
		legislatorIDs = append(legislatorIDs, record[0])
		rows = append(rows, record[1:])
	}

	m, err := NewMatrix(period, legislatorIDs, voteIDs)
	if err != nil {
		return nil, err
	}
	for i, row := range rows {
		for j, code := range row {
			choice, err := ParseChoiceCode(code)
			if err != nil {
				return nil, apperrors.Input("legislator %q, vote %q: %v", legislatorIDs[i], voteIDs[j], err)
			}
			m.Set(i, j, choice)
		}
	}
	return m, nil
}

// LoadMatrixCSV reads a wide-format vote matrix from disk.
func LoadMatrixCSV(path string, period int) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vote matrix: %w", err)
	}
	defer f.Close()

	m, err := ReadMatrixCSV(f, period)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// ReadMetadataCSV parses a legislator metadata table with columns
// legislator_id, group, name (extra columns are ignored).
func ReadMetadataCSV(r io.Reader) ([]LegislatorMeta, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idCol, groupCol, nameCol := -1, -1, -1
	for i, name := range header {
		switch name {
		case "legislator_id", "id":
			if idCol < 0 {
				idCol = i
			}
		case "group", "partido", "party":
			groupCol = i
		case "name", "nombres", "display_name":
			nameCol = i
		}
	}
	if idCol < 0 {
		return nil, apperrors.Input("metadata is missing a legislator_id column")
	}

	var metas []LegislatorMeta
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read metadata row: %w", err)
		}
		if idCol >= len(record) || record[idCol] == "" {
			return nil, apperrors.Input("metadata row %d has no legislator id", len(metas)+2)
		}
		meta := LegislatorMeta{ID: record[idCol]}
		if groupCol >= 0 && groupCol < len(record) {
			meta.Group = record[groupCol]
		}
		if nameCol >= 0 && nameCol < len(record) {
			meta.Name = record[nameCol]
		}
		metas = append(metas, meta)
	}
	return metas, nil
}

// LoadMetadataCSV reads a legislator metadata table from disk.
func LoadMetadataCSV(path string) ([]LegislatorMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	defer f.Close()

	metas, err := ReadMetadataCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return metas, nil
}
