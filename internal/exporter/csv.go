package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"nomcli/internal/dynamic"
	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

// WriteCoordinatesCSV writes one row per legislator: id, group (when the
// registry knows it), valid ballot count, and one column per dimension.
func WriteCoordinatesCSV(w io.Writer, points []nominate.IdealPoint, reg *rollcall.Registry, dims int) error {
	cw := csv.NewWriter(w)

	header := []string{"legislator_id", "group", "valid_ballots"}
	for d := 0; d < dims; d++ {
		header = append(header, fmt.Sprintf("coord%d", d+1))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, p := range points {
		group := ""
		if reg != nil {
			group = reg.Group(p.LegislatorID)
		}
		row := []string{p.LegislatorID, group, strconv.Itoa(p.ValidBallots)}
		for d := 0; d < dims; d++ {
			row = append(row, formatCoord(p.Coords, d))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write legislator %s: %w", p.LegislatorID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteBillParamsCSV writes one row per vote with its fitted yea and nay
// reference points.
func WriteBillParamsCSV(w io.Writer, bills []nominate.BillParams, dims int) error {
	cw := csv.NewWriter(w)

	header := []string{"vote_id"}
	for d := 0; d < dims; d++ {
		header = append(header, fmt.Sprintf("yea%d", d+1))
	}
	for d := 0; d < dims; d++ {
		header = append(header, fmt.Sprintf("nay%d", d+1))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, b := range bills {
		row := []string{b.VoteID}
		for d := 0; d < dims; d++ {
			row = append(row, formatCoord(b.Yea, d))
		}
		for d := 0; d < dims; d++ {
			row = append(row, formatCoord(b.Nay, d))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write vote %s: %w", b.VoteID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTrajectoriesCSV writes one row per legislator per dimension with the
// drift polynomial coefficients in ascending powers of τ.
func WriteTrajectoriesCSV(w io.Writer, trajectories []dynamic.Trajectory, order int) error {
	cw := csv.NewWriter(w)

	header := []string{"legislator_id", "dimension"}
	for k := 0; k <= order; k++ {
		header = append(header, fmt.Sprintf("c%d", k))
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, traj := range trajectories {
		for d, coeffs := range traj.Coeffs {
			row := []string{traj.LegislatorID, strconv.Itoa(d + 1)}
			for k := 0; k <= order; k++ {
				row = append(row, formatCoord(coeffs, k))
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write trajectory %s: %w", traj.LegislatorID, err)
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCoordinatesCSV writes legislator coordinates to path, creating parent
// directories as needed.
func SaveCoordinatesCSV(path string, points []nominate.IdealPoint, reg *rollcall.Registry, dims int) error {
	return saveCSV(path, func(f io.Writer) error {
		return WriteCoordinatesCSV(f, points, reg, dims)
	})
}

// SaveBillParamsCSV writes bill parameters to path.
func SaveBillParamsCSV(path string, bills []nominate.BillParams, dims int) error {
	return saveCSV(path, func(f io.Writer) error {
		return WriteBillParamsCSV(f, bills, dims)
	})
}

// SaveTrajectoriesCSV writes drift coefficients to path.
func SaveTrajectoriesCSV(path string, trajectories []dynamic.Trajectory, order int) error {
	return saveCSV(path, func(f io.Writer) error {
		return WriteTrajectoriesCSV(f, trajectories, order)
	})
}

func saveCSV(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := write(f); err != nil {
		return err
	}
	return f.Close()
}

func formatCoord(coords []float64, d int) string {
	if d >= len(coords) {
		return ""
	}
	return strconv.FormatFloat(coords[d], 'f', 6, 64)
}
