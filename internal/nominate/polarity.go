package nominate

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/stat"

	"nomcli/internal/rollcall"
)

// resolvedAnchor is one dimension's anchor pair as matrix row indices.
type resolvedAnchor struct {
	negRow, posRow int
}

// resolveAnchorPairs maps the anchor policy onto the filtered matrix. A
// named anchor that did not survive filtering is recoverable: the dimension
// falls back to the first/last-row pair and the miss is reported as a
// warning, never an error.
func resolveAnchorPairs(policy AnchorPolicy, m *rollcall.Matrix, dims int) ([]resolvedAnchor, []string) {
	fallback := resolvedAnchor{negRow: 0, posRow: m.NumLegislators() - 1}

	anchors := make([]resolvedAnchor, dims)
	var warnings []string
	for d := 0; d < dims; d++ {
		anchors[d] = fallback
		if policy.Kind != AnchorByIdentity || d >= len(policy.Pairs) {
			continue
		}
		pair := policy.Pairs[d]
		if pair.Negative == "" && pair.Positive == "" {
			continue
		}
		neg := m.LegislatorIndex(pair.Negative)
		pos := m.LegislatorIndex(pair.Positive)
		if neg < 0 || pos < 0 {
			warnings = append(warnings, fmt.Sprintf(
				"dimension %d: anchor pair (%s, %s) not found after filtering, using row fallback",
				d+1, pair.Negative, pair.Positive))
			continue
		}
		anchors[d] = resolvedAnchor{negRow: neg, posRow: pos}
	}
	return anchors, warnings
}

// applySignFix flips each dimension whose anchor ordering is violated:
// afterwards the negative anchor sits strictly left of the positive one on
// every anchored dimension. Flipping negates legislator coordinates and both
// bill reference points, which leaves every distance, and therefore the
// likelihood, unchanged.
func applySignFix(s *state, anchors []resolvedAnchor) {
	for d, a := range anchors {
		if d >= s.dims || a.negRow == a.posRow {
			continue
		}
		if s.X[a.negRow][d] < s.X[a.posRow][d] {
			continue
		}
		flipDimension(s.X, d)
		flipDimension(s.Yea, d)
		flipDimension(s.Nay, d)
	}
}

func flipDimension(grid [][]float64, d int) {
	for i := range grid {
		grid[i][d] = -grid[i][d]
	}
}

// GroupRule names the groups whose means orient one dimension: the
// NegativeGroup mean is expected strictly below the PositiveGroup mean.
type GroupRule struct {
	NegativeGroup string `json:"negative_group"`
	PositiveGroup string `json:"positive_group"`
}

// ResolveByGroupMeans is the post-hoc polarity pass: rule k orients
// dimension k by comparing group mean coordinates, flipping legislators and
// bills together when the expected order is violated. Strict inequality
// makes the pass idempotent: a second application with the same rules is a
// no-op. Returned warnings flag groups with fewer than three members, whose
// means are too noisy to trust.
func ResolveByGroupMeans(points []IdealPoint, bills []BillParams, groups map[string]string, rules []GroupRule, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}

	var warnings []string
	for d, rule := range rules {
		negCoords := groupCoords(points, groups, rule.NegativeGroup, d)
		posCoords := groupCoords(points, groups, rule.PositiveGroup, d)

		for _, g := range []struct {
			name string
			n    int
		}{
			{rule.NegativeGroup, len(negCoords)},
			{rule.PositiveGroup, len(posCoords)},
		} {
			if g.n < 3 {
				warnings = append(warnings, fmt.Sprintf(
					"dimension %d: group %q has only %d members, polarity check is unreliable", d+1, g.name, g.n))
			}
		}
		if len(negCoords) == 0 || len(posCoords) == 0 {
			continue
		}

		negMean := stat.Mean(negCoords, nil)
		posMean := stat.Mean(posCoords, nil)
		if negMean <= posMean {
			continue
		}

		logger.Info("flipping dimension to restore group polarity",
			slog.Int("dimension", d+1),
			slog.Float64("negative_group_mean", negMean),
			slog.Float64("positive_group_mean", posMean))
		for i := range points {
			if d < len(points[i].Coords) {
				points[i].Coords[d] = -points[i].Coords[d]
			}
		}
		for j := range bills {
			if d < len(bills[j].Yea) {
				bills[j].Yea[d] = -bills[j].Yea[d]
			}
			if d < len(bills[j].Nay) {
				bills[j].Nay[d] = -bills[j].Nay[d]
			}
		}
	}
	return warnings
}

func groupCoords(points []IdealPoint, groups map[string]string, group string, d int) []float64 {
	var coords []float64
	for _, p := range points {
		if groups[p.LegislatorID] == group && d < len(p.Coords) {
			coords = append(coords, p.Coords[d])
		}
	}
	return coords
}
