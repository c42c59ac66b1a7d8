package rollcall

import (
	apperrors "nomcli/internal/errors"
)

// Matrix is one period's rectangular legislator-by-vote table. It is built
// once and treated as immutable by the estimators; Filter returns a new
// Matrix rather than mutating in place.
type Matrix struct {
	Period int

	legislatorIDs []string
	voteIDs       []string
	legIndex      map[string]int
	voteIndex     map[string]int

	// row-major: choices[i*len(voteIDs)+j]
	choices []VoteChoice
}

// NewMatrix creates an empty matrix (all cells Missing) for the given id
// sets. Duplicate ids in either axis are an input error.
func NewMatrix(period int, legislatorIDs, voteIDs []string) (*Matrix, error) {
	legIndex := make(map[string]int, len(legislatorIDs))
	for i, id := range legislatorIDs {
		if id == "" {
			return nil, apperrors.Input("empty legislator id at row %d", i)
		}
		if _, dup := legIndex[id]; dup {
			return nil, apperrors.Input("duplicate legislator id %q", id)
		}
		legIndex[id] = i
	}

	voteIndex := make(map[string]int, len(voteIDs))
	for j, id := range voteIDs {
		if id == "" {
			return nil, apperrors.Input("empty vote id at column %d", j)
		}
		if _, dup := voteIndex[id]; dup {
			return nil, apperrors.Input("duplicate vote id %q", id)
		}
		voteIndex[id] = j
	}

	return &Matrix{
		Period:        period,
		legislatorIDs: append([]string(nil), legislatorIDs...),
		voteIDs:       append([]string(nil), voteIDs...),
		legIndex:      legIndex,
		voteIndex:     voteIndex,
		choices:       make([]VoteChoice, len(legislatorIDs)*len(voteIDs)),
	}, nil
}

// NumLegislators returns the number of rows.
func (m *Matrix) NumLegislators() int { return len(m.legislatorIDs) }

// NumVotes returns the number of columns.
func (m *Matrix) NumVotes() int { return len(m.voteIDs) }

// LegislatorIDs returns the row ids in matrix order.
func (m *Matrix) LegislatorIDs() []string { return m.legislatorIDs }

// VoteIDs returns the column ids in matrix order.
func (m *Matrix) VoteIDs() []string { return m.voteIDs }

// LegislatorIndex returns the row index for the id, or -1.
func (m *Matrix) LegislatorIndex(id string) int {
	if i, ok := m.legIndex[id]; ok {
		return i
	}
	return -1
}

// VoteIndex returns the column index for the id, or -1.
func (m *Matrix) VoteIndex(id string) int {
	if j, ok := m.voteIndex[id]; ok {
		return j
	}
	return -1
}

// At returns the choice at row i, column j.
func (m *Matrix) At(i, j int) VoteChoice {
	return m.choices[i*len(m.voteIDs)+j]
}

// Set stores the choice at row i, column j.
func (m *Matrix) Set(i, j int, c VoteChoice) {
	m.choices[i*len(m.voteIDs)+j] = c
}

// SetByID stores the choice for the given legislator/vote pair.
func (m *Matrix) SetByID(legislatorID, voteID string, c VoteChoice) error {
	i := m.LegislatorIndex(legislatorID)
	if i < 0 {
		return apperrors.Input("unknown legislator id %q", legislatorID)
	}
	j := m.VoteIndex(voteID)
	if j < 0 {
		return apperrors.Input("unknown vote id %q", voteID)
	}
	m.Set(i, j, c)
	return nil
}

// ValidBallots counts a legislator's Yea/Nay ballots.
func (m *Matrix) ValidBallots(i int) int {
	count := 0
	for j := 0; j < len(m.voteIDs); j++ {
		if m.At(i, j).IsValidBallot() {
			count++
		}
	}
	return count
}

// VoteTallies returns a vote's yea and nay counts.
func (m *Matrix) VoteTallies(j int) (yeas, nays int) {
	for i := 0; i < len(m.legislatorIDs); i++ {
		switch m.At(i, j) {
		case Yea:
			yeas++
		case Nay:
			nays++
		}
	}
	return yeas, nays
}

// MinorityShare returns the minority side's share of valid ballots on vote j
// and the number of valid ballots. A vote with no valid ballots has share 0.
func (m *Matrix) MinorityShare(j int) (share float64, valid int) {
	yeas, nays := m.VoteTallies(j)
	valid = yeas + nays
	if valid == 0 {
		return 0, 0
	}
	minority := yeas
	if nays < minority {
		minority = nays
	}
	return float64(minority) / float64(valid), valid
}

// subset builds a new matrix keeping the given row and column indices in
// their original order.
func (m *Matrix) subset(rows, cols []int) *Matrix {
	legIDs := make([]string, len(rows))
	for r, i := range rows {
		legIDs[r] = m.legislatorIDs[i]
	}
	voteIDs := make([]string, len(cols))
	for c, j := range cols {
		voteIDs[c] = m.voteIDs[j]
	}

	// Ids were unique in the parent, so NewMatrix cannot fail here.
	sub, _ := NewMatrix(m.Period, legIDs, voteIDs)
	for r, i := range rows {
		for c, j := range cols {
			sub.Set(r, c, m.At(i, j))
		}
	}
	return sub
}
