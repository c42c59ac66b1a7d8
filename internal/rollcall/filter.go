package rollcall

import "fmt"

// Filter drops non-discriminating votes and under-participating legislators.
//
// Votes whose minority side falls below lop of valid ballots are removed
// first, then legislators with fewer than minvotes valid ballots over the
// surviving votes. Both passes are monotonic: raising lop never retains more
// votes, raising minvotes never retains more legislators.
//
// The returned exclusion list records every dropped id with its reason.
func (m *Matrix) Filter(minvotes int, lop float64) (*Matrix, []Exclusion) {
	var excluded []Exclusion

	cols := make([]int, 0, m.NumVotes())
	for j := 0; j < m.NumVotes(); j++ {
		share, valid := m.MinorityShare(j)
		if valid == 0 {
			excluded = append(excluded, Exclusion{
				ID:     m.voteIDs[j],
				Kind:   "vote",
				Reason: "no valid ballots",
			})
			continue
		}
		if share < lop {
			excluded = append(excluded, Exclusion{
				ID:     m.voteIDs[j],
				Kind:   "vote",
				Reason: fmt.Sprintf("lopsided: minority share %.4f < %.4f", share, lop),
			})
			continue
		}
		cols = append(cols, j)
	}

	rows := make([]int, 0, m.NumLegislators())
	for i := 0; i < m.NumLegislators(); i++ {
		valid := 0
		for _, j := range cols {
			if m.At(i, j).IsValidBallot() {
				valid++
			}
		}
		if valid < minvotes {
			excluded = append(excluded, Exclusion{
				ID:     m.legislatorIDs[i],
				Kind:   "legislator",
				Reason: fmt.Sprintf("only %d valid ballots, need %d", valid, minvotes),
			})
			continue
		}
		rows = append(rows, i)
	}

	return m.subset(rows, cols), excluded
}
