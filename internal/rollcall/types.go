// Package rollcall holds the roll-call data model: vote choices, the
// per-period legislator-by-vote matrix, identity bookkeeping across periods,
// and the minvotes/lop filters that precede estimation.
package rollcall

import (
	"fmt"
)

// VoteChoice is a single legislator's recorded choice on one roll call.
// Only Yea and Nay are valid ballots; Abstain and Missing never enter the
// likelihood.
type VoteChoice uint8

const (
	// Missing means no record exists for the legislator/vote pair.
	Missing VoteChoice = iota
	// Yea is a recorded vote in favor.
	Yea
	// Nay is a recorded vote against.
	Nay
	// Abstain covers abstention, absence and not-in-legislature codes.
	Abstain
)

// String returns the string representation of the choice.
func (v VoteChoice) String() string {
	switch v {
	case Yea:
		return "yea"
	case Nay:
		return "nay"
	case Abstain:
		return "abstain"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// IsValidBallot reports whether the choice contributes to the likelihood.
func (v VoteChoice) IsValidBallot() bool {
	return v == Yea || v == Nay
}

// ParseChoiceCode converts the numeric codes used by the upstream export
// pipeline into a VoteChoice. Codes follow the legacy convention:
// 1 = yea, 0 or 6 = nay, 2/3/4/9 = abstain/absent/not in legislature.
// An empty field is Missing.
func ParseChoiceCode(code string) (VoteChoice, error) {
	switch code {
	case "":
		return Missing, nil
	case "1":
		return Yea, nil
	case "0", "6":
		return Nay, nil
	case "2", "3", "4", "9":
		return Abstain, nil
	default:
		return Missing, fmt.Errorf("unknown vote code %q", code)
	}
}

// Exclusion records one legislator or vote dropped during filtering,
// with the reason, so the final result can report why data went missing.
type Exclusion struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"` // "legislator" or "vote"
	Reason string `json:"reason"`
}

// LegislatorMeta is the metadata row consumed by the polarity resolver and
// reporting. The estimator's core math never reads it.
type LegislatorMeta struct {
	ID    string `json:"legislator_id"`
	Group string `json:"group"` // party / affiliation tag
	Name  string `json:"name"`
}
