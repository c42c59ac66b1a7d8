package http

import (
	"nomcli/internal/config"
	"nomcli/internal/dynamic"
	apperrors "nomcli/internal/errors"
	"nomcli/internal/nominate"
	"nomcli/internal/rollcall"
)

// PeriodPayload is one period's vote matrix in wire form: ballots[i][j] is
// legislator i's numeric choice code on vote j.
type PeriodPayload struct {
	Period      int        `json:"period"`
	Legislators []string   `json:"legislators" validate:"required,min=3,dive,required"`
	Votes       []string   `json:"votes" validate:"required,min=3,dive,required"`
	Ballots     [][]string `json:"ballots" validate:"required"`
}

// EstimateRequest is the single-period estimation payload.
type EstimateRequest struct {
	PeriodPayload
	Options *EstimateOptions `json:"options,omitempty"`
}

// EstimateOptions overrides the configured estimator defaults per request.
// Nil fields keep the server configuration.
type EstimateOptions struct {
	Dims     *int                `json:"dims,omitempty" validate:"omitempty,min=1,max=10"`
	MinVotes *int                `json:"min_votes,omitempty" validate:"omitempty,min=0"`
	Lop      *float64            `json:"lop,omitempty" validate:"omitempty,gte=0,lt=0.5"`
	Trials   *int                `json:"trials,omitempty" validate:"omitempty,min=1,max=50"`
	Seed     *int64              `json:"seed,omitempty"`
	Anchors  []config.AnchorPair `json:"anchors,omitempty"`
}

// DynamicRequest is the multi-period estimation payload.
type DynamicRequest struct {
	Periods []PeriodPayload `json:"periods" validate:"required,min=2,dive"`
	Options *DynamicOptions `json:"options,omitempty"`
}

// DynamicOptions overrides the configured joint estimator defaults.
type DynamicOptions struct {
	Dims          *int      `json:"dims,omitempty" validate:"omitempty,min=1,max=10"`
	Order         *int      `json:"order,omitempty" validate:"omitempty,min=0,max=4"`
	MinVotes      *int      `json:"min_votes,omitempty" validate:"omitempty,min=0"`
	Lop           *float64  `json:"lop,omitempty" validate:"omitempty,gte=0,lt=0.5"`
	Seed          *int64    `json:"seed,omitempty"`
	Anchor        string    `json:"anchor,omitempty"`
	ExpectedSigns []float64 `json:"expected_signs,omitempty"`
}

// matrix converts the wire payload into a vote matrix, rejecting ragged
// ballot grids.
func (p PeriodPayload) matrix() (*rollcall.Matrix, error) {
	if len(p.Ballots) != len(p.Legislators) {
		return nil, apperrors.Input("ballots has %d rows, legislators has %d entries", len(p.Ballots), len(p.Legislators))
	}

	m, err := rollcall.NewMatrix(p.Period, p.Legislators, p.Votes)
	if err != nil {
		return nil, err
	}
	for i, row := range p.Ballots {
		if len(row) != len(p.Votes) {
			return nil, apperrors.Input("ballot row %d has %d entries, votes has %d", i, len(row), len(p.Votes))
		}
		for j, code := range row {
			choice, err := rollcall.ParseChoiceCode(code)
			if err != nil {
				return nil, apperrors.Input("legislator %q, vote %q: %v", p.Legislators[i], p.Votes[j], err)
			}
			m.Set(i, j, choice)
		}
	}
	return m, nil
}

func (o *EstimateOptions) apply(opts nominate.Options) nominate.Options {
	if o == nil {
		return opts
	}
	if o.Dims != nil {
		opts.Dims = *o.Dims
	}
	if o.MinVotes != nil {
		opts.MinVotes = *o.MinVotes
	}
	if o.Lop != nil {
		opts.Lop = *o.Lop
	}
	if o.Trials != nil {
		opts.Trials = *o.Trials
	}
	if o.Seed != nil {
		opts.Seed = *o.Seed
	}
	if len(o.Anchors) > 0 {
		pairs := make([]nominate.DimensionAnchor, len(o.Anchors))
		for d, a := range o.Anchors {
			pairs[d] = nominate.DimensionAnchor{Negative: a.Negative, Positive: a.Positive}
		}
		opts.Anchors = nominate.AnchorPolicy{Kind: nominate.AnchorByIdentity, Pairs: pairs}
	}
	return opts
}

func (o *DynamicOptions) apply(opts dynamic.Options) dynamic.Options {
	if o == nil {
		return opts
	}
	if o.Dims != nil {
		opts.Dims = *o.Dims
	}
	if o.Order != nil {
		opts.Order = *o.Order
	}
	if o.MinVotes != nil {
		opts.MinVotes = *o.MinVotes
	}
	if o.Lop != nil {
		opts.Lop = *o.Lop
	}
	if o.Seed != nil {
		opts.Seed = *o.Seed
	}
	if o.Anchor != "" {
		opts.Anchor = dynamic.GlobalAnchor{LegislatorID: o.Anchor, ExpectedSigns: o.ExpectedSigns}
	}
	return opts
}
