package rollcall

import "sort"

// Legislator is one identity-keyed registry record: a stable id with
// metadata and per-period presence flags. The registry replaces repeated
// list intersections across period tables with a single join.
type Legislator struct {
	ID      string       `json:"id"`
	Group   string       `json:"group"`
	Name    string       `json:"name"`
	Periods map[int]bool `json:"periods"`
}

// Registry indexes legislators by stable id across periods.
type Registry struct {
	byID map[string]*Legislator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Legislator)}
}

// AddMeta records metadata for a legislator, creating the record if needed.
func (r *Registry) AddMeta(meta LegislatorMeta) {
	rec := r.record(meta.ID)
	rec.Group = meta.Group
	rec.Name = meta.Name
}

// ObserveMatrix marks presence for every legislator with at least one valid
// ballot in the matrix's period.
func (r *Registry) ObserveMatrix(m *Matrix) {
	for i, id := range m.LegislatorIDs() {
		if m.ValidBallots(i) > 0 {
			r.record(id).Periods[m.Period] = true
		}
	}
}

// Lookup returns the record for id, or nil.
func (r *Registry) Lookup(id string) *Legislator {
	return r.byID[id]
}

// Group returns the group tag for id, or "".
func (r *Registry) Group(id string) string {
	if rec := r.byID[id]; rec != nil {
		return rec.Group
	}
	return ""
}

// PresentInAll returns, sorted, the ids of legislators present in every one
// of the given periods.
func (r *Registry) PresentInAll(periods []int) []string {
	var ids []string
	for id, rec := range r.byID {
		all := true
		for _, p := range periods {
			if !rec.Periods[p] {
				all = false
				break
			}
		}
		if all && len(rec.Periods) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered legislators.
func (r *Registry) Len() int { return len(r.byID) }

func (r *Registry) record(id string) *Legislator {
	rec, ok := r.byID[id]
	if !ok {
		rec = &Legislator{ID: id, Periods: make(map[int]bool)}
		r.byID[id] = rec
	}
	return rec
}
