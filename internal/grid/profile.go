package grid

import (
	"fmt"
	"sort"
)

// Profile is an hourly time series table: one row per timestamp, one column
// per plant id (hydro, solar, wind) or zone id (demand). Timestamps are kept
// in their input (chronological) order.
type Profile struct {
	Timestamps []string
	Values     map[int][]float64
}

// NewProfile allocates a profile with the given timestamps and no columns.
func NewProfile(timestamps []string) *Profile {
	return &Profile{Timestamps: timestamps, Values: make(map[int][]float64)}
}

// SetColumn attaches a column, which must have one value per timestamp.
func (p *Profile) SetColumn(id int, values []float64) error {
	if len(values) != len(p.Timestamps) {
		return fmt.Errorf("grid: profile column %d has %d values, want %d",
			id, len(values), len(p.Timestamps))
	}
	p.Values[id] = values
	return nil
}

// Clone returns a deep copy sharing no state with the original.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := NewProfile(append([]string(nil), p.Timestamps...))
	for id, values := range p.Values {
		out.Values[id] = append([]float64(nil), values...)
	}
	return out
}

// Column returns the values for one column, or nil when the column is absent.
func (p *Profile) Column(id int) []float64 {
	if p == nil {
		return nil
	}
	return p.Values[id]
}

// ColumnIDs returns the column ids in ascending order.
func (p *Profile) ColumnIDs() []int {
	ids := make([]int, 0, len(p.Values))
	for id := range p.Values {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ProfileSet bundles the four hourly input profiles.
type ProfileSet struct {
	Demand *Profile
	Hydro  *Profile
	Solar  *Profile
	Wind   *Profile
}

// Generation returns the variable-generation profiles keyed by resource name.
func (s ProfileSet) Generation() map[string]*Profile {
	return map[string]*Profile{"hydro": s.Hydro, "solar": s.Solar, "wind": s.Wind}
}
