package query

import (
	"time"
)

// Filters maps a field path to the value it must equal. A nil value is no
// constraint. Date-typed fields match by calendar day.
type Filters map[string]any

// Active returns the filters that constrain anything.
func (f Filters) Active() Filters {
	out := Filters{}
	for k, v := range f {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// Filter keeps the records that match every active filter.
func Filter[T Record](records []T, filters Filters, loc *time.Location) []T {
	active := filters.Active()
	if len(active) == 0 {
		return append([]T(nil), records...)
	}
	out := make([]T, 0, len(records))
	for _, r := range records {
		if Matches(r, active, loc) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r satisfies every filter in filters.
func Matches(r Record, filters Filters, loc *time.Location) bool {
	for field, want := range filters {
		if want == nil {
			continue
		}
		got, ok := r.Field(field)
		if !ok {
			return false
		}
		if !matchValue(field, got, want, loc) {
			return false
		}
	}
	return true
}

func matchValue(field string, got, want any, loc *time.Location) bool {
	if IsDateField(field) {
		if loc == nil {
			loc = time.Local
		}
		g, gok := asTime(got, loc)
		w, wok := asTime(want, loc)
		if !gok || !wok {
			return false
		}
		g, w = g.In(loc), w.In(loc)
		return g.Year() == w.Year() && g.Month() == w.Month() && g.Day() == w.Day()
	}
	if gf, ok := asFloat(got); ok {
		if wf, ok := asFloat(want); ok {
			return gf == wf
		}
	}
	return asString(got) == asString(want)
}
