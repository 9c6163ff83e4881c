package query

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field     string
	Direction Direction
}

var epoch = time.Unix(0, 0).UTC()

// SortRecords orders records in place by s. Date-typed fields compare as
// instants with missing or unreadable values at the epoch, numbers compare
// numerically when both sides are numbers, everything else compares as
// lowercased strings with missing values as "". Equal records keep their
// relative order.
func SortRecords[T Record](records []T, s Sort, loc *time.Location) {
	if s.Field == "" {
		return
	}
	sign := 1
	if s.Direction == Desc {
		sign = -1
	}
	dateField := IsDateField(s.Field)
	slices.SortStableFunc(records, func(a, b T) int {
		av, _ := a.Field(s.Field)
		bv, _ := b.Field(s.Field)
		return sign * compareValues(av, bv, dateField, loc)
	})
}

func compareValues(a, b any, dateField bool, loc *time.Location) int {
	if dateField {
		return timeOrEpoch(a, loc).Compare(timeOrEpoch(b, loc))
	}
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return cmp.Compare(af, bf)
		}
	}
	return strings.Compare(strings.ToLower(asString(a)), strings.ToLower(asString(b)))
}

func timeOrEpoch(v any, loc *time.Location) time.Time {
	if t, ok := asTime(v, loc); ok {
		return t
	}
	return epoch
}
