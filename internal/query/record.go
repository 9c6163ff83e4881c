// Package query turns an unordered snapshot into the ordered, filtered and
// paged list a view displays. Everything here is a pure function of its
// inputs; bad values in one record never fail the batch.
package query

import (
	"strconv"
	"strings"
	"time"

	"healthops/internal/models"
)

// Record is anything the engine can filter and sort. Field resolves a
// document key or dot-path; numbers are float64 and dates are strings.
type Record interface {
	RecordID() string
	Field(path string) (any, bool)
}

// knownDateFields are date-typed fields whose names do not end in "At".
var knownDateFields = map[string]bool{
	models.FieldDate: true,
}

// IsDateField reports whether path names a date or timestamp field.
func IsDateField(path string) bool {
	last := path
	if i := strings.LastIndex(path, "."); i >= 0 {
		last = path[i+1:]
	}
	return strings.HasSuffix(last, "At") || knownDateFields[last]
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case time.Time:
		return s.Format(time.RFC3339)
	case models.Date:
		return string(s)
	case models.Timestamp:
		return string(s)
	}
	if f, ok := asFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// asTime reads a date-typed value; ok is false when it is missing or unreadable.
func asTime(v any, loc *time.Location) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case nil:
		return time.Time{}, false
	default:
		return models.ParseTime(asString(v), loc)
	}
}
