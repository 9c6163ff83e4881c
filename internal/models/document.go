package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ShapeError lists the fields of a stored record that could not be read.
// The record is still usable; unreadable fields are left empty.
type ShapeError struct {
	ID     string
	Fields []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("record %s: malformed fields %s", e.ID, strings.Join(e.Fields, ", "))
}

// docReader reads typed values out of a loosely-typed stored document and
// remembers every field that had the wrong shape.
type docReader struct {
	id        string
	doc       map[string]any
	prefix    string
	anomalies *[]string
}

func newDocReader(id string, doc map[string]any) *docReader {
	return &docReader{id: id, doc: doc, anomalies: new([]string)}
}

func (r *docReader) flag(key string) {
	*r.anomalies = append(*r.anomalies, r.prefix+key)
}

func (r *docReader) err() error {
	if len(*r.anomalies) == 0 {
		return nil
	}
	return &ShapeError{ID: r.id, Fields: append([]string(nil), (*r.anomalies)...)}
}

func (r *docReader) str(key string) string {
	v, ok := r.doc[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	default:
		r.flag(key)
		return ""
	}
}

func (r *docReader) floatPtr(key string) *float64 {
	v, ok := r.doc[key]
	if !ok || v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		r.flag(key)
		return nil
	}
	return &f
}

func (r *docReader) intPtr(key string) *int {
	f := r.floatPtr(key)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

func (r *docReader) float(key string) float64 {
	if f := r.floatPtr(key); f != nil {
		return *f
	}
	return 0
}

func (r *docReader) int64(key string) int64 {
	if f := r.floatPtr(key); f != nil {
		return int64(*f)
	}
	return 0
}

func (r *docReader) date(key string) Date {
	raw := r.str(key)
	if raw != "" {
		if _, ok := ParseTime(raw, nil); !ok {
			r.flag(key)
		}
	}
	return Date(raw)
}

func (r *docReader) timestamp(key string) Timestamp {
	raw := r.str(key)
	if raw != "" {
		if _, ok := ParseTime(raw, nil); !ok {
			r.flag(key)
		}
	}
	return Timestamp(raw)
}

// object returns a reader over a nested object, or nil when the key is absent.
func (r *docReader) object(key string) *docReader {
	v, ok := r.doc[key]
	if !ok || v == nil {
		return nil
	}
	nested, ok := v.(map[string]any)
	if !ok {
		r.flag(key)
		return nil
	}
	return &docReader{id: r.id, doc: nested, prefix: r.prefix + key + ".", anomalies: r.anomalies}
}

func (r *docReader) objects(key string) []*docReader {
	v, ok := r.doc[key]
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		r.flag(key)
		return nil
	}
	out := make([]*docReader, 0, len(list))
	for i, item := range list {
		nested, ok := item.(map[string]any)
		if !ok {
			r.flag(fmt.Sprintf("%s.%d", key, i))
			continue
		}
		out = append(out, &docReader{id: r.id, doc: nested, prefix: fmt.Sprintf("%s%s.%d.", r.prefix, key, i), anomalies: r.anomalies})
	}
	return out
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func putString(doc map[string]any, key, value string) {
	if value != "" {
		doc[key] = value
	}
}

func putInt(doc map[string]any, key string, value *int) {
	if value != nil {
		doc[key] = *value
	}
}

func putFloat(doc map[string]any, key string, value *float64) {
	if value != nil {
		doc[key] = *value
	}
}

func intField(v *int) (any, bool) {
	if v == nil {
		return nil, false
	}
	return float64(*v), true
}

func floatField(v *float64) (any, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

func stringField(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	return s, true
}

// IntPtr and FloatPtr build optional numeric values.
func IntPtr(n int) *int { return &n }

func FloatPtr(f float64) *float64 { return &f }
