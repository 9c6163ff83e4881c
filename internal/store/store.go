// Package store is the document store the console reads and writes. Records
// live at "<collection>/<id>"; subscribers receive the whole collection on
// every change.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable     = errors.New("store unavailable")
	ErrNotFound        = errors.New("document not found")
	ErrVersionMismatch = errors.New("document version mismatch")
	ErrInvalidPath     = errors.New("invalid document path")
)

// VersionField is maintained by the store: it starts at 1 and is incremented
// by every successful merge.
const VersionField = "version"

// Document is one stored record.
type Document = map[string]any

// Snapshot is the full content of a collection keyed by id. Snapshots handed
// to subscribers are shared and must be treated as read-only.
type Snapshot map[string]Document

// Patch is a shallow merge: listed keys are replaced, a nil value removes the key.
type Patch map[string]any

// SnapshotHandler receives either a snapshot or an error, never both.
type SnapshotHandler func(snap Snapshot, err error)

// CancelFunc stops a subscription. After it returns no further snapshots
// are started for that subscription. Safe to call more than once.
type CancelFunc func()

type Store interface {
	Subscribe(ctx context.Context, collection string, handler SnapshotHandler) (CancelFunc, error)
	Get(ctx context.Context, path string) (Document, error)
	List(ctx context.Context, collection string) (Snapshot, error)
	Merge(ctx context.Context, path string, patch Patch, opts ...MergeOption) error
	Push(ctx context.Context, collection string, doc Document) (string, error)
	Close() error
}

type mergeOptions struct {
	expectVersion *int64
}

type MergeOption func(*mergeOptions)

// IfVersion makes a merge conditional on the stored version.
func IfVersion(version int64) MergeOption {
	return func(o *mergeOptions) {
		o.expectVersion = &version
	}
}

func buildMergeOptions(opts []MergeOption) mergeOptions {
	var o mergeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Path joins a collection and an id.
func Path(collection, id string) string {
	return collection + "/" + id
}

// SplitPath is the inverse of Path.
func SplitPath(path string) (collection, id string, err error) {
	collection, id, ok := strings.Cut(strings.Trim(path, "/"), "/")
	if !ok || collection == "" || id == "" || strings.Contains(id, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return collection, id, nil
}

// applyMerge merges patch into current and bumps the version.
func applyMerge(current Document, exists bool, patch Patch, opts mergeOptions) (Document, error) {
	var version int64
	if exists {
		version = documentVersion(current)
	}
	if opts.expectVersion != nil {
		if !exists {
			return nil, ErrNotFound
		}
		if *opts.expectVersion != version {
			return nil, fmt.Errorf("%w: expected %d, stored %d", ErrVersionMismatch, *opts.expectVersion, version)
		}
	}

	merged := make(Document, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	merged[VersionField] = version + 1
	return normalize(merged)
}

func documentVersion(doc Document) int64 {
	switch v := doc[VersionField].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// normalize round-trips a document through JSON so every backend hands out
// the same shapes (numbers as float64, nested maps as map[string]any) and the
// stored copy shares nothing with the caller's.
func normalize(doc Document) (Document, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return decodeDocument(raw)
}

func decodeDocument(raw []byte) (Document, error) {
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if out == nil {
		out = Document{}
	}
	return out, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
