package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents in process. Used by the console in demo mode
// and by tests.
type MemoryStore struct {
	mu       sync.Mutex
	data     map[string]map[string]Document
	notifier *notifier
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]map[string]Document),
		notifier: newNotifier(),
	}
}

func (m *MemoryStore) Subscribe(ctx context.Context, collection string, handler SnapshotHandler) (CancelFunc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrUnavailable
	}

	sub := newSubscriber(handler)
	sub.push(delivery{snap: m.snapshotLocked(collection)})
	m.notifier.add(collection, sub)

	cancel := func() { m.notifier.remove(collection, sub) }
	cancelOnDone(ctx, sub, cancel)
	return cancel, nil
}

func (m *MemoryStore) Get(ctx context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	doc, ok := m.data[collection][id]
	if !ok {
		return nil, nil
	}
	return copyDocument(doc), nil
}

func (m *MemoryStore) List(ctx context.Context, collection string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	return m.snapshotLocked(collection), nil
}

func (m *MemoryStore) Merge(ctx context.Context, path string, patch Patch, opts ...MergeOption) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrUnavailable
	}

	current, exists := m.data[collection][id]
	merged, err := applyMerge(current, exists, patch, buildMergeOptions(opts))
	if err != nil {
		return err
	}
	m.putLocked(collection, id, merged)
	return nil
}

func (m *MemoryStore) Push(ctx context.Context, collection string, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrUnavailable
	}

	id := uuid.NewString()
	created, err := applyMerge(nil, false, Patch(doc), mergeOptions{})
	if err != nil {
		return "", err
	}
	m.putLocked(collection, id, created)
	return id, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.notifier.closeAll()
	return nil
}

func (m *MemoryStore) putLocked(collection, id string, doc Document) {
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]Document)
	}
	m.data[collection][id] = doc
	if m.notifier.has(collection) {
		m.notifier.publish(collection, delivery{snap: m.snapshotLocked(collection)})
	}
}

func (m *MemoryStore) snapshotLocked(collection string) Snapshot {
	docs := m.data[collection]
	snap := make(Snapshot, len(docs))
	for id, doc := range docs {
		snap[id] = copyDocument(doc)
	}
	return snap
}

// copyDocument deep-copies a normalized document.
func copyDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyDocument(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
