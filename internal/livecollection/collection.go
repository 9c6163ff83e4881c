// Package livecollection keeps a typed, always-fresh snapshot of one store
// collection. Every delivery replaces the previous snapshot wholesale.
package livecollection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"healthops/internal/metrics"
	"healthops/internal/models"
	"healthops/internal/store"
)

// Decoder turns a stored document into a record. A *models.ShapeError keeps
// the record; any other error drops it from the snapshot.
type Decoder[T any] func(id string, doc map[string]any) (T, error)

type SnapshotFunc[T any] func(records map[string]T)

type ErrorFunc func(err error)

// Collection is the sole in-memory owner of one collection's current records.
// At most one subscription is active at a time.
type Collection[T any] struct {
	name   string
	store  store.Store
	decode Decoder[T]
	logger *zerolog.Logger

	// gen identifies the active subscription; deliveries for an older
	// generation are dropped.
	gen       atomic.Uint64
	deliverMu sync.Mutex
	// inCallback is set while a user callback runs under deliverMu, so an
	// unsubscribe from inside the callback does not wait on itself.
	inCallback atomic.Bool

	mu        sync.RWMutex
	cancel    store.CancelFunc
	records   map[string]T
	anomalies map[string][]string
	loaded    bool
}

func New[T any](st store.Store, name string, decode Decoder[T], logger *zerolog.Logger) *Collection[T] {
	l := logger.With().Str("component", "live_collection").Str("collection", name).Logger()
	return &Collection[T]{
		name:    name,
		store:   st,
		decode:  decode,
		logger:  &l,
		records: map[string]T{},
	}
}

// Camps returns a live collection of camps.
func Camps(st store.Store, logger *zerolog.Logger) *Collection[models.Camp] {
	return New[models.Camp](st, models.CollectionCamps, models.DecodeCamp, logger)
}

// TestBookings returns a live collection of test bookings.
func TestBookings(st store.Store, logger *zerolog.Logger) *Collection[models.TestBooking] {
	return New[models.TestBooking](st, models.CollectionTestBookings, models.DecodeTestBooking, logger)
}

func (c *Collection[T]) Name() string { return c.name }

// Subscribe starts delivering snapshots to onSnapshot, first with the current
// contents and then after every change. A previous subscription on c is
// cancelled first. Either callback may be nil. The returned function stops
// the subscription: once it returns no callback of this subscription starts.
func (c *Collection[T]) Subscribe(ctx context.Context, onSnapshot SnapshotFunc[T], onError ErrorFunc) (func(), error) {
	c.Unsubscribe()

	gen := c.gen.Add(1)
	cancel, err := c.store.Subscribe(ctx, c.name, func(snap store.Snapshot, err error) {
		c.deliver(gen, snap, err, onSnapshot, onError)
	})
	if err != nil {
		c.gen.CompareAndSwap(gen, gen+1)
		c.logger.Error().Err(err).Msg("Subscribe failed")
		return nil, fmt.Errorf("subscribe %s: %w", c.name, err)
	}

	c.mu.Lock()
	if c.gen.Load() != gen {
		// cancelled while the store was setting up
		c.mu.Unlock()
		cancel()
		return func() {}, nil
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Debug().Msg("Subscribed")
	return func() { c.unsubscribe(gen) }, nil
}

// Unsubscribe stops the active subscription, if any.
func (c *Collection[T]) Unsubscribe() {
	c.unsubscribe(c.gen.Load())
}

func (c *Collection[T]) unsubscribe(gen uint64) {
	if !c.gen.CompareAndSwap(gen, gen+1) {
		// already superseded
		return
	}
	// Waiting on deliverMu lets a delivery that is still decoding finish and
	// see the new gen. A callback that unsubscribes already holds it.
	reentrant := c.inCallback.Load()
	if !reentrant {
		c.deliverMu.Lock()
	}
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if !reentrant {
		c.deliverMu.Unlock()
	}
	if cancel != nil {
		cancel()
		c.logger.Debug().Msg("Unsubscribed")
	}
}

func (c *Collection[T]) deliver(gen uint64, snap store.Snapshot, err error, onSnapshot SnapshotFunc[T], onError ErrorFunc) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()
	if c.gen.Load() != gen {
		return
	}

	if err != nil {
		c.logger.Error().Err(err).Msg("Snapshot failed")
		if onError != nil {
			c.callback(func() { onError(err) })
		}
		return
	}

	records, anomalies := c.decodeAll(snap)

	c.mu.Lock()
	if c.gen.Load() != gen {
		c.mu.Unlock()
		c.logger.Debug().Msg("Discarded snapshot of a stopped subscription")
		return
	}
	c.records = records
	c.anomalies = anomalies
	c.loaded = true
	c.mu.Unlock()

	metrics.IncSnapshot(c.name)
	metrics.AddShapeAnomalies(c.name, len(anomalies))

	if onSnapshot != nil && c.gen.Load() == gen {
		c.callback(func() { onSnapshot(records) })
	}
}

func (c *Collection[T]) callback(fn func()) {
	c.inCallback.Store(true)
	defer c.inCallback.Store(false)
	fn()
}

func (c *Collection[T]) decodeAll(snap store.Snapshot) (map[string]T, map[string][]string) {
	records := make(map[string]T, len(snap))
	anomalies := map[string][]string{}
	for id, doc := range snap {
		rec, err := c.decode(id, doc)
		var shape *models.ShapeError
		switch {
		case err == nil:
		case errors.As(err, &shape):
			anomalies[id] = shape.Fields
			c.logger.Warn().Str("id", id).Strs("fields", shape.Fields).Msg("Malformed record fields")
		default:
			c.logger.Warn().Err(err).Str("id", id).Msg("Dropping undecodable record")
			continue
		}
		records[id] = rec
	}
	return records, anomalies
}

// Snapshot returns the latest records. The map must not be modified.
func (c *Collection[T]) Snapshot() map[string]T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.records
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.records[id]
	return rec, ok
}

// Records returns the latest records as a slice in no particular order.
func (c *Collection[T]) Records() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.records))
	for _, rec := range c.records {
		out = append(out, rec)
	}
	return out
}

// Loaded reports whether at least one snapshot has arrived.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Anomalies maps record ids to the fields that could not be read in the
// latest snapshot.
func (c *Collection[T]) Anomalies() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.anomalies
}
