package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const maxTxRetries = 5

// RedisStore keeps each collection in a hash "<prefix>:<collection>" and
// announces writes on "<prefix>:changes:<collection>". Subscribers reload the
// hash when a change is announced, so several consoles share one store.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zerolog.Logger

	mu      sync.Mutex
	cancels map[*subscriber]CancelFunc
}

func NewRedisStore(client *redis.Client, prefix string, logger *zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = "healthops"
	}
	return &RedisStore{
		client:  client,
		prefix:  prefix,
		logger:  logger,
		cancels: make(map[*subscriber]CancelFunc),
	}
}

func (r *RedisStore) key(collection string) string {
	return r.prefix + ":" + collection
}

func (r *RedisStore) channel(collection string) string {
	return r.prefix + ":changes:" + collection
}

func (r *RedisStore) Subscribe(ctx context.Context, collection string, handler SnapshotHandler) (CancelFunc, error) {
	pubsub := r.client.Subscribe(ctx, r.channel(collection))
	// wait for the subscription to be confirmed so no write after the
	// initial snapshot can be missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, unavailable("subscribe", err)
	}

	snap, err := r.List(ctx, collection)
	if err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := newSubscriber(handler)
	sub.push(delivery{snap: snap})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.cancels, sub)
			r.mu.Unlock()
			sub.close()
			if err := pubsub.Close(); err != nil {
				r.logger.Debug().Err(err).Str("collection", collection).Msg("Failed to close change subscription")
			}
		})
	}
	r.mu.Lock()
	r.cancels[sub] = cancel
	r.mu.Unlock()

	go func() {
		reloadCtx := context.WithoutCancel(ctx)
		for range pubsub.Channel() {
			select {
			case <-sub.done:
				return
			default:
			}
			snap, err := r.List(reloadCtx, collection)
			if err != nil {
				sub.push(delivery{err: err})
				continue
			}
			sub.push(delivery{snap: snap})
		}
	}()

	cancelOnDone(ctx, sub, cancel)
	return cancel, nil
}

func (r *RedisStore) Get(ctx context.Context, path string) (Document, error) {
	collection, id, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	val, err := r.client.HGet(ctx, r.key(collection), id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get document", err)
	}
	return decodeDocument([]byte(val))
}

func (r *RedisStore) List(ctx context.Context, collection string) (Snapshot, error) {
	vals, err := r.client.HGetAll(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, unavailable("list documents", err)
	}
	snap := make(Snapshot, len(vals))
	for id, val := range vals {
		doc, err := decodeDocument([]byte(val))
		if err != nil {
			r.logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("Undecodable document body")
			doc = Document{}
		}
		snap[id] = doc
	}
	return snap, nil
}

func (r *RedisStore) Merge(ctx context.Context, path string, patch Patch, opts ...MergeOption) error {
	collection, id, err := SplitPath(path)
	if err != nil {
		return err
	}
	key := r.key(collection)
	o := buildMergeOptions(opts)

	txf := func(tx *redis.Tx) error {
		var current Document
		exists := true
		val, err := tx.HGet(ctx, key, id).Result()
		switch {
		case errors.Is(err, redis.Nil):
			exists = false
		case err != nil:
			return unavailable("read document", err)
		default:
			if current, err = decodeDocument([]byte(val)); err != nil {
				return err
			}
		}

		merged, err := applyMerge(current, exists, patch, o)
		if err != nil {
			return err
		}
		body, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id, body)
			pipe.Publish(ctx, r.channel(collection), id)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		r.logger.Debug().Str("path", path).Int("attempt", i+1).Msg("Merge raced with another writer, retrying")
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s changed during merge", ErrVersionMismatch, path)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVersionMismatch), errors.Is(err, ErrUnavailable):
		return err
	default:
		return unavailable("merge document", err)
	}
}

func (r *RedisStore) Push(ctx context.Context, collection string, doc Document) (string, error) {
	created, err := applyMerge(nil, false, Patch(doc), mergeOptions{})
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(created)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	id := uuid.NewString()
	ok, err := r.client.HSetNX(ctx, r.key(collection), id, body).Result()
	if err != nil {
		return "", unavailable("insert document", err)
	}
	if !ok {
		return "", fmt.Errorf("%w: duplicate id %s", ErrUnavailable, id)
	}
	if err := r.client.Publish(ctx, r.channel(collection), id).Err(); err != nil {
		r.logger.Warn().Err(err).Str("collection", collection).Msg("Failed to announce change")
	}
	return id, nil
}

// Close cancels open subscriptions and releases the client.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	cancels := make([]CancelFunc, 0, len(r.cancels))
	for _, cancel := range r.cancels {
		cancels = append(cancels, cancel)
	}
	r.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}

	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Ping checks the connection to Redis.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
