// Package worker mirrors workflow views into an export sink in the
// background, re-exporting after lifecycle events.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"healthops/internal/events"
	"healthops/internal/export"
	"healthops/internal/metrics"
	"healthops/internal/query"
	"healthops/internal/workflow"
)

// Task asks for one tab to be exported again.
type Task struct {
	Context   workflow.Context `json:"context"`
	Tab       workflow.Bucket  `json:"tab,omitempty"`
	Sink      string           `json:"sink,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	Attempt   int              `json:"attempt"`
	LastError string           `json:"last_error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (t Task) key() string {
	return string(t.Context) + "/" + string(t.Tab) + "/" + t.Sink
}

type Exporter interface {
	Export(ctx context.Context, view workflow.Context, tab workflow.Bucket, spec query.Spec, sink string) (export.Result, error)
}

// SyncWorker consumes export tasks from redis or an in-memory queue. Tasks for
// the same tab and sink are coalesced while one is waiting.
type SyncWorker struct {
	exporter      Exporter
	redis         *redis.Client
	retryPolicy   RetryPolicy
	sink          string
	queue         chan Task
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        *zerolog.Logger

	mu          sync.Mutex
	pending     map[string]bool
	deadLetters []Task
	wg          sync.WaitGroup
}

// NewSyncWorker builds a worker with sane defaults. redisClient may be nil.
func NewSyncWorker(exporter Exporter, redisClient *redis.Client, queueKey, sink string, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	if queueKey == "" {
		queueKey = "healthops:sync:queue"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "sync_worker").Logger()

	return &SyncWorker{
		exporter:      exporter,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		sink:          sink,
		queue:         make(chan Task, 128),
		redisQueueKey: queueKey,
		deadLetterKey: queueKey + ":deadletter",
		pollInterval:  time.Second,
		logger:        &l,
		pending:       make(map[string]bool),
	}
}

// Enqueue schedules task unless an identical one is already waiting.
func (w *SyncWorker) Enqueue(ctx context.Context, task Task) error {
	if _, err := workflow.EntityOf(task.Context); err != nil {
		return err
	}
	if task.Tab != "" && !workflow.HasTab(task.Context, task.Tab) {
		return fmt.Errorf("%w: %q in %s", workflow.ErrUnknownTab, task.Tab, task.Context)
	}
	if task.Sink == "" {
		task.Sink = w.sink
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	w.mu.Lock()
	if w.pending[task.key()] {
		w.mu.Unlock()
		metrics.IncSync(metrics.SyncCoalesced)
		return nil
	}
	w.pending[task.key()] = true
	w.mu.Unlock()

	return w.push(ctx, task)
}

func (w *SyncWorker) push(ctx context.Context, task Task) error {
	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
		return nil
	default:
		w.release(task)
		return errors.New("sync queue is full")
	}
}

func (w *SyncWorker) release(task Task) {
	w.mu.Lock()
	delete(w.pending, task.key())
	w.mu.Unlock()
}

// EventHandler re-exports the "all" tab of the entity an event touched.
func (w *SyncWorker) EventHandler(ctx context.Context) events.EventHandler {
	return func(event *events.Event) error {
		var view workflow.Context
		switch {
		case strings.HasPrefix(event.Type, "camp_"):
			view = workflow.ContextCampSchedule
		case strings.HasPrefix(event.Type, "booking_"):
			view = workflow.ContextTestBookings
		default:
			return nil
		}
		return w.Enqueue(ctx, Task{Context: view, Tab: workflow.BucketAll, Reason: event.Type})
	}
}

// Start launches main loop; stops when ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("sync worker started")
	defer w.logger.Info().Msg("sync worker stopped")

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}
		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}
		if w.redis == nil {
			select {
			case <-ctx.Done():
			case t := <-w.queue:
				w.processTask(ctx, t)
			}
		}
	}
}

func (w *SyncWorker) tryLocalQueue() (Task, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return Task{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (Task, bool) {
	if w.redis == nil {
		return Task{}, false
	}
	res, err := w.redis.BRPop(ctx, w.pollInterval, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("redis BRPOP error")
			sleep(ctx, w.pollInterval)
		}
		return Task{}, false
	}
	if len(res) != 2 {
		return Task{}, false
	}
	var task Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return Task{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task Task) {
	// Events arriving during the export queue a fresh task.
	w.release(task)

	res, err := w.exporter.Export(ctx, task.Context, task.Tab, query.Spec{}, task.Sink)
	if err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}
	metrics.IncSync(metrics.SyncExported)
	w.logger.Debug().
		Str("context", string(res.Context)).
		Str("tab", string(res.Tab)).
		Int("rows", res.Rows).
		Str("location", res.Location).
		Str("reason", task.Reason).
		Msg("view exported")
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task Task, cause error) {
	task.Attempt++
	task.LastError = cause.Error()
	if w.retryPolicy.Exhausted(task.Attempt) || errors.Is(cause, export.ErrUnknownSink) {
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.Attempt)
	metrics.IncSync(metrics.SyncRetried)
	w.logger.Warn().Err(cause).Str("context", string(task.Context)).Int("attempt", task.Attempt).Dur("delay", delay).Msg("export failed, retrying")

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if !sleep(ctx, delay) {
			return
		}
		if err := w.Enqueue(ctx, task); err != nil {
			w.logger.Error().Err(err).Str("context", string(task.Context)).Msg("requeue failed")
		}
	}()
}

func (w *SyncWorker) pushRedis(ctx context.Context, key string, task Task) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, task Task) {
	metrics.IncSync(metrics.SyncDeadLetter)
	w.logger.Error().Str("context", string(task.Context)).Str("tab", string(task.Tab)).Int("attempt", task.Attempt).Str("error", task.LastError).Msg("export abandoned")

	if w.redis != nil {
		err := w.pushRedis(ctx, w.deadLetterKey, task)
		if err == nil {
			return
		}
		w.logger.Error().Err(err).Msg("deadletter push failed")
	}
	w.mu.Lock()
	w.deadLetters = append(w.deadLetters, task)
	w.mu.Unlock()
}

// DeadLetters returns tasks abandoned while no redis was available.
func (w *SyncWorker) DeadLetters() []Task {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Task, len(w.deadLetters))
	copy(out, w.deadLetters)
	return out
}
