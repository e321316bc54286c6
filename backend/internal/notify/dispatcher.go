package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"daydei-social/backend/internal/constants"
	"daydei-social/backend/internal/metrics"
	"daydei-social/backend/internal/relation"
	"daydei-social/backend/internal/state"
	apperrors "daydei-social/backend/pkg/errors"
	"daydei-social/backend/pkg/logger"
)

// Config tunes the dispatcher queue.
type Config struct {
	QueueSize   int
	Workers     int
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
}

type job struct {
	ctx context.Context
	n   state.Notification
}

// Dispatcher queues notifications and publishes them from a worker pool.
// Notify never blocks: when the queue is full the notification is dropped.
type Dispatcher struct {
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cfg       Config

	mu     sync.RWMutex
	closed bool
	queue  chan job
	wg     sync.WaitGroup
}

var _ relation.Notifier = (*Dispatcher)(nil)

// NewDispatcher starts cfg.Workers workers publishing through p.
func NewDispatcher(p Publisher, cfg Config, m *metrics.Metrics) *Dispatcher {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = constants.NotificationMaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 100 * time.Millisecond
	}

	d := &Dispatcher{
		publisher: p,
		metrics:   m,
		logger:    logger.Named("notify"),
		cfg:       cfg,
		queue:     make(chan job, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.logger.Info("Notification dispatcher started",
		zap.String("backend", p.Name()),
		zap.Int("workers", cfg.Workers),
		zap.Int("queue_size", cfg.QueueSize),
	)
	return d
}

// Notify enqueues n. The request context is detached so that a finished
// request does not cancel delivery.
func (d *Dispatcher) Notify(ctx context.Context, n state.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher closed")
		return
	}
	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), n: n}:
	default:
		d.drop(n, "queue full")
	}
}

func (d *Dispatcher) drop(n state.Notification, reason string) {
	d.metrics.Notification(metrics.NotificationDropped)
	d.logger.Warn("Notification dropped",
		zap.String("id", n.ID),
		zap.String("target_id", n.Target),
		zap.String("kind", string(n.Kind)),
		zap.String("reason", reason),
	)
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	var err error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(j.ctx, d.cfg.Timeout)
		err = d.publisher.Publish(ctx, j.n)
		cancel()
		if err == nil {
			d.metrics.Notification(metrics.NotificationPublished)
			return
		}
		if !apperrors.IsRetryable(err) || attempt == d.cfg.MaxAttempts {
			break
		}
		d.logger.Debug("Retrying notification",
			zap.String("id", j.n.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		time.Sleep(d.cfg.Backoff * time.Duration(attempt))
	}

	d.metrics.Notification(metrics.NotificationFailed)
	d.logger.Error("Notification delivery failed",
		zap.String("id", j.n.ID),
		zap.String("target_id", j.n.Target),
		zap.String("backend", d.publisher.Name()),
		zap.Error(err),
	)
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end. The publisher is closed either way.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return d.publisher.Close()
	case <-ctx.Done():
		d.logger.Warn("Notification queue not drained before shutdown")
		return errors.Join(ctx.Err(), d.publisher.Close())
	}
}
