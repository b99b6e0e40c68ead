package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
)

const defaultSendTimeout = 10 * time.Second

var ErrDispatcherClosed = errors.New("notification dispatcher closed")

type dispatchJob struct {
	ctx          context.Context
	notification Notification
}

// AsyncDispatcher delivers notifications from a bounded queue with a fixed
// pool of workers. Delivery failures are logged and counted only.
type AsyncDispatcher struct {
	deliverer *deliverer
	queue     chan dispatchJob
	group     errgroup.Group

	mu       sync.RWMutex
	closed   bool
	shutdown sync.Once
}

func NewAsyncDispatcher(notifier Notifier, workers, queueSize int, sendTimeout time.Duration, logger *slog.Logger) *AsyncDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	d := &AsyncDispatcher{
		deliverer: newDeliverer(notifier, sendTimeout, logger),
		queue:     make(chan dispatchJob, queueSize),
	}
	for range workers {
		d.group.Go(func() error {
			for job := range d.queue {
				d.deliverer.deliver(job.ctx, job.notification)
			}
			return nil
		})
	}
	return d
}

// Dispatch enqueues n without blocking. The request context is detached so
// delivery outlives the request but keeps its trace.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.deliverer.drop(ctx, n, ErrDispatcherClosed)
		return
	}
	select {
	case d.queue <- dispatchJob{ctx: context.WithoutCancel(ctx), notification: n}:
	default:
		d.deliverer.drop(ctx, n, fmt.Errorf("queue full (capacity %d)", cap(d.queue)))
	}
}

// Shutdown stops intake and waits for queued notifications to drain or ctx to end.
func (d *AsyncDispatcher) Shutdown(ctx context.Context) error {
	d.shutdown.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("drain notification queue: %w", ctx.Err())
	}
}

// InlineDispatcher delivers on the calling goroutine. Used by tools and tests
// that need a notification to have been handled when the call returns.
type InlineDispatcher struct {
	deliverer *deliverer
}

func NewInlineDispatcher(notifier Notifier, sendTimeout time.Duration, logger *slog.Logger) *InlineDispatcher {
	return &InlineDispatcher{deliverer: newDeliverer(notifier, sendTimeout, logger)}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, n Notification) {
	d.deliverer.deliver(context.WithoutCancel(ctx), n)
}

type deliverer struct {
	notifier    Notifier
	sendTimeout time.Duration
	logger      *slog.Logger
}

func newDeliverer(notifier Notifier, sendTimeout time.Duration, logger *slog.Logger) *deliverer {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &deliverer{notifier: notifier, sendTimeout: sendTimeout, logger: logger}
}

func (d *deliverer) deliver(ctx context.Context, n Notification) {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.send(ctx, n)
	elapsed := time.Since(start)
	if err != nil {
		observability.RecordNotificationDelivery(ctx, string(n.Kind), "failed", elapsed)
		d.logger.WarnContext(ctx, "notification delivery failed",
			"kind", string(n.Kind),
			"user_id", n.UserID,
			"duration", elapsed,
			"error", err,
		)
		return
	}
	observability.RecordNotificationDelivery(ctx, string(n.Kind), "sent", elapsed)
}

func (d *deliverer) send(ctx context.Context, n Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindDelivery, Message: "notifier panicked", Err: fmt.Errorf("%v", r)}
		}
	}()
	return d.notifier.Send(ctx, n)
}

func (d *deliverer) drop(ctx context.Context, n Notification, reason error) {
	observability.RecordNotificationDelivery(ctx, string(n.Kind), "dropped", 0)
	d.logger.WarnContext(ctx, "notification dropped",
		"kind", string(n.Kind),
		"user_id", n.UserID,
		"reason", reason.Error(),
	)
}
