package notify

import (
	"context"
	"log/slog"
	"time"

	"kycflow/internal/kyc/metrics"
	"kycflow/internal/kyc/models"
	"kycflow/internal/kyc/ports"
)

// Async decouples workflow transitions from event delivery. Notify only
// enqueues; Run drains the buffer into the wrapped dispatcher. A slow or
// failing transport therefore never delays or fails a committed transition.
//
// An event whose delivery fails is requeued once and retried on the next
// drain. A second failure abandons it.
type Async struct {
	next    ports.NotificationDispatcher
	buffer  *RingBuffer
	retry   *RingBuffer
	wake    chan struct{}
	logger  *slog.Logger
	metrics *metrics.Metrics

	batchSize       int
	flushInterval   time.Duration
	deliveryTimeout time.Duration
}

var _ ports.NotificationDispatcher = (*Async)(nil)

type AsyncOption func(*Async)

func WithLogger(logger *slog.Logger) AsyncOption {
	return func(a *Async) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) AsyncOption {
	return func(a *Async) { a.metrics = m }
}

func WithCapacity(n int) AsyncOption {
	return func(a *Async) { a.buffer = NewRingBuffer(n) }
}

func WithBatchSize(n int) AsyncOption {
	return func(a *Async) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.flushInterval = d
		}
	}
}

func WithDeliveryTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.deliveryTimeout = d
		}
	}
}

func NewAsync(next ports.NotificationDispatcher, opts ...AsyncOption) *Async {
	a := &Async{
		next:            next,
		buffer:          NewRingBuffer(1024),
		wake:            make(chan struct{}, 1),
		logger:          slog.Default(),
		batchSize:       64,
		flushInterval:   time.Second,
		deliveryTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.retry = NewRingBuffer(a.buffer.capacity)
	return a
}

// Notify enqueues the event. It never blocks and never fails.
func (a *Async) Notify(ctx context.Context, event models.Event) error {
	if a.buffer.Enqueue(event) {
		a.metrics.IncrementNotification("dropped")
		a.logger.WarnContext(ctx, "notification buffer full, dropped oldest event",
			"dropped_total", a.buffer.Dropped(),
		)
	}
	select {
	case a.wake <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the number of undelivered events, retries included.
func (a *Async) Pending() int { return a.buffer.Len() + a.retry.Len() }

// Run delivers events until ctx is cancelled, then flushes what is left
// with a bounded grace period.
func (a *Async) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.deliveryTimeout)
			a.drain(flushCtx)
			a.drainRetries(flushCtx)
			cancel()
			return ctx.Err()
		case <-a.wake:
			a.drain(ctx)
		case <-ticker.C:
			a.drain(ctx)
		}
	}
}

func (a *Async) drain(ctx context.Context) {
	// Failures from the previous drain get their second attempt first.
	a.drainRetries(ctx)
	for {
		batch := a.buffer.DequeueBatch(a.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, event := range batch {
			if err := a.deliver(ctx, event); err != nil {
				a.metrics.IncrementNotification("failed")
				a.logger.WarnContext(ctx, "notification delivery failed, will retry",
					"event_type", event.Type,
					"application_id", event.ApplicationID.String(),
					"error", err,
				)
				a.retry.Enqueue(event)
			}
		}
	}
}

func (a *Async) drainRetries(ctx context.Context) {
	for _, event := range a.retry.DequeueBatch(a.retry.Len()) {
		if err := a.deliver(ctx, event); err != nil {
			a.metrics.IncrementNotification("abandoned")
			a.logger.ErrorContext(ctx, "notification delivery failed twice, event abandoned",
				"event_type", event.Type,
				"application_id", event.ApplicationID.String(),
				"error", err,
			)
		}
	}
}

func (a *Async) deliver(ctx context.Context, event models.Event) error {
	ctx, cancel := context.WithTimeout(ctx, a.deliveryTimeout)
	defer cancel()

	if err := a.next.Notify(ctx, event); err != nil {
		return err
	}
	a.metrics.IncrementNotification("delivered")
	return nil
}
