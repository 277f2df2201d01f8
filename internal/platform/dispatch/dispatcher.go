package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"lyceum/internal/shared/change"
)

// DefaultMaxAttempts bounds redelivery of a failing change before it is
// parked for operator attention.
const DefaultMaxAttempts = 5

// Dispatcher is the in-process change feed connecting document writes to the
// trigger handlers. Delivery is at-least-once: a handler error re-enqueues
// the envelope with an incremented attempt counter, so handlers must be
// idempotent.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string][]chan change.Envelope
	maxAttempts int
	logger      *slog.Logger
}

func NewDispatcher(maxAttempts int, logger *slog.Logger) *Dispatcher {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		subscribers: make(map[string][]chan change.Envelope),
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Publish fans the envelope out to every subscriber of its entity type.
func (d *Dispatcher) Publish(ctx context.Context, envelope change.Envelope) error {
	d.mu.RLock()
	subs := append([]chan change.Envelope(nil), d.subscribers[envelope.EntityType]...)
	d.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- envelope:
		default:
			d.logger.Warn("dropping change for slow subscriber",
				"event", "dispatch_publish_drop",
				"module", "internal/platform/dispatch",
				"layer", "platform",
				"entity_type", envelope.EntityType,
				"change_id", envelope.ChangeID,
			)
		}
	}

	d.logger.Info("change published",
		"event", "dispatch_publish",
		"module", "internal/platform/dispatch",
		"layer", "platform",
		"entity_type", envelope.EntityType,
		"entity_id", envelope.EntityID,
		"operation", string(envelope.Operation),
		"change_id", envelope.ChangeID,
	)
	return nil
}

// Subscribe registers a handler for one entity type. The handler runs on its
// own goroutine until ctx is done.
func (d *Dispatcher) Subscribe(
	ctx context.Context,
	entityType string,
	handler func(context.Context, change.Envelope) error,
) {
	ch := make(chan change.Envelope, 128)

	d.mu.Lock()
	d.subscribers[entityType] = append(d.subscribers[entityType], ch)
	d.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				d.removeSubscriber(entityType, ch)
				return
			case envelope := <-ch:
				if err := handler(ctx, envelope); err != nil {
					d.redeliver(ctx, ch, envelope, err)
				}
			}
		}
	}()
}

func (d *Dispatcher) redeliver(ctx context.Context, ch chan change.Envelope, envelope change.Envelope, cause error) {
	envelope.Attempt++
	if envelope.Attempt >= d.maxAttempts {
		d.logger.Error("change parked after max attempts",
			"event", "dispatch_change_parked",
			"module", "internal/platform/dispatch",
			"layer", "platform",
			"entity_type", envelope.EntityType,
			"entity_id", envelope.EntityID,
			"change_id", envelope.ChangeID,
			"attempts", envelope.Attempt,
			"error", cause.Error(),
		)
		return
	}

	d.logger.Warn("change handler failed, redelivering",
		"event", "dispatch_redeliver",
		"module", "internal/platform/dispatch",
		"layer", "platform",
		"entity_type", envelope.EntityType,
		"entity_id", envelope.EntityID,
		"change_id", envelope.ChangeID,
		"attempt", envelope.Attempt,
		"error", cause.Error(),
	)
	select {
	case <-ctx.Done():
	case ch <- envelope:
	default:
		d.logger.Error("redelivery queue full, change dropped",
			"event", "dispatch_redeliver_drop",
			"module", "internal/platform/dispatch",
			"layer", "platform",
			"change_id", envelope.ChangeID,
		)
	}
}

func (d *Dispatcher) removeSubscriber(entityType string, target chan change.Envelope) {
	d.mu.Lock()
	defer d.mu.Unlock()

	items := d.subscribers[entityType]
	if len(items) == 0 {
		return
	}
	filtered := make([]chan change.Envelope, 0, len(items))
	for _, item := range items {
		if item != target {
			filtered = append(filtered, item)
		}
	}
	d.subscribers[entityType] = filtered
}
