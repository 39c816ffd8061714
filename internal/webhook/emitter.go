package webhook

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/metrics"
	"github.com/jmehdipour/paywall/internal/model"
)

// Notifier is what business services use to announce an occurrence.
// Emit never fails the caller.
type Notifier interface {
	Emit(ctx context.Context, eventType string, payload jsonv.Object)
}

// Emitter gates, persists and makes the first delivery attempt.
type Emitter struct {
	d Deps
}

var _ Notifier = (*Emitter)(nil)

func NewEmitter(d Deps) *Emitter {
	return &Emitter{d: d.withDefaults()}
}

// Emit runs synchronously. Settings without URL or secret, and event types
// that are neither bypassed nor enabled, leave no trace in the store.
func (m *Emitter) Emit(ctx context.Context, eventType string, payload jsonv.Object) {
	// the business request may finish before delivery does
	ctx = context.WithoutCancel(ctx)
	log := m.d.Logger.With(zap.String("event_type", eventType))

	s, ok := m.d.deliverable(ctx)
	if !ok {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.StageSkipped, metrics.SourceEmit).Inc()
		return
	}
	if !Eligible(eventType, s.EnabledSet()) {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.StageDropped, metrics.SourceEmit).Inc()
		return
	}

	e := &model.WebhookEvent{
		EventType: eventType,
		Payload:   payload.Clone(),
		CreatedAt: m.d.Now().Truncate(time.Second), // created_at is a DATETIME(0) column
	}
	if e.Payload == nil {
		e.Payload = jsonv.Object{}
	}
	if _, err := m.d.Store.Insert(ctx, e); err != nil {
		log.Error("persist webhook event", zap.Error(err))
		return
	}
	metrics.WebhookEventsTotal.WithLabelValues(metrics.StageEmitted, metrics.SourceEmit).Inc()

	derr := m.d.attempt(ctx, s, *e, metrics.SourceEmit)
	if derr != nil {
		log.Info("webhook delivery failed", zap.Int64("event_id", e.ID), zap.Error(derr))
	}

	if err := m.d.settle(ctx, *e, derr, metrics.SourceEmit); err != nil {
		if errors.Is(err, ErrConflict) {
			log.Warn("webhook event moved before emit settled", zap.Int64("event_id", e.ID))
			return
		}
		log.Error("update webhook event", zap.Int64("event_id", e.ID), zap.Error(err))
	}
}
