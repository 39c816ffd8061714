// Package webhook delivers signed event notifications to the endpoint
// configured in settings, at least once, with a bounded periodic retry.
package webhook

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/metrics"
	"github.com/jmehdipour/paywall/internal/model"
)

var (
	ErrNotRetryable   = errors.New("webhook event is not in failed state")
	ErrConflict       = errors.New("webhook event changed concurrently")
	ErrNotDeliverable = errors.New("webhook endpoint or secret not configured")
)

// maxErrorMessage caps what is stored in error_message.
const maxErrorMessage = 1000

// EventStore is the slice of repository.WebhookEventsRepository the core needs.
type EventStore interface {
	Insert(ctx context.Context, e *model.WebhookEvent) (int64, error)
	Get(ctx context.Context, id int64) (*model.WebhookEvent, error)
	ListRetryable(ctx context.Context, bound, limit int) ([]model.WebhookEvent, error)
	MarkDelivered(ctx context.Context, id int64, from model.EventStatus, retryCount int, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, from model.EventStatus, retryCount int, msg string, at time.Time) (bool, error)
}

// ConfigSource resolves the active settings row; nil means none yet.
type ConfigSource interface {
	Active(ctx context.Context) (*model.Settings, error)
}

// AttemptRecorder appends to the delivery attempt log.
type AttemptRecorder interface {
	Record(ctx context.Context, a model.DeliveryAttempt) error
}

// Deps are the collaborators shared by Emitter, Sweeper and Retrier.
type Deps struct {
	Store          EventStore
	Config         ConfigSource
	Transport      Deliverer
	Attempts       AttemptRecorder // optional
	Logger         *zap.Logger
	DefaultTimeout time.Duration
	Now            func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC().Truncate(time.Second) }
	}
	if d.DefaultTimeout <= 0 {
		d.DefaultTimeout = 10 * time.Second
	}
	return d
}

// deliverable loads settings and reports whether delivery is possible now.
func (d Deps) deliverable(ctx context.Context) (*model.Settings, bool) {
	s, err := d.Config.Active(ctx)
	if err != nil {
		d.Logger.Warn("load webhook settings", zap.Error(err))
		return nil, false
	}
	return s, s.Deliverable()
}

// attempt sends one signed POST for e and records it. The row itself is
// not touched; callers apply the conditional transition.
func (d Deps) attempt(ctx context.Context, s *model.Settings, e model.WebhookEvent, source string) error {
	target := Target{URL: s.WebhookURL, Secret: s.SecretKey, Timeout: s.Timeout(d.DefaultTimeout)}

	start := time.Now()
	err := d.Transport.Deliver(ctx, target, EnvelopeFor(e))
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.WebhookDeliverySeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())

	if d.Attempts != nil {
		a := model.DeliveryAttempt{
			EventID:     e.ID,
			EventType:   e.EventType,
			Source:      source,
			Attempt:     e.RetryCount + 1,
			Success:     err == nil,
			DurationMs:  elapsed.Milliseconds(),
			AttemptedAt: d.Now(),
		}
		if err != nil {
			a.Error = errorMessage(err)
		}
		if rerr := d.Attempts.Record(ctx, a); rerr != nil {
			d.Logger.Debug("record webhook attempt", zap.Int64("event_id", e.ID), zap.Error(rerr))
		}
	}
	return err
}

// settle applies the outcome of one attempt to a row observed in
// (from, retryCount). It returns ErrConflict when another writer moved it.
func (d Deps) settle(ctx context.Context, e model.WebhookEvent, deliverErr error, source string) error {
	now := d.Now()
	var (
		ok    bool
		err   error
		stage = metrics.StageDelivered
	)
	if deliverErr == nil {
		ok, err = d.Store.MarkDelivered(ctx, e.ID, e.Status, e.RetryCount, now)
	} else {
		stage = metrics.StageFailed
		ok, err = d.Store.MarkFailed(ctx, e.ID, e.Status, e.RetryCount, errorMessage(deliverErr), now)
	}
	if err != nil {
		return err
	}
	if !ok {
		metrics.WebhookEventsTotal.WithLabelValues(metrics.StageConflict, source).Inc()
		return ErrConflict
	}
	metrics.WebhookEventsTotal.WithLabelValues(stage, source).Inc()
	return nil
}

func errorMessage(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorMessage {
		msg = msg[:maxErrorMessage]
	}
	return msg
}
