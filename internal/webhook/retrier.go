package webhook

import (
	"context"

	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/metrics"
	"github.com/jmehdipour/paywall/internal/model"
)

// Retrier re-attempts a single failed row on admin request. It ignores the
// retry bound, so terminal rows can be pushed through by hand.
type Retrier struct {
	d Deps
}

func NewRetrier(d Deps) *Retrier {
	return &Retrier{d: d.withDefaults()}
}

// RetryNow returns the row as stored after the attempt. A failed delivery is
// not an error; the returned row carries the new error_message.
func (r *Retrier) RetryNow(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	e, err := r.d.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status != model.EventFailed {
		return e, ErrNotRetryable
	}

	s, ok := r.d.deliverable(ctx)
	if !ok {
		return e, ErrNotDeliverable
	}

	derr := r.d.attempt(ctx, s, *e, metrics.SourceManual)
	if err := r.d.settle(ctx, *e, derr, metrics.SourceManual); err != nil {
		return e, err
	}
	if derr != nil {
		r.d.Logger.Info("manual webhook retry failed", zap.Int64("event_id", id), zap.Error(derr))
	}
	return r.d.Store.Get(ctx, id)
}
