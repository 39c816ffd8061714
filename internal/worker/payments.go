package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/kafka"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/service/payment"
)

// Source is the consumer side of a Kafka topic.
type Source interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

type StatusHandler interface {
	HandleStatus(ctx context.Context, gatewayID, channel string) (*model.Payment, error)
}

// statusMessage is what the gateway publishes. Only the id is trusted; the
// status is re-read from the gateway.
type statusMessage struct {
	PaymentID string `json:"payment_id"`
	ID        string `json:"id"`
	Status    string `json:"status"`
}

func (m statusMessage) gatewayID() string {
	if m.PaymentID != "" {
		return m.PaymentID
	}
	return m.ID
}

// PaymentStatus consumes gateway payment notifications and applies them.
type PaymentStatus struct {
	Source  Source
	Handler StatusHandler
	Log     *zap.Logger

	Attempts int           // per message, before giving up and committing
	Backoff  time.Duration // multiplied by the attempt number
}

func NewPaymentStatus(src Source, h StatusHandler, log *zap.Logger) *PaymentStatus {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentStatus{Source: src, Handler: h, Log: log, Attempts: 3, Backoff: 200 * time.Millisecond}
}

// Run blocks until ctx is cancelled.
func (w *PaymentStatus) Run(ctx context.Context) error {
	for {
		m, err := w.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.Log.Warn("kafka fetch", zap.Error(err))
			if !sleep(ctx, 200*time.Millisecond) {
				return nil
			}
			continue
		}
		w.processOne(ctx, m)
	}
}

func (w *PaymentStatus) processOne(ctx context.Context, m kafka.Message) {
	var msg statusMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil || msg.gatewayID() == "" {
		w.Log.Warn("bad payment status message", zap.Int64("offset", m.Offset), zap.Error(err))
		w.commit(ctx, m)
		return
	}

	id := msg.gatewayID()
	for attempt := 1; attempt <= w.Attempts; attempt++ {
		_, err := w.Handler.HandleStatus(ctx, id, payment.ChannelKafka)
		if err == nil {
			break
		}
		if errors.Is(err, payment.ErrUnknownPayment) {
			w.Log.Info("payment status for unknown payment", zap.String("gateway_id", id))
			break
		}
		w.Log.Warn("apply payment status",
			zap.String("gateway_id", id),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt == w.Attempts || !sleep(ctx, w.Backoff*time.Duration(attempt)) {
			break
		}
	}
	w.commit(ctx, m)
}

func (w *PaymentStatus) commit(ctx context.Context, m kafka.Message) {
	if err := w.Source.Commit(ctx, m); err != nil {
		w.Log.Warn("kafka commit", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
