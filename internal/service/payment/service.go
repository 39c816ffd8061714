// Package payment opens gateway charges and applies their status changes.
package payment

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/gateway"
	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/metrics"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
	"github.com/jmehdipour/paywall/internal/webhook"
)

var ErrUnknownPayment = errors.New("unknown payment")

// Status change channels, for metrics.
const (
	ChannelHTTP  = "http"
	ChannelKafka = "kafka"
)

// Gateway is the subset of gateway.Client used here.
type Gateway interface {
	CreatePayment(ctx context.Context, in gateway.CreateRequest) (gateway.Charge, error)
	GetPayment(ctx context.Context, id string) (gateway.Charge, error)
}

type Service struct {
	payments repository.PaymentsRepository
	contents repository.ContentsRepository
	gw       Gateway
	tx       repository.TxFunc
	notifier webhook.Notifier
	log      *zap.Logger
}

func New(
	payments repository.PaymentsRepository,
	contents repository.ContentsRepository,
	gw Gateway,
	tx repository.TxFunc,
	notifier webhook.Notifier,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{payments: payments, contents: contents, gw: gw, tx: tx, notifier: notifier, log: log}
}

// CreateCharge registers p at the gateway and stores the gateway id and
// checkout URL on it.
func (s *Service) CreateCharge(ctx context.Context, p *model.Payment, description string) error {
	ch, err := s.gw.CreatePayment(ctx, gateway.CreateRequest{
		Reference:   p.Reference,
		AmountCents: p.AmountCents,
		Method:      string(p.Method),
		Email:       p.Email,
		Description: description,
	})
	if err != nil {
		return err
	}
	if err := s.payments.SetGatewayInfo(ctx, p.ID, ch.ID, ch.CheckoutURL); err != nil {
		return err
	}
	p.GatewayID = ch.ID
	p.CheckoutURL = ch.CheckoutURL
	return nil
}

// HandleStatus re-reads the charge from the gateway and applies a terminal
// status once. Notifications carry no trusted status of their own, so
// duplicates and replays are harmless.
func (s *Service) HandleStatus(ctx context.Context, gatewayID, channel string) (*model.Payment, error) {
	p, err := s.payments.GetByGatewayID(ctx, gatewayID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownPayment
	}
	if err != nil {
		return nil, err
	}

	ch, err := s.gw.GetPayment(ctx, gatewayID)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrUnknownPayment
	}
	if err != nil {
		return nil, err
	}
	to, ok := ch.PaymentStatus()
	if !ok {
		s.log.Warn("unrecognised gateway status", zap.String("gateway_id", gatewayID), zap.String("status", ch.Status))
		return p, nil
	}
	if !to.Terminal() || p.Status != model.PaymentPending {
		return p, nil
	}

	applied := false
	err = s.tx(ctx, func(tx *sqlx.Tx) error {
		ok, err := s.payments.UpdateStatus(ctx, tx, p.ID, model.PaymentPending, to)
		if err != nil || !ok {
			return err
		}
		applied = true
		if to == model.PaymentPaid {
			if _, err := s.contents.GrantAccess(ctx, tx, p.AccessID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return p, nil
	}
	p.Status = to
	metrics.PaymentsTotal.WithLabelValues(to.String(), channel).Inc()

	payload := jsonv.Object{
		"payment_id":   jsonv.Int(p.ID),
		"reference":    jsonv.String(p.Reference),
		"content_id":   jsonv.Int(p.ContentID),
		"amount_cents": jsonv.Int(p.AmountCents),
		"method":       jsonv.String(string(p.Method)),
		"email":        jsonv.String(p.Email),
	}
	if to == model.PaymentPaid {
		s.notifier.Emit(ctx, model.EventPaymentSuccess, payload)
	} else {
		payload["status"] = jsonv.String(to.String())
		s.notifier.Emit(ctx, model.EventPaymentFailure, payload)
	}
	return p, nil
}
