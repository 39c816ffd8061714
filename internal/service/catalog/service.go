// Package catalog manages contents and the lead registrations that unlock them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
	"github.com/jmehdipour/paywall/internal/service"
	"github.com/jmehdipour/paywall/internal/util"
	"github.com/jmehdipour/paywall/internal/webhook"
)

var (
	ErrSlugTaken    = errors.New("slug already taken")
	ErrNotPublished = errors.New("content not published")
	ErrAmountTooLow = errors.New("amount below minimum price")
)

// Checkout opens a charge at the payment gateway for a pending payment.
type Checkout interface {
	CreateCharge(ctx context.Context, p *model.Payment, description string) error
}

type Service struct {
	contents repository.ContentsRepository
	payments repository.PaymentsRepository
	tx       repository.TxFunc
	checkout Checkout
	notifier webhook.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func New(
	contents repository.ContentsRepository,
	payments repository.PaymentsRepository,
	tx repository.TxFunc,
	checkout Checkout,
	notifier webhook.Notifier,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		contents: contents,
		payments: payments,
		tx:       tx,
		checkout: checkout,
		notifier: notifier,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Description   string `json:"description"`
	MinPriceCents int64  `json:"min_price_cents"`
	FileKey       string `json:"file_key"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Content, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, service.Invalid("title is required")
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = util.Slugify(title)
	}
	if !util.ValidSlug(slug) {
		return nil, service.Invalid("slug %q is not valid", slug)
	}
	if in.MinPriceCents < 0 {
		return nil, service.Invalid("min_price_cents must not be negative")
	}

	c := &model.Content{
		Slug:          slug,
		Title:         title,
		Description:   in.Description,
		MinPriceCents: in.MinPriceCents,
		FileKey:       in.FileKey,
	}
	if _, err := s.contents.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrSlugTaken
		}
		return nil, err
	}

	s.notifier.Emit(ctx, model.EventContentCreated, jsonv.Object{
		"content_id":  jsonv.Int(c.ID),
		"slug":        jsonv.String(c.Slug),
		"title":       jsonv.String(c.Title),
		"price_cents": jsonv.Int(c.MinPriceCents),
	})
	return c, nil
}

// UpdateInput carries only the fields being changed.
type UpdateInput struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	MinPriceCents *int64  `json:"min_price_cents"`
	FileKey       *string `json:"file_key"`
}

// Update applies in and announces the changed field names. A no-op update
// writes and emits nothing.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*model.Content, error) {
	c, err := s.contents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changed []jsonv.Value
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, service.Invalid("title must not be empty")
		}
		if t != c.Title {
			c.Title = t
			changed = append(changed, jsonv.String("title"))
		}
	}
	if in.Description != nil && *in.Description != c.Description {
		c.Description = *in.Description
		changed = append(changed, jsonv.String("description"))
	}
	if in.MinPriceCents != nil && *in.MinPriceCents != c.MinPriceCents {
		if *in.MinPriceCents < 0 {
			return nil, service.Invalid("min_price_cents must not be negative")
		}
		c.MinPriceCents = *in.MinPriceCents
		changed = append(changed, jsonv.String("min_price_cents"))
	}
	if in.FileKey != nil && *in.FileKey != c.FileKey {
		c.FileKey = *in.FileKey
		changed = append(changed, jsonv.String("file_key"))
	}
	if len(changed) == 0 {
		return c, nil
	}

	if err := s.contents.Update(ctx, c); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, model.EventContentUpdated, jsonv.Object{
		"content_id":     jsonv.Int(c.ID),
		"slug":           jsonv.String(c.Slug),
		"title":          jsonv.String(c.Title),
		"changed_fields": jsonv.Array(changed...),
	})
	return c, nil
}

// Publish is idempotent; only the first call emits.
func (s *Service) Publish(ctx context.Context, id int64) (*model.Content, error) {
	at := s.now()
	ok, err := s.contents.Publish(ctx, id, at)
	if err != nil {
		return nil, err
	}
	c, err := s.contents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return c, nil
	}

	s.notifier.Emit(ctx, model.EventContentPublished, jsonv.Object{
		"content_id":   jsonv.Int(c.ID),
		"slug":         jsonv.String(c.Slug),
		"published_at": jsonv.String(at.Format(time.RFC3339)),
	})
	return c, nil
}

// GetPublished is the public lookup; drafts are reported as not found.
func (s *Service) GetPublished(ctx context.Context, slug string) (*model.Content, error) {
	c, err := s.contents.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !c.Published {
		return nil, ErrNotPublished
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]model.Content, error) {
	return s.contents.List(ctx, false, limit, offset)
}

type AccessInput struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
}

// AccessResult is what the lead gets back: the token when access is granted
// right away, the checkout URL when a payment is pending.
type AccessResult struct {
	Access  *model.Access  `json:"access"`
	Payment *model.Payment `json:"payment,omitempty"`
}

// RegisterAccess records a lead for a published content. Free registrations
// are granted at once; paid ones wait for payment_success.
func (s *Service) RegisterAccess(ctx context.Context, slug string, in AccessInput) (*AccessResult, error) {
	c, err := s.GetPublished(ctx, slug)
	if err != nil {
		return nil, err
	}
	email := util.NormalizeEmail(in.Email)
	if email == "" {
		return nil, service.Invalid("email is not valid")
	}
	if in.AmountCents < 0 {
		return nil, service.Invalid("amount_cents must not be negative")
	}
	if in.AmountCents < c.MinPriceCents {
		return nil, fmt.Errorf("%w: minimum is %d", ErrAmountTooLow, c.MinPriceCents)
	}
	method, ok := model.ParsePaymentMethod(in.Method)
	if !ok {
		return nil, service.Invalid("unknown payment method %q", in.Method)
	}

	a := &model.Access{
		ContentID:   c.ID,
		Email:       email,
		Name:        strings.TrimSpace(in.Name),
		Token:       util.NewToken(),
		AmountCents: in.AmountCents,
		Status:      model.AccessGranted,
		CreatedAt:   s.now(),
	}
	res := &AccessResult{Access: a}

	if in.AmountCents == 0 {
		if _, err := s.contents.InsertAccess(ctx, nil, a); err != nil {
			return nil, err
		}
	} else {
		a.Status = model.AccessPending
		p := &model.Payment{
			Reference:   util.NewID(),
			ContentID:   c.ID,
			Email:       email,
			AmountCents: in.AmountCents,
			Method:      method,
			Status:      model.PaymentPending,
		}
		err := s.tx(ctx, func(tx *sqlx.Tx) error {
			if _, err := s.contents.InsertAccess(ctx, tx, a); err != nil {
				return err
			}
			p.AccessID = a.ID
			_, err := s.payments.Insert(ctx, tx, p)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := s.checkout.CreateCharge(ctx, p, c.Title); err != nil {
			// the pending rows stay; the lead can register again
			s.log.Warn("create charge", zap.String("reference", p.Reference), zap.Error(err))
			return nil, err
		}
		res.Payment = p
	}

	s.notifier.Emit(ctx, model.EventAccessCreated, jsonv.Object{
		"access_id":  jsonv.Int(a.ID),
		"content_id": jsonv.Int(c.ID),
		"email":      jsonv.String(a.Email),
		"token":      jsonv.String(a.Token),
	})
	return res, nil
}
