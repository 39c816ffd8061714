// Package contact stores messages sent through the public contact form.
package contact

import (
	"context"
	"strings"
	"time"

	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
	"github.com/jmehdipour/paywall/internal/service"
	"github.com/jmehdipour/paywall/internal/util"
	"github.com/jmehdipour/paywall/internal/webhook"
)

const maxBody = 5000

type Service struct {
	messages repository.ContactsRepository
	notifier webhook.Notifier
}

func New(messages repository.ContactsRepository, notifier webhook.Notifier) *Service {
	return &Service{messages: messages, notifier: notifier}
}

type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Body    string `json:"message"`
}

func (s *Service) Submit(ctx context.Context, in Input) (*model.ContactMessage, error) {
	m := &model.ContactMessage{
		Name:      strings.TrimSpace(in.Name),
		Email:     util.NormalizeEmail(in.Email),
		Subject:   strings.TrimSpace(in.Subject),
		Body:      strings.TrimSpace(in.Body),
		CreatedAt: time.Now().UTC(),
	}
	switch {
	case m.Name == "":
		return nil, service.Invalid("name is required")
	case m.Email == "":
		return nil, service.Invalid("email is not valid")
	case m.Body == "":
		return nil, service.Invalid("message is required")
	case len(m.Body) > maxBody:
		return nil, service.Invalid("message is longer than %d characters", maxBody)
	}

	if _, err := s.messages.Create(ctx, m); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, model.EventContactCreated, jsonv.Object{
		"message_id": jsonv.Int(m.ID),
		"name":       jsonv.String(m.Name),
		"email":      jsonv.String(m.Email),
		"subject":    jsonv.String(m.Subject),
	})
	return m, nil
}
