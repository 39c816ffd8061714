// Package review handles reader reviews and their moderation.
package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmehdipour/paywall/internal/repository"
	"github.com/jmehdipour/paywall/internal/service"
	"github.com/jmehdipour/paywall/internal/util"
	"github.com/jmehdipour/paywall/internal/webhook"
)

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrNotPublished  = errors.New("content not published")
)

type Service struct {
	reviews  repository.ReviewsRepository
	contents repository.ContentsRepository
	notifier webhook.Notifier
}

func New(reviews repository.ReviewsRepository, contents repository.ContentsRepository, notifier webhook.Notifier) *Service {
	return &Service{reviews: reviews, contents: contents, notifier: notifier}
}

type SubmitInput struct {
	Author  string `json:"author"`
	Email   string `json:"email"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Submit stores an unapproved review for a published content.
func (s *Service) Submit(ctx context.Context, slug string, in SubmitInput) (*model.Review, error) {
	c, err := s.contents.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !c.Published {
		return nil, ErrNotPublished
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	author := strings.TrimSpace(in.Author)
	if author == "" {
		return nil, service.Invalid("author is required")
	}
	email := util.NormalizeEmail(in.Email)
	if email == "" {
		return nil, service.Invalid("email is not valid")
	}

	rv := &model.Review{
		ContentID: c.ID,
		Author:    author,
		Email:     email,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.reviews.Create(ctx, rv); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, model.EventReviewCreated, jsonv.Object{
		"review_id":  jsonv.Int(rv.ID),
		"content_id": jsonv.Int(rv.ContentID),
		"rating":     jsonv.Int(int64(rv.Rating)),
		"author":     jsonv.String(rv.Author),
	})
	return rv, nil
}

// Approve emits only on the transition from unapproved.
func (s *Service) Approve(ctx context.Context, id int64) (*model.Review, error) {
	rv, err := s.reviews.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.reviews.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	rv.Approved = true
	if ok {
		s.notifier.Emit(ctx, model.EventReviewApproved, jsonv.Object{
			"review_id":  jsonv.Int(rv.ID),
			"content_id": jsonv.Int(rv.ContentID),
		})
	}
	return rv, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	rv, err := s.reviews.Get(ctx, id)
	if err != nil {
		return err
	}
	ok, err := s.reviews.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrNotFound
	}
	s.notifier.Emit(ctx, model.EventReviewDeleted, jsonv.Object{
		"review_id":  jsonv.Int(rv.ID),
		"content_id": jsonv.Int(rv.ContentID),
	})
	return nil
}

func (s *Service) ListApproved(ctx context.Context, contentID int64) ([]model.Review, error) {
	return s.reviews.ListByContent(ctx, contentID, true)
}
