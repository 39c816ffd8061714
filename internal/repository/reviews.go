package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmoiron/sqlx"
)

type ReviewsRepository interface {
	Create(ctx context.Context, rv *model.Review) (int64, error)
	Get(ctx context.Context, id int64) (*model.Review, error)
	Approve(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ListByContent(ctx context.Context, contentID int64, approvedOnly bool) ([]model.Review, error)
}

type ReviewsRepositoryImpl struct {
	db *sqlx.DB
}

func NewReviewsRepository(db *sqlx.DB) *ReviewsRepositoryImpl {
	return &ReviewsRepositoryImpl{db: db}
}

var _ ReviewsRepository = (*ReviewsRepositoryImpl)(nil)

func (r *ReviewsRepositoryImpl) Create(ctx context.Context, rv *model.Review) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO reviews (content_id, author, email, rating, comment, approved, created_at)
		VALUES (?, ?, ?, ?, ?, 0, NOW())
	`, rv.ContentID, rv.Author, rv.Email, rv.Rating, rv.Comment)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	rv.ID = id
	return id, nil
}

func (r *ReviewsRepositoryImpl) Get(ctx context.Context, id int64) (*model.Review, error) {
	var rv model.Review
	err := r.db.GetContext(ctx, &rv, `
		SELECT id, content_id, author, email, rating, comment, approved, created_at
		  FROM reviews
		 WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get review %d: %w", id, err)
	}
	return &rv, nil
}

func (r *ReviewsRepositoryImpl) Approve(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET approved = 1 WHERE id = ? AND approved = 0`, id)
	if err != nil {
		return false, fmt.Errorf("approve review %d: %w", id, err)
	}
	return affectedOne(res)
}

func (r *ReviewsRepositoryImpl) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete review %d: %w", id, err)
	}
	return affectedOne(res)
}

func (r *ReviewsRepositoryImpl) ListByContent(ctx context.Context, contentID int64, approvedOnly bool) ([]model.Review, error) {
	q := `
		SELECT id, content_id, author, email, rating, comment, approved, created_at
		  FROM reviews
		 WHERE content_id = ?`
	if approvedOnly {
		q += ` AND approved = 1`
	}
	q += ` ORDER BY id DESC LIMIT 200`

	rows := []model.Review{}
	if err := r.db.SelectContext(ctx, &rows, q, contentID); err != nil {
		return nil, fmt.Errorf("list reviews for content %d: %w", contentID, err)
	}
	return rows, nil
}

type ContactsRepository interface {
	Create(ctx context.Context, m *model.ContactMessage) (int64, error)
}

type ContactsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContactsRepository(db *sqlx.DB) *ContactsRepositoryImpl {
	return &ContactsRepositoryImpl{db: db}
}

var _ ContactsRepository = (*ContactsRepositoryImpl)(nil)

func (r *ContactsRepositoryImpl) Create(ctx context.Context, m *model.ContactMessage) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_messages (name, email, subject, body, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`, m.Name, m.Email, m.Subject, m.Body)
	if err != nil {
		return 0, fmt.Errorf("insert contact message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	return id, nil
}
