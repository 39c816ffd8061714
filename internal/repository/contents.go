package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/paywall/internal/db"
	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmoiron/sqlx"
)

type ContentsRepository interface {
	Create(ctx context.Context, c *model.Content) (int64, error)
	Update(ctx context.Context, c *model.Content) error
	Publish(ctx context.Context, id int64, at time.Time) (bool, error)
	GetByID(ctx context.Context, id int64) (*model.Content, error)
	GetBySlug(ctx context.Context, slug string) (*model.Content, error)
	List(ctx context.Context, publishedOnly bool, limit, offset int) ([]model.Content, error)

	InsertAccess(ctx context.Context, tx *sqlx.Tx, a *model.Access) (int64, error)
	GetAccess(ctx context.Context, id int64) (*model.Access, error)
	GrantAccess(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error)
}

type ContentsRepositoryImpl struct {
	db *sqlx.DB
}

func NewContentsRepository(db *sqlx.DB) *ContentsRepositoryImpl {
	return &ContentsRepositoryImpl{db: db}
}

var _ ContentsRepository = (*ContentsRepositoryImpl)(nil)

const contentColumns = `id, slug, title, description, min_price_cents, file_key, published, published_at, created_at, updated_at`

func (r *ContentsRepositoryImpl) Create(ctx context.Context, c *model.Content) (int64, error) {
	const q = `
		INSERT INTO contents
		    (slug, title, description, min_price_cents, file_key, published, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, 0, NOW(), NOW())
	`
	res, err := r.db.ExecContext(ctx, q, c.Slug, c.Title, c.Description, c.MinPriceCents, c.FileKey)
	if err != nil {
		if db.IsDuplicate(err) {
			return 0, fmt.Errorf("content slug %q: %w", c.Slug, ErrDuplicate)
		}
		return 0, fmt.Errorf("insert content: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.ID = id
	return id, nil
}

func (r *ContentsRepositoryImpl) Update(ctx context.Context, c *model.Content) error {
	const q = `
		UPDATE contents
		   SET slug = ?, title = ?, description = ?, min_price_cents = ?, file_key = ?, updated_at = NOW()
		 WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, q, c.Slug, c.Title, c.Description, c.MinPriceCents, c.FileKey, c.ID)
	if err != nil {
		if db.IsDuplicate(err) {
			return fmt.Errorf("content slug %q: %w", c.Slug, ErrDuplicate)
		}
		return fmt.Errorf("update content %d: %w", c.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 for unchanged rows; tell that apart from a missing one.
		if _, err := r.GetByID(ctx, c.ID); err != nil {
			return err
		}
	}
	return nil
}

// Publish flips an unpublished content to published. false means it was
// already published (or missing).
func (r *ContentsRepositoryImpl) Publish(ctx context.Context, id int64, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE contents
		   SET published = 1, published_at = ?, updated_at = NOW()
		 WHERE id = ? AND published = 0
	`, at, id)
	if err != nil {
		return false, fmt.Errorf("publish content %d: %w", id, err)
	}
	return affectedOne(res)
}

func (r *ContentsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Content, error) {
	return r.getOne(ctx, `SELECT `+contentColumns+` FROM contents WHERE id = ?`, id)
}

func (r *ContentsRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*model.Content, error) {
	return r.getOne(ctx, `SELECT `+contentColumns+` FROM contents WHERE slug = ?`, slug)
}

func (r *ContentsRepositoryImpl) getOne(ctx context.Context, q string, arg any) (*model.Content, error) {
	var c model.Content
	err := r.db.GetContext(ctx, &c, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return &c, nil
}

func (r *ContentsRepositoryImpl) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]model.Content, error) {
	limit, offset = clampPage(limit, offset, 50, 200)
	q := `SELECT ` + contentColumns + ` FROM contents`
	if publishedOnly {
		q += ` WHERE published = 1`
	}
	q += ` ORDER BY id DESC LIMIT ? OFFSET ?`

	rows := []model.Content{}
	if err := r.db.SelectContext(ctx, &rows, q, limit, offset); err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	return rows, nil
}

func (r *ContentsRepositoryImpl) InsertAccess(ctx context.Context, tx *sqlx.Tx, a *model.Access) (int64, error) {
	const q = `
		INSERT INTO content_accesses (content_id, email, name, token, amount_cents, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NOW())
	`
	var id int64
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, a.ContentID, a.Email, a.Name, a.Token, a.AmountCents, string(a.Status))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert access: %w", err)
	}
	a.ID = id
	return id, nil
}

func (r *ContentsRepositoryImpl) GetAccess(ctx context.Context, id int64) (*model.Access, error) {
	var a model.Access
	err := r.db.GetContext(ctx, &a, `
		SELECT id, content_id, email, name, token, amount_cents, status, created_at
		  FROM content_accesses
		 WHERE id = ?
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get access %d: %w", id, err)
	}
	return &a, nil
}

func (r *ContentsRepositoryImpl) GrantAccess(ctx context.Context, tx *sqlx.Tx, id int64) (bool, error) {
	var ok bool
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE content_accesses SET status = 'granted' WHERE id = ? AND status = 'pending'
		`, id)
		if err != nil {
			return err
		}
		ok, err = affectedOne(res)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("grant access %d: %w", id, err)
	}
	return ok, nil
}
