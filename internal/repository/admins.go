package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmoiron/sqlx"
)

type AdminsRepository interface {
	GetByEmail(ctx context.Context, email string) (*model.AdminUser, error)
	Upsert(ctx context.Context, email, passwordHash string) error
}

type AdminsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAdminsRepository(db *sqlx.DB) *AdminsRepositoryImpl {
	return &AdminsRepositoryImpl{db: db}
}

var _ AdminsRepository = (*AdminsRepositoryImpl)(nil)

// GetByEmail returns (nil, nil) for unknown emails.
func (r *AdminsRepositoryImpl) GetByEmail(ctx context.Context, email string) (*model.AdminUser, error) {
	var u model.AdminUser
	err := r.db.GetContext(ctx, &u, `
		SELECT id, email, password_hash, created_at
		  FROM admin_users
		 WHERE email = ? LIMIT 1
	`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return &u, nil
}

func (r *AdminsRepositoryImpl) Upsert(ctx context.Context, email, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO admin_users (email, password_hash, created_at)
		VALUES (?, ?, NOW())
		ON DUPLICATE KEY UPDATE password_hash = VALUES(password_hash)
	`, email, passwordHash)
	if err != nil {
		return fmt.Errorf("upsert admin %q: %w", email, err)
	}
	return nil
}
