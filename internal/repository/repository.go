package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// withTx runs fn in the provided tx, or starts a new transaction when tx is nil.
func withTx(ctx context.Context, db *sqlx.DB, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}

	t, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}

	return t.Commit()
}

// Tx begins a transaction on db; callers pass it to the *Tx-accepting
// repository methods so several writes commit together.
func Tx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	return withTx(ctx, db, nil, fn)
}

// TxFunc runs fn inside one transaction. Services hold one instead of a *sqlx.DB.
type TxFunc func(ctx context.Context, fn func(*sqlx.Tx) error) error

func TxRunner(db *sqlx.DB) TxFunc {
	return func(ctx context.Context, fn func(*sqlx.Tx) error) error {
		return Tx(ctx, db, fn)
	}
}

func clampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 || limit > max {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
