package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmoiron/sqlx"
)

type PaymentsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, p *model.Payment) (int64, error)
	SetGatewayInfo(ctx context.Context, id int64, gatewayID, checkoutURL string) error
	GetByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error)
	GetByReference(ctx context.Context, ref string) (*model.Payment, error)
	// UpdateStatus moves a payment out of from; false when it was not in from.
	UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, from, to model.PaymentStatus) (bool, error)
}

type PaymentsRepositoryImpl struct {
	db *sqlx.DB
}

func NewPaymentsRepository(db *sqlx.DB) *PaymentsRepositoryImpl {
	return &PaymentsRepositoryImpl{db: db}
}

var _ PaymentsRepository = (*PaymentsRepositoryImpl)(nil)

const paymentColumns = `id, reference, gateway_id, content_id, access_id, email, amount_cents, method, status, checkout_url, created_at, updated_at`

func (r *PaymentsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, p *model.Payment) (int64, error) {
	const q = `
		INSERT INTO payments
		    (reference, gateway_id, content_id, access_id, email, amount_cents, method, status, checkout_url, created_at, updated_at)
		VALUES
		    (?, '', ?, ?, ?, ?, ?, 'pending', '', NOW(), NOW())
	`
	var id int64
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, q, p.Reference, p.ContentID, p.AccessID, p.Email, p.AmountCents, string(p.Method))
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	p.ID = id
	p.Status = model.PaymentPending
	return id, nil
}

func (r *PaymentsRepositoryImpl) SetGatewayInfo(ctx context.Context, id int64, gatewayID, checkoutURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET gateway_id = ?, checkout_url = ?, updated_at = NOW() WHERE id = ?
	`, gatewayID, checkoutURL, id)
	if err != nil {
		return fmt.Errorf("set gateway info for payment %d: %w", id, err)
	}
	return nil
}

func (r *PaymentsRepositoryImpl) GetByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_id = ? LIMIT 1`, gatewayID)
}

func (r *PaymentsRepositoryImpl) GetByReference(ctx context.Context, ref string) (*model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = ? LIMIT 1`, ref)
}

func (r *PaymentsRepositoryImpl) getOne(ctx context.Context, q string, arg any) (*model.Payment, error) {
	var p model.Payment
	err := r.db.GetContext(ctx, &p, q, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get payment: %w", err)
	}
	return &p, nil
}

func (r *PaymentsRepositoryImpl) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id int64, from, to model.PaymentStatus) (bool, error) {
	var ok bool
	err := withTx(ctx, r.db, tx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE payments SET status = ?, updated_at = NOW() WHERE id = ? AND status = ?
		`, to.String(), id, from.String())
		if err != nil {
			return err
		}
		ok, err = affectedOne(res)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("update payment %d status: %w", id, err)
	}
	return ok, nil
}
