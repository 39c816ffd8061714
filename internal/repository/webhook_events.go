package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmoiron/sqlx"
)

// WebhookEventsRepository is the Event Store: durable record of every
// emitted event and its delivery outcome.
type WebhookEventsRepository interface {
	Insert(ctx context.Context, e *model.WebhookEvent) (int64, error)
	Get(ctx context.Context, id int64) (*model.WebhookEvent, error)
	List(ctx context.Context, f model.EventFilter) ([]model.WebhookEvent, error)
	ListRetryable(ctx context.Context, bound, limit int) ([]model.WebhookEvent, error)
	// MarkDelivered and MarkFailed only apply when the row is still in the
	// (from, retryCount) state the caller observed; false means another
	// writer got there first.
	MarkDelivered(ctx context.Context, id int64, from model.EventStatus, retryCount int, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id int64, from model.EventStatus, retryCount int, msg string, at time.Time) (bool, error)
	CountByStatus(ctx context.Context) ([]model.StatusCount, error)
}

type WebhookEventsRepositoryImpl struct {
	db *sqlx.DB
}

func NewWebhookEventsRepository(db *sqlx.DB) *WebhookEventsRepositoryImpl {
	return &WebhookEventsRepositoryImpl{db: db}
}

var _ WebhookEventsRepository = (*WebhookEventsRepositoryImpl)(nil)

const eventColumns = `id, event_type, payload, status, retry_count, error_message, last_attempt, created_at`

// Insert writes a new row with status=pending and retry_count=0.
func (r *WebhookEventsRepositoryImpl) Insert(ctx context.Context, e *model.WebhookEvent) (int64, error) {
	const q = `
		INSERT INTO webhook_events (event_type, payload, status, retry_count, created_at)
		VALUES (?, ?, 'pending', 0, ?)
	`
	created := e.CreatedAt.Truncate(time.Second)
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, q, e.EventType, e.Payload, created)
	if err != nil {
		return 0, fmt.Errorf("insert webhook event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("webhook event id: %w", err)
	}
	e.ID = id
	e.Status = model.EventPending
	e.RetryCount = 0
	e.CreatedAt = created
	return id, nil
}

func (r *WebhookEventsRepositoryImpl) Get(ctx context.Context, id int64) (*model.WebhookEvent, error) {
	var e model.WebhookEvent
	err := r.db.GetContext(ctx, &e, `SELECT `+eventColumns+` FROM webhook_events WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook event %d: %w", id, err)
	}
	return &e, nil
}

func (r *WebhookEventsRepositoryImpl) List(ctx context.Context, f model.EventFilter) ([]model.WebhookEvent, error) {
	limit, offset := clampPage(f.Limit, f.Offset, 50, 500)

	q := `SELECT ` + eventColumns + ` FROM webhook_events WHERE 1 = 1`
	var args []any
	if f.Status != "" {
		q += " AND status = ?"
		args = append(args, f.Status.String())
	}
	if f.EventType != "" {
		q += " AND event_type = ?"
		args = append(args, f.EventType)
	}
	q += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows := []model.WebhookEvent{}
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	return rows, nil
}

// ListRetryable selects failed rows still under the retry bound, oldest first.
func (r *WebhookEventsRepositoryImpl) ListRetryable(ctx context.Context, bound, limit int) ([]model.WebhookEvent, error) {
	if bound <= 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 500
	}
	const q = `
		SELECT ` + eventColumns + `
		  FROM webhook_events
		 WHERE status = 'failed' AND retry_count < ?
		 ORDER BY id
		 LIMIT ?
	`
	var rows []model.WebhookEvent
	if err := r.db.SelectContext(ctx, &rows, q, bound, limit); err != nil {
		return nil, fmt.Errorf("list retryable webhook events: %w", err)
	}
	return rows, nil
}

func (r *WebhookEventsRepositoryImpl) MarkDelivered(ctx context.Context, id int64, from model.EventStatus, retryCount int, at time.Time) (bool, error) {
	const q = `
		UPDATE webhook_events
		   SET status = 'delivered', last_attempt = ?
		 WHERE id = ? AND status = ? AND retry_count = ?
	`
	res, err := r.db.ExecContext(ctx, q, at, id, from.String(), retryCount)
	if err != nil {
		return false, fmt.Errorf("mark webhook event %d delivered: %w", id, err)
	}
	return affectedOne(res)
}

func (r *WebhookEventsRepositoryImpl) MarkFailed(ctx context.Context, id int64, from model.EventStatus, retryCount int, msg string, at time.Time) (bool, error) {
	const q = `
		UPDATE webhook_events
		   SET status = 'failed', retry_count = retry_count + 1, error_message = ?, last_attempt = ?
		 WHERE id = ? AND status = ? AND retry_count = ?
	`
	res, err := r.db.ExecContext(ctx, q, msg, at, id, from.String(), retryCount)
	if err != nil {
		return false, fmt.Errorf("mark webhook event %d failed: %w", id, err)
	}
	return affectedOne(res)
}

func (r *WebhookEventsRepositoryImpl) CountByStatus(ctx context.Context) ([]model.StatusCount, error) {
	rows := []model.StatusCount{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT status, COUNT(*) AS count
		  FROM webhook_events
		 GROUP BY status
		 ORDER BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count webhook events: %w", err)
	}
	return rows, nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
