package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmehdipour/paywall/internal/model"
	"github.com/jmoiron/sqlx"
)

// AttemptLogRepository is the append-only delivery attempt log in ClickHouse.
type AttemptLogRepository interface {
	Record(ctx context.Context, a model.DeliveryAttempt) error
	ListByEvent(ctx context.Context, eventID int64, limit int) ([]model.DeliveryAttempt, error)
	Summary(ctx context.Context, since time.Time) ([]model.AttemptSummary, error)
}

type attemptLogRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewAttemptLogRepository(ch *sqlx.DB) AttemptLogRepository {
	return &attemptLogRepository{ch: ch}
}

// Record appends one attempt. clickhouse-go batches inserts per
// transaction, so a single row still goes through Begin/Prepare/Commit.
func (r *attemptLogRepository) Record(ctx context.Context, a model.DeliveryAttempt) error {
	tx, err := r.ch.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attempt batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO paywall.webhook_attempts
		    (event_id, event_type, source, attempt, success, error, duration_ms, attempted_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare attempt batch: %w", err)
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx,
		a.EventID, a.EventType, a.Source, uint32(a.Attempt), a.Success, a.Error, a.DurationMs, a.AttemptedAt,
	); err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return tx.Commit()
}

func (r *attemptLogRepository) ListByEvent(ctx context.Context, eventID int64, limit int) ([]model.DeliveryAttempt, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows := []model.DeliveryAttempt{}
	err := r.ch.SelectContext(ctx, &rows, `
		SELECT event_id, event_type, source, toInt64(attempt) AS attempt, success, error, duration_ms, attempted_at
		  FROM paywall.webhook_attempts
		 WHERE event_id = ?
		 ORDER BY attempted_at DESC
		 LIMIT ?
	`, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts for event %d: %w", eventID, err)
	}
	return rows, nil
}

func (r *attemptLogRepository) Summary(ctx context.Context, since time.Time) ([]model.AttemptSummary, error) {
	rows := []model.AttemptSummary{}
	err := r.ch.SelectContext(ctx, &rows, `
		SELECT event_type,
		       count()               AS attempts,
		       countIf(NOT success)  AS failures,
		       avg(duration_ms)      AS avg_duration_ms
		  FROM paywall.webhook_attempts
		 WHERE attempted_at >= ?
		 GROUP BY event_type
		 ORDER BY attempts DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("attempt summary: %w", err)
	}
	return rows, nil
}
