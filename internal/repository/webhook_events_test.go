package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/paywall/internal/jsonv"
	"github.com/jmehdipour/paywall/internal/model"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "mysql"), mock
}

var eventCols = []string{"id", "event_type", "payload", "status", "retry_count", "error_message", "last_attempt", "created_at"}

func TestWebhookEvents_InsertStartsPending(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO webhook_events (event_type, payload, status, retry_count, created_at)")).
		WithArgs("content_created", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	e := &model.WebhookEvent{EventType: "content_created", Payload: jsonv.Object{"content_id": jsonv.Int(7)}}
	id, err := repo.Insert(context.Background(), e)

	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, int64(42), e.ID)
	assert.Equal(t, model.EventPending, e.Status)
	assert.Equal(t, 0, e.RetryCount)
	assert.False(t, e.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEvents_InsertStoresWholeSeconds(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)
	at := time.Date(2026, 10, 17, 10, 0, 0, 600_000_000, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO webhook_events")).
		WithArgs("review.created", sqlmock.AnyArg(), at.Truncate(time.Second)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	e := &model.WebhookEvent{EventType: "review.created", Payload: jsonv.Object{}, CreatedAt: at}
	_, err := repo.Insert(context.Background(), e)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC), e.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEvents_ListRetryableUsesBound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)

	now := time.Now()
	msg := "status=500"
	rows := sqlmock.NewRows(eventCols).
		AddRow(1, "content_created", []byte(`{"content_id":7}`), "failed", 1, msg, now, now).
		AddRow(2, "payment_success", []byte(`{"payment_id":9}`), "failed", 2, msg, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'failed' AND retry_count < ? ORDER BY id LIMIT ?")).
		WithArgs(3, 100).
		WillReturnRows(rows)

	got, err := repo.ListRetryable(context.Background(), 3, 100)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, model.EventFailed, got[0].Status)
	assert.Equal(t, 1, got[0].RetryCount)
	assert.True(t, got[0].Payload.Equal(jsonv.Object{"content_id": jsonv.Int(7)}))
	require.NotNil(t, got[1].ErrorMessage)
	assert.Equal(t, msg, *got[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEvents_ListRetryableZeroBoundSkipsQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)

	got, err := repo.ListRetryable(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEvents_MarkFailedIsConditional(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)
	at := time.Now()

	q := regexp.QuoteMeta("SET status = 'failed', retry_count = retry_count + 1, error_message = ?, last_attempt = ? WHERE id = ? AND status = ? AND retry_count = ?")
	mock.ExpectExec(q).
		WithArgs("timeout", at, int64(5), "failed", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs("timeout", at, int64(5), "failed", 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkFailed(context.Background(), 5, model.EventFailed, 2, "timeout", at)
	require.NoError(t, err)
	assert.True(t, ok)

	// second writer with the same expectation loses
	ok, err = repo.MarkFailed(context.Background(), 5, model.EventFailed, 2, "timeout", at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEvents_MarkDelivered(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'delivered', last_attempt = ? WHERE id = ? AND status = ? AND retry_count = ?")).
		WithArgs(at, int64(5), "pending", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.MarkDelivered(context.Background(), 5, model.EventPending, 0, at)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEvents_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM webhook_events WHERE id = ?")).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(eventCols))

	_, err := repo.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWebhookEvents_ListFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1 = 1 AND status = ? AND event_type = ? ORDER BY id DESC LIMIT ? OFFSET ?")).
		WithArgs("failed", "payment_success", 50, 0).
		WillReturnRows(sqlmock.NewRows(eventCols))

	got, err := repo.List(context.Background(), model.EventFilter{Status: model.EventFailed, EventType: "payment_success", Limit: 9999})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookEvents_ExecErrorIsWrapped(t *testing.T) {
	db, mock := newMock(t)
	repo := NewWebhookEventsRepository(db)
	boom := errors.New("connection reset")

	mock.ExpectExec("UPDATE webhook_events").WillReturnError(boom)

	_, err := repo.MarkDelivered(context.Background(), 1, model.EventFailed, 1, time.Now())
	assert.ErrorIs(t, err, boom)
}
