package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/paywall/internal/model"
)

func TestContents_CreateDuplicateSlug(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContentsRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contents")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(context.Background(), &model.Content{Slug: "go-guide", Title: "Go"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestContents_PublishOnlyOnce(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContentsRepository(db)
	at := time.Now()

	q := regexp.QuoteMeta("WHERE id = ? AND published = 0")
	mock.ExpectExec(q).WithArgs(at, int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(at, int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.Publish(context.Background(), 3, at)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Publish(context.Background(), 3, at)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContents_InsertAccessOpensOwnTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContentsRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO content_accesses")).
		WithArgs(int64(3), "lead@x.test", "Lead", "01TOKEN", int64(0), "granted").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	a := &model.Access{ContentID: 3, Email: "lead@x.test", Name: "Lead", Token: "01TOKEN", Status: model.AccessGranted}
	id, err := repo.InsertAccess(context.Background(), nil, a)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
