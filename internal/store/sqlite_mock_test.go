package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-triage/internal/model"
)

func newMockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newStore(sqlx.NewDb(db, "sqlite")), mock
}

func TestListThreads_QueryError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT .* FROM threads").WillReturnError(errors.New("disk I/O error"))

	_, err := s.ListThreads(context.Background(), ThreadQuery{AllMailboxes: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying threads")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateThread_ExecError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE threads SET").WillReturnError(errors.New("database is locked"))

	err := s.UpdateThread(context.Background(), "t1", model.ThreadPatch{IsRead: model.Ptr(true)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updating thread t1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertThreads_RollsBackOnError(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO threads")
	mock.ExpectExec("INSERT INTO threads").WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := s.UpsertThreads(context.Background(), []model.Thread{{ID: "t1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting thread t1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertThreads_EmptyIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	assert.NoError(t, s.UpsertThreads(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
