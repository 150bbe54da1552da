package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"resumeforensics/internal/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var selectState = regexp.QuoteMeta(`SELECT value FROM app_state WHERE key = $1`)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_LoadMissingRow(t *testing.T) {
	repo, mock := newMockStore(t)
	mock.ExpectQuery(selectState).
		WithArgs(StateKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	state, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, state.Plans, 3)
	assert.Empty(t, state.Users)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadRow(t *testing.T) {
	repo, mock := newMockStore(t)
	raw, err := json.Marshal(sampleState())
	require.NoError(t, err)
	mock.ExpectQuery(selectState).
		WithArgs(StateKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(raw))

	state, err := repo.Load(context.Background())
	require.NoError(t, err)
	assertSameState(t, sampleState(), state)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadCorruptRow(t *testing.T) {
	repo, mock := newMockStore(t)
	mock.ExpectQuery(selectState).
		WithArgs(StateKey).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("nope")))

	_, err := repo.Load(context.Background())
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageFailed))
}

func TestPostgresStore_Save(t *testing.T) {
	repo, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO app_state").
		WithArgs(StateKey, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Save(context.Background(), sampleState()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveFailure(t *testing.T) {
	repo, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO app_state").
		WithArgs(StateKey, sqlmock.AnyArg()).
		WillReturnError(assert.AnError)

	err := repo.Save(context.Background(), sampleState())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeStorageFailed))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestConnect_EmptyDSN(t *testing.T) {
	_, err := Connect(context.Background(), "  ")
	assert.Error(t, err)
}
