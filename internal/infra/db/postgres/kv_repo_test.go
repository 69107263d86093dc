package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/research-camera/internal/domain/kv"
)

func newTestRepo(t *testing.T) (*KVRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewKVRepository(db), mock
}

func TestKVRepository_Get(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT v FROM kv_store").
		WithArgs("arc_users").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(`[]`))

	got, err := repo.Get(context.Background(), "arc_users")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKVRepository_GetMissing(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT v FROM kv_store").
		WithArgs("arc_session").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "arc_session")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestKVRepository_SetUpserts(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("arc_history", `[{"id":"1"}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Set(context.Background(), "arc_history", []byte(`[{"id":"1"}]`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKVRepository_SetError(t *testing.T) {
	repo, mock := newTestRepo(t)
	boom := errors.New("disk full")

	mock.ExpectExec("INSERT INTO kv_store").WillReturnError(boom)

	assert.ErrorIs(t, repo.Set(context.Background(), "k", []byte(`{}`)), boom)
}

func TestKVRepository_Delete(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectExec("DELETE FROM kv_store").
		WithArgs("arc_session").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM kv_store").
		WithArgs("arc_session").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "arc_session"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "arc_session"), kv.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKVRepository_KeysEscapesPrefix(t *testing.T) {
	repo, mock := newTestRepo(t)

	mock.ExpectQuery("SELECT k FROM kv_store").
		WithArgs(`arc\_%`).
		WillReturnRows(sqlmock.NewRows([]string{"k"}).AddRow("arc_history").AddRow("arc_users"))

	keys, err := repo.Keys(context.Background(), "arc_")
	require.NoError(t, err)
	assert.Equal(t, []string{"arc_history", "arc_users"}, keys)
}

func TestKVRepository_EnsureSchema(t *testing.T) {
	repo, mock := newTestRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv_store").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestKVRepository_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	var repo kv.Pinger = NewKVRepository(db)

	mock.ExpectPing()
	assert.NoError(t, repo.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("server gone"))
	assert.EqualError(t, repo.Ping(context.Background()), "server gone")
	assert.NoError(t, mock.ExpectationsWereMet())
}
