package keystore

import (
	"errors"
	"path/filepath"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestGetMissingKeyReturnsEmpty(t *testing.T) {
	store := openTestStore(t)

	value, err := store.Get("missing")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSetAndGet(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Set("k", "v1"))
	value, err := store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	// Upsert replaces in place.
	require.NoError(t, store.Set("k", "v2"))
	value, err = store.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.Set("a", "1"))
	require.NoError(t, store.Set("b", "2"))
	require.NoError(t, store.Delete("a", "b", "missing"))

	value, err := store.Get("a")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestTokenLifecycle(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SetTokens("access-1", "refresh-1"))
	assert.Equal(t, "access-1", store.AccessToken())
	assert.Equal(t, "refresh-1", store.RefreshToken())

	// A rotation without a new refresh token keeps the stored one.
	require.NoError(t, store.SetTokens("access-2", ""))
	assert.Equal(t, "access-2", store.AccessToken())
	assert.Equal(t, "refresh-1", store.RefreshToken())

	require.NoError(t, store.ClearTokens())
	assert.Empty(t, store.AccessToken())
	assert.Empty(t, store.RefreshToken())
}

func TestCurrentOrg(t *testing.T) {
	store := openTestStore(t)

	assert.Empty(t, store.CurrentOrg())
	require.NoError(t, store.SetCurrentOrg("42"))
	assert.Equal(t, "42", store.CurrentOrg())
}

func TestPersistenceAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SetTokens("access-1", "refresh-1"))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, "access-1", reopened.AccessToken())
	assert.Equal(t, "refresh-1", reopened.RefreshToken())
}

func TestSetPropagatesDatabaseErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewWithDB(db)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO kv").WillReturnError(errors.New("disk full"))
	err = store.Set("k", "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccessTokenSwallowsReadErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))
	store, err := NewWithDB(db)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT value FROM kv").WillReturnError(errors.New("locked"))
	assert.Empty(t, store.AccessToken(), "credential getters degrade to empty on read failure")
}
