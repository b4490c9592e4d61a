package keystore

import (
	"database/sql"
	"fmt"

	// sqlite driver
	_ "github.com/mattn/go-sqlite3"
)

// Well-known keys
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyCurrentOrg   = "current_org"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is a durable key-value store backed by sqlite. It implements the
// credential interfaces consumed by pkg/api and pkg/session.
type Store struct {
	db *sql.DB
}

// Open creates or opens the keystore at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("keystore: opening %s: %w", path, err)
	}
	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing database handle, creating the schema if needed.
func NewWithDB(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("keystore: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the value for a key, or empty string when absent.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keystore: reading %s: %w", key, err)
	}
	return value, nil
}

// Set writes a value for a key, replacing any previous value.
func (s *Store) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("keystore: writing %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Store) Delete(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
			return fmt.Errorf("keystore: deleting %s: %w", key, err)
		}
	}
	return nil
}

// AccessToken returns the stored access credential, if any.
func (s *Store) AccessToken() string {
	value, _ := s.Get(KeyAccessToken)
	return value
}

// RefreshToken returns the stored refresh credential, if any.
func (s *Store) RefreshToken() string {
	value, _ := s.Get(KeyRefreshToken)
	return value
}

// SetTokens stores the access credential and, when present, the refresh
// credential. An empty refresh token leaves the stored one untouched.
func (s *Store) SetTokens(access, refresh string) error {
	if err := s.Set(KeyAccessToken, access); err != nil {
		return err
	}
	if refresh != "" {
		return s.Set(KeyRefreshToken, refresh)
	}
	return nil
}

// ClearTokens removes both credentials.
func (s *Store) ClearTokens() error {
	return s.Delete(KeyAccessToken, KeyRefreshToken)
}

// CurrentOrg returns the persisted current-organization id, if any.
func (s *Store) CurrentOrg() string {
	value, _ := s.Get(KeyCurrentOrg)
	return value
}

// SetCurrentOrg persists the current-organization id.
func (s *Store) SetCurrentOrg(orgID string) error {
	return s.Set(KeyCurrentOrg, orgID)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
