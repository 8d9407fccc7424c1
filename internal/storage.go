package internal

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Store is the durable key/value layer everything local is persisted in
type Store interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

// Storage backends
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// NewStore opens the store for the given backend
func NewStore(backend, path string) (Store, error) {
	switch backend {
	case "", BackendSQLite:
		db, err := OpenDatabase(path)
		if err != nil {
			return nil, &StorageError{Path: path, Op: "open", Err: err}
		}
		return NewSQLiteStore(db), nil
	case BackendBolt:
		return OpenBoltStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (supported: sqlite, bolt, memory)", backend)
	}
}

// SQLiteStore keeps values in the kv table
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a store over an open, migrated database
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Get returns the value stored under key or ErrNotFound
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &StorageError{Path: key, Op: "read", Err: err}
	}
	return []byte(value.String), nil
}

// Put upserts a value
func (s *SQLiteStore) Put(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(value))
	if err != nil {
		return &StorageError{Path: key, Op: "write", Err: err}
	}
	return nil
}

// Delete removes a key; missing keys are not an error
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return &StorageError{Path: key, Op: "delete", Err: err}
	}
	return nil
}

// Keys lists keys starting with prefix, sorted
func (s *SQLiteStore) Keys(prefix string) ([]string, error) {
	pairs, err := QueryKV(s.db, escapeLike(prefix)+"%")
	if err != nil {
		return nil, &StorageError{Path: prefix, Op: "read", Err: err}
	}
	keys := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		keys = append(keys, pair.Key)
	}
	return keys, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
