// Package kv provides a bucket-partitioned key/value store with atomic
// read and write transactions, backed by one of several embedded engines.
//
// Callers only see the Adapter interface. The backend is picked once at
// startup from a DBType, so adding an engine never touches callers.
package kv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

//go:generate mockgen -destination=mocks/mock_adapter.go -package=mocks -source=kv.go Adapter,Tx

var (
	// ErrUnsupportedDBType is returned when the configured backend name is unknown
	ErrUnsupportedDBType = errors.New("unsupported db type")

	// ErrInit is returned when a backend cannot be opened
	ErrInit = errors.New("adapter initialization error")

	// ErrBucketNotFound is returned for operations on a bucket that was never initialized
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrLocked is returned when another process holds the store file
	ErrLocked = errors.New("store file is locked by another process")
)

// DBType names a storage backend
type DBType string

const (
	// DBTypeBolt stores buckets in a single bbolt file
	DBTypeBolt DBType = "bolt"

	// DBTypeSQLite stores buckets in a single SQLite table
	DBTypeSQLite DBType = "sqlite"

	// DBTypeJSON rewrites a whole JSON document on each write
	DBTypeJSON DBType = "json"
)

// ParseDBType maps a configured backend name onto a DBType.
// "redb" is accepted as an alias for the embedded ordered store.
func ParseDBType(s string) (DBType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bolt", "bbolt", "redb":
		return DBTypeBolt, nil
	case "sqlite", "sqlite3":
		return DBTypeSQLite, nil
	case "json":
		return DBTypeJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDBType, s)
	}
}

// Tx is the view of the store inside a grouped write transaction
type Tx interface {
	// Get returns the value for key, or nil if the key is absent
	Get(bucket, key string) ([]byte, error)
	// GetAll returns every entry of bucket
	GetAll(bucket string) (map[string][]byte, error)
	// Put upserts key
	Put(bucket, key string, value []byte) error
	// Delete removes key; an absent key is not an error
	Delete(bucket, key string) error
}

// Adapter is a transactional bucket store.
// Every single-call write runs in its own atomic transaction. Calls that must
// be atomic as a group go through Update.
type Adapter interface {
	// InitBucket creates bucket if it does not exist yet. It is idempotent.
	InitBucket(bucket string) error
	// Get returns the value for key, or nil if the key is absent
	Get(bucket, key string) ([]byte, error)
	// GetAll returns a snapshot of every entry of bucket, read in one transaction
	GetAll(bucket string) (map[string][]byte, error)
	// Put upserts key. A failed put leaves the previous value intact.
	Put(bucket, key string, value []byte) error
	// Delete removes key; an absent key is not an error
	Delete(bucket, key string) error
	// Update runs fn in a single write transaction, rolled back if fn fails
	Update(fn func(tx Tx) error) error
	// Close releases the backend
	Close() error
}

// Open opens the store file at path with the backend named by dbType.
// The backend name is validated before anything on disk is touched.
// A lock file next to path keeps a second process from opening the same store.
func Open(dbType, path string) (Adapter, error) {
	t, err := ParseDBType(dbType)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create store directory: %v", ErrInit, err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to lock %s: %v", ErrInit, path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	var a Adapter
	switch t {
	case DBTypeBolt:
		a, err = newBoltAdapter(path)
	case DBTypeSQLite:
		a, err = newSQLiteAdapter(path)
	case DBTypeJSON:
		a, err = newJSONAdapter(path)
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	return &lockedAdapter{Adapter: a, lock: lock}, nil
}

// lockedAdapter releases the file lock when the backend is closed
type lockedAdapter struct {
	Adapter
	lock *flock.Flock
}

func (l *lockedAdapter) Close() error {
	err := l.Adapter.Close()
	if uerr := l.lock.Unlock(); uerr != nil && err == nil {
		err = uerr
	}
	return err
}
