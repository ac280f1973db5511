package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// registers the "sqlite" driver
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS buckets (
	name TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS kv (
	bucket TEXT NOT NULL,
	key    TEXT NOT NULL,
	value  BLOB NOT NULL,
	PRIMARY KEY (bucket, key)
);`

type sqliteAdapter struct {
	db *sql.DB
}

func newSQLiteAdapter(path string) (*sqliteAdapter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open sqlite file %s: %v", ErrInit, path, err)
	}
	// a single connection serialises writers and keeps transactions on one handle
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		sqliteSchema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: failed to prepare sqlite store: %v", ErrInit, err)
		}
	}
	return &sqliteAdapter{db: db}, nil
}

func (s *sqliteAdapter) InitBucket(bucket string) error {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO buckets (name) VALUES (?)`, bucket); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *sqliteAdapter) Get(bucket, key string) ([]byte, error) {
	var value []byte
	err := s.view(func(tx Tx) error {
		var err error
		value, err = tx.Get(bucket, key)
		return err
	})
	return value, err
}

func (s *sqliteAdapter) GetAll(bucket string) (map[string][]byte, error) {
	var all map[string][]byte
	err := s.view(func(tx Tx) error {
		var err error
		all, err = tx.GetAll(bucket)
		return err
	})
	return all, err
}

func (s *sqliteAdapter) Put(bucket, key string, value []byte) error {
	return s.Update(func(tx Tx) error {
		return tx.Put(bucket, key, value)
	})
}

func (s *sqliteAdapter) Delete(bucket, key string) error {
	return s.Update(func(tx Tx) error {
		return tx.Delete(bucket, key)
	})
}

func (s *sqliteAdapter) Update(fn func(tx Tx) error) error {
	return s.run(fn, true)
}

func (s *sqliteAdapter) view(fn func(tx Tx) error) error {
	return s.run(fn, false)
}

func (s *sqliteAdapter) run(fn func(tx Tx) error, commit bool) (err error) {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !commit {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && err == nil {
				err = rbErr
			}
		}
	}()

	if err = fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	if commit {
		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}
	return nil
}

func (s *sqliteAdapter) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) checkBucket(bucket string) error {
	var name string
	err := t.tx.QueryRow(`SELECT name FROM buckets WHERE name = ?`, bucket).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrBucketNotFound, bucket)
	}
	return err
}

func (t *sqliteTx) Get(bucket, key string) ([]byte, error) {
	if err := t.checkBucket(bucket); err != nil {
		return nil, err
	}
	var value []byte
	err := t.tx.QueryRow(`SELECT value FROM kv WHERE bucket = ? AND key = ?`, bucket, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}
	return value, nil
}

func (t *sqliteTx) GetAll(bucket string) (map[string][]byte, error) {
	if err := t.checkBucket(bucket); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(`SELECT key, value FROM kv WHERE bucket = ?`, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	all := make(map[string][]byte)
	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", bucket, err)
		}
		all[key] = value
	}
	return all, rows.Err()
}

func (t *sqliteTx) Put(bucket, key string, value []byte) error {
	if err := t.checkBucket(bucket); err != nil {
		return err
	}
	_, err := t.tx.Exec(
		`INSERT INTO kv (bucket, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (bucket, key) DO UPDATE SET value = excluded.value`,
		bucket, key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (t *sqliteTx) Delete(bucket, key string) error {
	if err := t.checkBucket(bucket); err != nil {
		return err
	}
	if _, err := t.tx.Exec(`DELETE FROM kv WHERE bucket = ? AND key = ?`, bucket, key); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", bucket, key, err)
	}
	return nil
}
