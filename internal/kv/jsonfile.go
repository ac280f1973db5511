package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"
)

// jsonAdapter keeps the whole store in memory and rewrites one JSON file on
// every committed write. Writes go to a temporary file first and are renamed
// into place, so a crash leaves either the old or the new document.
type jsonAdapter struct {
	path string

	mu      sync.RWMutex
	buckets map[string]map[string][]byte
}

func newJSONAdapter(path string) (*jsonAdapter, error) {
	a := &jsonAdapter{
		path:    path,
		buckets: make(map[string]map[string][]byte),
	}

	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return a, nil
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInit, path, err)
	}
	if len(data) == 0 {
		return a, nil
	}
	if err := json.Unmarshal(data, &a.buckets); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrInit, path, err)
	}
	return a, nil
}

func (a *jsonAdapter) InitBucket(bucket string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.buckets[bucket]; ok {
		return nil
	}
	next := a.cloneLocked()
	next[bucket] = make(map[string][]byte)
	return a.commitLocked(next)
}

func (a *jsonAdapter) Get(bucket, key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return (&jsonTx{buckets: a.buckets}).Get(bucket, key)
}

func (a *jsonAdapter) GetAll(bucket string) (map[string][]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return (&jsonTx{buckets: a.buckets}).GetAll(bucket)
}

func (a *jsonAdapter) Put(bucket, key string, value []byte) error {
	return a.Update(func(tx Tx) error {
		return tx.Put(bucket, key, value)
	})
}

func (a *jsonAdapter) Delete(bucket, key string) error {
	return a.Update(func(tx Tx) error {
		return tx.Delete(bucket, key)
	})
}

// Update applies fn to a copy of the store and swaps it in only when both fn
// and the file write succeed.
func (a *jsonAdapter) Update(fn func(tx Tx) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.cloneLocked()
	if err := fn(&jsonTx{buckets: next}); err != nil {
		return err
	}
	return a.commitLocked(next)
}

func (*jsonAdapter) Close() error {
	return nil
}

func (a *jsonAdapter) cloneLocked() map[string]map[string][]byte {
	next := make(map[string]map[string][]byte, len(a.buckets))
	for name, entries := range a.buckets {
		next[name] = maps.Clone(entries)
	}
	return next
}

func (a *jsonAdapter) commitLocked(next map[string]map[string][]byte) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to encode store: %w", err)
	}

	tempPath := a.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary store file: %w", err)
	}
	if err := os.Rename(tempPath, a.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename store file: %w", err)
	}

	a.buckets = next
	return nil
}

type jsonTx struct {
	buckets map[string]map[string][]byte
}

func (t *jsonTx) bucket(name string) (map[string][]byte, error) {
	b, ok := t.buckets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return b, nil
}

func (t *jsonTx) Get(bucket, key string) ([]byte, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	v, ok := b[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (t *jsonTx) GetAll(bucket string) (map[string][]byte, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	all := make(map[string][]byte, len(b))
	for k, v := range b {
		all[k] = append([]byte(nil), v...)
	}
	return all, nil
}

func (t *jsonTx) Put(bucket, key string, value []byte) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	b[key] = append([]byte(nil), value...)
	return nil
}

func (t *jsonTx) Delete(bucket, key string) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	delete(b, key)
	return nil
}
