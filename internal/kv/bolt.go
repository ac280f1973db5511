package kv

import (
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

type boltAdapter struct {
	db *bolt.DB
}

func newBoltAdapter(path string) (*boltAdapter, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open bolt file %s: %v", ErrInit, path, err)
	}
	return &boltAdapter{db: db}, nil
}

func (b *boltAdapter) InitBucket(bucket string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		return nil
	})
}

func (b *boltAdapter) Get(bucket, key string) ([]byte, error) {
	var value []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		value, err = (&boltTx{tx: tx}).Get(bucket, key)
		return err
	})
	return value, err
}

func (b *boltAdapter) GetAll(bucket string) (map[string][]byte, error) {
	var all map[string][]byte
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		all, err = (&boltTx{tx: tx}).GetAll(bucket)
		return err
	})
	return all, err
}

func (b *boltAdapter) Put(bucket, key string, value []byte) error {
	return b.Update(func(tx Tx) error {
		return tx.Put(bucket, key, value)
	})
}

func (b *boltAdapter) Delete(bucket, key string) error {
	return b.Update(func(tx Tx) error {
		return tx.Delete(bucket, key)
	})
}

func (b *boltAdapter) Update(fn func(tx Tx) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (b *boltAdapter) Close() error {
	return b.db.Close()
}

type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) bucket(name string) (*bolt.Bucket, error) {
	bkt := t.tx.Bucket([]byte(name))
	if bkt == nil {
		return nil, fmt.Errorf("%w: %s", ErrBucketNotFound, name)
	}
	return bkt, nil
}

func (t *boltTx) Get(bucket, key string) ([]byte, error) {
	bkt, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	v := bkt.Get([]byte(key))
	if v == nil {
		return nil, nil
	}
	// bolt values are only valid for the life of the transaction
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *boltTx) GetAll(bucket string) (map[string][]byte, error) {
	bkt, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	all := make(map[string][]byte)
	err = bkt.ForEach(func(k, v []byte) error {
		out := make([]byte, len(v))
		copy(out, v)
		all[string(k)] = out
		return nil
	})
	return all, err
}

func (t *boltTx) Put(bucket, key string, value []byte) error {
	bkt, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return bkt.Put([]byte(key), value)
}

func (t *boltTx) Delete(bucket, key string) error {
	bkt, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return bkt.Delete([]byte(key))
}
