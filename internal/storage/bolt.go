package storage

import (
	"bytes"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// BoltStorage implements Storage using bbolt, one bucket per table
type BoltStorage struct {
	db *bbolt.DB
}

// NewBoltStorage opens or creates the bbolt file at path
func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, table := range Tables {
			if _, err := tx.CreateBucketIfNotExists([]byte(table.String())); err != nil {
				return fmt.Errorf("create bucket %s: %w", table, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStorage{db: db}, nil
}

// Begin starts a new transaction
func (s *BoltStorage) Begin(writable bool) (Transaction, error) {
	tx, err := s.db.Begin(writable)
	if err != nil {
		return nil, err
	}
	return &BoltTransaction{tx: tx}, nil
}

// Close closes the storage
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// Sync flushes writes to disk
func (s *BoltStorage) Sync() error {
	return s.db.Sync()
}

// BoltTransaction implements Transaction using a bbolt transaction
type BoltTransaction struct {
	tx   *bbolt.Tx
	done bool
}

func (t *BoltTransaction) bucket(table Table) (*bbolt.Bucket, error) {
	b := t.tx.Bucket([]byte(table.String()))
	if b == nil {
		return nil, fmt.Errorf("missing bucket %s", table)
	}
	return b, nil
}

// Get retrieves a value by key
func (t *BoltTransaction) Get(table Table, key []byte) ([]byte, error) {
	b, err := t.bucket(table)
	if err != nil {
		return nil, err
	}
	v := b.Get(key)
	if v == nil {
		return nil, ErrNotFound
	}
	// Values are only valid for the life of the transaction
	return bytes.Clone(v), nil
}

// Set stores a key-value pair
func (t *BoltTransaction) Set(table Table, key, value []byte) error {
	if !t.tx.Writable() {
		return ErrTransactionRO
	}
	b, err := t.bucket(table)
	if err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	return b.Put(key, value)
}

// Scan iterates over the keys of a table starting with prefix
func (t *BoltTransaction) Scan(table Table, prefix []byte) (Iterator, error) {
	b, err := t.bucket(table)
	if err != nil {
		return nil, err
	}
	return &BoltIterator{cursor: b.Cursor(), prefix: prefix}, nil
}

// Commit commits the transaction
func (t *BoltTransaction) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	if !t.tx.Writable() {
		return t.tx.Rollback()
	}
	return t.tx.Commit()
}

// Rollback rolls back the transaction. It is a no-op after Commit.
func (t *BoltTransaction) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Rollback()
}

// BoltIterator implements Iterator over a bucket cursor
type BoltIterator struct {
	cursor  *bbolt.Cursor
	prefix  []byte
	started bool
	key     []byte
	value   []byte
}

// Next advances to the next item
func (i *BoltIterator) Next() bool {
	var k, v []byte
	if !i.started {
		i.started = true
		if len(i.prefix) == 0 {
			k, v = i.cursor.First()
		} else {
			k, v = i.cursor.Seek(i.prefix)
		}
	} else {
		k, v = i.cursor.Next()
	}
	if k == nil || !bytes.HasPrefix(k, i.prefix) {
		i.key, i.value = nil, nil
		return false
	}
	i.key, i.value = k, v
	return true
}

// Key returns the current key
func (i *BoltIterator) Key() []byte {
	return bytes.Clone(i.key)
}

// Value returns the current value
func (i *BoltIterator) Value() ([]byte, error) {
	if i.key == nil {
		return nil, ErrNotFound
	}
	return bytes.Clone(i.value), nil
}

// Close closes the iterator
func (i *BoltIterator) Close() error {
	return nil
}
