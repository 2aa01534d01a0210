package storage

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
)

// Storage is the interface for the underlying key-value store
type Storage interface {
	// Begin starts a new transaction
	Begin(writable bool) (Transaction, error)

	// Close closes the storage
	Close() error

	// Sync flushes writes to disk
	Sync() error
}

// Transaction represents a database transaction with snapshot isolation
type Transaction interface {
	// Get retrieves a value by key
	Get(table Table, key []byte) ([]byte, error)

	// Set stores a key-value pair
	Set(table Table, key, value []byte) error

	// Scan iterates over the keys of a table starting with prefix.
	// A nil prefix scans the whole table.
	Scan(table Table, prefix []byte) (Iterator, error)

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error
}

// Iterator iterates over key-value pairs
type Iterator interface {
	// Next advances to the next item
	Next() bool

	// Key returns the current key
	Key() []byte

	// Value returns the current value
	Value() ([]byte, error)

	// Close closes the iterator
	Close() error
}

// Table represents a logical table/column family in the storage
type Table byte

const (
	// Dictionary: node id -> canonical term
	TableID2Term Table = iota + 1

	// Dictionary: term key -> node id
	TableTerm2ID

	// Counters and snapshot metadata
	TableMeta

	// Serialized hexastore snapshots
	TableSnapshot
)

// Tables lists every table in use
var Tables = []Table{TableID2Term, TableTerm2ID, TableMeta, TableSnapshot}

func (t Table) String() string {
	switch t {
	case TableID2Term:
		return "id2term"
	case TableTerm2ID:
		return "term2id"
	case TableMeta:
		return "meta"
	case TableSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// TablePrefix returns a byte prefix for a table to namespace keys
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey adds a table prefix to a key
func PrefixKey(table Table, key []byte) []byte {
	prefix := TablePrefix(table)
	result := make([]byte, len(prefix)+len(key))
	copy(result, prefix)
	copy(result[len(prefix):], key)
	return result
}

// Backend names a Storage implementation
type Backend string

const (
	BackendBadger Backend = "badger"
	BackendBolt   Backend = "bolt"
)

// Open opens the storage backend at path
func Open(backend Backend, path string, logger *zap.Logger) (Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch backend {
	case BackendBadger, "":
		return NewBadgerStorage(path, logger)
	case BackendBolt:
		return NewBoltStorage(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
