package store

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/aleksaelezovic/hexastore/internal/storage"
	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"github.com/golang/snappy"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

var (
	metaSnapshot = []byte("snapshot")
	snapshotHead = []byte("head")
)

// SnapshotInfo describes the snapshot last saved to storage
type SnapshotInfo struct {
	ID              string    `msgpack:"id" json:"id"`
	Triples         uint64    `msgpack:"triples" json:"triples"`
	Terms           uint64    `msgpack:"terms" json:"terms"`
	RawBytes        int64     `msgpack:"raw_bytes" json:"raw_bytes"`
	CompressedBytes int64     `msgpack:"compressed_bytes" json:"compressed_bytes"`
	CreatedAt       time.Time `msgpack:"created_at" json:"created_at"`
}

// Save writes a snappy-compressed snapshot of the hexastore to storage
func (s *TripleStore) Save() (info *SnapshotInfo, err error) {
	defer s.observe("save", time.Now(), &err)

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrClosed
	}
	var raw bytes.Buffer
	_, err = s.head.WriteTo(&raw)
	triples := s.head.TripleCount()
	s.dirty.Store(false)
	s.mu.RUnlock()
	if err != nil {
		s.dirty.Store(true)
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	compressed := snappy.Encode(nil, raw.Bytes())
	info = &SnapshotInfo{
		ID:              uuid.NewString(),
		Triples:         triples,
		Terms:           s.dict.Count(),
		RawBytes:        int64(raw.Len()),
		CompressedBytes: int64(len(compressed)),
		CreatedAt:       time.Now().UTC(),
	}
	meta, err := msgpack.Marshal(info)
	if err != nil {
		s.dirty.Store(true)
		return nil, fmt.Errorf("failed to encode snapshot info: %w", err)
	}

	if err := s.writeSnapshot(compressed, meta); err != nil {
		s.dirty.Store(true)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.SnapshotBytes.WithLabelValues("raw").Set(float64(info.RawBytes))
		s.metrics.SnapshotBytes.WithLabelValues("snappy").Set(float64(info.CompressedBytes))
	}
	s.logger.Info("snapshot saved",
		zap.String("id", info.ID),
		zap.Uint64("triples", info.Triples),
		zap.Int64("raw_bytes", info.RawBytes),
		zap.Int64("compressed_bytes", info.CompressedBytes),
	)
	return info, nil
}

func (s *TripleStore) writeSnapshot(compressed, meta []byte) error {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	if err := txn.Set(storage.TableSnapshot, snapshotHead, compressed); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := txn.Set(storage.TableMeta, metaSnapshot, meta); err != nil {
		return fmt.Errorf("failed to write snapshot info: %w", err)
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return s.storage.Sync()
}

// SnapshotInfo returns the description of the last saved snapshot, or nil
// if none was saved
func (s *TripleStore) SnapshotInfo() (*SnapshotInfo, error) {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()
	return readSnapshotInfo(txn)
}

func readSnapshotInfo(txn storage.Transaction) (*SnapshotInfo, error) {
	meta, err := txn.Get(storage.TableMeta, metaSnapshot)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var info SnapshotInfo
	if err := msgpack.Unmarshal(meta, &info); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot info: %w", err)
	}
	return &info, nil
}

// load restores the hexastore from the last snapshot, or starts empty
func (s *TripleStore) load() error {
	txn, err := s.storage.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	info, err := readSnapshotInfo(txn)
	if err != nil {
		return err
	}
	if info == nil {
		s.head = hexastore.NewHead()
		return nil
	}

	compressed, err := txn.Get(storage.TableSnapshot, snapshotHead)
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", info.ID, err)
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w: %v", info.ID, hexastore.ErrCorruptFormat, err)
	}
	head, err := hexastore.ReadHead(bytes.NewReader(raw), s.opts.BufferSlack)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", info.ID, err)
	}
	if head.TripleCount() != info.Triples {
		return fmt.Errorf("snapshot %s: %w: holds %d triples, info says %d",
			info.ID, hexastore.ErrCorruptFormat, head.TripleCount(), info.Triples)
	}

	s.head = head
	s.logger.Info("snapshot loaded",
		zap.String("id", info.ID),
		zap.Uint64("triples", info.Triples),
		zap.Time("created_at", info.CreatedAt),
	)
	return nil
}
