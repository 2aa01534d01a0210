package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aleksaelezovic/hexastore/internal/config"
	"github.com/aleksaelezovic/hexastore/internal/metrics"
	"github.com/aleksaelezovic/hexastore/internal/snapshot"
	"github.com/aleksaelezovic/hexastore/internal/storage"
	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
	"go.uber.org/zap"
)

// Options tune a TripleStore
type Options struct {
	// Logger defaults to a no-op logger
	Logger *zap.Logger

	// Metrics may be nil
	Metrics *metrics.Registry

	// BufferSlack over-provisions index levels decoded from the snapshot
	BufferSlack bool

	// SaveOnClose writes a snapshot on Close if the triple set changed
	SaveOnClose bool

	// BatchSize bounds how many triples InsertTriples interns per transaction
	BatchSize int
}

// TripleStore keeps an in-memory hexastore over a persistent term dictionary.
// Triples are persisted as snapshots of the hexastore.
type TripleStore struct {
	mu      sync.RWMutex
	storage storage.Storage
	dict    *Dictionary
	head    *hexastore.Head
	logger  *zap.Logger
	metrics *metrics.Registry
	opts    Options
	dirty   atomic.Bool
	closed  bool
}

// NewTripleStore creates a triplestore over st and loads its last snapshot
func NewTripleStore(st storage.Storage, opts Options) (*TripleStore, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}

	dict, err := NewDictionary(st)
	if err != nil {
		return nil, err
	}

	s := &TripleStore{
		storage: st,
		dict:    dict,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		opts:    opts,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	s.updateGauges()
	return s, nil
}

// Open opens the storage described by cfg and the triplestore in it
func Open(cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) (*TripleStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	path := cfg.DataDir
	if storage.Backend(cfg.Backend) == storage.BackendBolt {
		path = filepath.Join(cfg.DataDir, "hexastore.bolt")
	}
	st, err := storage.Open(storage.Backend(cfg.Backend), path, logger)
	if err != nil {
		return nil, err
	}

	s, err := NewTripleStore(st, Options{
		Logger:      logger,
		Metrics:     reg,
		BufferSlack: cfg.BufferSlack,
		SaveOnClose: cfg.SaveOnClose,
		BatchSize:   cfg.BatchSize,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	logger.Info("store opened",
		zap.String("backend", cfg.Backend),
		zap.String("data_dir", cfg.DataDir),
		zap.Uint64("triples", s.Count()),
		zap.Uint64("terms", s.dict.Count()),
	)
	return s, nil
}

// Close saves a pending snapshot if configured to and closes the storage. A
// failed save is returned together with any error from closing the storage.
func (s *TripleStore) Close() error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil
	}

	var saveErr error
	if s.opts.SaveOnClose && s.dirty.Load() {
		if _, err := s.Save(); err != nil {
			s.logger.Error("failed to save snapshot on close", zap.Error(err))
			saveErr = fmt.Errorf("failed to save snapshot on close: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(saveErr, s.storage.Close())
}

// Dictionary returns the term dictionary of the store
func (s *TripleStore) Dictionary() *Dictionary {
	return s.dict
}

// InsertTriple inserts a triple, reporting whether it was new
func (s *TripleStore) InsertTriple(triple *rdf.Triple) (bool, error) {
	n, err := s.InsertTriples([]*rdf.Triple{triple})
	return n == 1, err
}

// InsertTriples inserts triples in batches of Options.BatchSize and returns
// how many were new. Triples of a failed batch are not added.
func (s *TripleStore) InsertTriples(triples []*rdf.Triple) (added int, err error) {
	defer s.observe("insert", time.Now(), &err)

	for _, t := range triples {
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("invalid triple: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	for start := 0; start < len(triples); start += s.opts.BatchSize {
		end := min(start+s.opts.BatchSize, len(triples))
		ids, err := s.internBatch(triples[start:end])
		if err != nil {
			return added, err
		}
		for _, id := range ids {
			ok, err := s.head.AddTriple(id[0], id[1], id[2])
			if err != nil {
				return added, err
			}
			if ok {
				added++
			}
		}
	}

	if added > 0 {
		s.dirty.Store(true)
		s.updateGauges()
	}
	return added, nil
}

// internBatch interns the terms of triples in one transaction
func (s *TripleStore) internBatch(triples []*rdf.Triple) ([][3]hexastore.NodeID, error) {
	txn, err := s.storage.Begin(true)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	ids := make([][3]hexastore.NodeID, len(triples))
	for i, t := range triples {
		for j, term := range []rdf.Term{t.Subject, t.Predicate, t.Object} {
			id, err := s.dict.Intern(txn, term)
			if err != nil {
				s.resetDictionary()
				return nil, fmt.Errorf("failed to intern %s: %w", term, err)
			}
			ids[i][j] = id
		}
	}

	if err := txn.Commit(); err != nil {
		s.resetDictionary()
		return nil, fmt.Errorf("failed to commit terms: %w", err)
	}
	return ids, nil
}

func (s *TripleStore) resetDictionary() {
	if err := s.dict.reload(); err != nil {
		s.logger.Error("failed to reload dictionary", zap.Error(err))
	}
}

// DeleteTriple removes a triple, reporting whether it was present. Terms stay
// in the dictionary.
func (s *TripleStore) DeleteTriple(triple *rdf.Triple) (removed bool, err error) {
	defer s.observe("delete", time.Now(), &err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}

	ids, found, err := s.lookupTriple(triple)
	if err != nil || !found {
		return false, err
	}
	if s.head.RemoveTriple(ids[0], ids[1], ids[2]) {
		s.dirty.Store(true)
		s.updateGauges()
		return true, nil
	}
	return false, nil
}

// ContainsTriple checks if a triple exists in the store
func (s *TripleStore) ContainsTriple(triple *rdf.Triple) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}

	ids, found, err := s.lookupTriple(triple)
	if err != nil || !found {
		return false, err
	}
	return s.head.ContainsTriple(ids[0], ids[1], ids[2]), nil
}

func (s *TripleStore) lookupTriple(triple *rdf.Triple) ([3]hexastore.NodeID, bool, error) {
	var ids [3]hexastore.NodeID
	txn, err := s.storage.Begin(false)
	if err != nil {
		return ids, false, err
	}
	defer txn.Rollback()

	for i, term := range []rdf.Term{triple.Subject, triple.Predicate, triple.Object} {
		if term == nil {
			return ids, false, fmt.Errorf("triple has a missing term")
		}
		id, found, err := s.dict.Lookup(txn, term)
		if err != nil || !found {
			return ids, false, err
		}
		ids[i] = id
	}
	return ids, true, nil
}

// Count returns the number of triples in the store
func (s *TripleStore) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head.TripleCount()
}

// ExportIndex writes the hexastore to a standalone snapshot file
func (s *TripleStore) ExportIndex(path string) (n int64, err error) {
	defer s.observe("export_index", time.Now(), &err)

	s.mu.RLock()
	defer s.mu.RUnlock()
	n, err = snapshot.WriteFile(path, s.head)
	if err != nil {
		return 0, err
	}
	s.logger.Info("index exported", zap.String("path", path), zap.Int64("bytes", n))
	return n, nil
}

// Verify checks the six orderings against each other, the dictionary tables
// against each other, and that every node id in the index has a term
func (s *TripleStore) Verify() (err error) {
	defer s.observe("verify", time.Now(), &err)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.head.Verify(); err != nil {
		return err
	}

	txn, err := s.storage.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Rollback()
	if err := s.dict.Verify(txn); err != nil {
		return err
	}

	terms := hexastore.NodeID(s.dict.Count())
	for _, o := range []hexastore.Order{hexastore.OrderSPO, hexastore.OrderPSO, hexastore.OrderOSP} {
		keys := s.head.Index(o).Keys()
		if n := len(keys); n > 0 && keys[n-1] > terms {
			return fmt.Errorf("%w: ordering %s references node %d, dictionary holds %d terms",
				ErrCorruptDictionary, o, keys[n-1], terms)
		}
	}
	return nil
}

// Stats describes the contents of a store
type Stats struct {
	Triples   uint64
	Terms     uint64
	Orderings map[hexastore.Order]OrderingStats
	Snapshot  *SnapshotInfo
}

// OrderingStats describes one ordering: its top level and the memory held
// by the whole tree
type OrderingStats struct {
	Keys        int
	Capacity    int
	MemoryBytes int
}

// Stats reports counts for the store and its orderings
func (s *TripleStore) Stats() (*Stats, error) {
	info, err := s.SnapshotInfo()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	st := &Stats{
		Triples:   s.head.TripleCount(),
		Terms:     s.dict.Count(),
		Orderings: make(map[hexastore.Order]OrderingStats, hexastore.OrderCount),
		Snapshot:  info,
	}
	for o := hexastore.OrderSPO; o < hexastore.OrderCount; o++ {
		ix := s.head.Index(o)
		st.Orderings[o] = OrderingStats{Keys: ix.Size(), Capacity: ix.Capacity(), MemoryBytes: ix.MemorySize()}
	}
	return st, nil
}

func (s *TripleStore) observe(operation string, start time.Time, err *error) {
	s.metrics.Observe(operation, start, *err)
}

// updateGauges must be called with s.mu held
func (s *TripleStore) updateGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.TriplesTotal.Set(float64(s.head.TripleCount()))
	s.metrics.TermsTotal.Set(float64(s.dict.Count()))
}
