package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func openBackends(t *testing.T) map[string]Storage {
	t.Helper()
	dir := t.TempDir()

	mem, err := NewBadgerStorage("", nil)
	if err != nil {
		t.Fatalf("failed to create in-memory badger: %v", err)
	}
	disk, err := Open(BackendBadger, filepath.Join(dir, "badger"), nil)
	if err != nil {
		t.Fatalf("failed to create badger: %v", err)
	}
	bolt, err := Open(BackendBolt, filepath.Join(dir, "data.bolt"), nil)
	if err != nil {
		t.Fatalf("failed to create bolt: %v", err)
	}

	backends := map[string]Storage{"badger-mem": mem, "badger": disk, "bolt": bolt}
	t.Cleanup(func() {
		for _, s := range backends {
			s.Close()
		}
	})
	return backends
}

func TestSetGet(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			txn, err := s.Begin(true)
			if err != nil {
				t.Fatalf("failed to begin: %v", err)
			}
			if err := txn.Set(TableMeta, []byte("k"), []byte("v")); err != nil {
				t.Fatalf("failed to set: %v", err)
			}
			if err := txn.Set(TableSnapshot, []byte("k"), []byte("other")); err != nil {
				t.Fatalf("failed to set: %v", err)
			}
			if err := txn.Commit(); err != nil {
				t.Fatalf("failed to commit: %v", err)
			}

			txn, _ = s.Begin(false)
			got, err := txn.Get(TableMeta, []byte("k"))
			if err != nil {
				t.Fatalf("failed to get: %v", err)
			}
			if string(got) != "v" {
				t.Errorf("expected 'v', got '%s'", got)
			}
			if err := txn.Set(TableMeta, []byte("k"), []byte("x")); !errors.Is(err, ErrTransactionRO) {
				t.Errorf("expected ErrTransactionRO, got %v", err)
			}
			if _, err := txn.Get(TableMeta, []byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			defer txn.Rollback()
			if got, _ := txn.Get(TableSnapshot, []byte("k")); string(got) != "other" {
				t.Errorf("tables should be isolated, got '%s'", got)
			}
		})
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			txn, _ := s.Begin(true)
			txn.Set(TableMeta, []byte("k"), []byte("v"))
			txn.Rollback()

			txn, _ = s.Begin(false)
			defer txn.Rollback()
			if _, err := txn.Get(TableMeta, []byte("k")); !errors.Is(err, ErrNotFound) {
				t.Errorf("expected rolled back write to be absent, got %v", err)
			}
		})
	}
}

func TestScanPrefix(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			txn, _ := s.Begin(true)
			for _, k := range []string{"a1", "a2", "b1", "a3"} {
				if err := txn.Set(TableID2Term, []byte(k), []byte("v"+k)); err != nil {
					t.Fatalf("failed to set: %v", err)
				}
			}
			txn.Set(TableTerm2ID, []byte("a9"), []byte("x"))
			if err := txn.Commit(); err != nil {
				t.Fatalf("failed to commit: %v", err)
			}

			txn, _ = s.Begin(false)
			defer txn.Rollback()

			it, err := txn.Scan(TableID2Term, []byte("a"))
			if err != nil {
				t.Fatalf("failed to scan: %v", err)
			}
			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
				v, err := it.Value()
				if err != nil || string(v) != "v"+string(it.Key()) {
					t.Errorf("unexpected value %q (%v)", v, err)
				}
			}
			it.Close()

			want := []string{"a1", "a2", "a3"}
			if len(keys) != len(want) {
				t.Fatalf("expected %v, got %v", want, keys)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("expected %v, got %v", want, keys)
				}
			}

			it, _ = txn.Scan(TableID2Term, nil)
			count := 0
			for it.Next() {
				count++
			}
			it.Close()
			if count != 4 {
				t.Errorf("expected 4 keys in full scan, got %d", count)
			}
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("leveldb", t.TempDir(), nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestPrefixKey(t *testing.T) {
	key := PrefixKey(TableMeta, []byte("abc"))
	if key[0] != byte(TableMeta) || string(key[1:]) != "abc" {
		t.Errorf("unexpected prefixed key %v", key)
	}
	if TableSnapshot.String() != "snapshot" || Table(99).String() != "unknown" {
		t.Error("unexpected table names")
	}
}
