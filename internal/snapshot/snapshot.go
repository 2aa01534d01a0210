// Package snapshot stores a hexastore Head in a standalone file and loads it
// back through a memory-mapped reader.
package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"golang.org/x/exp/mmap"
)

// WriteFile writes the encoding of h to path. The file is written under a
// temporary name and renamed into place once synced.
func WriteFile(path string, h *hexastore.Head) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriterSize(tmp, 1<<20)
	n, err := h.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to install snapshot %s: %w", path, err)
	}
	return n, nil
}

// ReadFile memory-maps path and decodes the Head stored in it. Trailing
// bytes after the encoding are treated as corruption.
func ReadFile(path string, buffer bool) (*hexastore.Head, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer m.Close()

	r := io.NewSectionReader(m, 0, int64(m.Len()))
	br := bufio.NewReaderSize(r, 1<<20)
	h, err := hexastore.ReadHead(br, buffer)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, fmt.Errorf("snapshot %s: %w: trailing data", path, hexastore.ErrCorruptFormat)
	}
	return h, nil
}
