package store

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

// Export writes every triple as N-Triples in subject, predicate, object id
// order and returns how many were written
func (s *TripleStore) Export(w io.Writer) (n int, err error) {
	defer s.observe("export", time.Now(), &err)

	it, err := s.Query(&Pattern{})
	if err != nil {
		return 0, err
	}
	defer it.Close()

	bw := bufio.NewWriter(w)
	for it.Next() {
		t, err := it.Triple()
		if err != nil {
			return n, err
		}
		if _, err := fmt.Fprintln(bw, t.String()); err != nil {
			return n, err
		}
		n++
	}
	return n, bw.Flush()
}

// Load reads N-Triples from r and inserts them, returning how many triples
// were read and how many of those were new
func (s *TripleStore) Load(r io.Reader) (read, added int, err error) {
	reader := rdf.NewNTriplesReader(r)
	batch := make([]*rdf.Triple, 0, s.opts.BatchSize)

	flush := func() error {
		n, err := s.InsertTriples(batch)
		added += n
		batch = batch[:0]
		return err
	}

	for {
		t, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return read, added, err
		}
		read++
		batch = append(batch, t)
		if len(batch) == s.opts.BatchSize {
			if err := flush(); err != nil {
				return read, added, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return read, added, err
		}
	}
	return read, added, nil
}
