package store

import (
	"fmt"
	"time"

	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

// Pattern represents a triple pattern. Each position holds an rdf.Term, a
// *Variable, or nil for an anonymous wildcard.
type Pattern struct {
	Subject   any
	Predicate any
	Object    any
}

// Variable represents a named pattern variable. A variable used in more than
// one position only matches triples with equal terms in those positions.
type Variable struct {
	Name string
}

// NewVariable creates a new variable
func NewVariable(name string) *Variable {
	return &Variable{Name: name}
}

func (v *Variable) String() string {
	return "?" + v.Name
}

// TripleIterator iterates over triples matching a pattern
type TripleIterator interface {
	Next() bool
	Triple() (*rdf.Triple, error)
	Close() error
}

// Query returns an iterator over the triples matching pattern. The matching
// node ids are collected under the store's read lock, so the iterator pins no
// lock and may be abandoned without calling Close. Terms are decoded from the
// dictionary as Triple is called.
func (s *TripleStore) Query(pattern *Pattern) (TripleIterator, error) {
	start := time.Now()

	if pattern == nil {
		return nil, fmt.Errorf("%w: nil pattern", hexastore.ErrInvalidPattern)
	}
	positions := [3]any{pattern.Subject, pattern.Predicate, pattern.Object}
	for i, p := range positions {
		switch p.(type) {
		case nil, *Variable, rdf.Term:
		default:
			return nil, fmt.Errorf("%w: position %d holds %T", hexastore.ErrInvalidPattern, i, p)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	ids, found, err := s.lookupPattern(positions)
	if err != nil {
		s.metrics.Observe("query", start, err)
		return nil, err
	}
	qi := &tripleIterator{store: s, terms: make(map[hexastore.NodeID]rdf.Term)}
	if !found {
		s.metrics.Observe("query", start, nil)
		return qi, nil
	}

	same := sharedVariables(positions)
	it := s.head.Match(ids[0], ids[1], ids[2])
	defer it.Close()
	for ; !it.Finished(); it.Next() {
		sub, pred, obj, err := it.Current()
		if err != nil {
			s.metrics.Observe("query", start, err)
			return nil, err
		}
		t := [3]hexastore.NodeID{sub, pred, obj}
		if matchesVariables(t, same) {
			qi.matches = append(qi.matches, t)
		}
	}

	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(it.Order().String(), patternShape(ids)).Inc()
	}
	s.metrics.Observe("query", start, nil)
	return qi, nil
}

// lookupPattern resolves the bound terms of a pattern to node ids. It
// reports false if any of them is not in the dictionary.
func (s *TripleStore) lookupPattern(positions [3]any) ([3]hexastore.NodeID, bool, error) {
	var ids [3]hexastore.NodeID
	txn, err := s.storage.Begin(false)
	if err != nil {
		return ids, false, err
	}
	defer txn.Rollback()

	for i, p := range positions {
		term, ok := p.(rdf.Term)
		if !ok {
			continue
		}
		id, found, err := s.dict.Lookup(txn, term)
		if err != nil || !found {
			return ids, false, err
		}
		ids[i] = id
	}
	return ids, true, nil
}

// sharedVariables lists the position pairs bound to the same variable name
func sharedVariables(positions [3]any) [][2]int {
	var pairs [][2]int
	for i := 0; i < len(positions); i++ {
		vi, ok := positions[i].(*Variable)
		if !ok {
			continue
		}
		for j := i + 1; j < len(positions); j++ {
			if vj, ok := positions[j].(*Variable); ok && vi.Name == vj.Name {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	return pairs
}

// patternShape renders which positions are bound, e.g. "s?o"
func patternShape(ids [3]hexastore.NodeID) string {
	shape := []byte("???")
	for i, c := range []byte("spo") {
		if ids[i] != 0 {
			shape[i] = c
		}
	}
	return string(shape)
}

func matchesVariables(t [3]hexastore.NodeID, same [][2]int) bool {
	for _, pair := range same {
		if t[pair[0]] != t[pair[1]] {
			return false
		}
	}
	return true
}

// tripleIterator implements TripleIterator over the node ids of a match
type tripleIterator struct {
	store   *TripleStore
	matches [][3]hexastore.NodeID
	pos     int
	terms   map[hexastore.NodeID]rdf.Term
	closed  bool
}

func (qi *tripleIterator) Next() bool {
	if qi.closed || qi.pos > len(qi.matches) {
		return false
	}
	qi.pos++
	return qi.pos <= len(qi.matches)
}

func (qi *tripleIterator) Triple() (*rdf.Triple, error) {
	if qi.closed {
		return nil, ErrIteratorClosed
	}
	if qi.pos == 0 || qi.pos > len(qi.matches) {
		return nil, hexastore.ErrExhaustedIterator
	}
	current := qi.matches[qi.pos-1]

	s := qi.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	txn, err := s.storage.Begin(false)
	if err != nil {
		return nil, err
	}
	defer txn.Rollback()

	var terms [3]rdf.Term
	for i, id := range current {
		term, ok := qi.terms[id]
		if !ok {
			term, err = s.dict.Term(txn, id)
			if err != nil {
				return nil, fmt.Errorf("failed to decode node %d: %w", id, err)
			}
			qi.terms[id] = term
		}
		terms[i] = term
	}
	return rdf.NewTriple(terms[0], terms[1], terms[2]), nil
}

func (qi *tripleIterator) Close() error {
	qi.closed = true
	qi.matches = nil
	qi.terms = nil
	return nil
}
