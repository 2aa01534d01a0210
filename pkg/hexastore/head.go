package hexastore

import (
	"fmt"
	"io"
)

// Order names one of the six permutations of (subject, predicate, object)
type Order uint8

const (
	OrderSPO Order = iota
	OrderSOP
	OrderPSO
	OrderPOS
	OrderOSP
	OrderOPS

	// OrderCount is the number of orderings a Head maintains
	OrderCount
)

func (o Order) String() string {
	switch o {
	case OrderSPO:
		return "spo"
	case OrderSOP:
		return "sop"
	case OrderPSO:
		return "pso"
	case OrderPOS:
		return "pos"
	case OrderOSP:
		return "osp"
	case OrderOPS:
		return "ops"
	default:
		return "unknown"
	}
}

// Permute maps (s, p, o) to the key order of the ordering
func (o Order) Permute(s, p, obj NodeID) (a, b, c NodeID) {
	switch o {
	case OrderSOP:
		return s, obj, p
	case OrderPSO:
		return p, s, obj
	case OrderPOS:
		return p, obj, s
	case OrderOSP:
		return obj, s, p
	case OrderOPS:
		return obj, p, s
	default:
		return s, p, obj
	}
}

// Unpermute maps a triple in the key order of the ordering back to (s, p, o)
func (o Order) Unpermute(a, b, c NodeID) (s, p, obj NodeID) {
	switch o {
	case OrderSOP:
		return a, c, b
	case OrderPSO:
		return b, a, c
	case OrderPOS:
		return c, a, b
	case OrderOSP:
		return b, c, a
	case OrderOPS:
		return c, b, a
	default:
		return a, b, c
	}
}

// Head holds the six orderings of one triple set
type Head struct {
	indices [OrderCount]*Index
	count   uint64
}

// NewHead creates a Head with six empty indices
func NewHead() *Head {
	h := &Head{}
	for i := range h.indices {
		h.indices[i] = NewIndex()
	}
	return h
}

// Index returns the Index for an ordering
func (h *Head) Index(o Order) *Index {
	return h.indices[o]
}

// AddTriple inserts (s, p, o) into all six orderings. It reports false if the
// triple was already present.
func (h *Head) AddTriple(s, p, obj NodeID) (bool, error) {
	if s == 0 || p == 0 || obj == 0 {
		return false, ErrInvalidNode
	}
	added := false
	for i, ix := range h.indices {
		a, b, c := Order(i).Permute(s, p, obj)
		ok, err := ix.AddTriple(a, b, c)
		if err != nil {
			return false, err
		}
		added = added || ok
	}
	if added {
		h.count++
	}
	return added, nil
}

// RemoveTriple deletes (s, p, o) from all six orderings
func (h *Head) RemoveTriple(s, p, obj NodeID) bool {
	removed := false
	for i, ix := range h.indices {
		a, b, c := Order(i).Permute(s, p, obj)
		removed = ix.RemoveTriple(a, b, c) || removed
	}
	if removed {
		h.count--
	}
	return removed
}

// ContainsTriple reports whether (s, p, o) is stored
func (h *Head) ContainsTriple(s, p, obj NodeID) bool {
	return h.indices[OrderSPO].ContainsTriple(s, p, obj)
}

// TripleCount returns the number of distinct triples
func (h *Head) TripleCount() uint64 {
	return h.count
}

// MemorySize returns the bytes held by all six orderings
func (h *Head) MemorySize() int {
	n := 0
	for _, ix := range h.indices {
		n += ix.MemorySize()
	}
	return n
}

// SelectOrder picks the ordering whose leading components are exactly the
// bound ones of the pattern, and how many components that prefix holds.
// A zero component is unbound.
func SelectOrder(s, p, obj NodeID) (Order, int) {
	sb, pb, ob := s != 0, p != 0, obj != 0
	switch {
	case sb && pb && ob:
		return OrderSPO, 3
	case sb && pb:
		return OrderSPO, 2
	case sb && ob:
		return OrderSOP, 2
	case pb && ob:
		return OrderPOS, 2
	case sb:
		return OrderSPO, 1
	case pb:
		return OrderPSO, 1
	case ob:
		return OrderOSP, 1
	default:
		return OrderSPO, 0
	}
}

// Match returns an iterator over the triples matching the pattern. A zero
// component is unbound. A fully bound pattern is a point lookup yielding at
// most one triple.
func (h *Head) Match(s, p, obj NodeID) *TripleIterator {
	order, bound := SelectOrder(s, p, obj)
	a, b, c := order.Permute(s, p, obj)
	ix := h.indices[order]

	var it *Iterator
	switch bound {
	case 0:
		it = NewIterator(ix)
	case 1:
		it = NewIterator1(ix, a)
	default:
		it = NewIterator2(ix, a, b)
	}
	ti := &TripleIterator{it: it, order: order}
	if bound == 3 {
		ti.point = true
		if !it.Seek(c) {
			it.Close()
		}
	}
	return ti
}

// TripleIterator walks one ordering and reports triples in (s, p, o) order
type TripleIterator struct {
	it    *Iterator
	order Order
	point bool
}

// Order returns the ordering answering the pattern
func (ti *TripleIterator) Order() Order {
	return ti.order
}

// Finished reports whether the iterator is exhausted
func (ti *TripleIterator) Finished() bool {
	return ti.it.Finished()
}

// Current returns the triple under the cursor
func (ti *TripleIterator) Current() (s, p, o NodeID, err error) {
	a, b, c, err := ti.it.Current()
	if err != nil {
		return 0, 0, 0, err
	}
	s, p, o = ti.order.Unpermute(a, b, c)
	return s, p, o, nil
}

// Next advances the cursor, returning false once finished
func (ti *TripleIterator) Next() bool {
	if ti.point {
		ti.it.Close()
		return false
	}
	return ti.it.Next()
}

// Close releases the references held by the iterator
func (ti *TripleIterator) Close() {
	ti.it.Close()
}

// WriteTo serializes the Head: cookie 'H', the number of orderings, then each Index
func (h *Head) WriteTo(w io.Writer) (int64, error) {
	e := &encoder{w: w}
	e.cookie(CookieHead)
	e.uint64(uint64(len(h.indices)))
	for _, ix := range h.indices {
		ix.encode(e)
		if e.err != nil {
			break
		}
	}
	return e.n, e.err
}

// ReadHead decodes a Head written by WriteTo
func ReadHead(r io.Reader, buffer bool) (*Head, error) {
	d := &decoder{r: r}
	if err := d.cookie(CookieHead); err != nil {
		return nil, err
	}
	count, err := d.count("head")
	if err != nil {
		return nil, err
	}
	if count != int(OrderCount) {
		return nil, corruptf("head holds %d orderings, expected %d", count, OrderCount)
	}
	h := &Head{}
	for i := range h.indices {
		ix, err := decodeIndex(d, buffer)
		if err != nil {
			return nil, fmt.Errorf("ordering %s: %w", Order(i), err)
		}
		h.indices[i] = ix
	}
	h.count = h.indices[OrderSPO].TripleCount()
	for i, ix := range h.indices[1:] {
		if n := ix.TripleCount(); n != h.count {
			return nil, corruptf("ordering %s holds %d triples, %s holds %d", Order(i+1), n, OrderSPO, h.count)
		}
	}
	return h, nil
}

// Verify checks that every ordering holds exactly the triples of SPO
func (h *Head) Verify() error {
	for i, ix := range h.indices {
		if n := ix.TripleCount(); n != h.count {
			return corruptf("ordering %s holds %d triples, expected %d", Order(i), n, h.count)
		}
	}

	it := NewIterator(h.indices[OrderSPO])
	defer it.Close()
	for ; !it.Finished(); it.Next() {
		s, p, obj, err := it.Current()
		if err != nil {
			return err
		}
		for i, ix := range h.indices[1:] {
			o := Order(i + 1)
			a, b, c := o.Permute(s, p, obj)
			if !ix.ContainsTriple(a, b, c) {
				return corruptf("ordering %s is missing (%d, %d, %d)", o, s, p, obj)
			}
		}
	}
	return nil
}
