package hexastore

import "unsafe"

// Index is one full ordering of triples: a sorted map from a first-component
// node id to the Vector of its second components.
type Index struct {
	level[*Vector]
}

// NewIndex creates an empty Index
func NewIndex() *Index {
	return &Index{level: newLevel[*Vector](IndexInitialCapacity)}
}

// FindOrCreate returns the Vector stored under key, inserting a new empty
// one when key is absent.
func (ix *Index) FindOrCreate(key NodeID) (*Vector, error) {
	v, _, err := ix.findOrCreate(key, NewVector)
	return v, err
}

// Lookup returns the Vector stored under key
func (ix *Index) Lookup(key NodeID) (*Vector, bool) {
	return ix.lookup(key)
}

// AddTriple inserts (a, b, c), creating intermediate levels as needed. It
// reports false if the triple was already present. No level is touched when
// any component is the reserved zero id.
func (ix *Index) AddTriple(a, b, c NodeID) (bool, error) {
	if a == 0 || b == 0 || c == 0 {
		return false, ErrInvalidNode
	}
	v, err := ix.FindOrCreate(a)
	if err != nil {
		return false, err
	}
	t, err := v.FindOrCreate(b)
	if err != nil {
		return false, err
	}
	return t.Add(c)
}

// ContainsTriple reports whether (a, b, c) is stored
func (ix *Index) ContainsTriple(a, b, c NodeID) bool {
	t, ok := ix.terminal(a, b)
	if !ok {
		return false
	}
	return t.Contains(c)
}

// RemoveTriple deletes (a, b, c). Terminal and Vector slots left empty by the
// removal are pruned. It reports false if the triple was not present.
func (ix *Index) RemoveTriple(a, b, c NodeID) bool {
	v, ok := ix.Lookup(a)
	if !ok {
		return false
	}
	t, ok := v.Lookup(b)
	if !ok {
		return false
	}
	if !t.Remove(c) {
		return false
	}
	if t.Size() == 0 {
		v.Remove(b)
	}
	if v.Size() == 0 {
		ix.remove(a)
	}
	return true
}

// Size returns the number of first-component keys
func (ix *Index) Size() int {
	return ix.size()
}

// Capacity returns the number of entries the Index can hold before growing
func (ix *Index) Capacity() int {
	return ix.capacity()
}

// MemorySize returns the bytes held by the Index and every level below it
func (ix *Index) MemorySize() int {
	n := int(unsafe.Sizeof(*ix)) + ix.entriesSize()
	for _, e := range ix.entries {
		n += e.child.MemorySize()
	}
	return n
}

// Keys returns the first-component keys in ascending order
func (ix *Index) Keys() []NodeID {
	return ix.keys()
}

// TripleCount returns the number of triples stored
func (ix *Index) TripleCount() uint64 {
	var n uint64
	for _, e := range ix.entries {
		n += e.child.TripleCount()
	}
	return n
}

// Iter returns an iterator over the triples whose leading components equal
// prefix. Up to two components may be bound.
func (ix *Index) Iter(prefix ...NodeID) (*Iterator, error) {
	switch len(prefix) {
	case 0:
		return NewIterator(ix), nil
	case 1:
		return NewIterator1(ix, prefix[0]), nil
	case 2:
		return NewIterator2(ix, prefix[0], prefix[1]), nil
	default:
		return nil, ErrInvalidPattern
	}
}

func (ix *Index) terminal(a, b NodeID) (*Terminal, bool) {
	v, ok := ix.Lookup(a)
	if !ok {
		return nil, false
	}
	return v.Lookup(b)
}
