package hexastore

import "unsafe"

// Vector maps a second-component node id to the Terminal holding the
// third components for that pair.
type Vector struct {
	level[*Terminal]
}

// NewVector creates an empty Vector
func NewVector() *Vector {
	return &Vector{level: newLevel[*Terminal](VectorInitialCapacity)}
}

// FindOrCreate returns the Terminal stored under key, inserting a new empty
// one when key is absent.
func (v *Vector) FindOrCreate(key NodeID) (*Terminal, error) {
	t, _, err := v.findOrCreate(key, NewTerminal)
	return t, err
}

// Lookup returns the Terminal stored under key
func (v *Vector) Lookup(key NodeID) (*Terminal, bool) {
	return v.lookup(key)
}

// Attach stores an existing Terminal under key, taking a reference to it.
// It reports false and leaves the Vector unchanged if key already holds a Terminal.
func (v *Vector) Attach(key NodeID, t *Terminal) (bool, error) {
	if key == 0 {
		return false, ErrInvalidNode
	}
	i, found := v.search(key)
	if found {
		return false, nil
	}
	v.entries = insertAt(v.entries, i, entry[*Terminal]{key: key, child: t.Retain()})
	return true, nil
}

// Remove drops the slot for key and releases its Terminal
func (v *Vector) Remove(key NodeID) bool {
	t, ok := v.remove(key)
	if !ok {
		return false
	}
	t.Release()
	return true
}

// Size returns the number of second-component keys
func (v *Vector) Size() int {
	return v.size()
}

// Capacity returns the number of entries the Vector can hold before growing
func (v *Vector) Capacity() int {
	return v.capacity()
}

// MemorySize returns the bytes held by the Vector, its slot buffer and its
// Terminals. A Terminal attached to several slots is counted for each.
func (v *Vector) MemorySize() int {
	n := int(unsafe.Sizeof(*v)) + v.entriesSize()
	for _, e := range v.entries {
		n += e.child.MemorySize()
	}
	return n
}

// Keys returns the second-component keys in ascending order
func (v *Vector) Keys() []NodeID {
	return v.keys()
}

// TripleCount returns the number of leaf entries under the Vector
func (v *Vector) TripleCount() uint64 {
	var n uint64
	for _, e := range v.entries {
		n += uint64(e.child.Size())
	}
	return n
}
