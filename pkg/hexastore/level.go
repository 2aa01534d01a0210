package hexastore

import (
	"cmp"
	"slices"
	"unsafe"
)

// NodeID is an interned RDF term handle. The zero value is reserved.
type NodeID uint64

const (
	// TerminalInitialCapacity is the number of node ids a new Terminal can hold before growing
	TerminalInitialCapacity = 4

	// VectorInitialCapacity is the number of entries a new Vector can hold before growing
	VectorInitialCapacity = 4

	// IndexInitialCapacity is the number of entries a new Index can hold before growing
	IndexInitialCapacity = 32
)

// grow doubles the capacity of a full slice, copying the existing elements
// in order into the new buffer.
func grow[E any](s []E) []E {
	if len(s) < cap(s) {
		return s
	}
	n := cap(s) * 2
	if n == 0 {
		n = 1
	}
	ns := make([]E, len(s), n)
	copy(ns, s)
	return ns
}

// insertAt shift-inserts v at position i, growing first if the slice is full.
func insertAt[E any](s []E, i int, v E) []E {
	s = grow(s)
	s = s[:len(s)+1]
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// removeAt shift-compacts the element at position i out of s.
func removeAt[E any](s []E, i int) []E {
	copy(s[i:], s[i+1:])
	var zero E
	s[len(s)-1] = zero
	return s[:len(s)-1]
}

// entry is one (key, child) slot of a Vector or Index.
type entry[C any] struct {
	key   NodeID
	child C
}

// level is a sorted, deduplicated association from node ids to children.
// Vector and Index are both built on it and differ only in the child type.
type level[C any] struct {
	entries []entry[C]
}

func newLevel[C any](capacity int) level[C] {
	return level[C]{entries: make([]entry[C], 0, capacity)}
}

// search returns the position of n and true, or the insertion point for n and false.
func (l *level[C]) search(n NodeID) (int, bool) {
	return slices.BinarySearchFunc(l.entries, n, func(e entry[C], n NodeID) int {
		return cmp.Compare(e.key, n)
	})
}

func (l *level[C]) lookup(n NodeID) (C, bool) {
	i, ok := l.search(n)
	if !ok {
		var zero C
		return zero, false
	}
	return l.entries[i].child, true
}

// findOrCreate returns the child stored under n, inserting one built by
// create at the sorted position when n is absent.
func (l *level[C]) findOrCreate(n NodeID, create func() C) (C, bool, error) {
	if n == 0 {
		var zero C
		return zero, false, ErrInvalidNode
	}
	i, ok := l.search(n)
	if ok {
		return l.entries[i].child, false, nil
	}
	child := create()
	l.entries = insertAt(l.entries, i, entry[C]{key: n, child: child})
	return child, true, nil
}

// remove drops the slot for n and returns its child.
func (l *level[C]) remove(n NodeID) (C, bool) {
	i, ok := l.search(n)
	if !ok {
		var zero C
		return zero, false
	}
	child := l.entries[i].child
	l.entries = removeAt(l.entries, i)
	return child, true
}

func (l *level[C]) size() int {
	return len(l.entries)
}

func (l *level[C]) capacity() int {
	return cap(l.entries)
}

// entriesSize returns the bytes allocated for the slot buffer
func (l *level[C]) entriesSize() int {
	var e entry[C]
	return cap(l.entries) * int(unsafe.Sizeof(e))
}

func (l *level[C]) keyAt(i int) NodeID {
	return l.entries[i].key
}

func (l *level[C]) childAt(i int) C {
	return l.entries[i].child
}

// keys returns a copy of the stored keys in ascending order.
func (l *level[C]) keys() []NodeID {
	out := make([]NodeID, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.key
	}
	return out
}
