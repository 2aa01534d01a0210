package hexastore

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"unsafe"
)

// Terminal is the sorted leaf set of third-component node ids for a fixed
// (first, second) key pair.
//
// A Terminal is reference counted. The Vector slot holding it owns one
// reference; sharing the Terminal with another slot or with a live Iterator
// takes another. The node storage is dropped once the last reference is released.
type Terminal struct {
	nodes []NodeID
	refs  atomic.Int32
}

// NewTerminal creates an empty Terminal holding a single reference
func NewTerminal() *Terminal {
	return newTerminalWithCapacity(TerminalInitialCapacity)
}

func newTerminalWithCapacity(capacity int) *Terminal {
	t := &Terminal{nodes: make([]NodeID, 0, capacity)}
	t.refs.Store(1)
	return t
}

// Add inserts n in sorted position. It reports false if n was already present.
func (t *Terminal) Add(n NodeID) (bool, error) {
	if n == 0 {
		return false, ErrInvalidNode
	}
	i, found := t.search(n)
	if found {
		return false, nil
	}
	t.nodes = insertAt(t.nodes, i, n)
	return true, nil
}

// Contains reports whether n is in the Terminal
func (t *Terminal) Contains(n NodeID) bool {
	_, found := t.search(n)
	return found
}

// Remove deletes n, reporting false if it was not present
func (t *Terminal) Remove(n NodeID) bool {
	i, found := t.search(n)
	if !found {
		return false
	}
	t.nodes = removeAt(t.nodes, i)
	return true
}

// Size returns the number of node ids stored
func (t *Terminal) Size() int {
	return len(t.nodes)
}

// Capacity returns the number of node ids the Terminal can hold before growing
func (t *Terminal) Capacity() int {
	return cap(t.nodes)
}

// MemorySize returns the bytes held by the Terminal and its node buffer
func (t *Terminal) MemorySize() int {
	return int(unsafe.Sizeof(*t)) + cap(t.nodes)*int(unsafe.Sizeof(NodeID(0)))
}

// Nodes returns a copy of the stored node ids in ascending order
func (t *Terminal) Nodes() []NodeID {
	return slices.Clone(t.nodes)
}

// At returns the node id at position i
func (t *Terminal) At(i int) NodeID {
	return t.nodes[i]
}

// Retain takes an additional reference to the Terminal. Reference counting is
// atomic so concurrent readers may hold the same Terminal.
func (t *Terminal) Retain() *Terminal {
	t.refs.Add(1)
	return t
}

// Release drops one reference. When no references remain the node storage is
// freed and Release reports true; otherwise it is a no-op on the data.
func (t *Terminal) Release() bool {
	if t.refs.Add(-1) > 0 {
		return false
	}
	t.nodes = nil
	return true
}

// RefCount returns the number of live references
func (t *Terminal) RefCount() int {
	return int(t.refs.Load())
}

// Shared reports whether more than one owner holds the Terminal
func (t *Terminal) Shared() bool {
	return t.refs.Load() > 1
}

// search returns the position of n and true, or the insertion point for n and false.
func (t *Terminal) search(n NodeID) (int, bool) {
	return slices.BinarySearch(t.nodes, n)
}

func (t *Terminal) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, n := range t.nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d", n)
	}
	b.WriteByte(']')
	return b.String()
}
