package hexastore

// IterFlags records which leading components of an iterator are bound
type IterFlags uint8

const (
	BoundA IterFlags = 1 << iota
	BoundB
	BoundC
)

const (
	// IterTypeMask selects the bound bits of an IterFlags value
	IterTypeMask IterFlags = 0x07

	IterFFF IterFlags = 0
	IterBFF           = BoundA
	IterBBF           = BoundA | BoundB
)

func (f IterFlags) String() string {
	out := []byte("FFF")
	for i, bit := range []IterFlags{BoundA, BoundB, BoundC} {
		if f&bit != 0 {
			out[i] = 'B'
		}
	}
	return string(out)
}

// Iterator is a forward-only cursor over the triples of an Index that share
// a bound prefix of zero, one or two components.
//
// The cursor is a tuple of positions (ai, bi, ci) into the Index, the active
// Vector and the active Terminal. Advancing moves the innermost position and
// carries into the outer ones as levels run out. Results are undefined if the
// Index is modified while the iterator is live.
type Iterator struct {
	index *Index
	flags IterFlags

	a, b NodeID
	ai   int
	bi   int
	ci   int

	vector   *Vector
	terminal *Terminal

	started  bool
	finished bool
}

// NewIterator returns an iterator over every triple of ix
func NewIterator(ix *Index) *Iterator {
	return &Iterator{index: ix, flags: IterFFF}
}

// NewIterator1 returns an iterator over the triples of ix whose first component is a
func NewIterator1(ix *Index, a NodeID) *Iterator {
	it := &Iterator{index: ix, flags: IterBFF, a: a}
	v, ok := ix.Lookup(a)
	if !ok {
		it.started = true
		it.finished = true
		return it
	}
	it.vector = v
	return it
}

// NewIterator2 returns an iterator over the triples of ix whose first two components are a and b
func NewIterator2(ix *Index, a, b NodeID) *Iterator {
	it := &Iterator{index: ix, flags: IterBBF, a: a, b: b}
	t, ok := ix.terminal(a, b)
	if !ok {
		it.started = true
		it.finished = true
		return it
	}
	it.terminal = t.Retain()
	return it
}

// Flags returns the bound pattern of the iterator
func (it *Iterator) Flags() IterFlags {
	return it.flags
}

// Finished reports whether the iterator is exhausted. The first call primes
// the first result.
func (it *Iterator) Finished() bool {
	if !it.started {
		it.prime()
	}
	return it.finished
}

// Current returns the triple under the cursor without advancing
func (it *Iterator) Current() (a, b, c NodeID, err error) {
	if !it.started {
		it.prime()
	}
	if it.finished {
		return 0, 0, 0, ErrExhaustedIterator
	}
	return it.a, it.b, it.terminal.At(it.ci), nil
}

// Next advances the cursor. It returns false once the iterator is finished.
func (it *Iterator) Next() bool {
	if !it.started {
		it.prime()
	}
	if it.finished {
		return false
	}
	it.ci++
	it.settle()
	return !it.finished
}

// Seek positions the cursor on n at the first unbound level: the Index for
// an unbound iterator, the bound Vector for one bound component and the bound
// Terminal for two. Inner levels restart at their first entry. On a miss Seek
// returns false and the position is unspecified.
func (it *Iterator) Seek(n NodeID) bool {
	switch it.flags & IterTypeMask {
	case IterFFF:
		i, ok := it.index.search(n)
		if !ok {
			return false
		}
		it.reset()
		it.ai = i
		it.settle()
		return !it.finished && it.a == n

	case IterBFF:
		v, ok := it.index.Lookup(it.a)
		if !ok {
			return false
		}
		i, ok := v.search(n)
		if !ok {
			return false
		}
		it.reset()
		it.vector = v
		it.bi = i
		it.settle()
		return !it.finished && it.b == n

	case IterBBF:
		t, ok := it.index.terminal(it.a, it.b)
		if !ok {
			return false
		}
		i, ok := t.search(n)
		if !ok {
			return false
		}
		it.reset()
		it.terminal = t.Retain()
		it.ci = i
		return true
	}
	return false
}

// Close releases the Terminal reference held by the iterator and marks it finished
func (it *Iterator) Close() {
	it.releaseTerminal()
	it.vector = nil
	it.started = true
	it.finished = true
}

func (it *Iterator) prime() {
	it.started = true
	it.ai, it.bi, it.ci = 0, 0, 0
	it.settle()
}

func (it *Iterator) reset() {
	it.releaseTerminal()
	it.vector = nil
	it.ai, it.bi, it.ci = 0, 0, 0
	it.started = true
	it.finished = false
}

// settle moves the cursor from its current position to the first position
// holding a leaf, carrying into outer levels as inner ones are exhausted.
func (it *Iterator) settle() {
	for {
		if it.terminal != nil {
			if it.ci < it.terminal.Size() {
				return
			}
			it.releaseTerminal()
			if it.flags&BoundB != 0 {
				it.finish()
				return
			}
			it.bi++
		}

		if it.vector != nil {
			if it.bi < it.vector.Size() {
				it.b = it.vector.keyAt(it.bi)
				it.terminal = it.vector.childAt(it.bi).Retain()
				it.ci = 0
				continue
			}
			it.vector = nil
			if it.flags&BoundA != 0 {
				it.finish()
				return
			}
			it.ai++
		}

		if it.ai >= it.index.Size() {
			it.finish()
			return
		}
		it.a = it.index.keyAt(it.ai)
		it.vector = it.index.childAt(it.ai)
		it.bi = 0
	}
}

func (it *Iterator) finish() {
	it.releaseTerminal()
	it.vector = nil
	it.finished = true
}

func (it *Iterator) releaseTerminal() {
	if it.terminal != nil {
		it.terminal.Release()
		it.terminal = nil
	}
}
