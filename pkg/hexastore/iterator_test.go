package hexastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, it *Iterator) []triple {
	t.Helper()
	var out []triple
	for ; !it.Finished(); it.Next() {
		a, b, c, err := it.Current()
		require.NoError(t, err)
		out = append(out, triple{a, b, c})
	}
	return out
}

func TestIteratorUnbound(t *testing.T) {
	ix := newExampleIndex(t)
	got := collect(t, NewIterator(ix))
	assert.Equal(t, []triple{{1, 2, 3}, {1, 2, 4}, {1, 5, 3}, {2, 2, 2}}, got)
}

func TestIteratorOneBound(t *testing.T) {
	ix := newExampleIndex(t)
	got := collect(t, NewIterator1(ix, 1))
	assert.Equal(t, []triple{{1, 2, 3}, {1, 2, 4}, {1, 5, 3}}, got)

	it := NewIterator1(ix, 3)
	assert.True(t, it.Finished())
}

func TestIteratorTwoBound(t *testing.T) {
	ix := newExampleIndex(t)
	got := collect(t, NewIterator2(ix, 1, 2))
	assert.Equal(t, []triple{{1, 2, 3}, {1, 2, 4}}, got)

	assert.True(t, NewIterator2(ix, 1, 3).Finished())
	assert.True(t, NewIterator2(ix, 9, 2).Finished())
}

func TestIteratorEmptyIndex(t *testing.T) {
	it := NewIterator(NewIndex())
	assert.True(t, it.Finished())
	assert.False(t, it.Next())
	_, _, _, err := it.Current()
	assert.ErrorIs(t, err, ErrExhaustedIterator)
}

func TestIteratorCurrentPrimesLazily(t *testing.T) {
	ix := newExampleIndex(t)
	it := NewIterator1(ix, 2)

	a, b, c, err := it.Current()
	require.NoError(t, err)
	assert.Equal(t, triple{2, 2, 2}, triple{a, b, c})

	assert.False(t, it.Next())
	assert.True(t, it.Finished())
	_, _, _, err = it.Current()
	assert.ErrorIs(t, err, ErrExhaustedIterator)
}

func TestIteratorSkipsEmptyLevels(t *testing.T) {
	ix := NewIndex()
	_, err := ix.AddTriple(1, 1, 1)
	require.NoError(t, err)
	v, err := ix.FindOrCreate(2)
	require.NoError(t, err)
	_, err = v.FindOrCreate(1)
	require.NoError(t, err)
	_, err = ix.FindOrCreate(3)
	require.NoError(t, err)
	_, err = ix.AddTriple(4, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, []triple{{1, 1, 1}, {4, 1, 1}}, collect(t, NewIterator(ix)))
	assert.True(t, NewIterator1(ix, 2).Finished())
	assert.True(t, NewIterator2(ix, 2, 1).Finished())
}

func TestIteratorSeek(t *testing.T) {
	ix := newExampleIndex(t)

	t.Run("terminal", func(t *testing.T) {
		it := NewIterator2(ix, 1, 2)
		require.True(t, it.Seek(4))
		_, _, c, err := it.Current()
		require.NoError(t, err)
		assert.Equal(t, NodeID(4), c)
		assert.False(t, it.Next())

		assert.False(t, it.Seek(5))
		require.True(t, it.Seek(3), "seek works again after exhaustion")
		_, _, c, err = it.Current()
		require.NoError(t, err)
		assert.Equal(t, NodeID(3), c)
	})

	t.Run("vector", func(t *testing.T) {
		it := NewIterator1(ix, 1)
		require.True(t, it.Seek(5))
		assert.Equal(t, []triple{{1, 5, 3}}, collect(t, it))
		assert.False(t, it.Seek(4))
	})

	t.Run("index", func(t *testing.T) {
		it := NewIterator(ix)
		require.True(t, it.Seek(2))
		assert.Equal(t, []triple{{2, 2, 2}}, collect(t, it))
		assert.False(t, it.Seek(3))
	})
}

func TestIteratorReleasesTerminal(t *testing.T) {
	ix := newExampleIndex(t)
	term, ok := ix.terminal(1, 2)
	require.True(t, ok)

	it := NewIterator2(ix, 1, 2)
	assert.Equal(t, 2, term.RefCount())
	for it.Next() {
	}
	assert.Equal(t, 1, term.RefCount(), "exhaustion releases the held reference")

	it = NewIterator(ix)
	require.False(t, it.Finished())
	assert.Equal(t, 2, term.RefCount())
	it.Close()
	assert.Equal(t, 1, term.RefCount())
	assert.True(t, it.Finished())
	assert.Equal(t, 2, term.Size(), "closing never frees data owned by the tree")
}

func TestIteratorSurvivesDetachedTerminal(t *testing.T) {
	ix := newExampleIndex(t)
	it := NewIterator2(ix, 1, 2)
	require.False(t, it.Finished())

	v, _ := ix.Lookup(1)
	v.Remove(2)

	_, _, c, err := it.Current()
	require.NoError(t, err)
	assert.Equal(t, NodeID(3), c)
	it.Close()
}

func TestIterFlagsString(t *testing.T) {
	assert.Equal(t, "FFF", IterFFF.String())
	assert.Equal(t, "BFF", IterBFF.String())
	assert.Equal(t, "BBF", IterBBF.String())
}
