package hexastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorFindOrCreate(t *testing.T) {
	v := NewVector()

	t1, err := v.FindOrCreate(4)
	require.NoError(t, err)
	t2, err := v.FindOrCreate(2)
	require.NoError(t, err)
	again, err := v.FindOrCreate(4)
	require.NoError(t, err)

	assert.Same(t, t1, again)
	assert.NotSame(t, t1, t2)
	assert.Equal(t, []NodeID{2, 4}, v.Keys())

	_, err = v.FindOrCreate(0)
	require.ErrorIs(t, err, ErrInvalidNode)
	assert.Equal(t, 2, v.Size())
}

func TestVectorLookupAndRemove(t *testing.T) {
	v := NewVector()
	term, err := v.FindOrCreate(3)
	require.NoError(t, err)

	got, ok := v.Lookup(3)
	require.True(t, ok)
	assert.Same(t, term, got)

	_, ok = v.Lookup(4)
	assert.False(t, ok)

	term.Retain()
	assert.True(t, v.Remove(3))
	assert.False(t, v.Remove(3))
	assert.Equal(t, 1, term.RefCount(), "removal releases the slot reference only")
}

func TestVectorAttachSharesTerminal(t *testing.T) {
	shared := NewTerminal()
	_, _ = shared.Add(9)

	v1, v2 := NewVector(), NewVector()
	ok, err := v1.Attach(1, shared)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = v2.Attach(1, shared)
	require.NoError(t, err)
	require.True(t, ok)
	shared.Release()

	assert.Equal(t, 2, shared.RefCount())

	ok, err = v1.Attach(1, NewTerminal())
	require.NoError(t, err)
	assert.False(t, ok)

	v1.Remove(1)
	got, ok := v2.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, []NodeID{9}, got.Nodes(), "data survives while another slot holds it")

	v2.Remove(1)
	assert.Equal(t, 0, shared.Size())
}

func TestVectorGrowthKeepsOrder(t *testing.T) {
	v := NewVector()
	for i := 20; i >= 1; i-- {
		_, err := v.FindOrCreate(NodeID(i))
		require.NoError(t, err)
	}
	keys := v.Keys()
	require.Len(t, keys, 20)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}
	assert.GreaterOrEqual(t, v.Capacity(), 20)
}
