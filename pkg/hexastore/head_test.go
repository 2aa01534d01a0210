package hexastore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExampleHead(t *testing.T) (*Head, []triple) {
	t.Helper()
	h := NewHead()
	triples := []triple{
		{1, 2, 3}, {1, 2, 4}, {1, 5, 3}, {2, 2, 2},
		{3, 5, 1}, {4, 2, 3}, {4, 6, 4}, {1, 6, 1},
	}
	for _, tr := range triples {
		added, err := h.AddTriple(tr[0], tr[1], tr[2])
		require.NoError(t, err)
		require.True(t, added)
	}
	return h, triples
}

func matchAll(t *testing.T, ti *TripleIterator) []triple {
	t.Helper()
	var out []triple
	for ; !ti.Finished(); ti.Next() {
		s, p, o, err := ti.Current()
		require.NoError(t, err)
		out = append(out, triple{s, p, o})
	}
	return out
}

func filter(triples []triple, s, p, o NodeID) map[triple]bool {
	out := make(map[triple]bool)
	for _, tr := range triples {
		if (s == 0 || tr[0] == s) && (p == 0 || tr[1] == p) && (o == 0 || tr[2] == o) {
			out[tr] = true
		}
	}
	return out
}

func TestHeadMatchAllPatterns(t *testing.T) {
	h, triples := newExampleHead(t)

	patterns := []triple{
		{0, 0, 0}, {1, 0, 0}, {0, 2, 0}, {0, 0, 3},
		{1, 2, 0}, {1, 0, 3}, {0, 2, 3}, {1, 2, 3},
		{1, 2, 9}, {9, 0, 0}, {0, 9, 3},
	}
	for _, pat := range patterns {
		ti := h.Match(pat[0], pat[1], pat[2])
		got := matchAll(t, ti)
		want := filter(triples, pat[0], pat[1], pat[2])

		seen := make(map[triple]bool)
		for _, tr := range got {
			assert.False(t, seen[tr], "pattern %v yielded %v twice", pat, tr)
			seen[tr] = true
		}
		assert.Equal(t, want, seen, "pattern %v via %s", pat, ti.Order())
	}
}

func TestHeadMatchOrdersUnboundSuffix(t *testing.T) {
	h, _ := newExampleHead(t)

	got := matchAll(t, h.Match(0, 0, 3))
	assert.Equal(t, []triple{{1, 2, 3}, {1, 5, 3}, {4, 2, 3}}, got)

	got = matchAll(t, h.Match(0, 2, 0))
	assert.Equal(t, []triple{{1, 2, 3}, {1, 2, 4}, {2, 2, 2}, {4, 2, 3}}, got)
}

func TestSelectOrder(t *testing.T) {
	cases := []struct {
		pattern triple
		order   Order
		bound   int
	}{
		{triple{0, 0, 0}, OrderSPO, 0},
		{triple{1, 0, 0}, OrderSPO, 1},
		{triple{0, 1, 0}, OrderPSO, 1},
		{triple{0, 0, 1}, OrderOSP, 1},
		{triple{1, 1, 0}, OrderSPO, 2},
		{triple{1, 0, 1}, OrderSOP, 2},
		{triple{0, 1, 1}, OrderPOS, 2},
		{triple{1, 1, 1}, OrderSPO, 3},
	}
	for _, tc := range cases {
		order, bound := SelectOrder(tc.pattern[0], tc.pattern[1], tc.pattern[2])
		assert.Equal(t, tc.order, order, "pattern %v", tc.pattern)
		assert.Equal(t, tc.bound, bound, "pattern %v", tc.pattern)
	}
}

func TestOrderPermuteRoundTrip(t *testing.T) {
	for o := OrderSPO; o < OrderCount; o++ {
		a, b, c := o.Permute(1, 2, 3)
		s, p, obj := o.Unpermute(a, b, c)
		assert.Equal(t, triple{1, 2, 3}, triple{s, p, obj}, "ordering %s", o)
	}
	a, b, c := OrderPOS.Permute(1, 2, 3)
	assert.Equal(t, triple{2, 3, 1}, triple{a, b, c})
}

func TestHeadAddRemove(t *testing.T) {
	h, _ := newExampleHead(t)
	assert.Equal(t, uint64(8), h.TripleCount())

	added, err := h.AddTriple(1, 2, 3)
	require.NoError(t, err)
	assert.False(t, added)

	_, err = h.AddTriple(1, 0, 3)
	require.ErrorIs(t, err, ErrInvalidNode)
	assert.Equal(t, uint64(8), h.TripleCount())

	assert.True(t, h.RemoveTriple(1, 2, 3))
	assert.False(t, h.RemoveTriple(1, 2, 3))
	assert.False(t, h.ContainsTriple(1, 2, 3))
	assert.Equal(t, uint64(7), h.TripleCount())
	for o := OrderSPO; o < OrderCount; o++ {
		assert.Equal(t, uint64(7), h.Index(o).TripleCount(), "ordering %s", o)
	}
}

func TestHeadRoundTrip(t *testing.T) {
	h, triples := newExampleHead(t)

	var buf bytes.Buffer
	_, err := h.WriteTo(&buf)
	require.NoError(t, err)

	got, err := ReadHead(&buf, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(triples)), got.TripleCount())
	for o := OrderSPO; o < OrderCount; o++ {
		assert.Equal(t, collect(t, NewIterator(h.Index(o))), collect(t, NewIterator(got.Index(o))), "ordering %s", o)
	}
}

func TestReadHeadRejectsMismatchedOrderings(t *testing.T) {
	h, _ := newExampleHead(t)
	h.Index(OrderOPS).RemoveTriple(3, 2, 1)

	var buf bytes.Buffer
	_, err := h.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadHead(&buf, false)
	require.ErrorIs(t, err, ErrCorruptFormat)
}

func TestHeadVerify(t *testing.T) {
	h, _ := newExampleHead(t)
	require.NoError(t, h.Verify())
	require.NoError(t, NewHead().Verify())

	// break one ordering behind the Head's back
	require.True(t, h.Index(OrderOPS).RemoveTriple(3, 2, 1))
	assert.ErrorIs(t, h.Verify(), ErrCorruptFormat)

	_, err := h.Index(OrderOPS).AddTriple(9, 9, 9)
	require.NoError(t, err)
	err = h.Verify()
	assert.ErrorIs(t, err, ErrCorruptFormat)
	assert.ErrorContains(t, err, "missing (1, 2, 3)")
}
