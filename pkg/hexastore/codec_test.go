package hexastore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalWireFormat(t *testing.T) {
	term := NewTerminal()
	_, _ = term.Add(2)
	_, _ = term.Add(1)

	var buf bytes.Buffer
	n, err := term.WriteTo(&buf)
	require.NoError(t, err)

	want := []byte{'T'}
	want = binary.LittleEndian.AppendUint64(want, 2)
	want = binary.LittleEndian.AppendUint64(want, 1)
	want = binary.LittleEndian.AppendUint64(want, 2)
	assert.Equal(t, want, buf.Bytes())
	assert.Equal(t, int64(len(want)), n)
}

func TestTerminalReadSlack(t *testing.T) {
	term := NewTerminal()
	for i := 1; i <= 10; i++ {
		_, _ = term.Add(NodeID(i))
	}
	var buf bytes.Buffer
	_, err := term.WriteTo(&buf)
	require.NoError(t, err)

	exact, err := ReadTerminal(bytes.NewReader(buf.Bytes()), false)
	require.NoError(t, err)
	assert.Equal(t, 10, exact.Capacity())
	assert.Equal(t, term.Nodes(), exact.Nodes())
	assert.Equal(t, 1, exact.RefCount())

	buffered, err := ReadTerminal(bytes.NewReader(buf.Bytes()), true)
	require.NoError(t, err)
	assert.Equal(t, 15, buffered.Capacity())
	assert.Equal(t, term.Nodes(), buffered.Nodes())
}

func TestIndexRoundTrip(t *testing.T) {
	ix := newExampleIndex(t)

	var buf bytes.Buffer
	_, err := ix.WriteTo(&buf)
	require.NoError(t, err)

	for _, buffer := range []bool{false, true} {
		got, err := ReadIndex(bytes.NewReader(buf.Bytes()), buffer)
		require.NoError(t, err)
		assert.Equal(t, collect(t, NewIterator(ix)), collect(t, NewIterator(got)))

		added, err := got.AddTriple(1, 2, 5)
		require.NoError(t, err)
		assert.True(t, added, "decoded index accepts further growth")
	}
}

func TestEmptyIndexRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	_, err := NewIndex().WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, 1+countSize, buf.Len())

	got, err := ReadIndex(&buf, false)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Size())
	assert.True(t, NewIterator(got).Finished())
}

func TestReadRejectsBadCookie(t *testing.T) {
	term := NewTerminal()
	var buf bytes.Buffer
	_, err := term.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadVector(bytes.NewReader(buf.Bytes()), false)
	require.ErrorIs(t, err, ErrCorruptFormat)

	_, err = ReadIndex(bytes.NewReader([]byte("X")), false)
	require.ErrorIs(t, err, ErrCorruptFormat)
}

func TestReadRejectsShortPayload(t *testing.T) {
	ix := newExampleIndex(t)
	var buf bytes.Buffer
	_, err := ix.WriteTo(&buf)
	require.NoError(t, err)
	data := buf.Bytes()

	for _, cut := range []int{0, 1, 5, 9, 17, len(data) - 1} {
		got, err := ReadIndex(bytes.NewReader(data[:cut]), false)
		require.ErrorIs(t, err, ErrCorruptFormat, "cut at %d", cut)
		assert.Nil(t, got)
	}
}

func TestReadRejectsUnsortedPayload(t *testing.T) {
	data := []byte{'T'}
	data = binary.LittleEndian.AppendUint64(data, 2)
	data = binary.LittleEndian.AppendUint64(data, 5)
	data = binary.LittleEndian.AppendUint64(data, 3)
	_, err := ReadTerminal(bytes.NewReader(data), false)
	require.ErrorIs(t, err, ErrCorruptFormat)

	data = []byte{'T'}
	data = binary.LittleEndian.AppendUint64(data, 1)
	data = binary.LittleEndian.AppendUint64(data, 0)
	_, err = ReadTerminal(bytes.NewReader(data), false)
	require.ErrorIs(t, err, ErrCorruptFormat)

	data = []byte{'V'}
	data = binary.LittleEndian.AppendUint64(data, 2)
	for _, key := range []uint64{4, 4} {
		data = binary.LittleEndian.AppendUint64(data, key)
		data = append(data, 'T')
		data = binary.LittleEndian.AppendUint64(data, 0)
	}
	_, err = ReadVector(bytes.NewReader(data), false)
	require.ErrorIs(t, err, ErrCorruptFormat)
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	w.after--
	return len(p), nil
}

func TestWriteSurfacesErrors(t *testing.T) {
	ix := newExampleIndex(t)
	_, err := ix.WriteTo(&failingWriter{after: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("io failure") }

func TestReadSurfacesIOErrors(t *testing.T) {
	_, err := ReadIndex(failingReader{}, false)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCorruptFormat)
}
