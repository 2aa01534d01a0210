package hexastore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Kind cookies written ahead of each serialized level
const (
	CookieTerminal byte = 'T'
	CookieVector   byte = 'V'
	CookieIndex    byte = 'I'
	CookieHead     byte = 'H'
)

const (
	nodeIDSize = 8
	countSize  = 8

	// readChunk bounds how many node ids are decoded per read so a corrupt
	// count cannot force a huge allocation before the payload is seen.
	readChunk = 1 << 16
)

// slack returns the capacity to allocate for count entries. Structures that
// keep growing after load get half as much room again.
func slack(count int, buffer bool) int {
	if !buffer {
		return count
	}
	return count + count/2
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptFormat, fmt.Sprintf(format, args...))
}

// encoder writes the fixed-width record format and remembers the first error.
type encoder struct {
	w   io.Writer
	n   int64
	err error
	buf [countSize]byte
}

func (e *encoder) write(p []byte) {
	if e.err != nil {
		return
	}
	n, err := e.w.Write(p)
	e.n += int64(n)
	if err != nil {
		e.err = fmt.Errorf("hexastore: write: %w", err)
	}
}

func (e *encoder) cookie(c byte) {
	e.buf[0] = c
	e.write(e.buf[:1])
}

func (e *encoder) uint64(v uint64) {
	binary.LittleEndian.PutUint64(e.buf[:], v)
	e.write(e.buf[:])
}

func (e *encoder) nodes(ns []NodeID) {
	if len(ns) == 0 {
		return
	}
	p := make([]byte, 0, min(len(ns), readChunk)*nodeIDSize)
	for i, n := range ns {
		p = binary.LittleEndian.AppendUint64(p, uint64(n))
		if len(p) == cap(p) || i == len(ns)-1 {
			e.write(p)
			p = p[:0]
		}
	}
}

// decoder reads the fixed-width record format. Short reads are reported as
// ErrCorruptFormat; other reader failures are passed through.
type decoder struct {
	r   io.Reader
	buf [countSize]byte
}

func (d *decoder) full(p []byte, what string) error {
	if _, err := io.ReadFull(d.r, p); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return corruptf("short read of %s", what)
		}
		return fmt.Errorf("hexastore: read %s: %w", what, err)
	}
	return nil
}

func (d *decoder) cookie(want byte) error {
	if err := d.full(d.buf[:1], "cookie"); err != nil {
		return err
	}
	if d.buf[0] != want {
		return corruptf("bad header cookie %q, expected %q", d.buf[0], want)
	}
	return nil
}

func (d *decoder) count(what string) (int, error) {
	v, err := d.uint64(what + " count")
	if err != nil {
		return 0, err
	}
	if v > uint64(maxInt) {
		return 0, corruptf("%s count %d out of range", what, v)
	}
	return int(v), nil
}

func (d *decoder) uint64(what string) (uint64, error) {
	if err := d.full(d.buf[:], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(d.buf[:]), nil
}

// key reads one node id and checks it sorts strictly after prev.
func (d *decoder) key(prev NodeID, what string) (NodeID, error) {
	v, err := d.uint64(what)
	if err != nil {
		return 0, err
	}
	n := NodeID(v)
	if n == 0 {
		return 0, corruptf("reserved node id in %s", what)
	}
	if n <= prev {
		return 0, corruptf("%s %d out of order after %d", what, n, prev)
	}
	return n, nil
}

const maxInt = int(^uint(0) >> 1)

// WriteTo serializes the Terminal: cookie 'T', count, then the node ids.
func (t *Terminal) WriteTo(w io.Writer) (int64, error) {
	e := &encoder{w: w}
	t.encode(e)
	return e.n, e.err
}

func (t *Terminal) encode(e *encoder) {
	e.cookie(CookieTerminal)
	e.uint64(uint64(len(t.nodes)))
	e.nodes(t.nodes)
}

// ReadTerminal decodes a Terminal written by WriteTo. When buffer is set the
// Terminal is over-provisioned for further growth.
func ReadTerminal(r io.Reader, buffer bool) (*Terminal, error) {
	return decodeTerminal(&decoder{r: r}, buffer)
}

func decodeTerminal(d *decoder, buffer bool) (*Terminal, error) {
	if err := d.cookie(CookieTerminal); err != nil {
		return nil, err
	}
	count, err := d.count("terminal")
	if err != nil {
		return nil, err
	}
	t := newTerminalWithCapacity(slack(min(count, readChunk), buffer))
	chunk := make([]byte, min(count, readChunk)*nodeIDSize)
	var prev NodeID
	for remaining := count; remaining > 0; {
		k := min(remaining, readChunk)
		p := chunk[:k*nodeIDSize]
		if err := d.full(p, "terminal payload"); err != nil {
			return nil, err
		}
		for i := 0; i < k; i++ {
			n := NodeID(binary.LittleEndian.Uint64(p[i*nodeIDSize:]))
			if n == 0 {
				return nil, corruptf("reserved node id in terminal payload")
			}
			if n <= prev {
				return nil, corruptf("terminal payload %d out of order after %d", n, prev)
			}
			t.nodes = append(t.nodes, n)
			prev = n
		}
		remaining -= k
	}
	if want := slack(count, buffer); cap(t.nodes) < want {
		grown := make([]NodeID, len(t.nodes), want)
		copy(grown, t.nodes)
		t.nodes = grown
	}
	return t, nil
}

// WriteTo serializes the Vector: cookie 'V', count, then each key followed by
// its Terminal.
func (v *Vector) WriteTo(w io.Writer) (int64, error) {
	e := &encoder{w: w}
	v.encode(e)
	return e.n, e.err
}

func (v *Vector) encode(e *encoder) {
	e.cookie(CookieVector)
	e.uint64(uint64(len(v.entries)))
	for _, ent := range v.entries {
		e.uint64(uint64(ent.key))
		ent.child.encode(e)
		if e.err != nil {
			return
		}
	}
}

// ReadVector decodes a Vector written by WriteTo
func ReadVector(r io.Reader, buffer bool) (*Vector, error) {
	return decodeVector(&decoder{r: r}, buffer)
}

func decodeVector(d *decoder, buffer bool) (*Vector, error) {
	if err := d.cookie(CookieVector); err != nil {
		return nil, err
	}
	count, err := d.count("vector")
	if err != nil {
		return nil, err
	}
	v := &Vector{level: newLevel[*Terminal](slack(min(count, readChunk), buffer))}
	var prev NodeID
	for i := 0; i < count; i++ {
		key, err := d.key(prev, "vector key")
		if err != nil {
			return nil, err
		}
		t, err := decodeTerminal(d, buffer)
		if err != nil {
			return nil, err
		}
		v.entries = append(v.entries, entry[*Terminal]{key: key, child: t})
		prev = key
	}
	return v, nil
}

// WriteTo serializes the Index: cookie 'I', count, then each key followed by
// its Vector.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	e := &encoder{w: w}
	ix.encode(e)
	return e.n, e.err
}

func (ix *Index) encode(e *encoder) {
	e.cookie(CookieIndex)
	e.uint64(uint64(len(ix.entries)))
	for _, ent := range ix.entries {
		e.uint64(uint64(ent.key))
		ent.child.encode(e)
		if e.err != nil {
			return
		}
	}
}

// ReadIndex decodes an Index written by WriteTo. A failed read never returns
// a partially built Index.
func ReadIndex(r io.Reader, buffer bool) (*Index, error) {
	return decodeIndex(&decoder{r: r}, buffer)
}

func decodeIndex(d *decoder, buffer bool) (*Index, error) {
	if err := d.cookie(CookieIndex); err != nil {
		return nil, err
	}
	count, err := d.count("index")
	if err != nil {
		return nil, err
	}
	ix := &Index{level: newLevel[*Vector](max(slack(min(count, readChunk), buffer), IndexInitialCapacity))}
	var prev NodeID
	for i := 0; i < count; i++ {
		key, err := d.key(prev, "index key")
		if err != nil {
			return nil, err
		}
		v, err := decodeVector(d, buffer)
		if err != nil {
			return nil, err
		}
		ix.entries = append(ix.entries, entry[*Vector]{key: key, child: v})
		prev = key
	}
	return ix, nil
}
