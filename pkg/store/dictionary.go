package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aleksaelezovic/hexastore/internal/encoding"
	"github.com/aleksaelezovic/hexastore/internal/storage"
	"github.com/aleksaelezovic/hexastore/pkg/hexastore"
	"github.com/aleksaelezovic/hexastore/pkg/rdf"
)

var metaNextID = []byte("next_id")

// Dictionary interns RDF terms into node ids. Ids are handed out
// sequentially from 1 and never reused.
type Dictionary struct {
	mu      sync.Mutex
	storage storage.Storage
	encoder *encoding.TermEncoder
	decoder *encoding.TermDecoder
	next    hexastore.NodeID
}

// NewDictionary opens the dictionary kept in st
func NewDictionary(st storage.Storage) (*Dictionary, error) {
	d := &Dictionary{
		storage: st,
		encoder: encoding.NewTermEncoder(),
		decoder: encoding.NewTermDecoder(),
	}
	if err := d.reload(); err != nil {
		return nil, err
	}
	return d, nil
}

// reload reads the next free id back from storage, dropping any ids handed
// out by a transaction that did not commit
func (d *Dictionary) reload() error {
	txn, err := d.storage.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Rollback()

	next := hexastore.NodeID(1)
	value, err := txn.Get(storage.TableMeta, metaNextID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read next node id: %w", err)
	default:
		next, err = encoding.DecodeNodeID(value)
		if err != nil {
			return fmt.Errorf("failed to read next node id: %w", err)
		}
	}

	d.mu.Lock()
	d.next = next
	d.mu.Unlock()
	return nil
}

// Intern returns the id of term, allocating one within txn if the term is new
func (d *Dictionary) Intern(txn storage.Transaction, term rdf.Term) (hexastore.NodeID, error) {
	key, canonical, err := d.encoder.EncodeTerm(term)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id, found, err := d.lookupKey(txn, key)
	if err != nil || found {
		return id, err
	}

	id = d.next
	idKey := encoding.EncodeNodeID(id)
	if err := txn.Set(storage.TableTerm2ID, key[:], idKey); err != nil {
		return 0, err
	}
	value := make([]byte, 0, 1+len(canonical))
	value = append(value, key[0])
	value = append(value, canonical...)
	if err := txn.Set(storage.TableID2Term, idKey, value); err != nil {
		return 0, err
	}
	if err := txn.Set(storage.TableMeta, metaNextID, encoding.EncodeNodeID(id+1)); err != nil {
		return 0, err
	}
	d.next = id + 1
	return id, nil
}

// Lookup returns the id of term without allocating one
func (d *Dictionary) Lookup(txn storage.Transaction, term rdf.Term) (hexastore.NodeID, bool, error) {
	key, _, err := d.encoder.EncodeTerm(term)
	if err != nil {
		return 0, false, err
	}
	return d.lookupKey(txn, key)
}

func (d *Dictionary) lookupKey(txn storage.Transaction, key encoding.TermKey) (hexastore.NodeID, bool, error) {
	value, err := txn.Get(storage.TableTerm2ID, key[:])
	if errors.Is(err, storage.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := encoding.DecodeNodeID(value)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Term returns the term interned under id
func (d *Dictionary) Term(txn storage.Transaction, id hexastore.NodeID) (rdf.Term, error) {
	value, err := txn.Get(storage.TableID2Term, encoding.EncodeNodeID(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	if err != nil {
		return nil, err
	}
	if len(value) < 2 {
		return nil, fmt.Errorf("node %d: malformed dictionary entry", id)
	}
	var key encoding.TermKey
	key[0] = value[0]
	return d.decoder.DecodeTerm(key, string(value[1:]))
}

// Count returns the number of interned terms
func (d *Dictionary) Count() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(d.next - 1)
}

// Verify scans both dictionary tables and checks that they are inverse
// mappings covering exactly the ids handed out so far
func (d *Dictionary) Verify(txn storage.Transaction) error {
	d.mu.Lock()
	next := d.next
	d.mu.Unlock()

	it, err := txn.Scan(storage.TableID2Term, nil)
	if err != nil {
		return err
	}
	defer it.Close()

	var terms uint64
	for it.Next() {
		id, err := encoding.DecodeNodeID(it.Key())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptDictionary, err)
		}
		if id == 0 || id >= next {
			return fmt.Errorf("%w: node %d outside allocated range [1, %d)", ErrCorruptDictionary, id, next)
		}
		value, err := it.Value()
		if err != nil {
			return err
		}
		if len(value) < 2 {
			return fmt.Errorf("%w: node %d: malformed entry", ErrCorruptDictionary, id)
		}
		var stored encoding.TermKey
		stored[0] = value[0]
		term, err := d.decoder.DecodeTerm(stored, string(value[1:]))
		if err != nil {
			return fmt.Errorf("%w: node %d: %v", ErrCorruptDictionary, id, err)
		}
		key, _, err := d.encoder.EncodeTerm(term)
		if err != nil {
			return fmt.Errorf("%w: node %d: %v", ErrCorruptDictionary, id, err)
		}
		if encoding.GetTermType(key) != encoding.GetTermType(stored) {
			return fmt.Errorf("%w: node %d stored as %s, encodes as %s",
				ErrCorruptDictionary, id, encoding.GetTermType(stored), encoding.GetTermType(key))
		}
		mapped, found, err := d.lookupKey(txn, key)
		if err != nil {
			return err
		}
		if !found || mapped != id {
			return fmt.Errorf("%w: term %s of node %d maps back to node %d", ErrCorruptDictionary, term, id, mapped)
		}
		terms++
	}

	keys, err := txn.Scan(storage.TableTerm2ID, nil)
	if err != nil {
		return err
	}
	defer keys.Close()
	var reverse uint64
	for keys.Next() {
		reverse++
	}
	if reverse != terms {
		return fmt.Errorf("%w: %d terms map to ids, %d ids map to terms", ErrCorruptDictionary, reverse, terms)
	}
	if terms != uint64(next-1) {
		return fmt.Errorf("%w: %d terms stored, %d ids allocated", ErrCorruptDictionary, terms, next-1)
	}
	return nil
}
