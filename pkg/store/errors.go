package store

import "errors"

var (
	// ErrUnknownNode is returned when a node id has no dictionary entry
	ErrUnknownNode = errors.New("unknown node id")

	// ErrClosed is returned by operations on a closed store
	ErrClosed = errors.New("store is closed")

	// ErrIteratorClosed is returned by Triple after Close
	ErrIteratorClosed = errors.New("iterator closed")

	// ErrCorruptDictionary is returned by Verify when the dictionary tables
	// disagree with each other or with the index
	ErrCorruptDictionary = errors.New("corrupt term dictionary")
)
