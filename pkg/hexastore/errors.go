package hexastore

import "errors"

var (
	// ErrInvalidNode is returned when the reserved node id 0 is used as a key
	ErrInvalidNode = errors.New("hexastore: node id cannot be zero")

	// ErrNotFound is returned when a lookup or removal finds no matching entry
	ErrNotFound = errors.New("hexastore: not found")

	// ErrCorruptFormat is returned when serialized data has a bad cookie or is truncated
	ErrCorruptFormat = errors.New("hexastore: corrupt format")

	// ErrExhaustedIterator is returned when reading the current value of a finished iterator
	ErrExhaustedIterator = errors.New("hexastore: iterator has no current value")

	// ErrInvalidPattern is returned when an iterator is requested with more than two bound components
	ErrInvalidPattern = errors.New("hexastore: invalid bound prefix")
)
