// Package hexastore implements one ordering of a hexastore triple index as a
// three-level trie of sorted arrays (Index, Vector, Terminal), the pattern
// iterator that walks it, its binary record encoding, and a Head that keeps
// all six orderings of a triple set in step.
//
// The structures are not safe for concurrent mutation. Any number of
// iterators may read concurrently while no writer is active.
package hexastore
