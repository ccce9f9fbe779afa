// Package indexed implements the dense-list-plus-index set the registry
// tables are built on: an append-only position assignment with O(1)
// membership checks and O(1) swap-with-last removal.
//
// The structural invariant, maintained across every mutation:
//
//	for every present key k: keys[index[k]] == k
//
// Removal intentionally does not preserve insertion order; the last key is
// moved into the vacated slot so the list stays dense.
package indexed

import (
	"onsd/pkg/platform/sentinel"
)

// Set is a dense ordered collection of unique keys with a key→position
// index. The zero value is not usable; construct with New. Set is not safe
// for concurrent use; owners serialize access (see store/memory).
type Set[K comparable] struct {
	keys  []K
	index map[K]int
}

func New[K comparable]() *Set[K] {
	return &Set[K]{index: make(map[K]int)}
}

// Len returns the number of live entries.
func (s *Set[K]) Len() int {
	return len(s.keys)
}

// Contains reports whether k is present. The list/index cross-check makes a
// stale index entry harmless: an index position is only trusted when the
// dense list actually holds k there.
func (s *Set[K]) Contains(k K) bool {
	pos, ok := s.index[k]
	return ok && pos < len(s.keys) && s.keys[pos] == k
}

// Append inserts k at the end of the list and records its position.
// Returns the assigned position, or sentinel.ErrDuplicateKey if k is
// already present.
func (s *Set[K]) Append(k K) (int, error) {
	if s.Contains(k) {
		return 0, sentinel.ErrDuplicateKey
	}
	pos := len(s.keys)
	s.keys = append(s.keys, k)
	s.index[k] = pos
	return pos, nil
}

// Remove deletes k in O(1) by moving the last key into its slot and
// shrinking the list. The moved key's index entry is updated before the
// shrink, so the cross-invariant holds for every remaining key, including
// the degenerate case where k itself is the last element and the move is a
// self-assignment.
func (s *Set[K]) Remove(k K) error {
	if !s.Contains(k) {
		return sentinel.ErrNotFound
	}
	pos := s.index[k]
	last := len(s.keys) - 1

	moved := s.keys[last]
	s.keys[pos] = moved
	s.index[moved] = pos

	// When k was the last element, moved == k and this delete must win over
	// the index update above, which it does because it runs second.
	delete(s.index, k)
	s.keys = s.keys[:last]
	return nil
}

// At returns the key stored at position row, or sentinel.ErrOutOfRange when
// row is outside the dense list.
func (s *Set[K]) At(row int) (K, error) {
	var zero K
	if row < 0 || row >= len(s.keys) {
		return zero, sentinel.ErrOutOfRange
	}
	return s.keys[row], nil
}

// Keys returns a copy of the dense list. Order is the physical order, which
// swap-removal does not preserve; callers must not assign meaning to it.
func (s *Set[K]) Keys() []K {
	out := make([]K, len(s.keys))
	copy(out, s.keys)
	return out
}
