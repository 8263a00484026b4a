package domain

import (
	"cmp"
	"encoding/json"
	"maps"
	"slices"
)

// Set is an unordered collection of ids. It encodes to JSON as a sorted array.
type Set[T cmp.Ordered] map[T]struct{}

// NewSet returns a set holding the given values
func NewSet[T cmp.Ordered](values ...T) Set[T] {
	s := make(Set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Add(v T) { s[v] = struct{}{} }

func (s Set[T]) Remove(v T) { delete(s, v) }

// Sorted returns the members in ascending order, never nil.
func (s Set[T]) Sorted() []T {
	out := slices.Sorted(maps.Keys(s))
	if out == nil {
		return []T{}
	}
	return out
}

// Clone returns an independent copy; a nil set clones to an empty one.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

func (s Set[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set[T]) UnmarshalJSON(data []byte) error {
	var values []T
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewSet(values...)
	return nil
}
