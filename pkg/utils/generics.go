package utils

import (
	"cmp"
	"slices"
)

func Pointer[T any](t T) *T {
	return &t
}

func MapKeys[K comparable, V any](m map[K]V) []K {
	r := make([]K, 0, len(m))
	for k := range m {
		r = append(r, k)
	}
	return r
}

func MapElements[K comparable, V any](m map[K]V) []V {
	r := make([]V, 0, len(m))
	for _, v := range m {
		r = append(r, v)
	}
	return r
}

// OrderedMapKeys returns the sorted keys of a map.
func OrderedMapKeys[K cmp.Ordered, V any](m map[K]V) []K {
	r := MapKeys(m)
	slices.Sort(r)
	return r
}

func TransformSlice[E any, A ~[]E, T any](in A, m func(E) T) []T {
	r := make([]T, len(in))
	for i, v := range in {
		r[i] = m(v)
	}
	return r
}

func TransformMap[K comparable, V any, M ~map[K]V, TK comparable, TV any](in M, m func(K, V) (TK, TV)) map[TK]TV {
	r := make(map[TK]TV, len(in))
	for k, v := range in {
		tk, tv := m(k, v)
		r[tk] = tv
	}
	return r
}
