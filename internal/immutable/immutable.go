// Package immutable provides copy-on-write helpers for slices and maps. Every
// function returns a fresh value with its own backing storage; the input is
// never modified and never aliased by the result.
package immutable

// Append returns a new slice with item added at the end.
func Append[T any](s []T, item T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, item)
}

// RemoveAt returns a new slice with the element at index removed. An
// out-of-range index returns a plain copy.
func RemoveAt[T any](s []T, index int) []T {
	if index < 0 || index >= len(s) {
		out := make([]T, len(s))
		copy(out, s)
		return out
	}
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:index]...)
	return append(out, s[index+1:]...)
}

// UpdateAt returns a new slice with the element at index replaced by
// update(element). An out-of-range index returns a plain copy.
func UpdateAt[T any](s []T, index int, update func(T) T) []T {
	out := make([]T, len(s))
	copy(out, s)
	if index >= 0 && index < len(s) {
		out[index] = update(s[index])
	}
	return out
}

// ReplaceWhere returns a new slice where every element matching pred is
// replaced by update(element).
func ReplaceWhere[T any](s []T, pred func(T) bool, update func(T) T) []T {
	out := make([]T, len(s))
	for i, v := range s {
		if pred(v) {
			out[i] = update(v)
		} else {
			out[i] = v
		}
	}
	return out
}

// MapSet returns a new map with key set to value.
func MapSet[K comparable, V any](m map[K]V, key K, value V) map[K]V {
	out := make(map[K]V, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = value
	return out
}

// MapDelete returns a new map without key.
func MapDelete[K comparable, V any](m map[K]V, key K) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

// MapUpdate returns a new map with key replaced by update(value). If key is
// absent the original map is returned unchanged.
func MapUpdate[K comparable, V any](m map[K]V, key K, update func(V) V) map[K]V {
	existing, ok := m[key]
	if !ok {
		return m
	}
	return MapSet(m, key, update(existing))
}
