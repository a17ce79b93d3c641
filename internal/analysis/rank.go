package analysis

import "sort"

// RankDescending returns a copy of items sorted by score, highest first.
// Equal scores keep their input order.
func RankDescending[T any](items []T, score func(T) float64) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return score(out[i]) > score(out[j])
	})
	return out
}

// RankAscending returns a copy of items sorted by score, lowest first.
// Equal scores keep their input order.
func RankAscending[T any](items []T, score func(T) float64) []T {
	out := append([]T(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		return score(out[i]) < score(out[j])
	})
	return out
}
