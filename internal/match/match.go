// Package match implements nearest-neighbour selection over sorted snapshots.
//
// Every lookup follows the same shape: binary-search the query, return an
// exact hit directly, otherwise compare the two neighbours around the
// insertion point with a Comparator. The comparator supplies the distance
// function, the ordering of distances and the side that wins a tie.
package match

import (
	"slices"
)

// Side identifies one of the two neighbours around an insertion point.
type Side int

const (
	// Left is the element just before the insertion point.
	Left Side = iota
	// Right is the element at the insertion point.
	Right
)

// Comparator decides which of two neighbours is closer to a query.
type Comparator[T, D any] struct {
	// Distance measures how far candidate is from query.
	Distance func(query, candidate T) D
	// Compare orders two distances: negative when a is closer than b.
	Compare func(a, b D) int
	// Tie is the side returned when the distances compare equal.
	Tie Side
}

// Pick returns the side whose candidate is closer to query.
func (c Comparator[T, D]) Pick(query, left, right T) Side {
	switch r := c.Compare(c.Distance(query, left), c.Distance(query, right)); {
	case r < 0:
		return Left
	case r > 0:
		return Right
	default:
		return c.Tie
	}
}

// Nearest returns the element of sorted closest to query.
// sorted must be ascending under cmp and free of duplicates.
// It reports false only when sorted is empty.
func Nearest[T, D any](sorted []T, query T, cmp func(a, b T) int, c Comparator[T, D]) (T, bool) {
	var zero T
	switch len(sorted) {
	case 0:
		return zero, false
	case 1:
		return sorted[0], true
	}

	ip, found := slices.BinarySearchFunc(sorted, query, cmp)
	if found {
		return sorted[ip], true
	}

	left := sorted[max(ip-1, 0)]
	right := sorted[min(ip, len(sorted)-1)]
	if c.Pick(query, left, right) == Left {
		return left, true
	}
	return right, true
}
