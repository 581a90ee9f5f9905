package match

import (
	"cmp"
	"strings"
)

// Lexical compares texts by their position-wise character distance.
//
// The distance between two texts is the sequence of absolute byte
// differences over their common length. Sequences are compared position by
// position; the first differing position decides and the smaller value wins.
// When every shared position is equal, including when nothing is shared,
// the right neighbour wins.
var Lexical = Comparator[string, []int]{
	Distance: CharDistance,
	Compare:  compareDistances,
	Tie:      Right,
}

// Value compares fingerprints by absolute difference. Ties go right.
var Value = Comparator[int, int]{
	Distance: func(query, candidate int) int { return abs(candidate - query) },
	Compare:  cmp.Compare[int],
	Tie:      Right,
}

// NearestText returns the entry of the ascending text snapshot closest to query.
func NearestText(sorted []string, query string) (string, bool) {
	return Nearest(sorted, query, strings.Compare, Lexical)
}

// NearestValue returns the entry of the ascending value snapshot closest to query.
func NearestValue(sorted []int, query int) (int, bool) {
	return Nearest(sorted, query, cmp.Compare[int], Value)
}

// CharDistance returns |a[i]-b[i]| for every i below min(len(a), len(b)).
func CharDistance(a, b string) []int {
	n := min(len(a), len(b))
	d := make([]int, n)
	for i := 0; i < n; i++ {
		d[i] = abs(int(a[i]) - int(b[i]))
	}
	return d
}

// compareDistances only looks at the positions both sequences share.
func compareDistances(a, b []int) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return cmp.Compare(a[i], b[i])
		}
	}
	return 0
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
