package index

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
	"github.com/Aman-CERP/nearmatch/internal/match"
)

// valueState is one immutable version of a Value index.
// Bucket slices are sorted and never modified after publication.
type valueState struct {
	values  []int
	buckets map[int][]string
}

// Value indexes texts by fingerprint.
// It keeps the distinct fingerprints in ascending order and, for each
// fingerprint, the sorted bucket of texts sharing it.
type Value struct {
	mu    sync.Mutex
	state atomic.Pointer[valueState]
}

// NewValue creates an empty value index.
func NewValue() *Value {
	v := &Value{}
	v.state.Store(&valueState{values: []int{}, buckets: map[int][]string{}})
	return v
}

// NewValueFrom builds an index from records in any order.
func NewValueFrom(records []fingerprint.Record) *Value {
	v := &Value{}
	v.state.Store(buildValueState(records))
	return v
}

func buildValueState(records []fingerprint.Record) *valueState {
	buckets := make(map[int][]string)
	for _, r := range records {
		buckets[r.Fingerprint] = append(buckets[r.Fingerprint], r.Text)
	}
	values := make([]int, 0, len(buckets))
	for fp, texts := range buckets {
		buckets[fp] = sortedUnique(texts)
		values = append(values, fp)
	}
	slices.Sort(values)
	return &valueState{values: values, buckets: buckets}
}

// Insert adds text under fp and reports whether the pair was absent.
func (v *Value) Insert(fp int, text string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	cur := v.state.Load()
	bucket := cur.buckets[fp]
	pos, found := slices.BinarySearch(bucket, text)
	if found {
		return false
	}

	next := &valueState{
		values:  cur.values,
		buckets: maps.Clone(cur.buckets),
	}
	if bucket == nil {
		vpos, _ := slices.BinarySearch(cur.values, fp)
		next.values = slices.Insert(slices.Clone(cur.values), vpos, fp)
	}
	grown := make([]string, 0, len(bucket)+1)
	grown = append(grown, bucket[:pos]...)
	grown = append(grown, text)
	grown = append(grown, bucket[pos:]...)
	next.buckets[fp] = grown

	v.state.Store(next)
	return true
}

// Replace swaps the whole content for records.
func (v *Value) Replace(records []fingerprint.Record) {
	st := buildValueState(records)
	v.mu.Lock()
	v.state.Store(st)
	v.mu.Unlock()
}

// Contains reports whether text is indexed under fp.
func (v *Value) Contains(fp int, text string) bool {
	_, found := slices.BinarySearch(v.state.Load().buckets[fp], text)
	return found
}

// SnapshotValues returns the distinct fingerprints in ascending order.
func (v *Value) SnapshotValues() []int {
	return slices.Clone(v.state.Load().values)
}

// TextsFor returns the sorted texts sharing fp, or nil.
func (v *Value) TextsFor(fp int) []string {
	return slices.Clone(v.state.Load().buckets[fp])
}

// Len returns the number of distinct fingerprints.
func (v *Value) Len() int {
	return len(v.state.Load().values)
}

// FindNearest returns the lexicographically smallest text of the bucket whose
// fingerprint is numerically closest to fp. It reports false when empty.
func (v *Value) FindNearest(fp int) (string, bool) {
	st := v.state.Load()
	nearest, ok := match.NearestValue(st.values, fp)
	if !ok {
		return "", false
	}
	bucket := st.buckets[nearest]
	if len(bucket) == 0 {
		return "", false
	}
	return bucket[0], true
}
