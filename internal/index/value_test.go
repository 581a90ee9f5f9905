package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/nearmatch/internal/fingerprint"
)

func records(pairs ...any) []fingerprint.Record {
	out := make([]fingerprint.Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, fingerprint.Record{Text: pairs[i].(string), Fingerprint: pairs[i+1].(int)})
	}
	return out
}

func TestValue_InsertIsIdempotent(t *testing.T) {
	v := NewValue()

	assert.True(t, v.Insert(7, "bad"))
	assert.False(t, v.Insert(7, "bad"))
	assert.True(t, v.Insert(7, "abd"))

	assert.Equal(t, 1, v.Len())
	assert.Equal(t, []string{"abd", "bad"}, v.TextsFor(7))
	assert.True(t, v.Contains(7, "abd"))
	assert.False(t, v.Contains(8, "abd"))
}

func TestValue_ValuesStaySorted(t *testing.T) {
	v := NewValue()
	v.Insert(8, "dd")
	v.Insert(3, "aaa")
	v.Insert(5, "e")

	assert.Equal(t, []int{3, 5, 8}, v.SnapshotValues())
	assert.Nil(t, v.TextsFor(4))
}

func TestValue_Replace(t *testing.T) {
	v := NewValue()
	v.Insert(1, "a")

	v.Replace(records("g", 7, "bad", 7, "abd", 7, "dd", 8))

	assert.Equal(t, []int{7, 8}, v.SnapshotValues())
	assert.Equal(t, []string{"abd", "bad", "g"}, v.TextsFor(7))
	assert.False(t, v.Contains(1, "a"))
}

func TestValue_FindNearest(t *testing.T) {
	tests := []struct {
		name  string
		recs  []fingerprint.Record
		query int
		want  string
	}{
		{name: "exact", recs: records("aaa", 3, "dd", 8), query: 8, want: "dd"},
		{name: "closer right", recs: records("aaa", 3, "dd", 8), query: 6, want: "dd"},
		{name: "above range", recs: records("aaa", 3, "dd", 8), query: 10, want: "dd"},
		{name: "closer left", recs: records("aaa", 3, "dd", 8), query: 5, want: "aaa"},
		{name: "below range", recs: records("aaa", 3, "dd", 8), query: 1, want: "aaa"},
		{name: "tie goes right", recs: records("aaa", 3, "dc", 7), query: 5, want: "dc"},
		{name: "smallest text of bucket", recs: records("g", 7, "bad", 7, "abd", 7), query: 7, want: "abd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewValueFrom(tt.recs).FindNearest(tt.query)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue_FindNearest_Empty(t *testing.T) {
	_, ok := NewValue().FindNearest(60)
	assert.False(t, ok)
}

func TestValue_SnapshotIsStableAcrossInsert(t *testing.T) {
	v := NewValueFrom(records("aaa", 3))
	values := v.SnapshotValues()
	bucket := v.TextsFor(3)

	v.Insert(3, "c")
	v.Insert(9, "i")

	assert.Equal(t, []int{3}, values)
	assert.Equal(t, []string{"aaa"}, bucket)
	assert.Equal(t, []string{"aaa", "c"}, v.TextsFor(3))
}

func TestValue_ConcurrentInsert(t *testing.T) {
	v := NewValue()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				v.Insert(i%10, fmt.Sprintf("t%02d", i))
				_, _ = v.FindNearest(5)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, v.Len())
	total := 0
	for _, fp := range v.SnapshotValues() {
		total += len(v.TextsFor(fp))
	}
	assert.Equal(t, 50, total)
}
