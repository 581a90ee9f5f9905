package index

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Aman-CERP/nearmatch/internal/match"
)

// Lexical is a sorted, duplicate-free set of texts.
type Lexical struct {
	mu    sync.Mutex
	texts atomic.Pointer[[]string]
}

// NewLexical creates an empty lexical index.
func NewLexical() *Lexical {
	l := &Lexical{}
	empty := []string{}
	l.texts.Store(&empty)
	return l
}

// NewLexicalFrom builds an index from texts in any order.
// Duplicates are collapsed.
func NewLexicalFrom(texts []string) *Lexical {
	l := &Lexical{}
	sorted := sortedUnique(texts)
	l.texts.Store(&sorted)
	return l
}

func (l *Lexical) load() []string {
	return *l.texts.Load()
}

// Contains reports whether text is indexed.
func (l *Lexical) Contains(text string) bool {
	_, found := slices.BinarySearch(l.load(), text)
	return found
}

// Insert adds text and reports whether it was absent.
func (l *Lexical) Insert(text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.load()
	pos, found := slices.BinarySearch(cur, text)
	if found {
		return false
	}
	next := make([]string, 0, len(cur)+1)
	next = append(next, cur[:pos]...)
	next = append(next, text)
	next = append(next, cur[pos:]...)
	l.texts.Store(&next)
	return true
}

// Replace swaps the whole content for texts.
func (l *Lexical) Replace(texts []string) {
	sorted := sortedUnique(texts)
	l.mu.Lock()
	l.texts.Store(&sorted)
	l.mu.Unlock()
}

// Snapshot returns a copy of the indexed texts in ascending order.
func (l *Lexical) Snapshot() []string {
	return slices.Clone(l.load())
}

// Len returns the number of indexed texts.
func (l *Lexical) Len() int {
	return len(l.load())
}

// FindNearest returns the indexed text lexically closest to query.
// It reports false when the index is empty.
func (l *Lexical) FindNearest(query string) (string, bool) {
	return match.NearestText(l.load(), query)
}

func sortedUnique(texts []string) []string {
	out := slices.Clone(texts)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
