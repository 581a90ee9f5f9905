package output

import (
	"strconv"
)

// Match is what the analyze command prints for one query.
type Match struct {
	Text             string
	Fingerprint      int
	NearestByValue   *string
	NearestByLexical *string
	// Source is "daemon" or "local".
	Source string
}

// Match prints m as an aligned block. A nil neighbour prints as "(none)".
func (w *Writer) Match(m Match) {
	w.Header(m.Text)
	w.Field("fingerprint", strconv.Itoa(m.Fingerprint))
	w.Field("nearest value", w.orNone(m.NearestByValue))
	w.Field("nearest lexical", w.orNone(m.NearestByLexical))
	if m.Source != "" {
		w.Field("served by", m.Source)
	}
}

func (w *Writer) orNone(s *string) string {
	if s == nil {
		return w.styles.Null.Render("(none)")
	}
	return *s
}
