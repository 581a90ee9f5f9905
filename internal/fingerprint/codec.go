// Package fingerprint normalizes texts and derives their integer fingerprint.
//
// A valid text is non-empty and, once lowercased, consists solely of the
// ASCII letters a..z. The fingerprint is the sum of the 1-indexed alphabet
// positions of its letters, so "abc" is 1+2+3 = 6.
package fingerprint

import (
	"strings"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

// Record is a normalized text together with its fingerprint.
type Record struct {
	Text        string
	Fingerprint int
}

// Normalize lowercases raw and checks that it is a non-empty run of letters.
func Normalize(raw string) (string, error) {
	if raw == "" {
		return "", errors.InvalidTextError(raw, -1)
	}
	// Check before lowercasing: some non-ASCII runes fold to ASCII letters.
	if pos := firstNonLetter(raw); pos >= 0 {
		return "", errors.InvalidTextError(raw, pos)
	}
	return strings.ToLower(raw), nil
}

// Compute returns the fingerprint of an already normalized text.
func Compute(text string) (int, error) {
	if text == "" {
		return 0, errors.InvalidTextError(text, -1)
	}
	sum := 0
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c < 'a' || c > 'z' {
			return 0, errors.InvalidTextError(text, i)
		}
		sum += int(c-'a') + 1
	}
	return sum, nil
}

// Encode normalizes raw and computes its fingerprint.
func Encode(raw string) (Record, error) {
	text, err := Normalize(raw)
	if err != nil {
		return Record{}, err
	}
	fp, err := Compute(text)
	if err != nil {
		return Record{}, err
	}
	return Record{Text: text, Fingerprint: fp}, nil
}

// firstNonLetter returns the byte offset of the first character that is not
// an ASCII letter, or -1.
func firstNonLetter(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return i
		}
	}
	return -1
}
