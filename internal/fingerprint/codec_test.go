package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/nearmatch/internal/errors"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"a", 1},
		{"z", 26},
		{"abc", 6},
		{"word", 60},
		{"dd", 8},
		{"aaa", 3},
		{"bad", 7},
		{"abd", 7},
		{"g", 7},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := Compute(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_RejectsNonLetters(t *testing.T) {
	for _, text := range []string{"", "a1", "A", "hello world", "é"} {
		t.Run(text, func(t *testing.T) {
			_, err := Compute(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrInvalidText)
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "lowercase kept", raw: "word", want: "word"},
		{name: "uppercase folded", raw: "WoRd", want: "word"},
		{name: "empty", raw: "", wantErr: true},
		{name: "digit", raw: "a1", wantErr: true},
		{name: "space", raw: "two words", wantErr: true},
		{name: "punctuation", raw: "hey!", wantErr: true},
		{name: "accented", raw: "café", wantErr: true},
		{name: "kelvin sign", raw: "K", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsClientError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_ReportsPosition(t *testing.T) {
	_, err := Normalize("ab3d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "position 2")
}

func TestEncode(t *testing.T) {
	rec, err := Encode("WORD")
	require.NoError(t, err)
	assert.Equal(t, Record{Text: "word", Fingerprint: 60}, rec)

	_, err = Encode("w0rd")
	assert.ErrorIs(t, err, errors.ErrInvalidText)
}
