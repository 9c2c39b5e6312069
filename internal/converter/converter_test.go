package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAlignment(t *testing.T) {
	data := []byte(`{
		"alignment": {
			"characters": ["H", "i"],
			"character_start_times_seconds": [0.0, 0.1]
		}
	}`)

	a, err := ParseAlignment(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"H", "i"}, a.Characters)
	assert.Equal(t, []float64{0.0, 0.1}, a.StartTimes)
}

func TestParseAlignmentMissingFields(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
	}{
		{
			name:    "missing alignment object",
			input:   `{}`,
			wantMsg: `missing required field "alignment"`,
		},
		{
			name:    "missing characters",
			input:   `{"alignment": {"character_start_times_seconds": [0.0]}}`,
			wantMsg: `missing required field "alignment.characters"`,
		},
		{
			name:    "missing start times",
			input:   `{"alignment": {"characters": ["a"]}}`,
			wantMsg: `missing required field "alignment.character_start_times_seconds"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAlignment([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestParseAlignmentLengthMismatch(t *testing.T) {
	data := []byte(`{
		"alignment": {
			"characters": ["a", "b"],
			"character_start_times_seconds": [0.0]
		}
	}`)

	_, err := ParseAlignment(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differ in length")
}

func TestParseAlignmentEmptyArrays(t *testing.T) {
	data := []byte(`{
		"alignment": {
			"characters": [],
			"character_start_times_seconds": []
		}
	}`)

	a, err := ParseAlignment(data)
	require.NoError(t, err)

	words, err := Convert(a)
	require.NoError(t, err)
	assert.Empty(t, words)
	assert.NotNil(t, words)
}

func TestConvertTwoWords(t *testing.T) {
	a := &Alignment{
		Characters: []string{"H", "e", "l", "l", "o", " ", "w", "o", "r", "l", "d"},
		StartTimes: []float64{0.0, 0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.45, 0.5},
	}

	words, err := Convert(a)
	require.NoError(t, err)
	require.Len(t, words, 2)

	// First word ends where the next word's first character starts, not
	// at the space.
	assert.Equal(t, "Hello", words[0].Word)
	assert.Equal(t, int64(0), words[0].StartMs)
	assert.Equal(t, int64(300), words[0].EndMs)
	assert.Equal(t, 0, words[0].CharStart)
	assert.Equal(t, 5, words[0].CharEnd)

	// Final word has no successor: it closes at its last character's
	// timestamp plus the trailing buffer.
	assert.Equal(t, "world", words[1].Word)
	assert.Equal(t, int64(300), words[1].StartMs)
	assert.Equal(t, int64(500+trailingBufferMs), words[1].EndMs)
	assert.Equal(t, 6, words[1].CharStart)
	assert.Equal(t, 11, words[1].CharEnd)
}

func TestConvertLeadingAndRepeatedWhitespace(t *testing.T) {
	a := &Alignment{
		Characters: []string{" ", "a", " ", " ", "\n", "b"},
		StartTimes: []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5},
	}

	words, err := Convert(a)
	require.NoError(t, err)
	require.Len(t, words, 2)

	assert.Equal(t, "a", words[0].Word)
	assert.Equal(t, int64(100), words[0].StartMs)
	assert.Equal(t, int64(500), words[0].EndMs)
	assert.Equal(t, 1, words[0].CharStart)
	assert.Equal(t, 2, words[0].CharEnd)

	assert.Equal(t, "b", words[1].Word)
	assert.Equal(t, 5, words[1].CharStart)
	assert.Equal(t, 6, words[1].CharEnd)
}

func TestConvertPunctuationStaysAttached(t *testing.T) {
	a := &Alignment{
		Characters: []string{"H", "i", ".", " ", "B", "y", "e", "!"},
		StartTimes: []float64{0.0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7},
	}

	words, err := Convert(a)
	require.NoError(t, err)
	require.Len(t, words, 2)
	assert.Equal(t, "Hi.", words[0].Word)
	assert.Equal(t, "Bye!", words[1].Word)
}

func TestConvertRoundsToNearestMillisecond(t *testing.T) {
	a := &Alignment{
		Characters: []string{"a"},
		StartTimes: []float64{0.0015},
	}

	words, err := Convert(a)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, int64(2), words[0].StartMs)
}

func TestConvertWhitespaceOnly(t *testing.T) {
	a := &Alignment{
		Characters: []string{" ", "\n", "\t"},
		StartTimes: []float64{0.0, 0.1, 0.2},
	}

	words, err := Convert(a)
	require.NoError(t, err)
	assert.Empty(t, words)
}
