package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateToTokens(t *testing.T) {
	// [CLS] hello world foo [SEP]
	text := "hello world foo"
	offsets := [][2]uint{{0, 0}, {0, 5}, {6, 11}, {12, 15}, {0, 0}}
	special := []uint32{1, 0, 0, 0, 1}

	tests := []struct {
		name      string
		maxTokens int
		want      string
	}{
		{"fits", 5, "hello world foo"},
		{"room for two content tokens", 4, "hello world"},
		{"room for one content token", 3, "hello"},
		{"only special tokens fit", 2, ""},
		{"no limit", 0, "hello world foo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateToTokens(text, offsets, special, tt.maxTokens))
		})
	}
}

func TestTruncateToTokens_SubwordsAndRunes(t *testing.T) {
	// [CLS] café ##s au lait [SEP], offsets in bytes
	text := "cafés au lait"
	offsets := [][2]uint{{0, 0}, {0, 5}, {5, 6}, {7, 9}, {10, 14}, {0, 0}}
	special := []uint32{1, 0, 0, 0, 0, 1}

	assert.Equal(t, "café", truncateToTokens(text, offsets, special, 3))
	assert.Equal(t, "cafés", truncateToTokens(text, offsets, special, 4))
	assert.Equal(t, "cafés au", truncateToTokens(text, offsets, special, 5))
}

func TestTruncateToTokens_OffsetInsideRune(t *testing.T) {
	text := "né"
	offsets := [][2]uint{{0, 0}, {0, 2}, {2, 3}, {0, 0}}
	special := []uint32{1, 0, 0, 1}

	assert.Equal(t, "n", truncateToTokens(text, offsets, special, 3))
}

func TestNewHugotBackend_DefaultsMaxTokens(t *testing.T) {
	assert.Equal(t, DefaultMaxTokens, NewHugotBackend("m", "dir", 0).MaxTokens)
	assert.Equal(t, 128, NewHugotBackend("m", "dir", 128).MaxTokens)
}
