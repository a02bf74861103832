package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JxcChen/bili-pro/internal/models"
)

func TestParseDropsBlankEntries(t *testing.T) {
	entries := []CaptionEntry{
		{From: 0, To: 1, Content: "  "},
		{From: 1, To: 2, Content: "hi"},
		{From: 2, To: 3, Content: ""},
		{From: 3, To: 4, Content: "\t\n"},
	}

	got := Parse(entries)

	assert.Equal(t, []models.Utterance{{Text: "hi", Start: 1, End: 2}}, got)
}

func TestParseTrimsText(t *testing.T) {
	got := Parse([]CaptionEntry{{From: 0.5, To: 2.5, Content: "  你好 world  "}})

	assert.Len(t, got, 1)
	assert.Equal(t, "你好 world", got[0].Text)
	assert.Equal(t, 0.5, got[0].Start)
	assert.Equal(t, 2.5, got[0].End)
}

func TestParsePreservesOrder(t *testing.T) {
	entries := []CaptionEntry{
		{From: 0, To: 1, Content: "a"},
		{From: 1, To: 2, Content: "b"},
		{From: 2, To: 3, Content: "c"},
	}

	got := Parse(entries)

	assert.Len(t, got, 3)
	for i, text := range []string{"a", "b", "c"} {
		assert.Equal(t, text, got[i].Text)
	}
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, Parse(nil))
}
