package subtitle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JxcChen/bili-pro/internal/models"
)

func sampleUtterances() []models.Utterance {
	return []models.Utterance{
		{Text: "第一句话", Start: 0, End: 3.5},
		{Text: "second line", Start: 3.5, End: 7.25},
		{Text: "third", Start: 3661.042, End: 3662},
	}
}

func TestRenderPlainTextJoinsWithSpaces(t *testing.T) {
	got := Render(sampleUtterances(), FormatText)
	assert.Equal(t, "第一句话 second line third", got)
}

func TestRenderPlainTextEmpty(t *testing.T) {
	assert.Equal(t, "", Render(nil, FormatText))
	assert.Equal(t, "", Render([]models.Utterance{}, FormatText))
}

func TestRenderUnknownFormatFallsBackToPlainText(t *testing.T) {
	utts := sampleUtterances()
	assert.Equal(t, Render(utts, FormatText), Render(utts, "yaml"))
	assert.Equal(t, Render(utts, FormatText), Render(utts, ""))
}

func TestRenderSRT(t *testing.T) {
	got := Render(sampleUtterances(), FormatSRT)

	want := "1\n" +
		"00:00:00,000 --> 00:00:03,500\n" +
		"第一句话\n" +
		"\n" +
		"2\n" +
		"00:00:03,500 --> 00:00:07,250\n" +
		"second line\n" +
		"\n" +
		"3\n" +
		"01:01:01,041 --> 01:01:02,000\n" +
		"third\n"
	assert.Equal(t, want, got)
}

func TestRenderSRTEmptyProducesNoBlocks(t *testing.T) {
	assert.Equal(t, "", Render(nil, FormatSRT))
}

func TestRenderJSONRoundTrip(t *testing.T) {
	original := sampleUtterances()
	rendered := Render(original, FormatJSON)

	var parsed []models.Utterance
	require.NoError(t, json.Unmarshal([]byte(rendered), &parsed))
	assert.Equal(t, original, parsed)
}

func TestRenderJSONEmptyIsEmptyList(t *testing.T) {
	var parsed []models.Utterance
	require.NoError(t, json.Unmarshal([]byte(Render(nil, FormatJSON)), &parsed))
	assert.Empty(t, parsed)
}
