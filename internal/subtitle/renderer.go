package subtitle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JxcChen/bili-pro/internal/models"
)

// Output formats accepted by Render. Anything else degrades to plain text.
const (
	FormatText = "txt"
	FormatSRT  = "srt"
	FormatJSON = "json"
)

// Render converts an utterance sequence into one of the supported text
// encodings. It never fails on a well-formed sequence; an unknown format
// falls back to plain text.
func Render(utterances []models.Utterance, format string) string {
	switch format {
	case FormatSRT:
		return toSRT(utterances)
	case FormatJSON:
		return toJSON(utterances)
	default:
		return toPlainText(utterances)
	}
}

func toPlainText(utterances []models.Utterance) string {
	texts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		texts = append(texts, u.Text)
	}
	return strings.Join(texts, " ")
}

// toSRT emits one numbered block per utterance:
//
//	1
//	00:00:00,000 --> 00:00:03,500
//	first line
//	<blank>
func toSRT(utterances []models.Utterance) string {
	var b strings.Builder
	for i, u := range utterances {
		fmt.Fprintf(&b, "%d\n", i+1)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(u.Start), srtTimestamp(u.End))
		b.WriteString(u.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func toJSON(utterances []models.Utterance) string {
	if utterances == nil {
		utterances = []models.Utterance{}
	}
	data, err := json.MarshalIndent(utterances, "", "  ")
	if err != nil {
		// Utterances hold only strings and floats; this cannot happen.
		return "[]"
	}
	return string(data)
}

// srtTimestamp formats seconds as HH:MM:SS,mmm with the millisecond part
// taken from the fractional remainder.
func srtTimestamp(seconds float64) string {
	total := int(seconds)
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	millis := int((seconds - float64(total)) * 1000)

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
