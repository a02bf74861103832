package subtitle

import (
	"strings"

	"github.com/JxcChen/bili-pro/internal/models"
)

// CaptionEntry is one raw line of a bilibili caption body.
type CaptionEntry struct {
	From    float64 `json:"from"`
	To      float64 `json:"to"`
	Content string  `json:"content"`
}

// Parse converts raw caption entries into utterances, dropping entries whose
// trimmed content is empty.
func Parse(entries []CaptionEntry) []models.Utterance {
	utterances := make([]models.Utterance, 0, len(entries))
	for _, entry := range entries {
		text := strings.TrimSpace(entry.Content)
		if text == "" {
			continue
		}
		utterances = append(utterances, models.Utterance{
			Text:  text,
			Start: entry.From,
			End:   entry.To,
		})
	}
	return utterances
}
