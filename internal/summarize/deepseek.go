package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/JxcChen/bili-pro/internal/models"
)

// ErrTooShort rejects transcripts with nothing worth summarizing.
var ErrTooShort = errors.New("transcript is too short to summarize")

const minTranscriptLen = 10

// Service turns a raw transcript into a structured markdown note through
// the DeepSeek chat-completions API.
type Service struct {
	apiKey string
	base   string
	model  string
	http   *http.Client
}

func NewService(apiKey, base, model string) *Service {
	return &Service{
		apiKey: apiKey,
		base:   strings.TrimSuffix(base, "/"),
		model:  model,
		http:   &http.Client{Timeout: 120 * time.Second},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize condenses a transcript into a markdown note plus key points.
func (s *Service) Summarize(ctx context.Context, transcript, style string) (*models.SummaryResponse, error) {
	if len([]rune(strings.TrimSpace(transcript))) < minTranscriptLen {
		return nil, ErrTooShort
	}

	payload := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt(style)},
			{Role: "user", Content: "Turn the following video transcript into structured markdown notes. Highlight the key points and drop filler speech:\n\n" + transcript},
		},
		Temperature: 0.7,
		MaxTokens:   4000,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.base+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepseek request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("deepseek decode: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("deepseek api: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK || len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("deepseek status %d with no completion", resp.StatusCode)
	}

	summary := strings.TrimSpace(parsed.Choices[0].Message.Content)
	return &models.SummaryResponse{
		Summary:   summary,
		KeyPoints: ExtractKeyPoints(summary),
	}, nil
}

// systemPrompt assembles the style-dependent instruction.
func systemPrompt(style string) string {
	base := `You are a professional video-content summarizer. Turn the transcript into structured notes.

Rules:
1. Output markdown.
2. Emphasize key content with bold text and lists.
3. Drop filler words and verbal tics.
4. Keep the logical flow of the material.
5. Extract the core claims and key information.`

	switch style {
	case "detailed":
		return base + "\n6. Expand every point fully.\n7. Keep concrete examples and numbers.\n8. Preserve full context."
	case "academic":
		return base + "\n6. Use formal academic language.\n7. Keep the structure rigorous.\n8. Present claims, evidence and conclusions."
	default: // brief
		return base + "\n6. Stay concise and lead with the essentials.\n7. Keep each section to a few sentences."
	}
}

var boldPattern = regexp.MustCompile(`\*\*(.*?)\*\*`)

// ExtractKeyPoints pulls key points out of a markdown summary: second-level
// headings first, then bold list items, with a prose fallback when the
// model produced neither.
func ExtractKeyPoints(markdown string) []string {
	var points []string
	lines := strings.Split(markdown, "\n")

	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "## ") && !strings.HasPrefix(line, "###"):
			if point := strings.TrimSpace(strings.TrimPrefix(line, "## ")); point != "" {
				points = append(points, point)
			}
		case strings.HasPrefix(line, "- **") || strings.HasPrefix(line, "* **"):
			if m := boldPattern.FindStringSubmatch(line); m != nil {
				point := strings.TrimSpace(m[1])
				if point != "" && !contains(points, point) {
					points = append(points, point)
				}
			}
		}
	}

	if len(points) == 0 {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || len([]rune(line)) <= 10 {
				continue
			}
			points = append(points, truncate(line, 100))
			if len(points) == 5 {
				break
			}
		}
	}

	if len(points) > 10 {
		points = points[:10]
	}
	return points
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
