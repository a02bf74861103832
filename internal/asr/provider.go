package asr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JxcChen/bili-pro/internal/models"
)

// ErrChainExhausted is returned when every configured provider failed or
// none was available.
var ErrChainExhausted = errors.New("all speech recognition providers failed")

// Provider is the interface for speech-to-text backends.
type Provider interface {
	// Name identifies the provider in logs and error messages.
	Name() string
	// Available is a static capability flag resolved at process start. An
	// unavailable provider is skipped without an attempt.
	Available() bool
	// Recognize turns a local audio file into timestamped utterances.
	Recognize(ctx context.Context, audioPath string) ([]models.Utterance, error)
}

// Chain tries providers in order and returns the first success. It
// generalizes to any number of tiers; the service configures two.
type Chain struct {
	providers []Provider
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Available reports whether any provider in the chain can run at all.
// The orchestrator asks this before committing to an asynchronous job.
func (c *Chain) Available() bool {
	for _, p := range c.providers {
		if p.Available() {
			return true
		}
	}
	return false
}

// Recognize runs the fallback sequence. Each failure is recorded and the
// next tier is tried; exhaustion surfaces every attempt in one error.
func (c *Chain) Recognize(ctx context.Context, audioPath string) ([]models.Utterance, error) {
	var attempts []string
	for _, p := range c.providers {
		if !p.Available() {
			attempts = append(attempts, p.Name()+": not available")
			continue
		}

		utterances, err := p.Recognize(ctx, audioPath)
		if err != nil {
			slog.Warn("asr provider failed, falling through",
				"provider", p.Name(), "error", err)
			attempts = append(attempts, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}

		slog.Info("asr recognition done",
			"provider", p.Name(), "utterances", len(utterances))
		return utterances, nil
	}

	return nil, fmt.Errorf("%w (%s)", ErrChainExhausted, strings.Join(attempts, "; "))
}

// normalize trims segment text and drops empty segments, converting
// engine-specific millisecond offsets into seconds.
func normalize(text string, startMs, endMs int64) (models.Utterance, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return models.Utterance{}, false
	}
	return models.Utterance{
		Text:  trimmed,
		Start: float64(startMs) / 1000,
		End:   float64(endMs) / 1000,
	}, true
}
