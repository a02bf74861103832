package audio

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoAudio is returned when every acquisition tier has been exhausted.
// Total acquisition failure is a data condition, not a crash.
var ErrNoAudio = errors.New("all audio download methods failed")

// Strategy is one interchangeable way to turn a video URL into a local
// audio file.
type Strategy interface {
	Name() string
	// Available is resolved once at startup; unavailable strategies are
	// skipped without an attempt.
	Available() bool
	// Fetch downloads the audio and returns the local file path.
	Fetch(ctx context.Context, videoURL string) (string, error)
}

// Chain tries strategies in order and returns the first success.
type Chain struct {
	strategies []Strategy
}

func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Acquire runs the fallback sequence for one video URL.
func (c *Chain) Acquire(ctx context.Context, videoURL string) (string, error) {
	var attempts []string
	for _, s := range c.strategies {
		if !s.Available() {
			attempts = append(attempts, s.Name()+": not available")
			continue
		}

		path, err := s.Fetch(ctx, videoURL)
		if err != nil {
			slog.Warn("audio strategy failed, falling through",
				"strategy", s.Name(), "error", err)
			attempts = append(attempts, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}

		slog.Info("audio acquired", "strategy", s.Name(), "path", path)
		return path, nil
	}

	return "", fmt.Errorf("%w (%s)", ErrNoAudio, strings.Join(attempts, "; "))
}

// cachedPath derives the deterministic download target for a source URL.
// The hash name lets concurrent and repeated acquisitions of the same URL
// share one file within a run.
func cachedPath(dir, videoURL, ext string) string {
	sum := md5.Sum([]byte(videoURL))
	return filepath.Join(dir, hex.EncodeToString(sum[:])+ext)
}

// partPath returns a unique in-progress path next to the final target so
// the finished file can be renamed into place atomically.
func partPath(final string) string {
	return final + ".part-" + uuid.New().String()
}

// reusable reports whether a completed download already exists at path.
func reusable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// CleanupBefore removes hash-named audio files older than the cutoff.
// Called by the maintenance janitor, never implicitly after use.
func CleanupBefore(dir string, cutoff time.Time) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			slog.Warn("could not remove stale audio file",
				"file", entry.Name(), "error", err)
		}
	}
	return nil
}
