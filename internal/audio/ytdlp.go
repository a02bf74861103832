package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/JxcChen/bili-pro/internal/execrun"
)

// YtDlp downloads the audio track directly with the yt-dlp resolver.
// This is the fast, reliable tier and runs first.
type YtDlp struct {
	bin       string
	tempDir   string
	available bool
	runner    execrun.Runner
}

func NewYtDlp(bin, tempDir string) *YtDlp {
	y := &YtDlp{
		bin:     bin,
		tempDir: tempDir,
		runner:  &execrun.ExecRunner{},
	}
	if _, err := exec.LookPath(bin); err == nil {
		y.available = true
	}
	return y
}

func (y *YtDlp) Name() string { return "yt-dlp" }

func (y *YtDlp) Available() bool { return y.available }

// Fetch downloads best-quality audio as m4a into the hash-named target.
// The download lands in a unique .part file and is renamed into place so
// concurrent fetches of the same URL never observe a torn file.
func (y *YtDlp) Fetch(ctx context.Context, videoURL string) (string, error) {
	final := cachedPath(y.tempDir, videoURL, ".m4a")
	if reusable(final) {
		return final, nil
	}

	part := partPath(final)
	defer os.Remove(part)

	args := []string{
		"-f", "bestaudio/best",
		"-x", "--audio-format", "m4a",
		"--no-warnings",
		"-o", part,
		videoURL,
	}

	result, err := y.runner.Run(ctx, y.bin, args...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp exited %d: %s", result.ExitCode, firstLine(result.Stderr))
	}

	if info, err := os.Stat(part); err != nil || info.Size() == 0 {
		return "", fmt.Errorf("yt-dlp finished but produced no file")
	}
	if err := os.Rename(part, final); err != nil {
		// A concurrent fetch may have won the rename; reuse its result.
		if reusable(final) {
			return final, nil
		}
		return "", err
	}
	return final, nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
