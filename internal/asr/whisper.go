package asr

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/JxcChen/bili-pro/internal/execrun"
	"github.com/JxcChen/bili-pro/internal/models"
)

// Whisper recognizes speech by invoking a local whisper.cpp binary with
// JSON output.
type Whisper struct {
	bin       string
	modelPath string
	available bool
	runner    execrun.Runner
	readFile  func(name string) ([]byte, error)
}

// NewWhisper probes the binary and model once; availability never changes
// for the life of the process.
func NewWhisper(bin, modelPath string) *Whisper {
	w := &Whisper{
		bin:       bin,
		modelPath: modelPath,
		runner:    &execrun.ExecRunner{},
		readFile:  os.ReadFile,
	}

	if _, err := exec.LookPath(bin); err != nil {
		return w
	}
	if modelPath == "" {
		return w
	}
	if _, err := os.Stat(modelPath); err != nil {
		return w
	}
	w.available = true
	return w
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Available() bool { return w.available }

// whisperOutput is whisper.cpp's -oj JSON document, reduced to the fields
// the pipeline consumes.
type whisperOutput struct {
	Transcription []struct {
		Text    string `json:"text"`
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
	} `json:"transcription"`
}

// Recognize runs whisper.cpp against the audio file and parses the JSON
// transcript it writes next to the input.
func (w *Whisper) Recognize(ctx context.Context, audioPath string) ([]models.Utterance, error) {
	if !w.available {
		return nil, fmt.Errorf("whisper binary or model not available")
	}

	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	args := buildWhisperArgs(w.modelPath, audioPath, outBase)

	result, err := w.runner.Run(ctx, w.bin, args...)
	if err != nil {
		return nil, fmt.Errorf("whisper exited %d: %s", result.ExitCode, firstLine(result.Stderr))
	}

	jsonPath := outBase + ".json"
	content, err := w.readFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("whisper completed but %s is missing: %w", jsonPath, err)
	}
	defer os.Remove(jsonPath)

	var output whisperOutput
	if err := json.Unmarshal(content, &output); err != nil {
		return nil, fmt.Errorf("decode whisper output: %w", err)
	}

	utterances := make([]models.Utterance, 0, len(output.Transcription))
	for _, seg := range output.Transcription {
		if u, ok := normalize(seg.Text, seg.Offsets.From, seg.Offsets.To); ok {
			utterances = append(utterances, u)
		}
	}
	return utterances, nil
}

// buildWhisperArgs builds whisper.cpp args for JSON transcript export.
func buildWhisperArgs(modelPath, audioPath, outBase string) []string {
	return []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-oj",
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// NewWhisperForTests constructs a provider with injectable dependencies.
func NewWhisperForTests(bin, modelPath string, available bool, runner execrun.Runner, readFile func(string) ([]byte, error)) *Whisper {
	return &Whisper{
		bin:       bin,
		modelPath: modelPath,
		available: available,
		runner:    runner,
		readFile:  readFile,
	}
}
