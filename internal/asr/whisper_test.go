package asr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JxcChen/bili-pro/internal/execrun"
)

type fakeRunner struct {
	result  execrun.Result
	err     error
	gotName string
	gotArgs []string
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (execrun.Result, error) {
	f.gotName = name
	f.gotArgs = args
	return f.result, f.err
}

const whisperJSON = `{
  "transcription": [
    {"text": " 第一段 ", "offsets": {"from": 0, "to": 3500}},
    {"text": "   ", "offsets": {"from": 3500, "to": 4000}},
    {"text": "second segment", "offsets": {"from": 4000, "to": 9250}}
  ]
}`

func TestWhisperRecognizeParsesSegments(t *testing.T) {
	runner := &fakeRunner{}
	readFile := func(name string) ([]byte, error) {
		assert.Equal(t, "/tmp/audio.json", name)
		return []byte(whisperJSON), nil
	}
	w := NewWhisperForTests("whisper.cpp", "/models/base.bin", true, runner, readFile)

	got, err := w.Recognize(context.Background(), "/tmp/audio.m4a")

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "第一段", got[0].Text)
	assert.Equal(t, 0.0, got[0].Start)
	assert.Equal(t, 3.5, got[0].End)
	assert.Equal(t, "second segment", got[1].Text)
	assert.Equal(t, 9.25, got[1].End)

	assert.Equal(t, "whisper.cpp", runner.gotName)
	assert.Equal(t, []string{"-m", "/models/base.bin", "-f", "/tmp/audio.m4a", "-of", "/tmp/audio", "-oj"}, runner.gotArgs)
}

func TestWhisperRecognizeCommandFailure(t *testing.T) {
	runner := &fakeRunner{
		result: execrun.Result{ExitCode: 1, Stderr: "model load failed\nmore detail"},
		err:    errors.New("exit status 1"),
	}
	w := NewWhisperForTests("whisper.cpp", "/models/base.bin", true, runner, nil)

	_, err := w.Recognize(context.Background(), "/tmp/audio.m4a")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model load failed")
	assert.NotContains(t, err.Error(), "more detail")
}

func TestWhisperUnavailableWhenBinaryMissing(t *testing.T) {
	w := NewWhisper("definitely-not-a-real-binary-name", "/nope/model.bin")
	assert.False(t, w.Available())

	_, err := w.Recognize(context.Background(), "/tmp/audio.m4a")
	assert.Error(t, err)
}
