package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/JxcChen/bili-pro/internal/models"
)

// bcut task states as reported by the result endpoint.
const (
	bcutStateFailed   = 3
	bcutStateComplete = 4
)

// Bcut recognizes speech through bilibili's cloud ASR service. It uploads
// the audio, then polls the task until it reaches a terminal state.
type Bcut struct {
	base    string
	enabled bool
	http    *http.Client
}

func NewBcut(base string, enabled bool) *Bcut {
	return &Bcut{
		base:    strings.TrimSuffix(base, "/"),
		enabled: enabled,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *Bcut) Name() string { return "bcut" }

// Available reflects deployment configuration; the cloud service needs no
// local binaries.
func (b *Bcut) Available() bool { return b.enabled }

type bcutCreateResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

type bcutResultResponse struct {
	Code int `json:"code"`
	Data struct {
		State  int    `json:"state"`
		Remark string `json:"remark"`
		Result string `json:"result"`
	} `json:"data"`
}

type bcutSegments struct {
	Utterances []struct {
		Transcript string `json:"transcript"`
		StartTime  int64  `json:"start_time"`
		EndTime    int64  `json:"end_time"`
	} `json:"utterances"`
}

// Recognize uploads the audio file, waits for the task to finish and
// normalizes the segment list.
func (b *Bcut) Recognize(ctx context.Context, audioPath string) ([]models.Utterance, error) {
	taskID, err := b.createTask(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("bcut create task: %w", err)
	}

	raw, err := b.waitForResult(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("bcut task %s: %w", taskID, err)
	}

	var segments bcutSegments
	if err := json.Unmarshal([]byte(raw), &segments); err != nil {
		return nil, fmt.Errorf("bcut decode result: %w", err)
	}

	utterances := make([]models.Utterance, 0, len(segments.Utterances))
	for _, seg := range segments.Utterances {
		if u, ok := normalize(seg.Transcript, seg.StartTime, seg.EndTime); ok {
			utterances = append(utterances, u)
		}
	}
	return utterances, nil
}

func (b *Bcut) createTask(ctx context.Context, audioPath string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}

	endpoint := b.base + "/task?" + url.Values{
		"model":     {"8"},
		"file_name": {filepath.Base(audioPath)},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := b.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var created bcutCreateResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return "", err
	}
	if created.Code != 0 {
		return "", fmt.Errorf("api code %d: %s", created.Code, created.Message)
	}
	if created.Data.TaskID == "" {
		return "", fmt.Errorf("api returned no task id")
	}
	return created.Data.TaskID, nil
}

// waitForResult polls the task endpoint with backoff until the task is
// complete, failed, or the context expires.
func (b *Bcut) waitForResult(ctx context.Context, taskID string) (string, error) {
	endpoint := b.base + "/task/result?" + url.Values{"task_id": {taskID}}.Encode()

	operation := func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", backoff.Permanent(err)
		}

		resp, err := b.http.Do(req)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", backoff.Permanent(err)
		}

		var result bcutResultResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return "", backoff.Permanent(err)
		}
		if result.Code != 0 {
			return "", backoff.Permanent(fmt.Errorf("api code %d", result.Code))
		}

		switch result.Data.State {
		case bcutStateComplete:
			return result.Data.Result, nil
		case bcutStateFailed:
			return "", backoff.Permanent(fmt.Errorf("task failed: %s", result.Data.Remark))
		default:
			return "", fmt.Errorf("task still running (state %d)", result.Data.State)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 1 * time.Second
	bo.MaxInterval = 10 * time.Second

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxElapsedTime(5*time.Minute))
}
