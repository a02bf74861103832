package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JxcChen/bili-pro/internal/jobs"
	"github.com/JxcChen/bili-pro/internal/models"
	"github.com/JxcChen/bili-pro/internal/platform"
	"github.com/JxcChen/bili-pro/internal/subtitle"
)

var (
	// ErrNoRecognizer means no speech recognition provider is deployed, so
	// videos without captions cannot be processed. No job is created.
	ErrNoRecognizer = errors.New("speech recognition is not available in this deployment, pick a captioned video")

	// ErrTooLong rejects videos beyond the configured duration ceiling.
	ErrTooLong = errors.New("video exceeds the maximum allowed duration")
)

// Platform is the caption-source and metadata boundary.
type Platform interface {
	VideoInfo(ctx context.Context, bvid string) (*platform.VideoInfo, error)
	Captions(ctx context.Context, bvid string, cid int64) ([]subtitle.CaptionEntry, error)
	AICaptions(ctx context.Context, bvid string, cid int64) ([]subtitle.CaptionEntry, error)
}

// Recognizer is the speech recognition boundary, normally an asr.Chain.
type Recognizer interface {
	Available() bool
	Recognize(ctx context.Context, audioPath string) ([]models.Utterance, error)
}

// Acquirer is the audio download boundary, normally an audio.Chain.
type Acquirer interface {
	Acquire(ctx context.Context, videoURL string) (string, error)
}

// Outcome is the result of one extraction request: exactly one of
// Transcript (synchronous caption hit) or Job (dispatched recognition) is
// set.
type Outcome struct {
	Transcript *models.Transcript
	Job        *models.Job
}

// Orchestrator sequences caption lookups and, on a full miss, hands the
// expensive recognition path off to a tracked background job.
type Orchestrator struct {
	platform    Platform
	recognizer  Recognizer
	acquirer    Acquirer
	registry    *jobs.Registry
	maxDuration int
	jobTimeout  time.Duration
}

func NewOrchestrator(
	p Platform,
	recognizer Recognizer,
	acquirer Acquirer,
	registry *jobs.Registry,
	maxDuration int,
	jobTimeout time.Duration,
) *Orchestrator {
	return &Orchestrator{
		platform:    p,
		recognizer:  recognizer,
		acquirer:    acquirer,
		registry:    registry,
		maxDuration: maxDuration,
		jobTimeout:  jobTimeout,
	}
}

// Extract runs the fallback sequence for one request. Synchronous-phase
// errors (resolution, not-found, capability) abort with no job created;
// once a job handle is returned, later failures only ever land in that
// job's registry entry.
func (o *Orchestrator) Extract(ctx context.Context, videoURL, format string) (*Outcome, error) {
	bvid, err := platform.ResolveVideoID(videoURL)
	if err != nil {
		return nil, err
	}

	info, err := o.platform.VideoInfo(ctx, bvid)
	if err != nil {
		return nil, err
	}
	if o.maxDuration > 0 && info.Duration > o.maxDuration {
		return nil, fmt.Errorf("%w (%ds > %ds)", ErrTooLong, info.Duration, o.maxDuration)
	}

	slog.Info("extracting transcript",
		"bvid", bvid, "title", info.Title, "duration", info.Duration)

	if transcript := o.lookupCaptions(ctx, info, format); transcript != nil {
		return &Outcome{Transcript: transcript}, nil
	}

	// Both caption sources missed; recognition is the only path left.
	if !o.recognizer.Available() {
		return nil, ErrNoRecognizer
	}

	job := o.registry.Create(models.JobMeta{
		BVID:     info.BVID,
		Title:    info.Title,
		Duration: info.Duration,
	})
	go o.runRecognition(job.ID, videoURL, info, format)

	return &Outcome{Job: &job}, nil
}

// lookupCaptions tries human captions then AI captions. Transport errors
// are logged and treated as a miss; the next strategy decides the outcome.
func (o *Orchestrator) lookupCaptions(ctx context.Context, info *platform.VideoInfo, format string) *models.Transcript {
	entries, err := o.platform.Captions(ctx, info.BVID, info.CID)
	if err != nil {
		slog.Warn("caption lookup failed, falling through", "bvid", info.BVID, "error", err)
	}
	if len(entries) > 0 {
		slog.Info("found captions", "bvid", info.BVID, "entries", len(entries))
		return buildTranscript(info, entries, models.MethodCaption, format)
	}

	entries, err = o.platform.AICaptions(ctx, info.BVID, info.CID)
	if err != nil {
		slog.Warn("ai caption lookup failed, falling through", "bvid", info.BVID, "error", err)
	}
	if len(entries) > 0 {
		slog.Info("found ai captions", "bvid", info.BVID, "entries", len(entries))
		return buildTranscript(info, entries, models.MethodAICaption, format)
	}

	return nil
}

func buildTranscript(info *platform.VideoInfo, entries []subtitle.CaptionEntry, method models.Method, format string) *models.Transcript {
	utterances := subtitle.Parse(entries)
	return &models.Transcript{
		BVID:       info.BVID,
		Title:      info.Title,
		Duration:   info.Duration,
		Method:     method,
		Transcript: subtitle.Render(utterances, format),
		Utterances: utterances,
	}
}

// runRecognition is the background sequence for one dispatched job. It is
// the only writer for that job and must never let a failure escape into
// the host process.
func (o *Orchestrator) runRecognition(jobID, videoURL string, info *platform.VideoInfo, format string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recognition job panicked", "job", jobID, "panic", r)
			o.registry.Fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), o.jobTimeout)
	defer cancel()

	o.registry.SetProgress(jobID, 10, "downloading audio...")

	audioPath, err := o.acquirer.Acquire(ctx, videoURL)
	if err != nil {
		slog.Error("audio acquisition failed", "job", jobID, "error", err)
		o.registry.Fail(jobID, fmt.Sprintf("audio download failed: %v", err))
		return
	}

	o.registry.SetProgress(jobID, 50, "download complete, recognizing speech...")

	utterances, err := o.recognizer.Recognize(ctx, audioPath)
	if err != nil {
		slog.Error("recognition failed", "job", jobID, "error", err)
		o.registry.Fail(jobID, fmt.Sprintf("speech recognition failed: %v", err))
		return
	}

	o.registry.SetProgress(jobID, 90, "recognition complete, rendering output...")

	transcript := &models.Transcript{
		BVID:       info.BVID,
		Title:      info.Title,
		Duration:   info.Duration,
		Method:     models.MethodRecognized,
		Transcript: subtitle.Render(utterances, format),
		Utterances: utterances,
	}
	o.registry.Complete(jobID, transcript, "done")

	slog.Info("recognition job completed", "job", jobID, "utterances", len(utterances))
}
