package models

import (
	"time"
)

// JobStatus tracks the lifecycle of an asynchronous extraction.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether a status can never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job holds the observable state of one background extraction.
type Job struct {
	ID        string      `json:"id"`
	Status    JobStatus   `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Result    *Transcript `json:"result,omitempty"`
	BVID      string      `json:"bvid"`
	Title     string      `json:"title"`
	Duration  int         `json:"duration"`
	CreatedAt time.Time   `json:"-"`
}

// JobMeta is the video metadata attached to a job at creation time.
type JobMeta struct {
	BVID     string
	Title    string
	Duration int
}

type ExtractRequest struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

// APIResponse is the envelope every extract response uses. Code 0 means
// success; Message carries a human-readable status.
type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// TranscriptData is the extract payload: either a completed transcript or,
// for an async dispatch, the job handle with empty utterances.
type TranscriptData struct {
	BVID       string      `json:"bvid"`
	Title      string      `json:"title"`
	Duration   int         `json:"duration"`
	Method     Method      `json:"method"`
	Transcript string      `json:"transcript"`
	Utterances []Utterance `json:"utterances"`
	JobID      string      `json:"job_id,omitempty"`
}

type ProgressResponse struct {
	JobID    string      `json:"job_id"`
	Status   JobStatus   `json:"status"`
	Progress int         `json:"progress"`
	Message  string      `json:"message"`
	Result   *Transcript `json:"result,omitempty"`
}

type SummaryRequest struct {
	Transcript string `json:"transcript"`
	Style      string `json:"style"`
}

type SummaryResponse struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}
