package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JxcChen/bili-pro/internal/extract"
	"github.com/JxcChen/bili-pro/internal/jobs"
	"github.com/JxcChen/bili-pro/internal/models"
	"github.com/JxcChen/bili-pro/internal/platform"
	"github.com/JxcChen/bili-pro/internal/summarize"
)

// Extractor runs one extraction request to a transcript or a job handle.
type Extractor interface {
	Extract(ctx context.Context, videoURL, format string) (*extract.Outcome, error)
}

// Summarizer condenses a transcript into structured notes.
type Summarizer interface {
	Summarize(ctx context.Context, transcript, style string) (*models.SummaryResponse, error)
}

type Handler struct {
	Extractor  Extractor
	Registry   *jobs.Registry
	Summarizer Summarizer
}

func NewHandler(extractor Extractor, registry *jobs.Registry, summarizer Summarizer) *Handler {
	return &Handler{
		Extractor:  extractor,
		Registry:   registry,
		Summarizer: summarizer,
	}
}

func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		http.Error(w, "url required", http.StatusBadRequest)
		return
	}
	if req.Format == "" {
		req.Format = "txt"
	}

	outcome, err := h.Extractor.Extract(r.Context(), req.URL, req.Format)
	if err != nil {
		writeExtractError(w, err)
		return
	}

	if outcome.Transcript != nil {
		t := outcome.Transcript
		writeJSON(w, http.StatusOK, models.APIResponse{
			Code:    0,
			Message: "success",
			Data: models.TranscriptData{
				BVID:       t.BVID,
				Title:      t.Title,
				Duration:   t.Duration,
				Method:     t.Method,
				Transcript: t.Transcript,
				Utterances: t.Utterances,
			},
		})
		return
	}

	job := outcome.Job
	writeJSON(w, http.StatusAccepted, models.APIResponse{
		Code:    0,
		Message: "no captions found, recognition job created",
		Data: models.TranscriptData{
			BVID:       job.BVID,
			Title:      job.Title,
			Duration:   job.Duration,
			Method:     models.MethodRecognized,
			Transcript: "job accepted, poll /api/progress/" + job.ID,
			Utterances: []models.Utterance{},
			JobID:      job.ID,
		},
	})
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/progress/")
	if jobID == "" || strings.Contains(jobID, "/") {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	job, ok := h.Registry.Get(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, models.ProgressResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
		Result:   job.Result,
	})
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req models.SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Style == "" {
		req.Style = "brief"
	}

	result, err := h.Summarizer.Summarize(r.Context(), req.Transcript, req.Style)
	if err != nil {
		if errors.Is(err, summarize.ErrTooShort) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("summarization failed", "error", err)
		http.Error(w, "summarization failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// writeExtractError maps the synchronous-phase error taxonomy onto HTTP
// statuses. Background failures never reach this path; they live in the
// job entry.
func writeExtractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, platform.ErrBadReference), errors.Is(err, platform.ErrShortLink):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, extract.ErrTooLong):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, platform.ErrVideoNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, extract.ErrNoRecognizer):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	default:
		slog.Error("extraction failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
