package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JxcChen/bili-pro/internal/extract"
	"github.com/JxcChen/bili-pro/internal/jobs"
	"github.com/JxcChen/bili-pro/internal/models"
	"github.com/JxcChen/bili-pro/internal/platform"
	"github.com/JxcChen/bili-pro/internal/summarize"
)

type fakeExtractor struct {
	outcome *extract.Outcome
	err     error
}

func (f *fakeExtractor) Extract(ctx context.Context, videoURL, format string) (*extract.Outcome, error) {
	return f.outcome, f.err
}

type fakeSummarizer struct {
	result *models.SummaryResponse
	err    error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, transcript, style string) (*models.SummaryResponse, error) {
	return f.result, f.err
}

func newTestHandler(e Extractor, s Summarizer) (*Handler, *jobs.Registry) {
	reg := jobs.NewRegistry()
	return NewHandler(e, reg, s), reg
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestExtractSynchronousCaptionHit(t *testing.T) {
	transcript := &models.Transcript{
		BVID:       "BV1xx",
		Title:      "demo",
		Duration:   300,
		Method:     models.MethodCaption,
		Transcript: "你好 world",
		Utterances: []models.Utterance{{Text: "你好", Start: 0, End: 2}, {Text: "world", Start: 2, End: 4}},
	}
	h, _ := newTestHandler(&fakeExtractor{outcome: &extract.Outcome{Transcript: transcript}}, &fakeSummarizer{})

	rec := doRequest(http.HandlerFunc(h.Extract), http.MethodPost, "/api/extract",
		`{"url":"https://www.bilibili.com/video/BV1xx","format":"txt"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var payload models.TranscriptData
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, models.MethodCaption, payload.Method)
	assert.Equal(t, "你好 world", payload.Transcript)
	assert.Len(t, payload.Utterances, 2)
	assert.Empty(t, payload.JobID)
}

func TestExtractAsyncDispatchReturnsJobHandle(t *testing.T) {
	job := &models.Job{ID: "job-1", Status: models.JobStatusPending, BVID: "BV1xx", Title: "demo"}
	h, _ := newTestHandler(&fakeExtractor{outcome: &extract.Outcome{Job: job}}, &fakeSummarizer{})

	rec := doRequest(http.HandlerFunc(h.Extract), http.MethodPost, "/api/extract",
		`{"url":"BV1xx"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), `"job_id":"job-1"`)
	assert.Contains(t, rec.Body.String(), "/api/progress/job-1")
}

func TestExtractValidation(t *testing.T) {
	h, _ := newTestHandler(&fakeExtractor{}, &fakeSummarizer{})
	handler := http.HandlerFunc(h.Extract)

	assert.Equal(t, http.StatusMethodNotAllowed,
		doRequest(handler, http.MethodGet, "/api/extract", "").Code)
	assert.Equal(t, http.StatusBadRequest,
		doRequest(handler, http.MethodPost, "/api/extract", "{not json").Code)
	assert.Equal(t, http.StatusBadRequest,
		doRequest(handler, http.MethodPost, "/api/extract", `{"url":"  "}`).Code)
}

func TestExtractErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{platform.ErrBadReference, http.StatusBadRequest},
		{platform.ErrShortLink, http.StatusBadRequest},
		{extract.ErrTooLong, http.StatusBadRequest},
		{platform.ErrVideoNotFound, http.StatusNotFound},
		{extract.ErrNoRecognizer, http.StatusNotImplemented},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		h, _ := newTestHandler(&fakeExtractor{err: tt.err}, &fakeSummarizer{})
		rec := doRequest(http.HandlerFunc(h.Extract), http.MethodPost, "/api/extract", `{"url":"BV1xx"}`)
		assert.Equal(t, tt.code, rec.Code, "error %v", tt.err)
	}
}

func TestProgressSnapshot(t *testing.T) {
	h, reg := newTestHandler(&fakeExtractor{}, &fakeSummarizer{})
	job := reg.Create(models.JobMeta{BVID: "BV1xx", Title: "demo", Duration: 10})
	reg.SetProgress(job.ID, 50, "recognizing")

	rec := doRequest(http.HandlerFunc(h.Progress), http.MethodGet, "/api/progress/"+job.ID, "")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ProgressResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, job.ID, resp.JobID)
	assert.Equal(t, models.JobStatusProcessing, resp.Status)
	assert.Equal(t, 50, resp.Progress)
	assert.Equal(t, "recognizing", resp.Message)
}

func TestProgressUnknownJob(t *testing.T) {
	h, _ := newTestHandler(&fakeExtractor{}, &fakeSummarizer{})

	rec := doRequest(http.HandlerFunc(h.Progress), http.MethodGet, "/api/progress/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(http.HandlerFunc(h.Progress), http.MethodGet, "/api/progress/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummarizeDelegates(t *testing.T) {
	h, _ := newTestHandler(&fakeExtractor{}, &fakeSummarizer{
		result: &models.SummaryResponse{Summary: "## Core\nnotes", KeyPoints: []string{"Core"}},
	})

	rec := doRequest(http.HandlerFunc(h.Summarize), http.MethodPost, "/api/summarize",
		`{"transcript":"a long enough transcript","style":"brief"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"key_points":["Core"]`)
}

func TestSummarizeTooShort(t *testing.T) {
	h, _ := newTestHandler(&fakeExtractor{}, &fakeSummarizer{err: summarize.ErrTooShort})

	rec := doRequest(http.HandlerFunc(h.Summarize), http.MethodPost, "/api/summarize",
		`{"transcript":"short"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouterWiresEndpoints(t *testing.T) {
	h, reg := newTestHandler(&fakeExtractor{err: platform.ErrBadReference}, &fakeSummarizer{})
	job := reg.Create(models.JobMeta{BVID: "BV1xx"})
	router := NewRouter(h, []string{"*"})

	assert.Equal(t, http.StatusOK,
		doRequest(router, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK,
		doRequest(router, http.MethodGet, "/api/progress/"+job.ID, "").Code)
	assert.Equal(t, http.StatusBadRequest,
		doRequest(router, http.MethodPost, "/api/extract", `{"url":"nope"}`).Code)
}

func TestCORSAllowlist(t *testing.T) {
	h, _ := newTestHandler(&fakeExtractor{}, &fakeSummarizer{})
	router := NewRouter(h, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
