package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/diarscribe/auth"
	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/job"
	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/server/middleware"
	"github.com/kbukum/diarscribe/sse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type submission struct {
	path   string
	source string
	opts   job.Options
}

type fakeJobs struct {
	uploadDir   string
	serverToken bool
	submitErr   error

	mu          sync.Mutex
	jobs        map[string]*job.Job
	submissions []submission
}

func newFakeJobs(t *testing.T) *fakeJobs {
	return &fakeJobs{uploadDir: t.TempDir(), jobs: map[string]*job.Job{}}
}

func (f *fakeJobs) Submit(_ context.Context, audioPath, sourceName string, opts job.Options) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, submission{audioPath, sourceName, opts})
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	j := &job.Job{ID: "job-1", SourceName: sourceName, Options: opts, Status: job.StatusQueued}
	f.jobs[j.ID] = j
	return j.Clone(), nil
}

func (f *fakeJobs) Get(_ context.Context, id string) (*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, apperrors.NotFound("transcription", id)
	}
	return j.Clone(), nil
}

func (f *fakeJobs) List(context.Context) ([]*job.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*job.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, j.Clone())
	}
	return out, nil
}

func (f *fakeJobs) Transcript(ctx context.Context, id string) ([]byte, string, error) {
	j, err := f.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if j.Status != job.StatusCompleted {
		return nil, "", apperrors.NotFound("transcript", id)
	}
	return []byte(j.Text), job.TranscriptFilename(j.SourceName), nil
}

func (f *fakeJobs) UploadDir() string    { return f.uploadDir }
func (f *fakeJobs) DefaultModel() string { return "medium" }
func (f *fakeJobs) DefaultThreads() int  { return 16 }
func (f *fakeJobs) HasServerToken() bool { return f.serverToken }

func (f *fakeJobs) put(j *job.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
}

func newRouter(jobs Jobs, hub *sse.Hub, opts ...Option) *gin.Engine {
	r := gin.New()
	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	NewHandler(jobs, hub, opts...).Register(r)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if audio != nil {
		part, err := w.CreateFormFile("audio", "team meeting.wav")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(audio); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

func decodeError(t *testing.T, body []byte) apperrors.ErrorBody {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return resp.Error
}

func TestIndex(t *testing.T) {
	tests := []struct {
		name        string
		serverToken bool
		opts        []Option
		want        []string
		notWant     []string
	}{
		{
			name:    "no server token",
			want:    []string{`<option value="medium" selected>`, `placeholder="hf_..."`, `value="16"`},
			notWant: []string{`id="api_token"`, "loaded from the server environment"},
		},
		{
			name:        "server token",
			serverToken: true,
			want:        []string{"loaded from the server environment", "Leave empty to use the server token"},
		},
		{
			name: "auth required",
			opts: []Option{WithAuth(auth.NewValidator(func(string) (any, error) { return nil, nil }))},
			want: []string{`id="api_token"`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs(t)
			jobs.serverToken = tt.serverToken
			rr := httptest.NewRecorder()
			newRouter(jobs, sse.NewHub(), tt.opts...).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d", rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
			body := rr.Body.String()
			for _, s := range tt.want {
				if !strings.Contains(body, s) {
					t.Errorf("page missing %q", s)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(body, s) {
					t.Errorf("page unexpectedly contains %q", s)
				}
			}
		})
	}
}

func TestModels(t *testing.T) {
	jobs := newFakeJobs(t)
	jobs.serverToken = true
	rr := httptest.NewRecorder()
	newRouter(jobs, sse.NewHub()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/models", http.NoBody))

	var resp struct {
		Data ModelsResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	got := resp.Data
	if got.Default != "medium" || got.DefaultThreads != 16 || got.MaxThreads != 64 || got.MaxSpeakers != 20 || !got.ServerToken {
		t.Errorf("models = %+v", got)
	}
	if strings.Join(got.Models, ",") != "tiny,base,small,medium,large-v3" {
		t.Errorf("models list = %v", got.Models)
	}
}

func TestCreate(t *testing.T) {
	jobs := newFakeJobs(t)
	router := newRouter(jobs, sse.NewHub())

	body, ct := multipartBody(t, map[string]string{
		"model":        "small",
		"hf_token":     "  hf_abc  ",
		"min_speakers": "2",
		"max_speakers": "3",
		"threads":      "8",
	}, []byte("RIFF....WAVE"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "hf_abc") {
		t.Error("token leaked into the response")
	}
	if len(jobs.submissions) != 1 {
		t.Fatalf("submissions = %d", len(jobs.submissions))
	}
	sub := jobs.submissions[0]
	want := job.Options{Model: "small", Token: "hf_abc", MinSpeakers: 2, MaxSpeakers: 3, Threads: 8}
	if sub.opts != want {
		t.Errorf("options = %+v, want %+v", sub.opts, want)
	}
	if sub.source != "team meeting.wav" {
		t.Errorf("source = %q", sub.source)
	}
	if !strings.HasPrefix(sub.path, jobs.uploadDir) || !strings.HasSuffix(sub.path, ".wav") {
		t.Errorf("upload path = %q", sub.path)
	}
	if data, err := os.ReadFile(sub.path); err != nil || string(data) != "RIFF....WAVE" {
		t.Errorf("saved upload = %q, %v", data, err)
	}
}

func TestCreateDefaults(t *testing.T) {
	jobs := newFakeJobs(t)
	body, ct := multipartBody(t, map[string]string{"min_speakers": "", "threads": ""}, []byte("RIFF"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	newRouter(jobs, sse.NewHub()).ServeHTTP(rr, req)

	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := jobs.submissions[0].opts; got != (job.Options{}) {
		t.Errorf("blank fields should leave zero options, got %+v", got)
	}
}

func TestCreateRejects(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		audio    []byte
		raw      string
		wantCode apperrors.ErrorCode
		wantMsg  string
	}{
		{name: "no audio", fields: map[string]string{"model": "tiny"}, wantCode: apperrors.ErrCodeNoAudio, wantMsg: "Please upload an audio file."},
		{name: "empty audio", audio: []byte{}, wantCode: apperrors.ErrCodeNoAudio},
		{name: "not multipart", raw: "audio=x", wantCode: apperrors.ErrCodeNoAudio},
		{name: "unknown model", fields: map[string]string{"model": "huge"}, audio: []byte("RIFF"), wantCode: apperrors.ErrCodeInvalidInput},
		{name: "threads out of range", fields: map[string]string{"threads": "65"}, audio: []byte("RIFF"), wantCode: apperrors.ErrCodeInvalidInput},
		{name: "threads not a number", fields: map[string]string{"threads": "many"}, audio: []byte("RIFF"), wantCode: apperrors.ErrCodeInvalidInput},
		{name: "speakers out of range", fields: map[string]string{"max_speakers": "21"}, audio: []byte("RIFF"), wantCode: apperrors.ErrCodeInvalidInput},
		{name: "min above max", fields: map[string]string{"min_speakers": "4", "max_speakers": "2"}, audio: []byte("RIFF"), wantCode: apperrors.ErrCodeInvalidInput, wantMsg: "max_speakers: must be between 4 and 20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs(t)
			var req *http.Request
			if tt.raw != "" {
				req = httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", strings.NewReader(tt.raw))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				body, ct := multipartBody(t, tt.fields, tt.audio)
				req = httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", body)
				req.Header.Set("Content-Type", ct)
			}
			rr := httptest.NewRecorder()
			newRouter(jobs, sse.NewHub()).ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
			}
			got := decodeError(t, rr.Body.Bytes())
			if got.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", got.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && got.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMsg)
			}
			if len(jobs.submissions) != 0 {
				t.Error("rejected upload reached the runner")
			}
			if entries, _ := os.ReadDir(jobs.uploadDir); len(entries) != 0 {
				t.Errorf("upload dir not empty: %v", entries)
			}
		})
	}
}

func TestUploadFormValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    uploadForm
		wantErr bool
	}{
		{"defaults", uploadForm{}, false},
		{"only max", uploadForm{MaxSpeakers: 3}, false},
		{"equal bounds", uploadForm{MinSpeakers: 2, MaxSpeakers: 2}, false},
		{"min at limit", uploadForm{MinSpeakers: speakerLimit, MaxSpeakers: speakerLimit}, false},
		{"max below min", uploadForm{MinSpeakers: 3, MaxSpeakers: 2}, true},
		{"max above limit", uploadForm{MaxSpeakers: speakerLimit + 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.form.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateSubmitFailureRemovesUpload(t *testing.T) {
	jobs := newFakeJobs(t)
	jobs.submitErr = apperrors.ServiceUnavailable("transcription")
	body, ct := multipartBody(t, nil, []byte("RIFF"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	newRouter(jobs, sse.NewHub()).ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := decodeError(t, rr.Body.Bytes()); got.Code != apperrors.ErrCodeServiceUnavailable || !got.Retryable {
		t.Errorf("error = %+v", got)
	}
	if _, err := os.Stat(jobs.submissions[0].path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("upload kept after failed submit: %v", err)
	}
}

func TestCreateRateLimitedSetsRetryAfter(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"fractional wait rounds up", apperrors.RateLimited().WithDetail("retry_after_seconds", 2.2), "3"},
		{"missing hint", apperrors.RateLimited(), "1"},
		{"other error", apperrors.ServiceUnavailable("transcription"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := newFakeJobs(t)
			jobs.submitErr = tt.err
			body, ct := multipartBody(t, nil, []byte("RIFF"))
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", body)
			req.Header.Set("Content-Type", ct)
			rr := httptest.NewRecorder()
			newRouter(jobs, sse.NewHub()).ServeHTTP(rr, req)

			if got := rr.Header().Get("Retry-After"); got != tt.want {
				t.Errorf("Retry-After = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateTooLarge(t *testing.T) {
	jobs := newFakeJobs(t)
	router := newRouter(jobs, sse.NewHub(), WithUploadLimit("1KB"))
	h := middleware.BodySizeLimit("1KB")(router)

	body, ct := multipartBody(t, nil, bytes.Repeat([]byte("a"), 8<<10))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcriptions", body)
	req.Header.Set("Content-Type", ct)
	req.ContentLength = -1
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if got := decodeError(t, rr.Body.Bytes()); got.Code != apperrors.ErrCodePayloadTooLarge || !strings.Contains(got.Message, "1KB") {
		t.Errorf("error = %+v", got)
	}
	if len(jobs.submissions) != 0 {
		t.Error("oversized upload reached the runner")
	}
}

func TestGetAndList(t *testing.T) {
	jobs := newFakeJobs(t)
	jobs.put(&job.Job{ID: "a", Status: job.StatusRunning, Options: job.Options{Token: "hf_secret"}})
	jobs.put(&job.Job{ID: "b", Status: job.StatusCompleted})
	router := newRouter(jobs, sse.NewHub())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transcriptions/a", http.NoBody))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"running"`) {
		t.Fatalf("get: %d %s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "hf_secret") {
		t.Error("token leaked")
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transcriptions/missing", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing: status = %d", rr.Code)
	}
	if got := decodeError(t, rr.Body.Bytes()); got.Code != apperrors.ErrCodeNotFound {
		t.Errorf("code = %s", got.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transcriptions", http.NoBody))
	var list struct {
		Data []job.Job `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 2 || list.Meta.Total != 2 {
		t.Errorf("list = %+v", list)
	}
}

func TestTranscript(t *testing.T) {
	jobs := newFakeJobs(t)
	jobs.put(&job.Job{ID: "done", SourceName: "team meeting.wav", Status: job.StatusCompleted, Text: "[00:00:00] SPEAKER_00: hi"})
	jobs.put(&job.Job{ID: "busy", Status: job.StatusRunning})
	router := newRouter(jobs, sse.NewHub())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transcriptions/done/transcript", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename=team_meeting_transcript.txt" {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if rr.Body.String() != "[00:00:00] SPEAKER_00: hi" {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transcriptions/busy/transcript", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unfinished job: status = %d", rr.Code)
	}
}

func runHub(t *testing.T) *sse.Hub {
	t.Helper()
	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// readEvents reads SSE frames until n events were seen or the stream ends.
func readEvents(t *testing.T, r io.Reader, n int) []string {
	t.Helper()
	var types []string
	sc := bufio.NewScanner(r)
	for len(types) < n && sc.Scan() {
		if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
			types = append(types, name)
		}
	}
	return types
}

func TestEventsFinishedJob(t *testing.T) {
	jobs := newFakeJobs(t)
	jobs.put(&job.Job{ID: "done", Status: job.StatusCompleted, Progress: 1})
	rr := httptest.NewRecorder()
	newRouter(jobs, runHub(t)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transcriptions/done/events", http.NoBody))

	if ct := rr.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	got := readEvents(t, rr.Body, 10)
	if strings.Join(got, ",") != "connected,completed" {
		t.Errorf("events = %v", got)
	}
}

func TestEventsUnknownJob(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(newFakeJobs(t), runHub(t)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transcriptions/nope/events", http.NoBody))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestEventsLiveUpdates(t *testing.T) {
	jobs := newFakeJobs(t)
	running := &job.Job{ID: "live", Status: job.StatusRunning, Progress: 0.15, Stage: "Transcribing audio..."}
	jobs.put(running)
	hub := runHub(t)
	srv := httptest.NewServer(newRouter(jobs, hub))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/transcriptions/live/events", http.NoBody)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	// The snapshot is written after registration, so publishing afterwards
	// cannot be missed.
	if got := readEvents(t, br, 2); strings.Join(got, ",") != "connected,progress" {
		t.Fatalf("snapshot events = %v", got)
	}

	done := *running
	done.Status, done.Progress = job.StatusCompleted, 1
	ev, err := done.Event()
	if err != nil {
		t.Fatal(err)
	}
	hub.Publish(job.EventPattern("live"), ev)

	if got := readEvents(t, br, 1); len(got) != 1 || got[0] != sse.EventTypeCompleted {
		t.Fatalf("live events = %v", got)
	}
	if _, err := io.ReadAll(br); err != nil {
		t.Errorf("stream did not end cleanly: %v", err)
	}
}

func TestAuthOnAPI(t *testing.T) {
	validator := auth.NewValidator(func(token string) (any, error) {
		if token != "good" {
			return nil, errors.New("invalid")
		}
		return "ops", nil
	})
	router := newRouter(newFakeJobs(t), sse.NewHub(), WithAuth(validator))

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"page is public", "/", "", http.StatusOK},
		{"api needs token", "/api/v1/models", "", http.StatusUnauthorized},
		{"bearer token", "/api/v1/models", "Bearer good", http.StatusOK},
		{"query token", "/api/v1/models?access_token=good", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRateLimitOnAPI(t *testing.T) {
	router := newRouter(newFakeJobs(t), sse.NewHub(), WithRateLimit(1))
	codes := make([]int, 0, 2)
	for range 2 {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/models", http.NoBody)
		req.RemoteAddr = "10.0.0.1:1234"
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestUploadExt(t *testing.T) {
	tests := map[string]string{
		"meeting.WAV":     ".wav",
		"call.m4a":        ".m4a",
		"noext":           "",
		"weird.w@v":       "",
		"long.extension1": "",
		"../../etc.mp3":   ".mp3",
	}
	for in, want := range tests {
		if got := uploadExt(in); got != want {
			t.Errorf("uploadExt(%q) = %q, want %q", in, got, want)
		}
	}
}
