// Package api serves the upload page and the transcription REST API.
package api

import (
	"context"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/diarscribe/auth"
	"github.com/kbukum/diarscribe/diarization"
	"github.com/kbukum/diarscribe/job"
	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/server"
	"github.com/kbukum/diarscribe/server/middleware"
	"github.com/kbukum/diarscribe/sse"
	"github.com/kbukum/diarscribe/transcription"
)

// Jobs is the part of the job runner the handlers use.
type Jobs interface {
	Submit(ctx context.Context, audioPath, sourceName string, opts job.Options) (*job.Job, error)
	Get(ctx context.Context, id string) (*job.Job, error)
	List(ctx context.Context) ([]*job.Job, error)
	Transcript(ctx context.Context, id string) ([]byte, string, error)
	UploadDir() string
	DefaultModel() string
	DefaultThreads() int
	HasServerToken() bool
}

// Handler holds the routes of the web app.
type Handler struct {
	jobs Jobs
	hub  *sse.Hub
	log  *logger.Logger

	uploadLimit string
	validator   auth.TokenValidator
	rateLimit   int
}

// Option configures a Handler.
type Option func(*Handler)

// WithAuth requires a bearer token on every /api route.
func WithAuth(v auth.TokenValidator) Option {
	return func(h *Handler) { h.validator = v }
}

// WithRateLimit limits /api requests per client IP per minute. 0 disables it.
func WithRateLimit(requestsPerMinute int) Option {
	return func(h *Handler) { h.rateLimit = requestsPerMinute }
}

// WithUploadLimit names the body size limit in PAYLOAD_TOO_LARGE errors.
func WithUploadLimit(limit string) Option {
	return func(h *Handler) { h.uploadLimit = limit }
}

// WithLogger overrides the handler logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler creates the handlers over jobs, streaming progress from hub.
func NewHandler(jobs Jobs, hub *sse.Hub, opts ...Option) *Handler {
	h := &Handler{
		jobs:        jobs,
		hub:         hub,
		log:         logger.Get("api"),
		uploadLimit: "2GB",
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the page at / and the API under /api/v1.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Index)

	v1 := r.Group("/api/v1")
	if h.rateLimit > 0 {
		v1.Use(middleware.RateLimit(middleware.RateLimitConfig{RequestsPerMinute: h.rateLimit}))
	}
	if h.validator != nil {
		v1.Use(middleware.Auth(h.validator))
	}
	v1.GET("/models", h.Models)
	v1.POST("/transcriptions", h.Create)
	v1.GET("/transcriptions", h.List)
	v1.GET("/transcriptions/:id", h.Get)
	v1.GET("/transcriptions/:id/transcript", h.Transcript)
	v1.GET("/transcriptions/:id/events", h.Events)
}

// ModelsResponse describes the choices offered on the form.
type ModelsResponse struct {
	Models         []string `json:"models"`
	Default        string   `json:"default"`
	DefaultThreads int      `json:"default_threads"`
	MaxThreads     int      `json:"max_threads"`
	MaxSpeakers    int      `json:"max_speakers"`
	ServerToken    bool     `json:"server_token"`
}

// Models lists the model sizes and form defaults.
func (h *Handler) Models(c *gin.Context) {
	server.RespondOK(c, ModelsResponse{
		Models:         transcription.Models,
		Default:        h.jobs.DefaultModel(),
		DefaultThreads: h.jobs.DefaultThreads(),
		MaxThreads:     transcription.MaxThreads,
		MaxSpeakers:    diarization.MaxSpeakers,
		ServerToken:    h.jobs.HasServerToken(),
	})
}

// List returns recent jobs, newest first.
func (h *Handler) List(c *gin.Context) {
	jobs, err := h.jobs.List(c.Request.Context())
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, jobs, &server.Meta{Total: len(jobs)})
}

// Get returns one job.
func (h *Handler) Get(c *gin.Context) {
	j, err := h.jobs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, j)
}

// Transcript downloads the finished transcript as a text attachment.
func (h *Handler) Transcript(c *gin.Context) {
	data, filename, err := h.jobs.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
}

// Events streams job progress. The first events are a connected notice and
// the job's current state; a finished job ends the stream right away.
func (h *Handler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.jobs.Get(ctx, id); err != nil {
		server.RespondWithError(c, err)
		return
	}

	clientID := job.ClientID(id, uuid.NewString())
	sse.Stream(h.hub, c.Writer, c.Request, clientID, func() []sse.Event {
		var events []sse.Event
		if ev, err := sse.NewEvent(sse.EventTypeConnected, gin.H{"job_id": id, "client_id": clientID}, false); err == nil {
			events = append(events, ev)
		}
		j, err := h.jobs.Get(ctx, id)
		if err != nil {
			h.log.WithContext(ctx).WithJob(id).Warn("Job vanished before stream snapshot", logger.ErrorFields("load_job", err))
			return events
		}
		ev, err := j.Event()
		if err != nil {
			h.log.WithContext(ctx).WithJob(id).Warn("Failed to encode job event", logger.ErrorFields("encode_event", err))
			return events
		}
		return append(events, ev)
	})
}
