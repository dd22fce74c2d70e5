package job

import (
	"fmt"
	"time"

	"github.com/kbukum/diarscribe/diarization"
	"github.com/kbukum/diarscribe/sse"
	"github.com/kbukum/diarscribe/transcription"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the job will not change any more.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Token sources reported on the job.
const (
	TokenSourceUI  = "UI input"
	TokenSourceEnv = "environment"
)

// Options are the per-upload settings chosen on the form.
type Options struct {
	Model string `json:"model"`
	// Token is the diarization access token. It is never serialized.
	Token       string `json:"-"`
	MinSpeakers int    `json:"min_speakers,omitempty"`
	MaxSpeakers int    `json:"max_speakers,omitempty"`
	Threads     int    `json:"threads,omitempty"`
}

// Validate checks the options. Zero values mean "use the server default".
func (o Options) Validate() error {
	if o.Model != "" && !transcription.ValidModel(o.Model) {
		return fmt.Errorf("model must be one of %v", transcription.Models)
	}
	if err := diarization.ValidateSpeakers(o.MinSpeakers, o.MaxSpeakers); err != nil {
		return err
	}
	if o.Threads < 0 || o.Threads > transcription.MaxThreads {
		return fmt.Errorf("threads must be within [1, %d]", transcription.MaxThreads)
	}
	return nil
}

// Job is one transcription request and its outcome.
type Job struct {
	ID         string  `json:"id"`
	SourceName string  `json:"source_name"`
	Options    Options `json:"options"`

	Status   Status   `json:"status"`
	Progress float64  `json:"progress"`
	Stage    string   `json:"stage"`
	Warnings []string `json:"warnings,omitempty"`

	Diarized    bool    `json:"diarized"`
	TokenSource string  `json:"token_source,omitempty"`
	Language    string  `json:"language,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	Segments    int     `json:"segments"`
	Speakers    int     `json:"speakers,omitempty"`

	TranscriptKey string `json:"transcript_key,omitempty"`
	Text          string `json:"text,omitempty"`

	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy.
func (j *Job) Clone() *Job {
	c := *j
	c.Options.Token = ""
	c.Warnings = append([]string(nil), j.Warnings...)
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Update is the payload of a progress event: the job without its text.
type Update struct {
	ID        string   `json:"id"`
	Status    Status   `json:"status"`
	Progress  float64  `json:"progress"`
	Stage     string   `json:"stage"`
	Warnings  []string `json:"warnings,omitempty"`
	Diarized  bool     `json:"diarized"`
	ErrorCode string   `json:"error_code,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Update returns the event payload for the job's current state.
func (j *Job) Update() Update {
	return Update{
		ID:        j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		Stage:     j.Stage,
		Warnings:  append([]string(nil), j.Warnings...),
		Diarized:  j.Diarized,
		ErrorCode: j.ErrorCode,
		Error:     j.Error,
	}
}

// Event is the stream event for the job's current state. Terminal states
// produce a final event.
func (j *Job) Event() (sse.Event, error) {
	eventType := sse.EventTypeProgress
	switch j.Status {
	case StatusCompleted:
		eventType = sse.EventTypeCompleted
	case StatusFailed:
		eventType = sse.EventTypeFailed
	}
	return sse.NewEvent(eventType, j.Update(), j.Status.Terminal())
}

// EventPattern matches every stream watching the job.
func EventPattern(id string) string {
	return "job:" + id + ":*"
}

// ClientID names one stream watching the job.
func ClientID(id, conn string) string {
	return "job:" + id + ":" + conn
}
