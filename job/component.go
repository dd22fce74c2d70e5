package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kbukum/diarscribe/component"
	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/storage"
)

var (
	_ component.Component   = (*Runner)(nil)
	_ component.Describable = (*Runner)(nil)
)

// Name implements component.Component.
func (r *Runner) Name() string { return "jobs" }

// Start prepares the upload directory and opens the runner for submissions.
func (r *Runner) Start(context.Context) error {
	if err := os.MkdirAll(r.cfg.UploadDir, 0o750); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	r.mu.Lock()
	r.stopped = false
	r.mu.Unlock()
	return nil
}

// Stop refuses new submissions and waits for running jobs, up to the
// configured shutdown timeout or until ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(r.cfg.ShutdownTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("jobs: %d still running after %s", r.bulkhead.InUse(), r.cfg.ShutdownTimeout)
	case <-ctx.Done():
		return fmt.Errorf("jobs: %d still running: %w", r.bulkhead.InUse(), ctx.Err())
	}
}

// Health reports degraded while every slot is busy.
func (r *Runner) Health(context.Context) component.Health {
	h := component.Health{
		Name:    r.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d running, %d free", r.bulkhead.InUse(), r.bulkhead.Available()),
	}
	if r.bulkhead.Available() == 0 {
		h.Status = component.StatusDegraded
	}
	return h
}

// Stats is a point-in-time view of the job slots.
type Stats struct {
	Running       int `json:"running"`
	Free          int `json:"free"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Stats reports slot usage for the metrics endpoint.
func (r *Runner) Stats() Stats {
	return Stats{
		Running:       r.bulkhead.InUse(),
		Free:          r.bulkhead.Available(),
		MaxConcurrent: r.cfg.MaxConcurrent,
	}
}

// Describe implements component.Describable.
func (r *Runner) Describe() component.Description {
	return component.Description{
		Name:    "Job Runner",
		Type:    "jobs",
		Details: fmt.Sprintf("max_concurrent=%d store=%s ttl=%s", r.cfg.MaxConcurrent, r.cfg.Store, r.cfg.TTL),
	}
}

// Get returns a job by ID.
func (r *Runner) Get(ctx context.Context, id string) (*Job, error) {
	j, err := r.deps.Store.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NotFound("transcription", id)
	}
	if err != nil {
		return nil, apperrors.StorageError("load job", err)
	}
	return j, nil
}

// List returns the most recent jobs without their transcript text.
func (r *Runner) List(ctx context.Context) ([]*Job, error) {
	jobs, err := r.deps.Store.List(ctx, r.cfg.ListLimit)
	if err != nil {
		return nil, apperrors.StorageError("list jobs", err)
	}
	for _, j := range jobs {
		j.Text = ""
	}
	return jobs, nil
}

// Transcript returns the stored transcript of a completed job and the file
// name to offer for download.
func (r *Runner) Transcript(ctx context.Context, id string) ([]byte, string, error) {
	j, err := r.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if j.Status != StatusCompleted || j.TranscriptKey == "" {
		return nil, "", apperrors.NotFound("transcript", id).WithDetail("status", string(j.Status))
	}
	data, err := storage.ReadBytes(ctx, r.deps.Storage, j.TranscriptKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, "", apperrors.NotFound("transcript", id)
	}
	if err != nil {
		return nil, "", apperrors.StorageError("read transcript", err)
	}
	return data, TranscriptFilename(j.SourceName), nil
}
