package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/diarscribe/diarization"
	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/observability"
	"github.com/kbukum/diarscribe/provider"
	"github.com/kbukum/diarscribe/resilience"
	"github.com/kbukum/diarscribe/sse"
	"github.com/kbukum/diarscribe/storage"
	"github.com/kbukum/diarscribe/transcript"
	"github.com/kbukum/diarscribe/transcription"
	"github.com/kbukum/diarscribe/util"
)

// Progress checkpoints and their stage descriptions.
const (
	progressLoading     = 0.05
	progressTranscribe  = 0.15
	progressAlign       = 0.50
	progressDiarize     = 0.65
	progressFormat      = 0.90
	progressSave        = 0.95
	progressComplete    = 1.0
	stageQueued         = "Queued"
	stageLoading        = "Loading Whisper model..."
	stageTranscribe     = "Transcribing audio (this may take a while for long files)..."
	stageAlign          = "Aligning transcript..."
	stageDiarizeFmt     = "Performing speaker diarization (token from %s)..."
	stageFormat         = "Formatting output..."
	stageSave           = "Saving transcript..."
	stageComplete       = "Complete!"
	stageFailed         = "Failed"
	transcriptSuffix    = "_transcript.txt"
	fallbackStem        = "audio"
	diarizationDisabled = "Speaker diarization is not configured on this server, continuing without speaker labels..."
)

// Deps are the collaborators a Runner drives.
type Deps struct {
	Transcriber transcription.Provider
	// Diarizer is nil when diarization is disabled.
	Diarizer diarization.Provider
	Storage  storage.Storage
	Store    Store
	// Events and Metrics are optional.
	Events  sse.Broadcaster
	Metrics *observability.Metrics
}

// Runner accepts uploads and processes them in the background, at most
// MaxConcurrent at a time.
type Runner struct {
	cfg  Config
	tcfg transcription.Config
	dcfg diarization.Config
	deps Deps
	log  *logger.Logger

	now   func() time.Time
	newID func() string

	transcribe provider.RequestResponse[transcription.Request, *transcription.Response]
	diarize    provider.RequestResponse[diarization.Request, *diarization.Response]
	bulkhead   *resilience.Bulkhead
	limiter    *resilience.RateLimiter

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewRunner wires the backends with logging, tracing, metrics and the
// configured retry and circuit breaker policies.
func NewRunner(cfg Config, tcfg transcription.Config, dcfg diarization.Config, deps Deps) (*Runner, error) {
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("job runner: transcriber is required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("job runner: storage is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("job runner: job store is required")
	}
	cfg.ApplyDefaults()
	tcfg.ApplyDefaults()
	dcfg.ApplyDefaults()

	log := logger.Get("job")
	r := &Runner{
		cfg:   cfg,
		tcfg:  tcfg,
		dcfg:  dcfg,
		deps:  deps,
		log:   log,
		now:   time.Now,
		newID: uuid.NewString,
		limiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Rate:  cfg.SubmitRate,
			Burst: cfg.SubmitBurst,
		}),
	}
	r.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "jobs",
		MaxConcurrent: cfg.MaxConcurrent,
		OnReject: func(name string) {
			log.Warn("All job slots busy, rejecting upload", logger.Fields("bulkhead", name, "max_concurrent", cfg.MaxConcurrent))
		},
	})
	r.transcribe = wrap(transcription.AsRequestResponse(deps.Transcriber), transcription.Stage, log, deps.Metrics, tcfg.Resilience)
	if deps.Diarizer != nil {
		r.diarize = wrap(diarization.AsRequestResponse(deps.Diarizer), diarization.Stage, log, deps.Metrics, dcfg.Resilience)
	}
	return r, nil
}

func wrap[I, O any](rr provider.RequestResponse[I, O], stage string, log *logger.Logger, m *observability.Metrics, rc provider.ResilienceConfig) provider.RequestResponse[I, O] {
	return provider.Chain(
		provider.WithLogging[I, O](log.WithFields(logger.Fields(logger.FieldStage, stage))),
		provider.WithTracing[I, O](stage),
		provider.WithMetrics[I, O](stage, m),
		provider.WithResilience[I, O](rc),
	)(rr)
}

// UploadDir is where the HTTP layer stores uploads before Submit.
func (r *Runner) UploadDir() string { return r.cfg.UploadDir }

// DefaultModel is the model preselected on the form.
func (r *Runner) DefaultModel() string { return r.tcfg.Model }

// DefaultThreads is the thread count preselected on the form.
func (r *Runner) DefaultThreads() int { return r.tcfg.Threads }

// HasServerToken reports whether diarization works without a form token.
func (r *Runner) HasServerToken() bool { return r.dcfg.Token != "" }

// ResolveToken picks the form token over the server token and names the
// source. It returns "" when neither is set.
func (r *Runner) ResolveToken(formToken string) (token, source string) {
	if t := strings.TrimSpace(formToken); t != "" {
		return t, TokenSourceUI
	}
	if t := util.SanitizeEnvValue(r.dcfg.Token); t != "" {
		return t, TokenSourceEnv
	}
	return "", ""
}

// Submit registers a job for audioPath and starts it in the background.
// On success the runner owns audioPath and deletes it when the job ends.
func (r *Runner) Submit(ctx context.Context, audioPath, sourceName string, opts Options) (*Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return nil, apperrors.ServiceUnavailable("transcription service")
	}
	if err := opts.Validate(); err != nil {
		return nil, apperrors.InvalidInput("options", err.Error())
	}
	if !r.limiter.Allow() {
		return nil, apperrors.RateLimited().WithDetail("retry_after_seconds", r.limiter.RetryAfter().Seconds())
	}
	release, err := r.bulkhead.Acquire(ctx)
	if err != nil {
		return nil, apperrors.ServiceUnavailable("transcription queue").
			WithCause(err).
			WithDetail("max_concurrent", r.cfg.MaxConcurrent)
	}

	formToken := opts.Token
	opts.Token = ""
	opts.Model = util.Coalesce(opts.Model, r.tcfg.Model)
	opts.Threads = util.Coalesce(opts.Threads, r.tcfg.Threads)

	now := r.now()
	j := &Job{
		ID:         r.newID(),
		SourceName: sourceName,
		Options:    opts,
		Status:     StatusQueued,
		Stage:      stageQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.deps.Store.Save(ctx, j); err != nil {
		release()
		return nil, apperrors.StorageError("save job", err)
	}

	r.log.WithContext(ctx).WithJob(j.ID).Info("Job accepted", logger.Fields(
		"source", sourceName,
		logger.FieldModel, opts.Model,
		"threads", opts.Threads,
		"token", util.MaskSecret(strings.TrimSpace(formToken), 5),
	))

	snapshot := j.Clone()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer release()
		r.run(context.WithoutCancel(ctx), j, audioPath, formToken)
	}()
	return snapshot, nil
}

func (r *Runner) run(ctx context.Context, j *Job, audioPath, formToken string) {
	defer r.removeUpload(audioPath)

	ctx, span := observability.StartSpan(ctx, observability.SpanJob)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrJobID, j.ID)
	observability.SetSpanAttribute(ctx, observability.AttrModel, j.Options.Model)

	log := r.log.WithContext(ctx).WithJob(j.ID)
	start := r.now()
	if r.deps.Metrics != nil {
		r.deps.Metrics.JobStarted(ctx)
	}

	j.Status = StatusRunning
	err := r.Process(ctx, j, audioPath, formToken)

	finished := r.now()
	j.UpdatedAt = finished
	j.CompletedAt = &finished
	if err != nil {
		appErr := asAppError(err)
		j.Status = StatusFailed
		j.Stage = stageFailed
		j.ErrorCode = string(appErr.Code)
		j.Error = failureMessage(appErr)
		observability.SetSpanError(ctx, err)
		log.Error("Job failed", logger.ErrorFields("process", err))
	} else {
		j.Status = StatusCompleted
		j.Progress = progressComplete
		j.Stage = stageComplete
		log.Info("Job completed", logger.Fields(
			logger.FieldDuration, finished.Sub(start).Milliseconds(),
			"diarized", j.Diarized,
			"segments", j.Segments,
			"key", j.TranscriptKey,
		))
	}
	observability.SetSpanAttribute(ctx, observability.AttrDiarized, j.Diarized)
	r.save(ctx, j)
	r.publish(j)

	if r.deps.Metrics != nil {
		r.deps.Metrics.JobFinished(ctx, string(j.Status), j.Diarized, finished.Sub(start))
	}
}

// Process runs transcribe, diarize, format and save for one recording,
// updating j at every checkpoint. Only transcription and storage failures
// fail the job; alignment and diarization problems become warnings.
func (r *Runner) Process(ctx context.Context, j *Job, audioPath, formToken string) error {
	log := r.log.WithContext(ctx).WithJob(j.ID)
	token, source := r.ResolveToken(formToken)
	j.TokenSource = source

	r.progress(ctx, j, progressLoading, stageLoading)
	r.progress(ctx, j, progressTranscribe, stageTranscribe)

	began := r.now()
	tctx, cancel := context.WithTimeout(ctx, r.tcfg.Timeout)
	tr, err := r.transcribe.Execute(tctx, r.tcfg.Request(audioPath, j.Options.Model, j.Options.Threads))
	cancel()
	if err != nil {
		return transcriptionError(err)
	}
	j.Language = tr.Language
	j.Duration = tr.AudioDuration()
	j.Segments = len(tr.Segments)
	log.Info("Transcription finished", withFields(
		logger.StageFields(j.ID, transcription.Stage, r.now().Sub(began)),
		"segments", j.Segments, "language", j.Language,
	))
	if r.deps.Metrics != nil {
		r.deps.Metrics.RecordAudio(ctx, j.Options.Model, j.Duration)
	}

	r.progress(ctx, j, progressAlign, stageAlign)
	if tr.AlignWarning != "" {
		r.warn(ctx, j, fmt.Sprintf("Alignment warning: %s, continuing...", tr.AlignWarning))
	}

	intervals := r.diarizeStep(ctx, j, audioPath, token)

	r.progress(ctx, j, progressFormat, stageFormat)
	doc := r.format(ctx, j, tr.Segments, intervals, token == "")

	r.progress(ctx, j, progressSave, stageSave)
	key := TranscriptKey(j.ID, j.SourceName)
	if err := r.saveTranscript(ctx, key, doc); err != nil {
		return apperrors.StorageError("save transcript", err)
	}
	j.TranscriptKey = key
	j.Text = doc.Body()
	return nil
}

// diarizeStep returns nil when diarization did not run or failed.
func (r *Runner) diarizeStep(ctx context.Context, j *Job, audioPath, token string) []transcript.Interval {
	if token == "" {
		return nil
	}
	if r.diarize == nil {
		r.warn(ctx, j, diarizationDisabled)
		return nil
	}
	r.progress(ctx, j, progressDiarize, fmt.Sprintf(stageDiarizeFmt, j.TokenSource))

	began := r.now()
	dctx, cancel := context.WithTimeout(ctx, r.dcfg.Timeout)
	defer cancel()
	resp, err := r.diarize.Execute(dctx, diarization.Request{
		AudioPath:   audioPath,
		Token:       token,
		MinSpeakers: j.Options.MinSpeakers,
		MaxSpeakers: j.Options.MaxSpeakers,
		Device:      r.tcfg.Device,
	})
	if err != nil {
		failed := apperrors.DiarizationFailed(err)
		r.log.WithContext(ctx).WithJob(j.ID).Warn("Diarization failed, continuing without speaker labels",
			logger.ErrorFields("diarize", err))
		r.warn(ctx, j, failed.Message+", continuing without speaker labels...")
		return nil
	}

	intervals := resp.Intervals
	if intervals == nil {
		intervals = []transcript.Interval{}
	}
	j.Diarized = true
	j.Speakers = max(resp.NumSpeakers, len(resp.Speakers()))
	r.log.WithContext(ctx).WithJob(j.ID).Info("Diarization finished", withFields(
		logger.StageFields(j.ID, diarization.Stage, r.now().Sub(began)),
		"speakers", j.Speakers, "intervals", len(intervals),
	))
	return intervals
}

func (r *Runner) format(ctx context.Context, j *Job, segments []transcript.Segment, intervals []transcript.Interval, noToken bool) transcript.Document {
	ctx, span := observability.StartSpan(ctx, observability.SpanFormat)
	defer span.End()

	h := transcript.Header{
		SourceName:  j.SourceName,
		Model:       j.Options.Model,
		GeneratedAt: r.now(),
	}
	if noToken {
		h.Note = transcript.NoTokenNote
	}
	doc := transcript.Build(h, segments, intervals)
	observability.SetSpanAttribute(ctx, observability.AttrSegments, len(segments))
	observability.SetSpanAttribute(ctx, observability.AttrDiarized, doc.Header.Diarized)
	return doc
}

func (r *Runner) saveTranscript(ctx context.Context, key string, doc transcript.Document) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanSave)
	defer span.End()
	if err := storage.WriteBytes(ctx, r.deps.Storage, key, doc.Bytes()); err != nil {
		observability.SetSpanError(ctx, err)
		return err
	}
	return nil
}

// TranscriptKey is the storage path of a job's transcript:
// <jobID>/<stem>_transcript.txt.
func TranscriptKey(jobID, sourceName string) string {
	return path.Join(jobID, TranscriptFilename(sourceName))
}

// TranscriptFilename is the download name offered for a recording.
func TranscriptFilename(sourceName string) string {
	return util.FileStem(sourceName, fallbackStem) + transcriptSuffix
}

func (r *Runner) progress(ctx context.Context, j *Job, p float64, stage string) {
	j.Progress = p
	j.Stage = stage
	j.UpdatedAt = r.now()
	r.save(ctx, j)
	r.publish(j)
}

func (r *Runner) warn(ctx context.Context, j *Job, msg string) {
	j.Warnings = append(j.Warnings, msg)
	r.progress(ctx, j, j.Progress, msg)
}

// save records state changes. A failed write is logged and does not stop the job.
func (r *Runner) save(ctx context.Context, j *Job) {
	if err := r.deps.Store.Save(ctx, j); err != nil {
		r.log.WithContext(ctx).WithJob(j.ID).Warn("Failed to persist job state", logger.ErrorFields("save_job", err))
	}
}

func (r *Runner) publish(j *Job) {
	if r.deps.Events == nil {
		return
	}
	ev, err := j.Event()
	if err != nil {
		r.log.Warn("Failed to encode job event", logger.ErrorFields("encode_event", err))
		return
	}
	r.deps.Events.Publish(EventPattern(j.ID), ev)
}

func (r *Runner) removeUpload(audioPath string) {
	if audioPath == "" {
		return
	}
	if err := os.Remove(audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.log.Warn("Failed to remove upload", logger.Fields("path", audioPath, logger.FieldError, err.Error()))
	}
}

func transcriptionError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.TranscriptionFailed("transcription", err)
}

func asAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	return apperrors.Internal(err)
}

// failureMessage is the text shown to the user for a failed job.
func failureMessage(e *apperrors.AppError) string {
	if e.Code == apperrors.ErrCodeTranscriptionFailed || e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s (%v)", e.Message, e.Cause)
}

func withFields(base map[string]interface{}, kvs ...interface{}) map[string]interface{} {
	for k, v := range logger.Fields(kvs...) {
		base[k] = v
	}
	return base
}
