package api

import (
	"errors"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"

	apperrors "github.com/kbukum/diarscribe/errors"
	"github.com/kbukum/diarscribe/job"
	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/server"
	"github.com/kbukum/diarscribe/validation"
)

// audioField is the multipart field carrying the recording.
const audioField = "audio"

// speakerLimit matches the max tag on the speaker fields.
const speakerLimit = 20

// multipartMemory is how much of an upload is buffered before spilling to disk.
const multipartMemory = 32 << 20

// uploadForm holds the non-file fields of the upload form. Zero values mean
// "use the server default".
type uploadForm struct {
	Model       string `form:"model" validate:"omitempty,oneof=tiny base small medium large-v3"`
	Token       string `form:"hf_token"`
	MinSpeakers int    `form:"min_speakers" validate:"omitempty,min=1,max=20"`
	MaxSpeakers int    `form:"max_speakers" validate:"omitempty,min=1,max=20"`
	Threads     int    `form:"threads" validate:"omitempty,min=1,max=64"`
}

func (f uploadForm) validate() error {
	if err := validation.Validate(f); err != nil {
		return err
	}
	v := validation.New()
	if f.MinSpeakers > 0 && f.MaxSpeakers > 0 {
		v.Range("max_speakers", f.MaxSpeakers, f.MinSpeakers, speakerLimit)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (f uploadForm) options() job.Options {
	return job.Options{
		Model:       strings.TrimSpace(f.Model),
		Token:       strings.TrimSpace(f.Token),
		MinSpeakers: f.MinSpeakers,
		MaxSpeakers: f.MaxSpeakers,
		Threads:     f.Threads,
	}
}

// Create accepts a multipart upload and queues a transcription job.
func (h *Handler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		server.RespondWithError(c, h.uploadError(err))
		return
	}
	defer func() {
		if c.Request.MultipartForm != nil {
			_ = c.Request.MultipartForm.RemoveAll()
		}
	}()

	fh, err := c.FormFile(audioField)
	if err != nil {
		server.RespondWithError(c, h.uploadError(err))
		return
	}

	var form uploadForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		server.RespondWithError(c, apperrors.Validation("Speaker counts and threads must be whole numbers.").WithCause(err))
		return
	}
	if err := form.validate(); err != nil {
		server.RespondWithError(c, err)
		return
	}

	path, err := h.saveUpload(c, fh)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	j, err := h.jobs.Submit(ctx, path, filepath.Base(fh.Filename), form.options())
	if err != nil {
		removeFile(path)
		setRetryAfter(c, err)
		server.RespondWithError(c, err)
		return
	}
	h.log.WithContext(ctx).WithJob(j.ID).Info("Upload accepted", logger.Fields(
		"source", j.SourceName, "bytes", fh.Size, "model", j.Options.Model,
	))
	server.RespondAccepted(c, j)
}

// setRetryAfter copies the retry hint of a rate-limited submission into the
// Retry-After header, rounded up to whole seconds.
func setRetryAfter(c *gin.Context, err error) {
	if !apperrors.IsCode(err, apperrors.ErrCodeRateLimited) {
		return
	}
	appErr, _ := apperrors.AsAppError(err)
	secs, _ := appErr.Details["retry_after_seconds"].(float64)
	c.Header("Retry-After", strconv.Itoa(max(int(math.Ceil(secs)), 1)))
}

// uploadError maps multipart parsing failures to API errors.
func (h *Handler) uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return apperrors.PayloadTooLarge(h.uploadLimit)
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return apperrors.NoAudio()
	default:
		return apperrors.InvalidInput(audioField, "could not read the upload").WithCause(err)
	}
}

// saveUpload stores the recording under a random name in the upload
// directory. The runner removes it when the job finishes.
func (h *Handler) saveUpload(c *gin.Context, fh *multipart.FileHeader) (string, error) {
	if fh.Size == 0 {
		return "", apperrors.NoAudio()
	}
	dir := h.jobs.UploadDir()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", apperrors.StorageError("create upload dir", err)
	}
	path := filepath.Join(dir, uuid.NewString()+uploadExt(fh.Filename))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		removeFile(path)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", apperrors.PayloadTooLarge(h.uploadLimit)
		}
		return "", apperrors.StorageError("save upload", err)
	}
	return path, nil
}

// uploadExt keeps a short alphanumeric extension so backends can sniff the format.
func uploadExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Get("api").Warn("Failed to remove upload", logger.ErrorFields("remove_upload", err))
	}
}
