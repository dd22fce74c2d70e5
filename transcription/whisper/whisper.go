// Package whisper transcribes audio through an HTTP sidecar running
// faster-whisper or whisperX.
//
// The sidecar accepts a multipart POST /transcribe with the audio file and
// the model settings as form fields, and answers GET /health.
package whisper

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kbukum/diarscribe/httpclient"
	"github.com/kbukum/diarscribe/transcript"
	"github.com/kbukum/diarscribe/transcription"
)

// ProviderName is the registry name of this backend.
const ProviderName = transcription.BackendWhisper

const healthTimeout = 3 * time.Second

// Provider implements transcription.Provider against the sidecar.
type Provider struct {
	client *httpclient.Client
}

var _ transcription.Provider = (*Provider)(nil)

// New creates a provider for cfg.URL.
func New(cfg transcription.Config) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.URL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Provider{client: client}, nil
}

// Factory is the registry factory for this backend.
func Factory(cfg transcription.Config) (transcription.Provider, error) {
	return New(cfg)
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return ProviderName }

// IsAvailable reports whether GET /health answers 2xx.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return p.client.Ping(ctx, "/health") == nil
}

// Transcribe uploads the audio file and decodes the segments.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	fields := map[string]string{
		"model": req.Model,
		"align": strconv.FormatBool(req.Align),
	}
	setIf(fields, "language", req.Language)
	setIf(fields, "device", req.Device)
	setIf(fields, "compute_type", req.ComputeType)
	if req.Threads > 0 {
		fields["threads"] = strconv.Itoa(req.Threads)
	}
	if req.BatchSize > 0 {
		fields["batch_size"] = strconv.Itoa(req.BatchSize)
	}

	var out response
	err = p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName: "audio",
				FileName:  filepath.Base(req.AudioPath),
				Reader:    f,
			}},
		},
	}, &out)
	if err != nil {
		return nil, httpclient.ToAppError("transcription", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("whisper: %s", out.Error)
	}
	return out.toResponse(req.Align), nil
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}

type response struct {
	Segments   []segment `json:"segments"`
	Language   string    `json:"language"`
	Duration   float64   `json:"duration"`
	Aligned    *bool     `json:"aligned"`
	AlignError string    `json:"align_error"`
	Error      string    `json:"error"`
}

type segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func (r *response) toResponse(alignRequested bool) *transcription.Response {
	segs := make([]transcript.Segment, len(r.Segments))
	for i, s := range r.Segments {
		segs[i] = transcript.Segment{Start: s.Start, End: s.End, Text: s.Text}
	}
	aligned := alignRequested && r.AlignError == ""
	if r.Aligned != nil {
		aligned = *r.Aligned
	}
	out := &transcription.Response{
		Segments: segs,
		Language: r.Language,
		Duration: r.Duration,
		Aligned:  aligned,
	}
	if alignRequested && !aligned {
		out.AlignWarning = r.AlignError
		if out.AlignWarning == "" {
			out.AlignWarning = "alignment not performed"
		}
	}
	return out
}
