// Package pyannote diarizes audio through an HTTP sidecar running
// pyannote.audio. The user's access token is forwarded as a bearer token so
// the sidecar can load the gated pipeline on their behalf.
package pyannote

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/kbukum/diarscribe/diarization"
	"github.com/kbukum/diarscribe/httpclient"
	"github.com/kbukum/diarscribe/transcript"
)

// ProviderName is the registry name of this backend.
const ProviderName = "pyannote"

const healthTimeout = 3 * time.Second

// Provider implements diarization.Provider against the sidecar.
type Provider struct {
	client *httpclient.Client
}

var _ diarization.Provider = (*Provider)(nil)

// New creates a provider for cfg.URL.
func New(cfg diarization.Config) (*Provider, error) {
	client, err := httpclient.New(httpclient.Config{BaseURL: cfg.URL, Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("pyannote: %w", err)
	}
	return &Provider{client: client}, nil
}

// Factory is the registry factory for this backend.
func Factory(cfg diarization.Config) (diarization.Provider, error) {
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

// Diarize uploads the audio and returns the speaker turns.
func (p *Provider) Diarize(ctx context.Context, req diarization.Request) (*diarization.Response, error) {
	if req.Token == "" {
		return nil, fmt.Errorf("pyannote: access token is required")
	}
	f, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	fields := map[string]string{}
	if req.MinSpeakers > 0 {
		fields["min_speakers"] = strconv.Itoa(req.MinSpeakers)
	}
	if req.MaxSpeakers > 0 {
		fields["max_speakers"] = strconv.Itoa(req.MaxSpeakers)
	}
	if req.Device != "" {
		fields["device"] = req.Device
	}

	var out response
	err = p.client.DoJSON(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/diarize",
		Auth:   httpclient.BearerAuth(req.Token),
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
		return nil, httpclient.ToAppError("diarization", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("pyannote: %s", out.Error)
	}
	return out.toResponse(), nil
}

type response struct {
	Segments    []segment `json:"segments"`
	NumSpeakers int       `json:"num_speakers"`
	Error       string    `json:"error,omitempty"`
}

type segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

func (r *response) toResponse() *diarization.Response {
	ivs := make([]transcript.Interval, len(r.Segments))
	for i, s := range r.Segments {
		ivs[i] = transcript.Interval{Start: s.Start, End: s.End, Speaker: s.Speaker}
	}
	out := &diarization.Response{Intervals: ivs, NumSpeakers: r.NumSpeakers}
	if out.NumSpeakers == 0 {
		out.NumSpeakers = len(out.Speakers())
	}
	return out
}
