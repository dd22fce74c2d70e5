// Package whisperx transcribes audio by running the whisperx command-line
// tool and reading the JSON file it writes.
package whisperx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kbukum/diarscribe/logger"
	"github.com/kbukum/diarscribe/process"
	"github.com/kbukum/diarscribe/transcript"
	"github.com/kbukum/diarscribe/transcription"
)

// ProviderName is the registry name of this backend.
const ProviderName = transcription.BackendWhisperX

// Provider implements transcription.Provider with the whisperx CLI.
type Provider struct {
	binary  string
	workDir string
	log     *logger.Logger

	mu   sync.RWMutex
	path string
}

var _ transcription.Provider = (*Provider)(nil)

// New creates the provider. Init must run before it reports available.
func New(cfg transcription.Config) *Provider {
	return &Provider{
		binary:  cfg.Binary,
		workDir: cfg.WorkDir,
		log:     logger.Get("whisperx"),
	}
}

// Factory is the registry factory for this backend.
func Factory(cfg transcription.Config) (transcription.Provider, error) {
	return New(cfg), nil
}

// Name implements provider.Provider.
func (p *Provider) Name() string { return ProviderName }

// Init resolves the binary on PATH.
func (p *Provider) Init(context.Context) error {
	path, err := process.LookPath(p.binary)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.path = path
	p.mu.Unlock()
	return nil
}

// IsAvailable reports whether Init resolved the binary.
func (p *Provider) IsAvailable(context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.path != ""
}

// Transcribe runs the CLI. When alignment is requested and the run fails
// with an alignment error, it reruns without alignment and reports the
// failure as AlignWarning.
func (p *Provider) Transcribe(ctx context.Context, req transcription.Request) (*transcription.Response, error) {
	p.mu.RLock()
	bin := p.path
	p.mu.RUnlock()
	if bin == "" {
		return nil, fmt.Errorf("whisperx: %w: %s", process.ErrBinaryNotFound, p.binary)
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	outDir, err := os.MkdirTemp(p.workDir, "whisperx-")
	if err != nil {
		return nil, fmt.Errorf("whisperx: create output dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	resp, err := p.run(ctx, bin, outDir, req, req.Align)
	if err != nil && req.Align && ctx.Err() == nil && isAlignFailure(err) {
		alignErr := err
		p.log.Warn("alignment failed, retrying without it", logger.Fields(logger.FieldError, alignErr.Error()))
		resp, err = p.run(ctx, bin, outDir, req, false)
		if err == nil {
			resp.AlignWarning = alignErr.Error()
		}
	}
	return resp, err
}

func (p *Provider) run(ctx context.Context, bin, outDir string, req transcription.Request, align bool) (*transcription.Response, error) {
	_, err := process.Run(ctx, process.Command{
		Binary: bin,
		Args:   Args(req, outDir, align),
		Env:    []string{"OMP_NUM_THREADS=" + strconv.Itoa(max(req.Threads, 1))},
		OnStderrLine: func(line string) {
			p.log.Debug(line, logger.Fields(logger.FieldProvider, ProviderName))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("whisperx: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(req.AudioPath), filepath.Ext(req.AudioPath))
	data, err := os.ReadFile(filepath.Join(outDir, stem+".json"))
	if err != nil {
		return nil, fmt.Errorf("whisperx: read output: %w", err)
	}
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("whisperx: decode output: %w", err)
	}
	return out.toResponse(align), nil
}

// Args builds the CLI arguments for req, writing JSON into outDir.
func Args(req transcription.Request, outDir string, align bool) []string {
	args := []string{
		req.AudioPath,
		"--model", req.Model,
		"--output_format", "json",
		"--output_dir", outDir,
	}
	add := func(flag, v string) {
		if v != "" {
			args = append(args, flag, v)
		}
	}
	add("--language", req.Language)
	add("--device", req.Device)
	add("--compute_type", req.ComputeType)
	if req.BatchSize > 0 {
		add("--batch_size", strconv.Itoa(req.BatchSize))
	}
	if req.Threads > 0 {
		add("--threads", strconv.Itoa(req.Threads))
	}
	if !align {
		args = append(args, "--no_align")
	}
	return args
}

func isAlignFailure(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "align")
}

type output struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Language string `json:"language"`
}

func (o *output) toResponse(aligned bool) *transcription.Response {
	segs := make([]transcript.Segment, len(o.Segments))
	for i, s := range o.Segments {
		segs[i] = transcript.Segment{Start: s.Start, End: s.End, Text: s.Text}
	}
	return &transcription.Response{Segments: segs, Language: o.Language, Aligned: aligned}
}
