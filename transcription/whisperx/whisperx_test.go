package whisperx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/kbukum/diarscribe/process"
	"github.com/kbukum/diarscribe/transcription"
)

// fakeCLI writes a shell script that mimics the whisperx CLI: it finds
// --output_dir and writes <stem>.json there. With failAlign set it exits
// non-zero unless --no_align is passed.
func fakeCLI(t *testing.T, failAlign bool) string {
	t.Helper()
	dir := t.TempDir()
	script := `#!/bin/sh
audio="$1"; shift
out=""; noalign=0
while [ $# -gt 0 ]; do
  case "$1" in
    --output_dir) out="$2"; shift ;;
    --no_align) noalign=1 ;;
  esac
  shift
done
echo "Performing transcription..." >&2
if [ "` + boolStr(failAlign) + `" = "1" ] && [ "$noalign" = "0" ]; then
  echo "Failed to load align model" >&2
  exit 1
fi
stem=$(basename "$audio"); stem="${stem%.*}"
printf '{"language":"en","segments":[{"start":0.0,"end":2.5,"text":" hello"},{"start":2.5,"end":4.0,"text":" world"}]}' > "$out/$stem.json"
`
	path := filepath.Join(dir, "whisperx")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func boolStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.mp3")
	if err := os.WriteFile(path, []byte("ID3"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func newInitialized(t *testing.T, bin string) *Provider {
	t.Helper()
	p := New(transcription.Config{Binary: bin, WorkDir: t.TempDir()})
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p
}

func TestTranscribe(t *testing.T) {
	p := newInitialized(t, fakeCLI(t, false))
	if !p.IsAvailable(context.Background()) {
		t.Fatal("expected available after Init")
	}

	resp, err := p.Transcribe(context.Background(), transcription.Request{
		AudioPath: audioFile(t), Model: "tiny", Threads: 2, Align: true,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(resp.Segments) != 2 || resp.Segments[0].Text != " hello" {
		t.Errorf("segments = %+v", resp.Segments)
	}
	if !resp.Aligned || resp.AlignWarning != "" {
		t.Errorf("aligned = %v warning = %q", resp.Aligned, resp.AlignWarning)
	}
}

func TestTranscribeAlignFallback(t *testing.T) {
	p := newInitialized(t, fakeCLI(t, true))

	resp, err := p.Transcribe(context.Background(), transcription.Request{
		AudioPath: audioFile(t), Model: "tiny", Align: true,
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Aligned {
		t.Error("expected unaligned result")
	}
	if !strings.Contains(resp.AlignWarning, "align model") {
		t.Errorf("AlignWarning = %q", resp.AlignWarning)
	}
	if len(resp.Segments) != 2 {
		t.Errorf("segments = %+v", resp.Segments)
	}
}

func TestInitMissingBinary(t *testing.T) {
	p := New(transcription.Config{Binary: "no-such-whisperx-binary"})
	if err := p.Init(context.Background()); !errors.Is(err, process.ErrBinaryNotFound) {
		t.Fatalf("Init error = %v", err)
	}
	if p.IsAvailable(context.Background()) {
		t.Error("expected unavailable")
	}
	_, err := p.Transcribe(context.Background(), transcription.Request{AudioPath: "x.wav"})
	if !errors.Is(err, process.ErrBinaryNotFound) {
		t.Errorf("Transcribe error = %v", err)
	}
}

func TestArgs(t *testing.T) {
	req := transcription.Request{
		AudioPath: "/in/a.wav", Model: "medium", Language: "en",
		Device: "cpu", ComputeType: "int8", BatchSize: 4, Threads: 16,
	}
	args := Args(req, "/out", false)
	for _, want := range []string{"--model", "medium", "--compute_type", "int8", "--batch_size", "4", "--threads", "16", "--no_align", "--output_dir", "/out"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
	if args[0] != "/in/a.wav" {
		t.Errorf("first arg = %q", args[0])
	}
	if slices.Contains(Args(req, "/out", true), "--no_align") {
		t.Error("aligned run must not pass --no_align")
	}
}
