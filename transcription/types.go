package transcription

import (
	"slices"

	"github.com/kbukum/diarscribe/transcript"
)

// Whisper model sizes offered to users.
var Models = []string{"tiny", "base", "small", "medium", "large-v3"}

// DefaultModel balances accuracy and CPU time for long recordings.
const DefaultModel = "medium"

// ValidModel reports whether name is one of Models.
func ValidModel(name string) bool {
	return slices.Contains(Models, name)
}

// Request holds the parameters of one transcription call.
type Request struct {
	AudioPath   string `json:"audio_path"`
	Model       string `json:"model"`
	Language    string `json:"language,omitempty"`
	Device      string `json:"device,omitempty"`
	ComputeType string `json:"compute_type,omitempty"`
	Threads     int    `json:"threads,omitempty"`
	BatchSize   int    `json:"batch_size,omitempty"`
	// Align asks for word-level alignment of the segment timings.
	Align bool `json:"align"`
}

// Response is the backend output.
type Response struct {
	Segments []transcript.Segment `json:"segments"`
	Language string               `json:"language,omitempty"`
	// Duration is the audio length in seconds when the backend reports it,
	// else the end of the last segment.
	Duration float64 `json:"duration,omitempty"`
	Aligned  bool    `json:"aligned"`
	// AlignWarning is set when alignment was requested but failed. The
	// unaligned segments are still usable.
	AlignWarning string `json:"align_warning,omitempty"`
}

// AudioDuration returns Duration, falling back to the last segment end.
func (r *Response) AudioDuration() float64 {
	if r.Duration > 0 {
		return r.Duration
	}
	if n := len(r.Segments); n > 0 {
		return r.Segments[n-1].End
	}
	return 0
}
