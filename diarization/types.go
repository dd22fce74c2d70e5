package diarization

import "github.com/kbukum/diarscribe/transcript"

// Request holds the parameters of one diarization call.
type Request struct {
	AudioPath string `json:"audio_path"`
	// Token is the model hub access token. It is never logged.
	Token string `json:"-"`
	// MinSpeakers and MaxSpeakers bound the speaker count; 0 leaves it unset.
	MinSpeakers int    `json:"min_speakers,omitempty"`
	MaxSpeakers int    `json:"max_speakers,omitempty"`
	Device      string `json:"device,omitempty"`
}

// Response holds speaker turns in chronological order.
type Response struct {
	Intervals   []transcript.Interval `json:"intervals"`
	NumSpeakers int                   `json:"num_speakers"`
}

// Speakers returns the distinct speaker labels in order of first appearance.
func (r *Response) Speakers() []string {
	seen := make(map[string]bool)
	var out []string
	for _, iv := range r.Intervals {
		if iv.Speaker != "" && !seen[iv.Speaker] {
			seen[iv.Speaker] = true
			out = append(out, iv.Speaker)
		}
	}
	return out
}
