package transcript

// UnknownSpeaker labels a segment that no diarization interval overlaps.
const UnknownSpeaker = "UNKNOWN"

// Segment is one timed piece of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Interval is one span attributed to a speaker by the diarization backend.
type Interval struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

// LabeledSegment is a Segment with the speaker resolved for it.
// An empty Speaker means diarization did not run for the recording.
type LabeledSegment struct {
	Segment
	Speaker string `json:"speaker,omitempty"`
}

// Block is a run of consecutive segments sharing one speaker label.
type Block struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Text    string  `json:"text"`
}

// Unlabeled wraps segments without speaker labels.
func Unlabeled(segments []Segment) []LabeledSegment {
	out := make([]LabeledSegment, len(segments))
	for i, s := range segments {
		out[i] = LabeledSegment{Segment: s}
	}
	return out
}
