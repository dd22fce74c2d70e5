package transcript

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kbukum/diarscribe/pipeline"
)

const (
	// NoSpeechNote replaces the body when no segment carries text.
	NoSpeechNote = "No speech detected."
	// NoTokenNote is shown when diarization was skipped for lack of a credential.
	NoTokenNote = "NOTE: No HuggingFace token provided (neither in UI nor .env file) - speaker diarization disabled."

	generatedLayout = "2006-01-02 15:04:05"
	ruleWidth       = 60
)

// Header describes the recording a document was produced from.
type Header struct {
	SourceName  string
	Model       string
	Diarized    bool
	GeneratedAt time.Time
	// Note is printed between the header rule and the body when set.
	Note string
}

// Document is a rendered transcript: a header followed by one line per block
// (diarized) or per segment (plain).
type Document struct {
	Header Header
	Lines  []string
}

// Build resolves speakers, groups and formats in one pass. A nil intervals
// slice means diarization did not run and selects the plain layout.
func Build(h Header, segments []Segment, intervals []Interval) Document {
	h.Diarized = intervals != nil
	return Format(h, AssignSpeakers(segments, intervals))
}

// Format renders labeled segments. When h.Diarized is set consecutive segments
// of one speaker are merged and prefixed with the label, UnknownSpeaker when
// the label is empty; otherwise every spoken segment becomes its own
// unlabeled line.
func Format(h Header, segments []LabeledSegment) Document {
	var lines *pipeline.Pipeline[string]
	if h.Diarized {
		lines = pipeline.Map(Group(segments), func(_ context.Context, b Block) (string, error) {
			speaker := b.Speaker
			if speaker == "" {
				speaker = UnknownSpeaker
			}
			return fmt.Sprintf("[%s] %s: %s", Timestamp(b.Start), speaker, b.Text), nil
		})
	} else {
		spoken := pipeline.Filter(pipeline.FromSlice(segments), Spoken)
		lines = pipeline.Map(spoken, func(_ context.Context, s LabeledSegment) (string, error) {
			return fmt.Sprintf("[%s] %s", Timestamp(s.Start), strings.TrimSpace(s.Text)), nil
		})
	}
	// The in-memory iterators above never fail.
	out, _ := pipeline.Collect(context.Background(), lines)
	return Document{Header: h, Lines: out}
}

// maxTimestamp keeps the int64 conversion in Timestamp exact.
const maxTimestamp = 1 << 53

// Timestamp renders seconds as HH:MM:SS, floored to the second. Hours do not
// wrap at 24. Negative, NaN or infinite input renders as 00:00:00 and larger
// values are capped at 2^53 seconds.
func Timestamp(seconds float64) string {
	switch {
	case math.IsNaN(seconds), math.IsInf(seconds, 0), seconds < 0:
		seconds = 0
	case seconds > maxTimestamp:
		seconds = maxTimestamp
	}
	total := int64(math.Floor(seconds))
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Empty reports whether no speech was found.
func (d Document) Empty() bool {
	return len(d.Lines) == 0
}

// Body returns the note (if any) and the transcript lines without the header.
func (d Document) Body() string {
	var b strings.Builder
	if d.Header.Note != "" {
		b.WriteString(d.Header.Note)
		b.WriteString("\n\n")
	}
	if d.Empty() {
		b.WriteString(NoSpeechNote)
		return b.String()
	}
	b.WriteString(strings.Join(d.Lines, "\n\n"))
	return b.String()
}

// String renders the full document as it is written to disk.
func (d Document) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Transcription of: %s\n", d.Header.SourceName)
	fmt.Fprintf(&b, "Model: %s\n", d.Header.Model)
	fmt.Fprintf(&b, "Speaker diarization: %s\n", yesNo(d.Header.Diarized))
	fmt.Fprintf(&b, "Generated: %s\n", d.Header.GeneratedAt.Format(generatedLayout))
	b.WriteString(strings.Repeat("=", ruleWidth))
	b.WriteString("\n\n")
	b.WriteString(d.Body())
	return b.String()
}

// Bytes returns the UTF-8 encoding of String.
func (d Document) Bytes() []byte {
	return []byte(d.String())
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
