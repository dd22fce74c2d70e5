package transcript

import "math"

// Overlap returns the length in seconds of the intersection of seg and iv.
// Malformed spans (NaN bounds or End before Start) overlap nothing.
func Overlap(seg Segment, iv Interval) float64 {
	if !wellFormed(seg.Start, seg.End) || !wellFormed(iv.Start, iv.End) {
		return 0
	}
	o := math.Min(seg.End, iv.End) - math.Max(seg.Start, iv.Start)
	if o > 0 {
		return o
	}
	return 0
}

func wellFormed(start, end float64) bool {
	return !math.IsNaN(start) && !math.IsNaN(end) && end >= start
}

// ResolveSpeaker returns the speaker of the interval that overlaps seg the most.
// On exact ties the interval that starts first wins; when nothing overlaps the
// result is UnknownSpeaker. Intervals without a speaker label are ignored.
// The input order of intervals does not matter.
func ResolveSpeaker(seg Segment, intervals []Interval) string {
	best := 0.0
	bestStart := math.Inf(1)
	speaker := UnknownSpeaker
	for _, iv := range intervals {
		if iv.Speaker == "" {
			continue
		}
		o := Overlap(seg, iv)
		if o <= 0 {
			continue
		}
		if o > best || (o == best && iv.Start < bestStart) {
			best, bestStart, speaker = o, iv.Start, iv.Speaker
		}
	}
	return speaker
}

// AssignSpeakers labels every segment with its resolved speaker.
// A nil intervals slice means diarization did not run and leaves labels empty;
// a non-nil empty slice labels every segment UnknownSpeaker.
func AssignSpeakers(segments []Segment, intervals []Interval) []LabeledSegment {
	if intervals == nil {
		return Unlabeled(segments)
	}
	out := make([]LabeledSegment, len(segments))
	for i, s := range segments {
		out[i] = LabeledSegment{Segment: s, Speaker: ResolveSpeaker(s, intervals)}
	}
	return out
}
