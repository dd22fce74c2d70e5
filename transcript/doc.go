// Package transcript merges speech-to-text segments with speaker diarization
// and renders the result as plain text.
//
// The flow is resolve, group, format:
//
//	labeled := transcript.AssignSpeakers(segments, intervals)
//	doc := transcript.Format(header, labeled)
//	os.WriteFile(path, doc.Bytes(), 0o644)
//
// Every function in this package is pure and never returns an error.
// Malformed timings count as zero overlap.
package transcript
