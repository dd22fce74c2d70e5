// Package pipeline provides lazy, pull-based sequence operators.
//
// A Pipeline does no work until it is pulled with Collect or ForEach. Each
// pull builds a fresh iterator chain, so pipelines are restartable and
// collecting twice yields the same values.
//
//	segs := pipeline.FromSlice(labeled)
//	spoken := pipeline.Filter(segs, func(s transcript.LabeledSegment) bool { return s.Text != "" })
//	lines := pipeline.Map(spoken, render)
//	out, err := pipeline.Collect(ctx, lines)
package pipeline
