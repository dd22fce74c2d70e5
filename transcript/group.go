package transcript

import (
	"context"
	"strings"

	"github.com/kbukum/diarscribe/pipeline"
)

// Spoken reports whether the segment carries any text once trimmed.
func Spoken(s LabeledSegment) bool {
	return strings.TrimSpace(s.Text) != ""
}

// Group merges consecutive segments with identical speaker labels into blocks.
// The result is lazy and restartable: nothing is merged until it is pulled and
// every pull starts again from the first segment. Segments without text are
// skipped and never split a block.
func Group(segments []LabeledSegment) *pipeline.Pipeline[Block] {
	spoken := pipeline.Filter(pipeline.FromSlice(segments), Spoken)
	return pipeline.FromFunc(func(ctx context.Context) pipeline.Iterator[Block] {
		return &groupIter{source: spoken.Iter(ctx)}
	})
}

type groupIter struct {
	source  pipeline.Iterator[LabeledSegment]
	pending *LabeledSegment
}

func (it *groupIter) Next(ctx context.Context) (Block, bool, error) {
	var (
		cur   Block
		parts []string
	)
	for {
		seg, ok, err := it.pull(ctx)
		if err != nil {
			return Block{}, false, err
		}
		if !ok {
			if parts == nil {
				return Block{}, false, nil
			}
			cur.Text = strings.Join(parts, " ")
			return cur, true, nil
		}

		text := strings.TrimSpace(seg.Text)
		switch {
		case parts == nil:
			cur = Block{Start: seg.Start, End: seg.End, Speaker: seg.Speaker}
			parts = []string{text}
		case seg.Speaker == cur.Speaker:
			cur.End = seg.End
			parts = append(parts, text)
		default:
			it.pending = &seg
			cur.Text = strings.Join(parts, " ")
			return cur, true, nil
		}
	}
}

func (it *groupIter) pull(ctx context.Context) (LabeledSegment, bool, error) {
	if it.pending != nil {
		seg := *it.pending
		it.pending = nil
		return seg, true, nil
	}
	return it.source.Next(ctx)
}

func (it *groupIter) Close() error { return it.source.Close() }
