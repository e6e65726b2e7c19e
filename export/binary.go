package export

import (
	"os"

	"github.com/orizon-lang/memtrace/internal/codec"
	"github.com/orizon-lang/memtrace/internal/model"
	"github.com/orizon-lang/memtrace/merge"
)

// writeBinary re-encodes a merge.Result as a single versioned codec file:
// one frame of allocation/deallocation events followed by one frame of
// call-stack summaries, mirroring the per-thread log framing (SPEC_FULL.md
// §6) but collapsed to one file instead of one per thread.
func writeBinary(outPath string, mr *merge.Result) error {
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	events := recordsToEvents(mr.Records)
	if err := codec.EncodeBatch(f, events); err != nil {
		return err
	}

	summaries := summariesToCodec(mr.Summaries)

	return codec.EncodeSummaries(f, summaries)
}

func recordsToEvents(records []*model.Record) []codec.Event {
	events := make([]codec.Event, 0, len(records)*2)

	for _, r := range records {
		events = append(events, codec.Event{
			Tag:           codec.EventAllocation,
			Ptr:           uint64(r.Ptr),
			Size:          r.Size,
			Alignment:     r.Alignment,
			ThreadID:      r.ThreadID,
			TimestampNS:   r.TimestampAlloc,
			VarName:       r.VarName,
			TypeName:      r.TypeName,
			ScopeName:     r.ScopeName,
			CallStack:     r.CallStack,
			CallStackHash: r.CallStackHash,
		})

		if r.HasDealloc {
			events = append(events, codec.Event{
				Tag:         codec.EventDeallocation,
				Ptr:         uint64(r.Ptr),
				ThreadID:    r.ThreadID,
				TimestampNS: r.TimestampDealloc,
				CallStack:   r.CallStack,
			})
		}
	}

	return events
}

func summariesToCodec(in []*model.CallStackSummary) []codec.Summary {
	out := make([]codec.Summary, 0, len(in))

	for _, s := range in {
		out = append(out, codec.Summary{
			Hash:             s.Hash,
			Frames:           s.Frames,
			Frequency:        s.Frequency,
			TotalSize:        s.TotalSize,
			MinSize:          s.MinSize,
			MaxSize:          s.MaxSize,
			FirstTimestampNS: s.FirstTimestampNS,
			LastTimestampNS:  s.LastTimestampNS,
			CumulativeCPUNS:  s.CumulativeCPUNS,
		})
	}

	return out
}
