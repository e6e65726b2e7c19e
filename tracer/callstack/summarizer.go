// Package callstack implements C6: per-call-site counters, thread-local and
// allocation-free on the hot path.
package callstack

import (
	"github.com/orizon-lang/memtrace/internal/codec"
	"github.com/orizon-lang/memtrace/internal/model"
)

// Summarizer owns one thread's call-site counters, keyed by call-stack hash.
// It is never shared across threads; the per-thread recorder owns one
// instance for its lifetime.
type Summarizer struct {
	entries map[uint64]*model.CallStackSummary
}

// New creates an empty summarizer.
func New() *Summarizer {
	return &Summarizer{entries: make(map[uint64]*model.CallStackSummary)}
}

// Observe records one allocation event against its call site, updating
// frequency, size range, time range, and CPU-time accumulator.
func (s *Summarizer) Observe(hash uint64, frames []uint64, size uint64, timestampNS, cpuNS int64) {
	e, ok := s.entries[hash]
	if !ok {
		e = &model.CallStackSummary{
			Hash:             hash,
			Frames:           frames,
			MinSize:          size,
			MaxSize:          size,
			FirstTimestampNS: timestampNS,
			LastTimestampNS:  timestampNS,
		}
		s.entries[hash] = e
	}

	e.Frequency++
	e.TotalSize += size

	if size < e.MinSize {
		e.MinSize = size
	}

	if size > e.MaxSize {
		e.MaxSize = size
	}

	if timestampNS < e.FirstTimestampNS {
		e.FirstTimestampNS = timestampNS
	}

	if timestampNS > e.LastTimestampNS {
		e.LastTimestampNS = timestampNS
	}

	e.CumulativeCPUNS += cpuNS
}

// Frequency returns the current observed frequency for a call-stack hash,
// used by the sampler's frequency multiplier (SPEC_FULL.md §4.3).
func (s *Summarizer) Frequency(hash uint64) uint64 {
	if e, ok := s.entries[hash]; ok {
		return e.Frequency
	}

	return 0
}

// Snapshot returns the current summaries as a slice, for serialization.
func (s *Summarizer) Snapshot() []*model.CallStackSummary {
	out := make([]*model.CallStackSummary, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}

	return out
}

// Encode serializes the current summaries with the shared binary codec.
func (s *Summarizer) Encode() []codec.Summary {
	out := make([]codec.Summary, 0, len(s.entries))

	for _, e := range s.entries {
		out = append(out, codec.Summary{
			Hash:             e.Hash,
			Frames:           e.Frames,
			Frequency:        e.Frequency,
			TotalSize:        e.TotalSize,
			MinSize:          e.MinSize,
			MaxSize:          e.MaxSize,
			FirstTimestampNS: e.FirstTimestampNS,
			LastTimestampNS:  e.LastTimestampNS,
			CumulativeCPUNS:  e.CumulativeCPUNS,
		})
	}

	return out
}
