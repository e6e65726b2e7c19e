package callstack

import "testing"

func TestObserveAggregatesFrequencyAndSize(t *testing.T) {
	s := New()

	s.Observe(0xabc, []uint64{1, 2, 3}, 64, 100, 5)
	s.Observe(0xabc, []uint64{1, 2, 3}, 128, 200, 7)

	if got := s.Frequency(0xabc); got != 2 {
		t.Fatalf("expected frequency 2, got %d", got)
	}

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snap))
	}

	e := snap[0]
	if e.TotalSize != 192 {
		t.Fatalf("expected total size 192, got %d", e.TotalSize)
	}

	if e.MinSize != 64 || e.MaxSize != 128 {
		t.Fatalf("expected min/max 64/128, got %d/%d", e.MinSize, e.MaxSize)
	}

	if e.FirstTimestampNS != 100 || e.LastTimestampNS != 200 {
		t.Fatalf("expected first/last 100/200, got %d/%d", e.FirstTimestampNS, e.LastTimestampNS)
	}

	if e.CumulativeCPUNS != 12 {
		t.Fatalf("expected cumulative cpu 12, got %d", e.CumulativeCPUNS)
	}
}

func TestFrequencyUnknownHashIsZero(t *testing.T) {
	s := New()
	if got := s.Frequency(0xdead); got != 0 {
		t.Fatalf("expected 0 for unknown hash, got %d", got)
	}
}

func TestEncodeRoundTripsFieldsToCodecSummary(t *testing.T) {
	s := New()
	s.Observe(0x1, []uint64{9}, 16, 1, 1)

	enc := s.Encode()
	if len(enc) != 1 {
		t.Fatalf("expected 1 encoded summary, got %d", len(enc))
	}

	if enc[0].Hash != 0x1 || enc[0].Frequency != 1 || enc[0].TotalSize != 16 {
		t.Fatalf("unexpected encoded summary: %+v", enc[0])
	}
}
