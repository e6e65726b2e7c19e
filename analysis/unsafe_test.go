package analysis

import (
	"testing"

	"github.com/orizon-lang/memtrace/internal/model"
	"github.com/orizon-lang/memtrace/merge"
)

func TestClassifyUnsafeScenarioS5DoubleFree(t *testing.T) {
	attempts := []merge.DeallocAttempt{
		{Ptr: 0x100, WasDoubleFree: true, CallStack: []uint64{1, 2}},
	}

	violations, _ := ClassifyUnsafe(nil, attempts)

	if len(violations) != 1 || violations[0].Kind != ViolationDoubleFree {
		t.Fatalf("expected 1 double-free violation, got %+v", violations)
	}

	if len(violations[0].CallStack) != 2 {
		t.Fatal("expected the detection-time stack to be populated")
	}
}

func TestClassifyUnsafeInvalidFree(t *testing.T) {
	attempts := []merge.DeallocAttempt{{Ptr: 0x200, WasInvalidFree: true}}

	violations, _ := ClassifyUnsafe(nil, attempts)
	if len(violations) != 1 || violations[0].Kind != ViolationInvalidFree {
		t.Fatalf("expected 1 invalid-free violation, got %+v", violations)
	}
}

func TestClassifyUnsafeLeakAndCrossBoundary(t *testing.T) {
	records := []*model.Record{
		{Ptr: 1, IsLeaked: true},
		{Ptr: 2, Source: model.AllocationSource{Kind: model.SourceCrossBoundary}},
	}

	violations, stats := ClassifyUnsafe(records, nil)

	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(violations))
	}

	if stats.CrossBoundaryCount != 1 {
		t.Fatalf("expected 1 cross-boundary record, got %d", stats.CrossBoundaryCount)
	}

	if stats.RiskScore <= 0 {
		t.Fatal("expected a positive risk score")
	}
}
