package analysis

import (
	"testing"

	"github.com/orizon-lang/memtrace/internal/model"
)

func sharedRecord(ptr uintptr, size uint64) *model.Record {
	return &model.Record{Ptr: ptr, Size: size, OwnershipPattern: model.OwnershipShared}
}

func TestDetectCyclesEmptyGraphReportsNone(t *testing.T) {
	records := []*model.Record{sharedRecord(1, 8), sharedRecord(2, 8)}
	relations := map[uintptr][]uintptr{1: {2}}

	cycles := DetectCycles(records, relations)
	if len(cycles) != 0 {
		t.Fatalf("expected no cycles, got %d", len(cycles))
	}
}

func TestDetectCyclesScenarioS4TwoNodeSimpleCycle(t *testing.T) {
	records := []*model.Record{sharedRecord(1, 2048), sharedRecord(2, 2048)}
	relations := map[uintptr][]uintptr{
		1: {2},
		2: {1},
	}

	cycles := DetectCycles(records, relations)
	if len(cycles) != 1 {
		t.Fatalf("expected 1 cycle, got %d", len(cycles))
	}

	c := cycles[0]
	if c.Kind != CycleSimple {
		t.Fatalf("expected Simple cycle, got %v", c.Kind)
	}

	if c.EstimatedLeakedMemory != 2048 {
		t.Fatalf("expected leaked memory 2048, got %d", c.EstimatedLeakedMemory)
	}

	if c.Severity != SeverityLow {
		t.Fatalf("expected Low severity, got %v", c.Severity)
	}
}

func TestDetectCyclesSelfReference(t *testing.T) {
	records := []*model.Record{sharedRecord(1, 8)}
	relations := map[uintptr][]uintptr{1: {1}}

	cycles := DetectCycles(records, relations)
	if len(cycles) != 1 || cycles[0].Kind != CycleSelfReference {
		t.Fatalf("expected 1 self-reference cycle, got %+v", cycles)
	}
}

func TestDetectCyclesExcludesNonSharedNodes(t *testing.T) {
	owned := &model.Record{Ptr: 1, Size: 8, OwnershipPattern: model.OwnershipOwned}
	shared := sharedRecord(2, 8)

	cycles := DetectCycles([]*model.Record{owned, shared}, map[uintptr][]uintptr{1: {2}, 2: {1}})
	if len(cycles) != 0 {
		t.Fatalf("expected no cycle through a non-shared node, got %d", len(cycles))
	}
}

func TestSeverityThresholds(t *testing.T) {
	cases := []struct {
		bytes uint64
		want  Severity
	}{
		{4096, SeverityLow},
		{4097, SeverityMedium},
		{64 * 1024, SeverityMedium},
		{64*1024 + 1, SeverityHigh},
		{1 << 20, SeverityHigh},
		{1<<20 + 1, SeverityCritical},
	}

	for _, c := range cases {
		if got := severityFor(c.bytes); got != c.want {
			t.Fatalf("severityFor(%d) = %v, want %v", c.bytes, got, c.want)
		}
	}
}
