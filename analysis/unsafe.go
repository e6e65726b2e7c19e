package analysis

import (
	"github.com/orizon-lang/memtrace/internal/model"
	"github.com/orizon-lang/memtrace/merge"
)

// ViolationKind enumerates the safety violations the classifier can emit.
type ViolationKind int

const (
	ViolationDoubleFree ViolationKind = iota
	ViolationInvalidFree
	ViolationPotentialLeak
	ViolationCrossBoundaryRisk
)

// SafetyViolation is one detected problem, carrying the stack observed at
// detection time.
type SafetyViolation struct {
	Kind      ViolationKind
	Ptr       uint64
	CallStack []uint64
}

// UnsafeStats summarizes allocation-source counts and a composite risk
// score over the merged table.
type UnsafeStats struct {
	SafeHostCount      uint64
	UnsafeHostCount    uint64
	ForeignLibCount    uint64
	CrossBoundaryCount uint64
	RiskScore          float64
}

// ClassifyUnsafe consumes each record's AllocationSource tag and the merge
// pass's raw deallocation attempts to produce counts, a risk score, and the
// list of safety violations spec.md §4.8 names: DoubleFree, InvalidFree,
// PotentialLeak, CrossBoundaryRisk.
func ClassifyUnsafe(records []*model.Record, attempts []merge.DeallocAttempt) ([]SafetyViolation, UnsafeStats) {
	var (
		violations []SafetyViolation
		stats      UnsafeStats
	)

	for _, a := range attempts {
		switch {
		case a.WasDoubleFree:
			violations = append(violations, SafetyViolation{Kind: ViolationDoubleFree, Ptr: a.Ptr, CallStack: a.CallStack})
		case a.WasInvalidFree:
			violations = append(violations, SafetyViolation{Kind: ViolationInvalidFree, Ptr: a.Ptr, CallStack: a.CallStack})
		}
	}

	for _, r := range records {
		switch r.Source.Kind {
		case model.SourceSafeHost:
			stats.SafeHostCount++
		case model.SourceUnsafeHost:
			stats.UnsafeHostCount++
		case model.SourceForeignLib:
			stats.ForeignLibCount++
		case model.SourceCrossBoundary:
			stats.CrossBoundaryCount++
			violations = append(violations, SafetyViolation{Kind: ViolationCrossBoundaryRisk, Ptr: uint64(r.Ptr), CallStack: r.CallStack})
		}

		if r.IsLeaked {
			violations = append(violations, SafetyViolation{Kind: ViolationPotentialLeak, Ptr: uint64(r.Ptr), CallStack: r.CallStack})
		}
	}

	doubleFree, invalidFree, leaks, crossBoundary := 0.0, 0.0, 0.0, 0.0

	for _, v := range violations {
		switch v.Kind {
		case ViolationDoubleFree:
			doubleFree++
		case ViolationInvalidFree:
			invalidFree++
		case ViolationPotentialLeak:
			leaks++
		case ViolationCrossBoundaryRisk:
			crossBoundary++
		}
	}

	stats.RiskScore = doubleFree*10 + invalidFree*8 + crossBoundary*3 + leaks*2

	return violations, stats
}
