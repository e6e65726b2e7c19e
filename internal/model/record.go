// Package model defines the central data types shared across the tracker:
// the allocation record, the call-stack summary, and the small enums derived
// from them. C1 and the tracking helpers create records, C4/C5 mutate them,
// C7 freezes them at merge time.
package model

// RiskLevel classifies an allocation's potential problem severity.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// OwnershipPattern classifies how an allocation is held by source-level
// identifiers.
type OwnershipPattern int

const (
	OwnershipOwned OwnershipPattern = iota
	OwnershipShared
	OwnershipBorrowed
	OwnershipMixed
)

func (o OwnershipPattern) String() string {
	switch o {
	case OwnershipOwned:
		return "owned"
	case OwnershipShared:
		return "shared"
	case OwnershipBorrowed:
		return "borrowed"
	case OwnershipMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

// AllocationSourceKind tags where an allocation originated from, feeding the
// unsafe/FFI classifier (analysis.ClassifyUnsafe).
type AllocationSourceKind int

const (
	SourceSafeHost AllocationSourceKind = iota
	SourceUnsafeHost
	SourceForeignLib
	SourceCrossBoundary
)

// AllocationSource carries the classifier-relevant metadata for one record.
// Only the fields relevant to Kind are populated.
type AllocationSource struct {
	Kind         AllocationSourceKind
	Location     string // UnsafeHost
	Risk         string // UnsafeHost
	Library      string // ForeignLib
	Function     string // ForeignLib
	From         string // CrossBoundary
	To           string // CrossBoundary
	CrossedAtNS  int64  // CrossBoundary
}

// Record is the fundamental entity: one row describing one heap object's
// full life history. See SPEC_FULL.md §3 for the field-by-field semantics
// and invariants (peak_size >= size, growth_events monotonic, etc.).
type Record struct {
	Ptr              uintptr
	Size             uint64
	Alignment        uint64
	ThreadID         uint64
	TimestampAlloc   int64
	TimestampDealloc int64
	HasDealloc       bool

	VarName   string
	TypeName  string
	ScopeName string

	CallStack     []uint64
	CallStackHash uint64

	PeakSize       uint64
	GrowthEvents   uint64
	BorrowCount    uint64
	MutBorrowCount uint64
	TransferCount  uint64

	EfficiencyScore  float64
	RiskLevel        RiskLevel
	OwnershipPattern OwnershipPattern
	MetadataTags     map[string]struct{}

	IsLeaked bool
	Source   AllocationSource
}

// Clone returns a deep-enough copy of r so callers can hold onto it past a
// mutation of the original (maps and slices are copied).
func (r *Record) Clone() *Record {
	cp := *r

	if r.CallStack != nil {
		cp.CallStack = append([]uint64(nil), r.CallStack...)
	}

	if r.MetadataTags != nil {
		cp.MetadataTags = make(map[string]struct{}, len(r.MetadataTags))
		for k := range r.MetadataTags {
			cp.MetadataTags[k] = struct{}{}
		}
	}

	return &cp
}

// Lifetime returns the record's lifetime in nanoseconds. For a still-live
// record it is measured against `asOf`.
func (r *Record) Lifetime(asOf int64) int64 {
	if r.HasDealloc {
		return r.TimestampDealloc - r.TimestampAlloc
	}

	return asOf - r.TimestampAlloc
}

// CallStackSummary aggregates per-call-site statistics, keyed externally by
// its hash. Write-only from tracer/callstack during tracing; read-only from
// merge onwards.
type CallStackSummary struct {
	Hash              uint64
	Frames            []uint64
	Frequency         uint64
	TotalSize         uint64
	MinSize           uint64
	MaxSize           uint64
	FirstTimestampNS  int64
	LastTimestampNS   int64
	CumulativeCPUNS   int64
}

// Merge folds other into s, summing counters and taking min/max across both.
func (s *CallStackSummary) Merge(other *CallStackSummary) {
	if s.Frequency == 0 {
		s.Hash = other.Hash
		s.Frames = other.Frames
		s.MinSize = other.MinSize
		s.MaxSize = other.MaxSize
		s.FirstTimestampNS = other.FirstTimestampNS
		s.LastTimestampNS = other.LastTimestampNS
	} else {
		if other.MinSize < s.MinSize {
			s.MinSize = other.MinSize
		}

		if other.MaxSize > s.MaxSize {
			s.MaxSize = other.MaxSize
		}

		if other.FirstTimestampNS < s.FirstTimestampNS {
			s.FirstTimestampNS = other.FirstTimestampNS
		}

		if other.LastTimestampNS > s.LastTimestampNS {
			s.LastTimestampNS = other.LastTimestampNS
		}
	}

	s.Frequency += other.Frequency
	s.TotalSize += other.TotalSize
	s.CumulativeCPUNS += other.CumulativeCPUNS
}
