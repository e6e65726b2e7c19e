package merge

import "github.com/orizon-lang/memtrace/internal/model"

// MemoryStats are the headline aggregate counters spec.md §4.7 step 4 calls
// for. PeakBytes is the maximum of the running sum of active allocation
// sizes across the merged, time-ordered event stream — not max(size) of any
// single allocation (SPEC_FULL.md §4.7, Open Question 1).
type MemoryStats struct {
	TotalAllocations    uint64
	ActiveAllocations   uint64
	TotalBytes          uint64
	ActiveBytes         uint64
	PeakBytes           uint64
	UnmatchedDeallocs   uint64
	LeakedAllocations   uint64
}

// LifecycleBuckets partitions completed allocations by lifetime, per
// spec.md §4.7 step 5.
type LifecycleBuckets struct {
	Instant uint64 // < 1ms
	Short   uint64 // 1ms - 100ms
	Medium  uint64 // 100ms - 1s
	Long    uint64 // > 1s

	P50NS int64
	P90NS int64
	P99NS int64
}

// FragmentationEstimate approximates external fragmentation from gaps
// between adjacent live pointers within a size class, plus alignment
// padding waste, per spec.md §4.7 step 6.
type FragmentationEstimate struct {
	AveragePtrGapBySizeClass map[uint64]float64
	AlignmentPaddingWaste    uint64
}

// Hotspot ranks one call site by frequency*average_size, per spec.md §4.7
// step 7.
type Hotspot struct {
	CallStackHash uint64
	Frequency     uint64
	AverageSize   float64
	Score         float64
}

// TypePattern groups allocations by type_name, per spec.md §4.7 step 8.
type TypePattern struct {
	TypeName         string
	Count            uint64
	MeanGrowthFactor float64
	MinLifetimeNS    int64
	MaxLifetimeNS    int64
}

// DeallocAttempt records one decoded deallocation event's outcome against
// the pairing pass, feeding analysis.ClassifyUnsafe's double-free/invalid-
// free detection (spec.md §4.8).
type DeallocAttempt struct {
	Ptr             uint64
	TimestampNS     int64
	CallStack       []uint64
	WasDoubleFree   bool
	WasInvalidFree  bool
}

// Result is everything one merge-and-analyze pass produces.
type Result struct {
	Records         []*model.Record
	Summaries       []*model.CallStackSummary
	Stats           MemoryStats
	Lifecycle       LifecycleBuckets
	Fragment        FragmentationEstimate
	Hotspots        []Hotspot
	TypePatterns    []TypePattern
	DeallocAttempts []DeallocAttempt

	// DecodeWarnings holds one internal/errors.StandardError per log file
	// where decoding stopped early on a malformed frame rather than a
	// clean end-of-file (spec.md §4.7 step 1, SPEC_FULL.md §7).
	DecodeWarnings []error
}
