// Package merge implements C7: the offline reader that decodes every
// per-thread binary log in a directory, reconstructs a global allocation
// table, and computes the aggregate statistics and derived views spec.md
// §4.7 calls for.
package merge

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/orizon-lang/memtrace/internal/codec"
	memerrors "github.com/orizon-lang/memtrace/internal/errors"
	"github.com/orizon-lang/memtrace/internal/model"
	"github.com/orizon-lang/memtrace/tracer/identity"
	"github.com/orizon-lang/memtrace/tracer/lifecycle"
)

// Resolver joins decoded events against the in-process identity/lifecycle
// state, when merge runs in the same process that traced them. A nil
// Resolver (or one returning ok=false for every pointer) degrades
// gracefully: records simply keep whatever VarName/TypeName/ScopeName the
// event itself carried and PeakSize equal to Size.
type Resolver interface {
	Identity(ptr uintptr) (identity.Identity, bool)
	State(ptr uintptr) (*lifecycle.State, bool)
}

// Options controls one merge pass.
type Options struct {
	Resolver         Resolver
	LeakAgeThreshold time.Duration
	HotspotTopN      int
	AsOfNS           int64 // 0 means time.Now()
}

// DefaultOptions returns sensible defaults: a 10s leak-age threshold
// (spec.md leaves this "configurable" without naming a default; 10s is
// chosen here to match the High risk lifetime boundary in
// tracer/lifecycle.ClassifyRisk, documented in DESIGN.md) and a top-10
// hotspot list.
func DefaultOptions() Options {
	return Options{
		LeakAgeThreshold: 10 * time.Second,
		HotspotTopN:      10,
	}
}

// Merge reads every memtrace_thread_*.bin and its sibling .freq file in dir
// and produces one unified Result.
func Merge(dir string, opts Options) (*Result, error) {
	binPaths, err := filepath.Glob(filepath.Join(dir, "memtrace_thread_*.bin"))
	if err != nil {
		return nil, err
	}

	var (
		allEvents []codec.Event
		warnings  []error
	)

	for _, p := range binPaths {
		events, warn, err := decodeFileTolerant(p)
		if err != nil {
			continue
		}

		if warn != nil {
			warnings = append(warnings, warn)
		}

		allEvents = append(allEvents, events...)
	}

	res, err := mergeFromEvents(dir, allEvents, opts)
	if err != nil {
		return nil, err
	}

	res.DecodeWarnings = append(res.DecodeWarnings, warnings...)

	return res, nil
}

// mergeFromEvents runs the pairing/join/aggregate pipeline over an
// already-decoded event set, reading the directory's .freq files itself.
// Shared by Merge (sequential decode) and Parallel (pool-decoded).
func mergeFromEvents(dir string, allEvents []codec.Event, opts Options) (*Result, error) {
	freqPaths, err := filepath.Glob(filepath.Join(dir, "memtrace_thread_*.freq"))
	if err != nil {
		return nil, err
	}

	summaryByHash := make(map[uint64]*model.CallStackSummary)

	for _, p := range freqPaths {
		summaries, err := decodeFreqFileTolerant(p)
		if err != nil {
			continue
		}

		for _, s := range summaries {
			mergeSummary(summaryByHash, s)
		}
	}

	sort.SliceStable(allEvents, func(i, j int) bool {
		return allEvents[i].TimestampNS < allEvents[j].TimestampNS
	})

	asOf := opts.AsOfNS
	if asOf == 0 {
		asOf = time.Now().UnixNano()
	}

	records := make(map[uint64]*model.Record)

	var stats MemoryStats

	var activeBytes uint64

	var peakBytes uint64

	var deallocAttempts []DeallocAttempt

	for _, ev := range allEvents {
		switch ev.Tag {
		case codec.EventAllocation:
			rec := &model.Record{
				Ptr:           uintptr(ev.Ptr),
				Size:          ev.Size,
				Alignment:     ev.Alignment,
				ThreadID:      ev.ThreadID,
				TimestampAlloc: ev.TimestampNS,
				VarName:       ev.VarName,
				TypeName:      ev.TypeName,
				ScopeName:     ev.ScopeName,
				CallStack:     ev.CallStack,
				CallStackHash: ev.CallStackHash,
				PeakSize:      ev.Size,
			}

			applyResolver(rec, opts.Resolver)

			records[ev.Ptr] = rec
			stats.TotalAllocations++
			activeBytes += ev.Size
			stats.TotalBytes += ev.Size

			if activeBytes > peakBytes {
				peakBytes = activeBytes
			}
		case codec.EventDeallocation:
			rec, ok := records[ev.Ptr]

			attempt := DeallocAttempt{Ptr: ev.Ptr, TimestampNS: ev.TimestampNS, CallStack: ev.CallStack}

			if !ok {
				attempt.WasInvalidFree = true
				stats.UnmatchedDeallocs++
				deallocAttempts = append(deallocAttempts, attempt)

				continue
			}

			if rec.HasDealloc {
				attempt.WasDoubleFree = true
				stats.UnmatchedDeallocs++
				deallocAttempts = append(deallocAttempts, attempt)

				continue
			}

			deallocAttempts = append(deallocAttempts, attempt)

			rec.HasDealloc = true
			rec.TimestampDealloc = ev.TimestampNS

			if rec.Size <= activeBytes {
				activeBytes -= rec.Size
			}
		}
	}

	stats.PeakBytes = peakBytes

	out := make([]*model.Record, 0, len(records))

	for _, rec := range records {
		if !rec.HasDealloc {
			stats.ActiveAllocations++
			stats.ActiveBytes += rec.Size

			if time.Duration(asOf-rec.TimestampAlloc) > opts.LeakAgeThreshold {
				rec.IsLeaked = true
				stats.LeakedAllocations++
			}
		}

		out = append(out, rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ptr < out[j].Ptr })

	summaries := make([]*model.CallStackSummary, 0, len(summaryByHash))
	for _, s := range summaryByHash {
		summaries = append(summaries, s)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Hash < summaries[j].Hash })

	res := &Result{
		Records:         out,
		Summaries:       summaries,
		Stats:           stats,
		DeallocAttempts: deallocAttempts,
	}

	res.Lifecycle = lifecycleBuckets(out, asOf)
	res.Fragment = fragmentation(out)

	topN := opts.HotspotTopN
	if topN <= 0 {
		topN = 10
	}

	res.Hotspots = hotspots(summaries, topN)
	res.TypePatterns = typePatterns(out, asOf)

	return res, nil
}

func applyResolver(rec *model.Record, r Resolver) {
	if r == nil {
		rec.PeakSize = rec.Size
		return
	}

	if id, ok := r.Identity(rec.Ptr); ok {
		rec.VarName = id.VarName
		rec.TypeName = id.TypeName
		rec.ScopeName = id.ScopeName
	}

	if st, ok := r.State(rec.Ptr); ok {
		rec.PeakSize = maxU64(st.PeakSize, rec.Size)
		rec.GrowthEvents = st.GrowthEvents
		rec.BorrowCount = st.BorrowCount
		rec.MutBorrowCount = st.MutBorrowCount
		rec.TransferCount = st.TransferCount
		rec.EfficiencyScore = st.EfficiencyScore()
		rec.RiskLevel = st.ClassifyRisk(0)
		rec.OwnershipPattern = st.DetermineOwnership(rec.TypeName)
	} else {
		rec.PeakSize = rec.Size
		rec.EfficiencyScore = 1
	}
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}

	return b
}

// decodeFileTolerant decodes every frame in path, stopping at the first
// truncated/malformed frame rather than failing the whole merge (spec.md
// §4.7 step 1: "tolerate truncated final frames, skip, log"). A non-nil
// warning return means reading stopped early on a real decode error (not a
// clean end-of-file); callers surface it via Result.DecodeWarnings rather
// than failing the merge, per SPEC_FULL.md §7's "MergeDecodeError logged and
// skipped."
func decodeFileTolerant(path string) (events []codec.Event, warning error, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var out []codec.Event

	var offset int64

	for {
		batch, decErr := codec.DecodeFrame(f)
		if decErr != nil {
			if errors.Is(decErr, io.EOF) {
				break
			}

			warning = memerrors.MergeDecodeError(path, offset, decErr)

			break
		}

		out = append(out, batch...)
		offset++
	}

	return out, warning, nil
}

func decodeFreqFileTolerant(path string) ([]codec.Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return codec.DecodeSummaries(f)
}

func mergeSummary(byHash map[uint64]*model.CallStackSummary, s codec.Summary) {
	existing, ok := byHash[s.Hash]
	if !ok {
		byHash[s.Hash] = &model.CallStackSummary{
			Hash:             s.Hash,
			Frames:           s.Frames,
			Frequency:        s.Frequency,
			TotalSize:        s.TotalSize,
			MinSize:          s.MinSize,
			MaxSize:          s.MaxSize,
			FirstTimestampNS: s.FirstTimestampNS,
			LastTimestampNS:  s.LastTimestampNS,
			CumulativeCPUNS:  s.CumulativeCPUNS,
		}

		return
	}

	other := &model.CallStackSummary{
		Hash: s.Hash, Frames: s.Frames, Frequency: s.Frequency, TotalSize: s.TotalSize,
		MinSize: s.MinSize, MaxSize: s.MaxSize,
		FirstTimestampNS: s.FirstTimestampNS, LastTimestampNS: s.LastTimestampNS,
		CumulativeCPUNS: s.CumulativeCPUNS,
	}
	existing.Merge(other)
}

func lifecycleBuckets(records []*model.Record, asOf int64) LifecycleBuckets {
	var b LifecycleBuckets

	var lifetimes []int64

	for _, r := range records {
		if !r.HasDealloc {
			continue
		}

		lt := r.Lifetime(asOf)
		lifetimes = append(lifetimes, lt)

		switch {
		case lt < int64(time.Millisecond):
			b.Instant++
		case lt < int64(100*time.Millisecond):
			b.Short++
		case lt < int64(time.Second):
			b.Medium++
		default:
			b.Long++
		}
	}

	sort.Slice(lifetimes, func(i, j int) bool { return lifetimes[i] < lifetimes[j] })

	b.P50NS = percentile(lifetimes, 0.50)
	b.P90NS = percentile(lifetimes, 0.90)
	b.P99NS = percentile(lifetimes, 0.99)

	return b
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}

	idx := int(p * float64(len(sorted)-1))

	return sorted[idx]
}

// sizeClass buckets a size into a power-of-two class for fragmentation
// estimation, matching the size-class instinct the sampler already applies
// (small/medium/large) but generalized to a full power-of-two ladder since
// fragmentation needs finer granularity than three bands.
func sizeClass(size uint64) uint64 {
	if size == 0 {
		return 0
	}

	class := uint64(1)
	for class < size {
		class <<= 1
	}

	return class
}

func fragmentation(records []*model.Record) FragmentationEstimate {
	byClass := make(map[uint64][]uintptr)

	var paddingWaste uint64

	for _, r := range records {
		if r.HasDealloc {
			continue
		}

		class := sizeClass(r.Size)
		byClass[class] = append(byClass[class], r.Ptr)

		if r.Alignment > 0 {
			rem := r.Size % r.Alignment
			if rem != 0 {
				paddingWaste += r.Alignment - rem
			}
		}
	}

	avgGap := make(map[uint64]float64, len(byClass))

	for class, ptrs := range byClass {
		if len(ptrs) < 2 {
			avgGap[class] = 0
			continue
		}

		sort.Slice(ptrs, func(i, j int) bool { return ptrs[i] < ptrs[j] })

		var total uint64

		for i := 1; i < len(ptrs); i++ {
			total += uint64(ptrs[i] - ptrs[i-1])
		}

		avgGap[class] = float64(total) / float64(len(ptrs)-1)
	}

	return FragmentationEstimate{AveragePtrGapBySizeClass: avgGap, AlignmentPaddingWaste: paddingWaste}
}

func hotspots(summaries []*model.CallStackSummary, topN int) []Hotspot {
	out := make([]Hotspot, 0, len(summaries))

	for _, s := range summaries {
		if s.Frequency == 0 {
			continue
		}

		avg := float64(s.TotalSize) / float64(s.Frequency)
		out = append(out, Hotspot{
			CallStackHash: s.Hash,
			Frequency:     s.Frequency,
			AverageSize:   avg,
			Score:         float64(s.Frequency) * avg,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if len(out) > topN {
		out = out[:topN]
	}

	return out
}

func typePatterns(records []*model.Record, asOf int64) []TypePattern {
	type acc struct {
		count         uint64
		growthSum     float64
		minLT, maxLT  int64
		sawAny        bool
	}

	byType := make(map[string]*acc)

	for _, r := range records {
		name := r.TypeName
		if strings.TrimSpace(name) == "" {
			name = "<unknown>"
		}

		a, ok := byType[name]
		if !ok {
			a = &acc{}
			byType[name] = a
		}

		a.count++

		growthFactor := 1.0
		if r.Size > 0 {
			growthFactor = float64(r.PeakSize) / float64(r.Size)
		}

		a.growthSum += growthFactor

		lt := r.Lifetime(asOf)
		if !a.sawAny || lt < a.minLT {
			a.minLT = lt
		}

		if !a.sawAny || lt > a.maxLT {
			a.maxLT = lt
		}

		a.sawAny = true
	}

	out := make([]TypePattern, 0, len(byType))

	for name, a := range byType {
		out = append(out, TypePattern{
			TypeName:         name,
			Count:            a.count,
			MeanGrowthFactor: a.growthSum / float64(a.count),
			MinLifetimeNS:    a.minLT,
			MaxLifetimeNS:    a.maxLT,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].TypeName < out[j].TypeName })

	return out
}
