// Package lifecycle implements C5: the derived-field state machine
// maintained per allocation (peak size, growth, borrow/transfer counters,
// risk classification, ownership pattern).
package lifecycle

import (
	"strings"
	"time"

	"github.com/orizon-lang/memtrace/internal/model"
)

// State tracks the mutable lifecycle fields for one allocation, separately
// from the frozen model.Record C7 produces at merge time.
type State struct {
	Size           uint64
	PeakSize       uint64
	GrowthEvents   uint64
	BorrowCount    uint64
	MutBorrowCount uint64
	TransferCount  uint64
	MetadataTags   map[string]struct{}
	CreatedAt      time.Time
}

// NewState starts tracking a freshly allocated pointer of the given size.
func NewState(size uint64) *State {
	return &State{
		Size:         size,
		PeakSize:     size,
		MetadataTags: make(map[string]struct{}),
		CreatedAt:    time.Now(),
	}
}

// RecordGrowth updates peak size and the growth counter when newSize exceeds
// the previous peak. Growth events increment iff peak size strictly
// increases (SPEC_FULL.md §8 property 4).
func (s *State) RecordGrowth(newSize uint64) {
	if newSize > s.PeakSize {
		s.PeakSize = newSize
		s.GrowthEvents++
	}
}

// EfficiencyScore returns size / peak_size, in [0, 1].
func (s *State) EfficiencyScore() float64 {
	if s.PeakSize == 0 {
		return 1
	}

	return float64(s.Size) / float64(s.PeakSize)
}

// RecordBorrow increments the shared or exclusive borrow counter.
func (s *State) RecordBorrow(mutable bool) {
	if mutable {
		s.MutBorrowCount++
	} else {
		s.BorrowCount++
	}
}

// RecordTransfer increments the ownership-transfer counter.
func (s *State) RecordTransfer() {
	s.TransferCount++
}

// AddMetadataTag inserts tag if not already present.
func (s *State) AddMetadataTag(tag string) {
	if s.MetadataTags == nil {
		s.MetadataTags = make(map[string]struct{})
	}

	s.MetadataTags[tag] = struct{}{}
}

// ClassifyRisk derives a RiskLevel from size, growth factor, and lifetime,
// using the thresholds in SPEC_FULL.md §4.5 verbatim.
func (s *State) ClassifyRisk(lifetime time.Duration) model.RiskLevel {
	growthFactor := 1.0
	if s.Size > 0 {
		growthFactor = float64(s.PeakSize) / float64(s.Size)
	}

	switch {
	case s.Size > 1<<20 || growthFactor > 3:
		return model.RiskCritical
	case s.Size > 1024 || growthFactor > 2 || lifetime > 10*time.Second:
		return model.RiskHigh
	case s.Size > 256 || growthFactor > 1.5 || lifetime > time.Second:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// DetermineOwnership classifies how an allocation is held, from its
// caller-supplied type name and the borrow/transfer counters observed so
// far. Prefix rules mirror the source-language conventions the tracking
// helpers were designed to mirror (Rc/Arc => Shared, a leading '&' =>
// Borrowed) so hosts porting existing tracking annotations need no
// translation.
func (s *State) DetermineOwnership(typeName string) model.OwnershipPattern {
	trimmed := strings.TrimSpace(typeName)

	isShared := strings.HasPrefix(trimmed, "Rc<") || strings.HasPrefix(trimmed, "Arc<") ||
		strings.HasPrefix(trimmed, "Rc ") || strings.HasPrefix(trimmed, "Arc ") ||
		trimmed == "Rc" || trimmed == "Arc" ||
		strings.Contains(trimmed, "atomic.") && strings.Contains(trimmed, "Shared")

	isBorrowed := strings.HasPrefix(trimmed, "&")

	switch {
	case isShared:
		return model.OwnershipShared
	case isBorrowed:
		return model.OwnershipBorrowed
	case s.TransferCount > 0 && (s.BorrowCount > 0 || s.MutBorrowCount > 0):
		return model.OwnershipMixed
	default:
		return model.OwnershipOwned
	}
}
