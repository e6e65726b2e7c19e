package lifecycle

import (
	"testing"
	"time"

	"github.com/orizon-lang/memtrace/internal/model"
)

func TestRecordGrowthMonotonic(t *testing.T) {
	s := NewState(40)

	s.RecordGrowth(80)
	s.RecordGrowth(160)

	if s.PeakSize != 160 {
		t.Fatalf("expected peak 160, got %d", s.PeakSize)
	}

	if s.GrowthEvents != 2 {
		t.Fatalf("expected 2 growth events, got %d", s.GrowthEvents)
	}

	got := s.EfficiencyScore()
	want := float64(40) / float64(160)

	if got != want {
		t.Fatalf("expected efficiency %v, got %v", want, got)
	}
}

func TestRecordGrowthNoOpWhenNotGrowing(t *testing.T) {
	s := NewState(100)
	s.RecordGrowth(50)

	if s.PeakSize != 100 || s.GrowthEvents != 0 {
		t.Fatalf("shrink must not register as growth: peak=%d events=%d", s.PeakSize, s.GrowthEvents)
	}
}

func TestClassifyRiskBoundaries(t *testing.T) {
	critical := NewState(1<<20 + 1)
	if got := critical.ClassifyRisk(0); got != model.RiskCritical {
		t.Fatalf("expected Critical at size 1MiB+1, got %v", got)
	}

	medium := NewState(257)
	if got := medium.ClassifyRisk(500 * time.Millisecond); got != model.RiskMedium {
		t.Fatalf("expected Medium at size 257, got %v", got)
	}

	low := NewState(256)
	if got := low.ClassifyRisk(500 * time.Millisecond); got != model.RiskLow {
		t.Fatalf("expected Low at size 256, got %v", got)
	}
}

func TestDetermineOwnership(t *testing.T) {
	owned := NewState(8)
	if got := owned.DetermineOwnership("Vec<u32>"); got != model.OwnershipOwned {
		t.Fatalf("expected Owned, got %v", got)
	}

	shared := NewState(8)
	if got := shared.DetermineOwnership("Rc<RefCell<T>>"); got != model.OwnershipShared {
		t.Fatalf("expected Shared, got %v", got)
	}

	borrowed := NewState(8)
	if got := borrowed.DetermineOwnership("&str"); got != model.OwnershipBorrowed {
		t.Fatalf("expected Borrowed, got %v", got)
	}

	mixed := NewState(8)
	mixed.RecordTransfer()
	mixed.RecordBorrow(false)

	if got := mixed.DetermineOwnership("Vec<u8>"); got != model.OwnershipMixed {
		t.Fatalf("expected Mixed, got %v", got)
	}

	sharedOverMixed := NewState(8)
	sharedOverMixed.RecordTransfer()
	sharedOverMixed.RecordBorrow(false)

	if got := sharedOverMixed.DetermineOwnership("Rc<T>"); got != model.OwnershipShared {
		t.Fatalf("expected Shared to take precedence over Mixed for Rc/Arc types, got %v", got)
	}
}

func TestAddMetadataTagDedups(t *testing.T) {
	s := NewState(8)
	s.AddMetadataTag("hot")
	s.AddMetadataTag("hot")

	if len(s.MetadataTags) != 1 {
		t.Fatalf("expected 1 tag, got %d", len(s.MetadataTags))
	}
}
