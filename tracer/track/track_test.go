package track

import "testing"

func TestVarAssociatesSliceBackingPointer(t *testing.T) {
	v := make([]int, 4)

	Var(v, "v", "[]int", "main")

	ptr, ok := backingPointer(v)
	if !ok {
		t.Fatal("expected slice to yield a backing pointer")
	}

	id, ok := Identity(ptr)
	if !ok {
		t.Fatal("expected identity to be associated")
	}

	if id.VarName != "v" || id.TypeName != "[]int" || id.ScopeName != "main" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVarSeedsStateWithRealSliceSize(t *testing.T) {
	v := make([]int64, 10) // 10 * 8 bytes = 80

	Var(v, "v", "[]int64", "main")

	ptr, ok := backingPointer(v)
	if !ok {
		t.Fatal("expected slice to yield a backing pointer")
	}

	s, ok := State(ptr)
	if !ok {
		t.Fatal("expected state to be seeded")
	}

	if s.PeakSize != 80 {
		t.Fatalf("expected state seeded with the slice's real byte size 80, got %d", s.PeakSize)
	}
}

func TestVarSkipsEmptySlice(t *testing.T) {
	var v []int

	Var(v, "v", "[]int", "main")

	if _, ok := backingPointer(v); ok {
		t.Fatal("expected nil/empty slice to yield no backing pointer")
	}
}

func TestUpdateStateGrowthAndBorrow(t *testing.T) {
	ptr := uintptr(0xaa00)

	UpdateState(ptr, Event{Kind: EventGrowth, Size: 100})
	UpdateState(ptr, Event{Kind: EventBorrow, Mutable: true})
	UpdateState(ptr, Event{Kind: EventTransfer})
	UpdateState(ptr, Event{Kind: EventTag, Tag: "hot"})

	s, ok := State(ptr)
	if !ok {
		t.Fatal("expected state to exist")
	}

	if s.PeakSize != 100 || s.MutBorrowCount != 1 || s.TransferCount != 1 {
		t.Fatalf("unexpected state: %+v", s)
	}

	if _, tagged := s.MetadataTags["hot"]; !tagged {
		t.Fatal("expected hot tag recorded")
	}
}

func TestRelationsExcludesWeakEdges(t *testing.T) {
	owner := uintptr(0x1)
	strong := uintptr(0x2)
	weak := uintptr(0x3)

	ContainsPtr(owner, strong, false)
	ContainsPtr(owner, weak, true)

	edges := Relations()[owner]
	if len(edges) != 1 || edges[0] != strong {
		t.Fatalf("expected only the strong edge, got %v", edges)
	}
}

func TestCloneOfRecordsEdge(t *testing.T) {
	CloneOf(0x10, 0x20)

	edges := Relations()[0x10]
	if len(edges) != 1 || edges[0] != 0x20 {
		t.Fatalf("expected clone-of edge to 0x20, got %v", edges)
	}
}
