package identity

import "testing"

func TestAssociateIdempotentOverwrite(t *testing.T) {
	r := New(nil)

	r.Associate(0x1000, Identity{VarName: "v", TypeName: "Vec<u32>", ScopeName: "main"})
	r.Associate(0x1000, Identity{VarName: "v2", TypeName: "Vec<u32>", ScopeName: "main"})

	id, ok := r.Lookup(0x1000)
	if !ok {
		t.Fatal("expected identity present")
	}

	if id.VarName != "v2" {
		t.Fatalf("expected last write to win, got %q", id.VarName)
	}
}

func TestAssociateDropsWhenNotLive(t *testing.T) {
	r := New(func(ptr uintptr) bool { return false })

	r.Associate(0x2000, Identity{VarName: "x"})

	if _, ok := r.Lookup(0x2000); ok {
		t.Fatal("expected association to be dropped for a non-live pointer")
	}
}

func TestForgetRemoves(t *testing.T) {
	r := New(nil)
	r.Associate(0x3000, Identity{VarName: "y"})
	r.Forget(0x3000)

	if _, ok := r.Lookup(0x3000); ok {
		t.Fatal("expected identity to be gone after Forget")
	}
}

func TestLenAcrossShards(t *testing.T) {
	r := New(nil)
	for i := uintptr(0); i < 100; i++ {
		r.Associate(i*8+16, Identity{VarName: "v"})
	}

	if got := r.Len(); got != 100 {
		t.Fatalf("expected 100 associations, got %d", got)
	}
}
