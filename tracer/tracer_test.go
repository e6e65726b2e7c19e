package tracer

import (
	"testing"
	"unsafe"
)

func TestAllocZeroSizeReturnsZero(t *testing.T) {
	if ptr := Alloc(0, 8); ptr != 0 {
		t.Fatalf("expected 0 for zero-size alloc, got %#x", ptr)
	}
}

func TestAllocMarksLiveAndDeallocClears(t *testing.T) {
	Initialize(Config{Dir: t.TempDir(), BufferSize: 8, Sample: DefaultConfig().Sample})

	ptr := Alloc(32, 8)
	if ptr == 0 {
		t.Fatal("expected non-zero pointer")
	}

	if !IsLive(ptr) {
		t.Fatal("expected pointer to be live after Alloc")
	}

	Dealloc(ptr)

	if IsLive(ptr) {
		t.Fatal("expected pointer to no longer be live after Dealloc")
	}
}

func TestDeallocUnknownPointerIsNoOp(t *testing.T) {
	Dealloc(0xdeadbeef)
}

func TestNewAndFreeRoundTrip(t *testing.T) {
	Initialize(Config{Dir: t.TempDir(), BufferSize: 8, Sample: DefaultConfig().Sample})

	p := New[int]()
	*p = 42

	if *p != 42 {
		t.Fatalf("expected 42, got %d", *p)
	}

	Free(unsafe.Pointer(p))
}
