// Package tracer implements C1: the allocator shim. Go has no pluggable
// global-allocator hook, so Alloc/Dealloc are explicit wrapper functions the
// host calls at the points where it would otherwise call make/new or drop a
// value (SPEC_FULL.md §1).
package tracer

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/orizon-lang/memtrace/tracer/recorder"
	"github.com/orizon-lang/memtrace/tracer/sample"
)

// Config configures the process-wide tracer, set once via Initialize.
type Config struct {
	Dir        string
	BufferSize int
	Sample     sample.Config
	// BindThreads is carried in the configuration but is not read by this
	// package: Alloc/Dealloc always report to the round-robin shard
	// recorders, whatever its value. Per-thread recorders are obtained only
	// by calling Bind directly.
	BindThreads bool
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		Dir:        ".",
		BufferSize: 1000,
		Sample:     sample.DefaultConfig(),
	}
}

var (
	cfgMu   sync.RWMutex
	current = DefaultConfig()
)

// Initialize sets the process-wide configuration used by subsequently
// created recorders. Existing recorders are unaffected.
func Initialize(cfg Config) {
	cfgMu.Lock()
	current = cfg
	cfgMu.Unlock()
}

func config() Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()

	return current
}

func recorderConfig(cfg Config) recorder.Config {
	return recorder.Config{Dir: cfg.Dir, BufferSize: cfg.BufferSize, Sample: cfg.Sample}
}

// live tracks every pointer currently considered allocated by this package,
// both to pin the backing Go memory against collection and to answer
// identity.Registry's liveness callback (tracer/identity.Registry.isLive).
var live sync.Map // uintptr -> []byte

// IsLive reports whether ptr is a currently tracked, not-yet-deallocated
// pointer. Consulted by tracer/identity.Registry.Associate.
func IsLive(ptr uintptr) bool {
	_, ok := live.Load(ptr)

	return ok
}

// currentRecorder resolves the recorder an Alloc/Dealloc reports to: always
// the next round-robin shard recorder (SPEC_FULL.md §4.2). A recorder
// obtained through Bind is not selected here, even for a bound caller.
func currentRecorder() *recorder.Recorder {
	cfg := config()

	return recorder.Shard(recorderConfig(cfg))
}

// Bind pins the calling goroutine to its OS thread and returns the recorder
// for it, for hosts that opt into real per-thread attribution.
func Bind() *recorder.Recorder {
	tid := recorder.BindThread()

	return recorder.Bound(tid, recorderConfig(config()))
}

// Unbind releases a prior Bind.
func Unbind() { recorder.UnbindThread() }

// Alloc allocates size bytes (alignment is recorded but Go's allocator does
// not expose alignment control beyond natural alignment) and reports the
// event to the calling goroutine's recorder. size == 0 skips recording
// entirely, per spec.md §4.1.
func Alloc(size, alignment uintptr) uintptr {
	if size == 0 {
		return 0
	}

	buf := make([]byte, size)
	ptr := uintptr(unsafe.Pointer(&buf[0]))

	live.Store(ptr, buf)

	rec := currentRecorder()
	trackAlloc(rec, ptr, size, alignment)

	return ptr
}

// trackAlloc applies the reentrancy guard around one recorder call: if this
// goroutine's recorder is already mid-emission (defensive; none of this
// package's own bookkeeping recurses into Alloc, but the guard is load-
// bearing for hosts that call Alloc from inside a custom allocator
// override), the event is silently dropped instead of recorded twice.
func trackAlloc(rec *recorder.Recorder, ptr, size, alignment uintptr) {
	g := recorderGuard(rec)
	if !g.enter() {
		return
	}
	defer g.exit()

	rec.TrackAllocation(uint64(ptr), uint64(size), uint64(alignment), "", "", "")
}

// Dealloc releases a pointer previously returned by Alloc and reports the
// deallocation. Unknown pointers are a silent no-op.
func Dealloc(ptr uintptr) {
	buf, ok := live.LoadAndDelete(ptr)
	if !ok {
		return
	}

	rec := currentRecorder()

	g := recorderGuard(rec)
	if !g.enter() {
		return
	}
	defer g.exit()

	rec.TrackDeallocation(uint64(ptr), uint64(len(buf.([]byte))))
}

// New allocates a zero-valued T and tracks it the way Alloc does, for hosts
// that want a typed, macro-free convenience wrapper.
func New[T any]() *T {
	var zero T

	size := unsafe.Sizeof(zero)
	ptr := Alloc(size, unsafe.Alignof(zero))

	if ptr == 0 {
		return new(T)
	}

	return (*T)(unsafe.Pointer(ptr))
}

// Free releases a pointer obtained from New.
func Free(p unsafe.Pointer) {
	Dealloc(uintptr(p))
}

type guard struct{ flag *atomic.Bool }

var guards sync.Map // *recorder.Recorder -> *atomic.Bool

func recorderGuard(rec *recorder.Recorder) guard {
	v, _ := guards.LoadOrStore(rec, &atomic.Bool{})

	return guard{flag: v.(*atomic.Bool)}
}

func (g guard) enter() bool { return g.flag.CompareAndSwap(false, true) }
func (g guard) exit()       { g.flag.Store(false) }
