// Package recorder implements C2: the per-thread (per-OS-thread when bound,
// per-shard otherwise) owner of one allocation/deallocation event buffer, its
// append-only binary log file, its sampler PRNG, and its call-stack
// summarizer. Exactly one goroutine writes to a given *Recorder at a time on
// the hot path; Finalize/quiesce may be called concurrently from export, so
// those paths take the mutex.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orizon-lang/memtrace/internal/codec"
	"github.com/orizon-lang/memtrace/internal/debug"
	"github.com/orizon-lang/memtrace/internal/tid"
	"github.com/orizon-lang/memtrace/tracer/callstack"
	"github.com/orizon-lang/memtrace/tracer/sample"
)

// Config controls recorder construction, mirroring spec.md §6's options.
type Config struct {
	Dir        string
	BufferSize int
	Sample     sample.Config
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		Dir:        ".",
		BufferSize: 1000,
		Sample:     sample.DefaultConfig(),
	}
}

// Stats are the recorder's cold-path-visible counters.
type Stats struct {
	Emitted           uint64
	Dropped           uint64
	BufferFlushFailed uint64
}

// Recorder owns one thread's (or shard's) event stream.
type Recorder struct {
	mu sync.Mutex

	threadID uint64
	cfg      Config
	file     *os.File
	freqPath string

	buffer []codec.Event
	cs     *callstack.Summarizer
	prng   *sample.LCG

	recording atomic.Bool
	finalized atomic.Bool

	startTime time.Time

	emitted           atomic.Uint64
	dropped           atomic.Uint64
	bufferFlushFailed atomic.Uint64
}

// New constructs and opens the log file for threadID. It never fails loudly:
// if the file cannot be opened, the recorder still functions but every
// TrackAllocation/TrackDeallocation call drops its event (spec.md's
// never-fail requirement).
func New(threadID uint64, cfg Config) *Recorder {
	r := &Recorder{
		threadID:  threadID,
		cfg:       cfg,
		buffer:    make([]codec.Event, 0, cfg.BufferSize),
		cs:        callstack.New(),
		prng:      sample.NewLCG(threadID),
		startTime: time.Now(),
	}
	r.recording.Store(true)

	binPath := filepath.Join(cfg.Dir, fmt.Sprintf("memtrace_thread_%d.bin", threadID))
	r.freqPath = filepath.Join(cfg.Dir, fmt.Sprintf("memtrace_thread_%d.freq", threadID))

	f, err := os.OpenFile(binPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err == nil {
		r.file = f
	}

	return r
}

// SetRecording toggles the recording flag, used by export's quiesce step.
func (r *Recorder) SetRecording(on bool) {
	r.recording.Store(on)
}

// TrackAllocation records one allocation, applying sampling weighted by the
// call site's observed frequency. It never returns an error; events lost to
// a failed flush increment Dropped.
func (r *Recorder) TrackAllocation(ptr, size, alignment uint64, varName, typeName, scopeName string) {
	if !r.recording.Load() {
		return
	}

	if size == 0 {
		return
	}

	pcs := debug.Capture(1)
	hash := debug.Hash(pcs)

	r.mu.Lock()
	defer r.mu.Unlock()

	freq := r.cs.Frequency(hash)

	cpuStart := time.Now()
	r.cs.Observe(hash, pcs, size, nowNS(), 0)

	if !sample.Sample(size, freq, r.cfg.Sample, r.prng) {
		return
	}

	ev := codec.Event{
		Tag:           codec.EventAllocation,
		Ptr:           ptr,
		Size:          size,
		Alignment:     alignment,
		ThreadID:      r.threadID,
		TimestampNS:   nowNS(),
		VarName:       varName,
		TypeName:      typeName,
		ScopeName:     scopeName,
		CallStack:     pcs,
		CallStackHash: hash,
		CPUTimeNS:     time.Since(cpuStart).Nanoseconds(),
	}

	r.appendLocked(ev)
}

// TrackDeallocation records one deallocation, sampled using size, the
// recorded size of the allocation being freed, rather than the dealloc call
// site's own (sizeless) event. The call-site frequency it samples with is
// the one observed for the deallocating call stack's hash; the frequency of
// the call site that made the allocation is not consulted.
func (r *Recorder) TrackDeallocation(ptr, size uint64) {
	if !r.recording.Load() {
		return
	}

	pcs := debug.Capture(1)
	hash := debug.Hash(pcs)

	r.mu.Lock()
	defer r.mu.Unlock()

	freq := r.cs.Frequency(hash)

	if !sample.Sample(size, freq, r.cfg.Sample, r.prng) {
		return
	}

	ev := codec.Event{
		Tag:           codec.EventDeallocation,
		Ptr:           ptr,
		ThreadID:      r.threadID,
		TimestampNS:   nowNS(),
		CallStack:     pcs,
		CallStackHash: hash,
	}

	r.appendLocked(ev)
}

// appendLocked adds ev to the buffer, flushing on fill. Caller holds r.mu.
func (r *Recorder) appendLocked(ev codec.Event) {
	r.buffer = append(r.buffer, ev)
	r.emitted.Add(1)

	if len(r.buffer) >= r.cfg.BufferSize {
		r.flushLocked()
	}
}

// flushLocked encodes and writes the current buffer in one batch, then
// clears it. Partial writes are not retried, per spec.md; the failure is
// only visible via Stats.
func (r *Recorder) flushLocked() {
	if len(r.buffer) == 0 {
		return
	}

	if r.file != nil {
		if err := codec.EncodeBatch(r.file, r.buffer); err != nil {
			r.bufferFlushFailed.Add(1)
			r.dropped.Add(uint64(len(r.buffer)))
		}
	} else {
		r.bufferFlushFailed.Add(1)
		r.dropped.Add(uint64(len(r.buffer)))
	}

	r.buffer = r.buffer[:0]
}

// Finalize flushes any remaining buffered events, writes the call-stack
// frequency sibling file, and closes the log file. It is idempotent.
func (r *Recorder) Finalize() {
	if !r.finalized.CompareAndSwap(false, true) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.flushLocked()

	if r.file != nil {
		if f, err := os.OpenFile(r.freqPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644); err == nil {
			_ = codec.EncodeSummaries(f, r.cs.Encode())
			_ = f.Close()
		}

		_ = r.file.Close()
	}
}

// Stats returns a snapshot of the recorder's counters.
func (r *Recorder) Stats() Stats {
	return Stats{
		Emitted:           r.emitted.Load(),
		Dropped:           r.dropped.Load(),
		BufferFlushFailed: r.bufferFlushFailed.Load(),
	}
}

// ThreadID returns the identifier this recorder was constructed for.
func (r *Recorder) ThreadID() uint64 { return r.threadID }

func nowNS() int64 { return time.Now().UnixNano() }

// BindThread pins the calling goroutine to its OS thread and returns a
// stable thread id for use as a Recorder key, per §4.2.
func BindThread() uint64 { return tid.Bind() }

// UnbindThread releases a prior BindThread pin.
func UnbindThread() { tid.Unbind() }
