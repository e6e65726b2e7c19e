package recorder

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// registry is the process-wide set of live recorders, consulted by
// export.Export to quiesce and finalize every thread's (or shard's) log
// before merging. Go has no deterministic destructors, so this registry —
// not a drop handler — is what makes every recorder reachable at export
// time.
type registry struct {
	mu   sync.Mutex
	byID map[uint64]*Recorder
}

var global = &registry{byID: make(map[uint64]*Recorder)}

func (g *registry) register(r *Recorder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byID[r.threadID] = r
}

// All returns every currently registered recorder.
func All() []*Recorder {
	global.mu.Lock()
	defer global.mu.Unlock()

	out := make([]*Recorder, 0, len(global.byID))
	for _, r := range global.byID {
		out = append(out, r)
	}

	return out
}

// Quiesce turns recording off for every registered recorder and returns a
// function that restores each recorder's prior state.
func Quiesce() (release func()) {
	rs := All()
	prior := make([]bool, len(rs))

	for i, r := range rs {
		prior[i] = r.recording.Load()
		r.SetRecording(false)
	}

	return func() {
		for i, r := range rs {
			r.SetRecording(prior[i])
		}
	}
}

// FinalizeAll calls Finalize on every registered recorder, used by export's
// step 2 (SPEC_FULL.md §4.9).
func FinalizeAll() {
	for _, r := range All() {
		r.Finalize()
	}
}

// shardCount is the number of implicit per-P fallback recorders used when a
// host never calls BindThread, approximating "thread" as "shard" (SPEC_FULL.md
// §4.2).
var shardCount = runtime.NumCPU()

var (
	shardOnce sync.Once
	shards    []*Recorder
	nextShard atomic.Uint64
)

func initShards(cfg Config) {
	shards = make([]*Recorder, shardCount)

	for i := range shards {
		r := New(uint64(i)+1<<40, cfg)
		shards[i] = r
		global.register(r)
	}
}

// Shard returns the next fallback recorder in round-robin order, for hosts
// that never explicitly bind a goroutine to an OS thread.
func Shard(cfg Config) *Recorder {
	shardOnce.Do(func() { initShards(cfg) })

	i := nextShard.Add(1) % uint64(len(shards))

	return shards[i]
}

// Bound returns the recorder for an explicitly bound thread id, creating it
// on first use.
func Bound(threadID uint64, cfg Config) *Recorder {
	global.mu.Lock()
	r, ok := global.byID[threadID]
	global.mu.Unlock()

	if ok {
		return r
	}

	r = New(threadID, cfg)
	global.register(r)

	return r
}
