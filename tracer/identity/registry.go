// Package identity implements C4: the association between a raw pointer and
// the user-declared (variable, type, scope) identity supplied by the
// tracking helpers. It is the one datum in the tracker that multiple threads
// write concurrently (SPEC_FULL.md §5), so it is sharded by pointer hash with
// one uncontended lock per shard — the same sharding instinct the teacher
// applies to its pool allocator's size-class maps.
package identity

import (
	"sync"
)

const shardCount = 16

// Identity is the (variable, type, scope) triple attached to a pointer.
type Identity struct {
	VarName   string
	TypeName  string
	ScopeName string
}

type shard struct {
	mu sync.Mutex
	m  map[uintptr]Identity
}

// Registry maps a live pointer to its declared identity.
type Registry struct {
	shards [shardCount]*shard
	// isLive reports whether ptr currently names a live allocation. It is
	// supplied by the caller (the recorder/tracer layer owns liveness);
	// Associate consults it so a race between track.Var and a concurrent
	// Dealloc drops the association silently instead of resurrecting a
	// dead pointer (SPEC_FULL.md Open Question 5).
	isLive func(ptr uintptr) bool
}

// New creates a registry. isLive is consulted on every Associate call; pass
// nil to accept every association unconditionally (useful in tests).
func New(isLive func(ptr uintptr) bool) *Registry {
	r := &Registry{isLive: isLive}

	for i := range r.shards {
		r.shards[i] = &shard{m: make(map[uintptr]Identity)}
	}

	return r
}

func (r *Registry) shardFor(ptr uintptr) *shard {
	h := uint64(ptr)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33

	return r.shards[h%shardCount]
}

// Associate records (or overwrites) the identity for ptr. It is idempotent:
// re-association of the same pointer simply overwrites the prior identity.
// If ptr is not currently a live allocation, the association is silently
// dropped. Associate never allocates beyond the map's own growth, so it
// cannot recurse back into the allocator shim.
func (r *Registry) Associate(ptr uintptr, id Identity) {
	if r.isLive != nil && !r.isLive(ptr) {
		return
	}

	s := r.shardFor(ptr)

	s.mu.Lock()
	s.m[ptr] = id
	s.mu.Unlock()
}

// Lookup returns the identity for ptr, if any.
func (r *Registry) Lookup(ptr uintptr) (Identity, bool) {
	s := r.shardFor(ptr)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.m[ptr]

	return id, ok
}

// Forget removes ptr's identity, called when the pointer is deallocated.
func (r *Registry) Forget(ptr uintptr) {
	s := r.shardFor(ptr)

	s.mu.Lock()
	delete(s.m, ptr)
	s.mu.Unlock()
}

// Len returns the number of currently-associated pointers, for diagnostics
// and tests.
func (r *Registry) Len() int {
	n := 0

	for _, s := range r.shards {
		s.mu.Lock()
		n += len(s.m)
		s.mu.Unlock()
	}

	return n
}
