// Package track implements the Go rendition of spec.md §4.4's track_var!
// macro and §6's update_state operation. Go cannot macro-expand at compile
// time, so Var is an ordinary function that recovers a pointer from common
// container/pointer shapes by reflection.
package track

import (
	"reflect"
	"sync"

	"github.com/orizon-lang/memtrace/tracer"
	"github.com/orizon-lang/memtrace/tracer/identity"
	"github.com/orizon-lang/memtrace/tracer/lifecycle"
)

var registry = identity.New(tracer.IsLive)

var (
	statesMu sync.Mutex
	states   = make(map[uintptr]*lifecycle.State)
)

// Var associates v's backing pointer with (name, typeName, scope), mirroring
// track_var!(x): containers expose their heap buffer, smart-pointer-shaped
// types pass their held pointer through directly, everything else uses v's
// own address if v is already a pointer.
func Var(v any, name, typeName, scope string) {
	ptr, ok := backingPointer(v)
	if !ok {
		return
	}

	registry.Associate(ptr, identity.Identity{VarName: name, TypeName: typeName, ScopeName: scope})

	size := sizeOf(reflect.ValueOf(v))

	statesMu.Lock()
	if _, exists := states[ptr]; !exists {
		states[ptr] = lifecycle.NewState(size)
	}
	statesMu.Unlock()
}

// sizeOf returns the byte size backingPointer's ptr actually covers, so the
// lifecycle.State seeded here starts from the real allocation size instead
// of 0: a slice's backing array is len*elemSize, a pointer's target is
// sizeof(*T). Containers with no fixed element layout (maps, channels,
// funcs) have no portable byte size and seed at 0.
func sizeOf(rv reflect.Value) uint64 {
	switch rv.Kind() {
	case reflect.Ptr:
		return uint64(rv.Type().Elem().Size())
	case reflect.Slice:
		return uint64(rv.Len()) * uint64(rv.Type().Elem().Size())
	default:
		return 0
	}
}

// backingPointer extracts the address a tracking association should key on.
// Non-empty slices expose their backing array's first element; maps,
// channels, funcs and unsafe pointers expose their runtime pointer;
// pointer-typed values pass through directly. Strings and every other kind
// yield no pointer.
func backingPointer(v any) (uintptr, bool) {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return 0, false
		}

		return rv.Pointer(), true
	case reflect.Slice:
		if rv.Len() == 0 {
			return 0, false
		}

		return rv.Pointer(), true
	case reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}

		return rv.Pointer(), true
	default:
		return 0, false
	}
}

// Identity returns the currently associated identity for ptr, if any.
func Identity(ptr uintptr) (identity.Identity, bool) {
	return registry.Lookup(ptr)
}

// Forget drops an association, called when the underlying pointer is
// deallocated.
func Forget(ptr uintptr) {
	registry.Forget(ptr)

	statesMu.Lock()
	delete(states, ptr)
	statesMu.Unlock()
}

// stateFor looks up ptr's state, seeding a zero-size one only as a fallback
// for a ptr that UpdateState was called on without a prior Var — the real
// size is unknown at that point, unlike in Var where it's read from v.
func stateFor(ptr uintptr) *lifecycle.State {
	statesMu.Lock()
	defer statesMu.Unlock()

	s, ok := states[ptr]
	if !ok {
		s = lifecycle.NewState(0)
		states[ptr] = s
	}

	return s
}

// State returns the lifecycle state for ptr, for callers (merge, tests) that
// need read access without mutating it.
func State(ptr uintptr) (*lifecycle.State, bool) {
	statesMu.Lock()
	defer statesMu.Unlock()

	s, ok := states[ptr]

	return s, ok
}

// EventKind discriminates update_state's event union (spec.md §6).
type EventKind int

const (
	EventGrowth EventKind = iota
	EventBorrow
	EventTransfer
	EventTag
)

// Event is one update_state(ptr, event) call's payload.
type Event struct {
	Kind    EventKind
	Size    uint64 // EventGrowth
	Mutable bool   // EventBorrow
	Tag     string // EventTag
}

// UpdateState applies one lifecycle event to ptr's state, the Go rendition
// of spec.md §6's update_state(ptr, event).
func UpdateState(ptr uintptr, ev Event) {
	s := stateFor(ptr)

	switch ev.Kind {
	case EventGrowth:
		s.RecordGrowth(ev.Size)
	case EventBorrow:
		s.RecordBorrow(ev.Mutable)
	case EventTransfer:
		s.RecordTransfer()
	case EventTag:
		s.AddMetadataTag(ev.Tag)
	}
}

// relation records a directed ptr -> ptr edge with a kind, used by
// analysis.DetectCycles as the "clone-of"/"contained-ptr" relation table
// spec.md §4.8 calls for.
type relation struct {
	To   uintptr
	Weak bool
}

var (
	relMu sync.Mutex
	rels  = make(map[uintptr][]relation)
)

// ContainsPtr records that owner's allocation holds a reference to
// contained, e.g. a struct field or a Rc-like wrapper's inner pointer. weak
// marks a non-owning edge excluded from cycle detection.
func ContainsPtr(owner, contained uintptr, weak bool) {
	relMu.Lock()
	rels[owner] = append(rels[owner], relation{To: contained, Weak: weak})
	relMu.Unlock()
}

// CloneOf records that clone was produced by cloning original — the same
// relation shape as ContainsPtr, named separately because it is the
// grouping/provenance relation spec.md §4.8 calls "clone-of" rather than a
// structural containment edge.
func CloneOf(clone, original uintptr) {
	ContainsPtr(clone, original, false)
}

// Relations returns a snapshot of the owner -> referenced edges recorded so
// far, excluding weak edges, for analysis.DetectCycles.
func Relations() map[uintptr][]uintptr {
	relMu.Lock()
	defer relMu.Unlock()

	out := make(map[uintptr][]uintptr, len(rels))

	for owner, edges := range rels {
		for _, e := range edges {
			if e.Weak {
				continue
			}

			out[owner] = append(out[owner], e.To)
		}
	}

	return out
}
