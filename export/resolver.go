package export

import (
	"github.com/orizon-lang/memtrace/tracer/identity"
	"github.com/orizon-lang/memtrace/tracer/lifecycle"
	"github.com/orizon-lang/memtrace/tracer/track"
)

// trackResolver implements merge.Resolver against tracer/track's
// package-level identity and lifecycle state, used whenever Export runs
// in-process against the same tracer that produced the logs.
type trackResolver struct{}

func (trackResolver) Identity(ptr uintptr) (identity.Identity, bool) {
	return track.Identity(ptr)
}

func (trackResolver) State(ptr uintptr) (*lifecycle.State, bool) {
	return track.State(ptr)
}
