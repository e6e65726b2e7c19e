//go:build !linux

package tid

import "sync/atomic"

var synthetic uint64

// current has no portable equivalent to gettid(2) outside Linux in the
// golang.org/x/sys/unix surface this module already depends on, so non-Linux
// builds fall back to a monotonic counter handed out once per Bind call. The
// goroutine stays pinned to its OS thread for the lifetime of the recorder
// that calls Bind, so the synthetic id remains a stable per-thread key even
// though it isn't the kernel's own thread id.
func current() uint64 {
	return atomic.AddUint64(&synthetic, 1)
}
