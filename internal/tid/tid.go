// Package tid resolves a stable per-OS-thread identifier for the recorder
// (see tracer/recorder). Go goroutines are not individually addressable and
// can migrate between OS threads, so callers that want a real thread_id must
// first pin themselves with Bind.
package tid

import "runtime"

// Bind locks the calling goroutine to its current OS thread and returns a
// stable identifier for that thread. The caller must not call
// runtime.UnlockOSThread until it is done using the identifier as a
// recorder key, since the kernel may reuse thread ids after that point.
func Bind() uint64 {
	runtime.LockOSThread()

	return current()
}

// Unbind releases the OS-thread pin taken by Bind.
func Unbind() {
	runtime.UnlockOSThread()
}
