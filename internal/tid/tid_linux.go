//go:build linux

package tid

import "golang.org/x/sys/unix"

// current returns the kernel thread id (gettid) of the calling OS thread.
// Only meaningful immediately after Bind, while the goroutine stays pinned.
func current() uint64 {
	return uint64(unix.Gettid())
}
