package merge

import (
	"path/filepath"
	"runtime"
	"sync"

	"github.com/orizon-lang/memtrace/internal/codec"
)

// Parallel decodes dir's per-thread logs across a worker pool sized to
// GOMAXPROCS before running the same pairing/join/aggregate pipeline as
// Merge — spec.md §5's "may optionally parallelize... embarrassingly
// parallel" note, grounded on the teacher's size-classed pool-per-worker
// pattern in internal/allocator/pool.go, generalized here to one worker per
// available core rather than one per size class.
func Parallel(dir string, opts Options) (*Result, error) {
	binPaths, err := filepath.Glob(filepath.Join(dir, "memtrace_thread_*.bin"))
	if err != nil {
		return nil, err
	}

	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	type decoded struct {
		events  []codec.Event
		warning error
	}

	jobs := make(chan string, len(binPaths))
	results := make(chan decoded, len(binPaths))

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for path := range jobs {
				events, warning, err := decodeFileTolerant(path)
				if err != nil {
					continue
				}

				results <- decoded{events: events, warning: warning}
			}
		}()
	}

	for _, p := range binPaths {
		jobs <- p
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		allEvents []codec.Event
		warnings  []error
	)

	for d := range results {
		allEvents = append(allEvents, d.events...)

		if d.warning != nil {
			warnings = append(warnings, d.warning)
		}
	}

	res, err := mergeFromEvents(dir, allEvents, opts)
	if err != nil {
		return nil, err
	}

	res.DecodeWarnings = append(res.DecodeWarnings, warnings...)

	return res, nil
}
