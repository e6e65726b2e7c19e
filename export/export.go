// Package export implements C9: the facade that quiesces every in-process
// recorder, merges and analyzes the resulting logs, and emits the result as
// a single versioned binary file, a set of per-category JSON shards, or (via
// a caller-supplied renderer) an HTML dashboard.
package export

import (
	"fmt"
	"time"

	"github.com/orizon-lang/memtrace/analysis"
	"github.com/orizon-lang/memtrace/internal/transport"
	"github.com/orizon-lang/memtrace/internal/watch"
	"github.com/orizon-lang/memtrace/merge"
	"github.com/orizon-lang/memtrace/tracer/recorder"
	"github.com/orizon-lang/memtrace/tracer/track"
)

// Format selects the on-disk representation Export produces.
type Format int

const (
	FormatBinary Format = iota
	FormatJSON
	FormatHTML
)

// HTMLRenderer is the seam for the (out-of-scope) HTML dashboard renderer;
// the facade only calls it, it does not implement it.
type HTMLRenderer interface {
	Render(dir, outPath string, result *Result) error
}

// RemoteOptions pushes the finished export to a collector over HTTP/3.
type RemoteOptions struct {
	URL       string
	Transport transport.Options
}

// Options controls one Export call.
type Options struct {
	Format Format

	// InProcess, when true, resolves each record's identity/lifecycle
	// state from the calling process's tracer/track package state and
	// feeds its relation table into cycle detection — used when Export
	// runs in the same process that traced the logs. When false, merge
	// runs with a nil Resolver and cycle detection sees no relations,
	// which degrades gracefully (SPEC_FULL.md §4.7).
	InProcess bool

	ParallelMerge        bool
	EnableIntegrityCheck bool

	MergeOptions merge.Options
	HTMLRenderer HTMLRenderer
	Remote       *RemoteOptions

	Watch         bool
	WatchDebounce time.Duration
}

// DefaultOptions returns an in-process, sequential-merge, binary export.
func DefaultOptions() Options {
	return Options{
		Format:       FormatBinary,
		InProcess:    true,
		MergeOptions: merge.DefaultOptions(),
	}
}

// Result is everything one Export call produced.
type Result struct {
	Merge       *merge.Result
	Cycles      []analysis.Cycle
	Violations  []analysis.SafetyViolation
	UnsafeStats analysis.UnsafeStats
	TypeGuesses map[uint64]analysis.TypeGuess
	OutputFiles []string

	watcher *watch.Watcher
}

// StopWatch stops the live-export watcher started by Options.Watch, if any.
func (r *Result) StopWatch() error {
	if r.watcher == nil {
		return nil
	}

	return r.watcher.Close()
}

// Export quiesces every registered recorder, finalizes its buffered events,
// merges dir's logs, runs the analysis suite, and writes outPath in
// opts.Format. It is synchronous and returns when all I/O completes
// (spec.md §5: "export() is synchronous").
func Export(dir, outPath string, opts Options) (Result, error) {
	release := recorder.Quiesce()
	defer release()

	recorder.FinalizeAll()

	res, err := runOnce(dir, outPath, opts)
	if err != nil {
		return res, err
	}

	if opts.Watch {
		w, werr := watch.New(dir, opts.WatchDebounce, func(d string) {
			_, _ = runOnce(d, outPath, opts)
		})
		if werr != nil {
			return res, fmt.Errorf("export: starting watch: %w", werr)
		}

		res.watcher = w
	}

	return res, nil
}

// runOnce performs one merge+analyze+emit pass without touching the
// recorder registry, shared between Export's initial pass and every
// re-export the watch mode triggers.
func runOnce(dir, outPath string, opts Options) (Result, error) {
	mergeOpts := opts.MergeOptions
	if opts.InProcess && mergeOpts.Resolver == nil {
		mergeOpts.Resolver = trackResolver{}
	}

	var (
		mr  *merge.Result
		err error
	)

	if opts.ParallelMerge {
		mr, err = merge.Parallel(dir, mergeOpts)
	} else {
		mr, err = merge.Merge(dir, mergeOpts)
	}

	if err != nil {
		return Result{}, fmt.Errorf("export: merge: %w", err)
	}

	relations := map[uintptr][]uintptr{}
	if opts.InProcess {
		relations = track.Relations()
	}

	cycles := analysis.DetectCycles(mr.Records, relations)
	violations, unsafeStats := analysis.ClassifyUnsafe(mr.Records, mr.DeallocAttempts)

	guesses := make(map[uint64]analysis.TypeGuess, len(mr.Records))
	for _, r := range mr.Records {
		guesses[uint64(r.Ptr)] = analysis.InferType(r)
	}

	res := Result{
		Merge:       mr,
		Cycles:      cycles,
		Violations:  violations,
		UnsafeStats: unsafeStats,
		TypeGuesses: guesses,
	}

	files, err := emit(outPath, &res, opts)
	if err != nil {
		return res, err
	}

	res.OutputFiles = files

	if opts.Remote != nil {
		if err := pushRemote(*opts.Remote, files); err != nil {
			return res, fmt.Errorf("export: remote push: %w", err)
		}
	}

	return res, nil
}

func emit(outPath string, res *Result, opts Options) ([]string, error) {
	switch opts.Format {
	case FormatBinary:
		if err := writeBinary(outPath, res.Merge); err != nil {
			return nil, fmt.Errorf("export: writing binary: %w", err)
		}

		return []string{outPath}, nil
	case FormatJSON:
		files, err := writeJSONShards(outPath, res, opts.EnableIntegrityCheck)
		if err != nil {
			return nil, fmt.Errorf("export: writing json shards: %w", err)
		}

		return files, nil
	case FormatHTML:
		if opts.HTMLRenderer == nil {
			return nil, fmt.Errorf("export: html format requires an HTMLRenderer")
		}

		if err := opts.HTMLRenderer.Render("", outPath, res); err != nil {
			return nil, fmt.Errorf("export: rendering html: %w", err)
		}

		return []string{outPath}, nil
	default:
		return nil, fmt.Errorf("export: unknown format %d", opts.Format)
	}
}
