// Package analysis implements C8: three pure functions over the merged
// allocation table — cycle detection, unsafe/FFI classification, and type
// inference. None of them retain state beyond one call.
package analysis

import "github.com/orizon-lang/memtrace/internal/model"

// CycleKind classifies a detected cycle by its length.
type CycleKind int

const (
	CycleSelfReference CycleKind = iota
	CycleSimple
	CycleComplex
)

// Severity classifies a cycle's estimated leaked memory.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Cycle is one detected closed path in the reference-counted-sharing graph.
type Cycle struct {
	Members                []uintptr
	Kind                    CycleKind
	EstimatedLeakedMemory   uint64
	SuggestedBreakPoint     uintptr
	Severity                Severity
}

// DetectCycles builds a directed ptr -> referenced_ptr graph from records
// whose OwnershipPattern is Shared plus the caller-supplied relation table
// (tracer/track's ContainsPtr/CloneOf edges, weak edges already excluded),
// then runs DFS with a recursion stack to find cycles, per spec.md §4.8.
func DetectCycles(records []*model.Record, relations map[uintptr][]uintptr) []Cycle {
	bySize := make(map[uintptr]uint64, len(records))
	shared := make(map[uintptr]bool, len(records))
	indegree := make(map[uintptr]int)

	for _, r := range records {
		bySize[r.Ptr] = r.Size

		if r.OwnershipPattern == model.OwnershipShared {
			shared[r.Ptr] = true
		}
	}

	graph := make(map[uintptr][]uintptr)

	for owner, targets := range relations {
		if !shared[owner] {
			continue
		}

		for _, to := range targets {
			if !shared[to] {
				continue
			}

			graph[owner] = append(graph[owner], to)
			indegree[to]++
		}
	}

	var (
		cycles  []Cycle
		visited = make(map[uintptr]bool)
		onStack = make(map[uintptr]bool)
		stack   []uintptr
	)

	var visit func(ptr uintptr)

	visit = func(ptr uintptr) {
		visited[ptr] = true
		onStack[ptr] = true
		stack = append(stack, ptr)

		for _, next := range graph[ptr] {
			if onStack[next] {
				cycles = append(cycles, buildCycle(stack, next, bySize, indegree))
			} else if !visited[next] {
				visit(next)
			}
		}

		stack = stack[:len(stack)-1]
		onStack[ptr] = false
	}

	for ptr := range shared {
		if !visited[ptr] {
			visit(ptr)
		}
	}

	return cycles
}

// buildCycle extracts the cycle starting at the first occurrence of closesAt
// in stack, classifies it, and picks the highest-indegree member as the
// suggested break point (a proxy for "highest refcount": a node's in-degree
// is the number of shared-ownership nodes anywhere in the graph, in or out of
// this cycle, holding a strong reference to it).
func buildCycle(stack []uintptr, closesAt uintptr, bySize map[uintptr]uint64, indegree map[uintptr]int) Cycle {
	start := 0

	for i, p := range stack {
		if p == closesAt {
			start = i
			break
		}
	}

	members := append([]uintptr(nil), stack[start:]...)

	var total uint64

	best := members[0]
	bestDeg := -1

	for _, m := range members {
		total += bySize[m]

		if d := indegree[m]; d > bestDeg {
			bestDeg = d
			best = m
		}
	}

	var kind CycleKind

	switch len(members) {
	case 1:
		kind = CycleSelfReference
	case 2:
		kind = CycleSimple
	default:
		kind = CycleComplex
	}

	return Cycle{
		Members:               members,
		Kind:                  kind,
		EstimatedLeakedMemory: total,
		SuggestedBreakPoint:   best,
		Severity:              severityFor(total),
	}
}

func severityFor(totalBytes uint64) Severity {
	switch {
	case totalBytes > 1<<20:
		return SeverityCritical
	case totalBytes > 64*1024:
		return SeverityHigh
	case totalBytes > 4*1024:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
