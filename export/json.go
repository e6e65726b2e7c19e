package export

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"time"

	"github.com/orizon-lang/memtrace/analysis"
	"github.com/orizon-lang/memtrace/internal/semverdoc"
	"github.com/orizon-lang/memtrace/merge"
)

// metadata is the envelope every JSON shard carries (SPEC_FULL.md §4.9):
// analysis category, the schema_version this module stamps
// (internal/semverdoc.CurrentSchemaVersion), the export timestamp, and an
// optional integrity hash when opts.EnableIntegrityCheck is set.
type metadata struct {
	AnalysisType    string `json:"analysis_type"`
	SchemaVersion   string `json:"schema_version"`
	ExportTimestamp int64  `json:"export_timestamp"`
	IntegrityHash   string `json:"integrity_hash,omitempty"`
}

type shard struct {
	Metadata metadata    `json:"metadata"`
	Data     interface{} `json:"data"`
}

type memoryAnalysisShard struct {
	Stats    merge.MemoryStats            `json:"stats"`
	Fragment merge.FragmentationEstimate  `json:"fragmentation"`
}

type performanceShard struct {
	Hotspots []merge.Hotspot `json:"hotspots"`
}

type securityViolationsShard struct {
	Violations []analysis.SafetyViolation `json:"violations"`
	RiskScore  float64                    `json:"risk_score"`
}

type complexTypesShard struct {
	TypePatterns []merge.TypePattern `json:"type_patterns"`
}

type unsafeFFIShard struct {
	SafeHostCount      uint64 `json:"safe_host_count"`
	UnsafeHostCount    uint64 `json:"unsafe_host_count"`
	ForeignLibCount    uint64 `json:"foreign_lib_count"`
	CrossBoundaryCount uint64 `json:"cross_boundary_count"`
}

type variableRelationshipsShard struct {
	Cycles    []analysis.Cycle          `json:"cycles"`
	Relations map[uintptr][]uintptr     `json:"relations,omitempty"`
}

// writeJSONShards writes the seven per-category JSON files SPEC_FULL.md
// §4.9 names, each prefixed with outPath, and returns their paths in a
// fixed order.
func writeJSONShards(outPath string, res *Result, integrityCheck bool) ([]string, error) {
	ts := res.exportTimestamp()

	shards := []struct {
		suffix string
		typ    string
		data   interface{}
	}{
		{"_memory_analysis.json", "memory_analysis", memoryAnalysisShard{Stats: res.Merge.Stats, Fragment: res.Merge.Fragment}},
		{"_performance.json", "performance", performanceShard{Hotspots: res.Merge.Hotspots}},
		{"_security_violations.json", "security_violations", securityViolationsShard{Violations: res.Violations, RiskScore: res.UnsafeStats.RiskScore}},
		{"_lifetime.json", "lifetime", res.Merge.Lifecycle},
		{"_complex_types.json", "complex_types", complexTypesShard{TypePatterns: res.Merge.TypePatterns}},
		{"_unsafe_ffi.json", "unsafe_ffi", unsafeFFIShard{
			SafeHostCount:      res.UnsafeStats.SafeHostCount,
			UnsafeHostCount:    res.UnsafeStats.UnsafeHostCount,
			ForeignLibCount:    res.UnsafeStats.ForeignLibCount,
			CrossBoundaryCount: res.UnsafeStats.CrossBoundaryCount,
		}},
		{"_variable_relationships.json", "variable_relationships", variableRelationshipsShard{Cycles: res.Cycles}},
	}

	files := make([]string, 0, len(shards))

	for _, sh := range shards {
		path := outPath + sh.suffix

		if err := writeShardFile(path, sh.typ, ts, sh.data, integrityCheck); err != nil {
			return files, fmt.Errorf("export: shard %s: %w", sh.typ, err)
		}

		files = append(files, path)
	}

	return files, nil
}

func writeShardFile(path, analysisType string, ts int64, data interface{}, integrityCheck bool) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}

	md := metadata{
		AnalysisType:    analysisType,
		SchemaVersion:   semverdoc.CurrentSchemaVersion,
		ExportTimestamp: ts,
	}

	if integrityCheck {
		h := fnv.New64a()
		h.Write(body)
		md.IntegrityHash = fmt.Sprintf("%016x", h.Sum64())
	}

	// Marshaled compact (not indented): the "data" field below must
	// serialize to exactly the same bytes as body above so a later
	// ValidateShard call can recompute the integrity hash directly from
	// the embedded data without re-deriving a different byte layout.
	out, err := json.Marshal(shard{Metadata: md, Data: data})
	if err != nil {
		return err
	}

	return os.WriteFile(path, out, 0o644)
}

// exportTimestamp returns the current wall-clock time; the merge's as-of
// time is not used. runOnce does not thread a clock through, so this is the
// one place Export reads wall time.
func (r *Result) exportTimestamp() int64 {
	return time.Now().UnixNano()
}
