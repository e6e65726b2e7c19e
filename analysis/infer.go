package analysis

import (
	"strings"

	"github.com/orizon-lang/memtrace/internal/debug"
	"github.com/orizon-lang/memtrace/internal/model"
)

// Confidence grades how an inferred type name was derived.
type Confidence int

const (
	ConfidenceExact Confidence = iota
	ConfidenceHigh
	ConfidenceMedium
	ConfidenceLow
	ConfidenceUnknown
)

// TypeGuess is one InferType result.
type TypeGuess struct {
	TypeName     string
	Confidence   Confidence
	Alternatives []string
}

// stackPattern maps a substring observed in a resolved call-stack frame's
// function name to a likely type, used when the exact type is unavailable.
var stackPatterns = []struct{ substr, typeName string }{
	{"Vec", "Vec<T>"},
	{"HashMap", "HashMap<K, V>"},
	{"hashmap", "HashMap<K, V>"},
	{"BTreeMap", "BTreeMap<K, V>"},
	{"String", "String"},
	{"Box", "Box<T>"},
	{"Rc", "Rc<T>"},
	{"Arc", "Arc<T>"},
}

// varNamePatterns maps a substring of the variable name to a likely type,
// lower-priority than a call-stack match.
var varNamePatterns = []struct{ substr, typeName string }{
	{"buf", "[]byte"},
	{"buffer", "[]byte"},
	{"list", "Vec<T>"},
	{"map", "HashMap<K, V>"},
	{"count", "u64"},
	{"name", "String"},
}

// InferType guesses a missing type_name using, in priority order: the
// exact compile-time type (if present), call-stack substring patterns,
// variable-name substring patterns, and finally the allocation size, per
// spec.md §4.8.
func InferType(r *model.Record) TypeGuess {
	if strings.TrimSpace(r.TypeName) != "" {
		return TypeGuess{TypeName: r.TypeName, Confidence: ConfidenceExact}
	}

	if len(r.CallStack) > 0 {
		st := debug.Resolve(r.CallStack)

		var alternatives []string

		for _, frame := range st.Frames {
			for _, p := range stackPatterns {
				if strings.Contains(frame.Function, p.substr) {
					alternatives = append(alternatives, p.typeName)
				}
			}
		}

		if len(alternatives) > 0 {
			return TypeGuess{TypeName: alternatives[0], Confidence: ConfidenceHigh, Alternatives: dedup(alternatives[1:])}
		}
	}

	if r.VarName != "" {
		lower := strings.ToLower(r.VarName)

		var alternatives []string

		for _, p := range varNamePatterns {
			if strings.Contains(lower, p.substr) {
				alternatives = append(alternatives, p.typeName)
			}
		}

		if len(alternatives) > 0 {
			return TypeGuess{TypeName: alternatives[0], Confidence: ConfidenceMedium, Alternatives: dedup(alternatives[1:])}
		}
	}

	if r.Size == 0 {
		return TypeGuess{TypeName: "<unknown>", Confidence: ConfidenceUnknown}
	}

	return TypeGuess{TypeName: sizeBucketType(r.Size), Confidence: ConfidenceLow}
}

func sizeBucketType(size uint64) string {
	switch {
	case size <= 8:
		return "scalar"
	case size <= 64:
		return "small-object"
	case size <= 4096:
		return "medium-object"
	default:
		return "large-buffer"
	}
}

func dedup(in []string) []string {
	seen := make(map[string]bool, len(in))

	var out []string

	for _, s := range in {
		if seen[s] {
			continue
		}

		seen[s] = true
		out = append(out, s)
	}

	return out
}
