package analysis

import (
	"testing"

	"github.com/orizon-lang/memtrace/internal/model"
)

func TestInferTypeExactWhenPresent(t *testing.T) {
	r := &model.Record{TypeName: "Vec<u32>"}

	g := InferType(r)
	if g.Confidence != ConfidenceExact || g.TypeName != "Vec<u32>" {
		t.Fatalf("unexpected guess: %+v", g)
	}
}

func TestInferTypeFallsBackToVarNamePattern(t *testing.T) {
	r := &model.Record{VarName: "output_buffer", Size: 100}

	g := InferType(r)
	if g.Confidence != ConfidenceMedium || g.TypeName != "[]byte" {
		t.Fatalf("unexpected guess: %+v", g)
	}
}

func TestInferTypeFallsBackToSizeBucket(t *testing.T) {
	r := &model.Record{Size: 4}

	g := InferType(r)
	if g.Confidence != ConfidenceLow || g.TypeName != "scalar" {
		t.Fatalf("unexpected guess: %+v", g)
	}
}

func TestInferTypeUnknownWhenNoSignal(t *testing.T) {
	r := &model.Record{}

	g := InferType(r)
	if g.Confidence != ConfidenceUnknown {
		t.Fatalf("expected Unknown confidence, got %v", g.Confidence)
	}
}
