package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/orizon-lang/memtrace/internal/codec"
)

func writeThreadLog(t *testing.T, dir string, threadID uint64, events []codec.Event) {
	t.Helper()

	f, err := os.Create(filepath.Join(dir, "memtrace_thread_1.bin"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := codec.EncodeBatch(f, events); err != nil {
		t.Fatal(err)
	}
}

func sampleEvents() []codec.Event {
	return []codec.Event{
		{Tag: codec.EventAllocation, Ptr: 0x100, Size: 64, ThreadID: 1, TimestampNS: 1000, VarName: "buf", TypeName: "[]byte"},
		{Tag: codec.EventDeallocation, Ptr: 0x100, ThreadID: 1, TimestampNS: 2000},
		{Tag: codec.EventAllocation, Ptr: 0x200, Size: 128, ThreadID: 1, TimestampNS: 1500, VarName: "other", TypeName: "[]byte"},
	}
}

func TestExportBinaryRoundTripsRecordsAndSummaries(t *testing.T) {
	dir := t.TempDir()
	writeThreadLog(t, dir, 1, sampleEvents())

	outPath := filepath.Join(t.TempDir(), "out.bin")

	opts := DefaultOptions()
	opts.InProcess = false

	res, err := Export(dir, outPath, opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.OutputFiles) != 1 || res.OutputFiles[0] != outPath {
		t.Fatalf("expected single binary output file, got %v", res.OutputFiles)
	}

	if _, err := os.Stat(outPath); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}

	if len(res.Merge.Records) != 2 {
		t.Fatalf("expected 2 merged records, got %d", len(res.Merge.Records))
	}
}

func TestExportJSONWritesSevenShardsWithMetadataEnvelope(t *testing.T) {
	dir := t.TempDir()
	writeThreadLog(t, dir, 1, sampleEvents())

	outPath := filepath.Join(t.TempDir(), "run")

	opts := DefaultOptions()
	opts.InProcess = false
	opts.Format = FormatJSON
	opts.EnableIntegrityCheck = true

	res, err := Export(dir, outPath, opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.OutputFiles) != 7 {
		t.Fatalf("expected 7 json shard files, got %d", len(res.OutputFiles))
	}

	for _, f := range res.OutputFiles {
		body, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}

		var decoded shard
		if err := json.Unmarshal(body, &decoded); err != nil {
			t.Fatalf("decoding %s: %v", f, err)
		}

		if decoded.Metadata.SchemaVersion == "" {
			t.Fatalf("%s missing schema_version", f)
		}

		if decoded.Metadata.IntegrityHash == "" {
			t.Fatalf("%s missing integrity_hash with EnableIntegrityCheck set", f)
		}
	}
}

func TestValidateShardAcceptsItsOwnOutput(t *testing.T) {
	dir := t.TempDir()
	writeThreadLog(t, dir, 1, sampleEvents())

	outPath := filepath.Join(t.TempDir(), "run")

	opts := DefaultOptions()
	opts.InProcess = false
	opts.Format = FormatJSON
	opts.EnableIntegrityCheck = true

	res, err := Export(dir, outPath, opts)
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range res.OutputFiles {
		if err := ValidateShard(f); err != nil {
			t.Fatalf("ValidateShard(%s): %v", f, err)
		}
	}
}

func TestValidateShardRejectsTamperedIntegrityHash(t *testing.T) {
	dir := t.TempDir()
	writeThreadLog(t, dir, 1, sampleEvents())

	outPath := filepath.Join(t.TempDir(), "run")

	opts := DefaultOptions()
	opts.InProcess = false
	opts.Format = FormatJSON
	opts.EnableIntegrityCheck = true

	res, err := Export(dir, outPath, opts)
	if err != nil {
		t.Fatal(err)
	}

	target := res.OutputFiles[0]

	body, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}

	tampered := bytes.Replace(body, []byte(`"integrity_hash":"`), []byte(`"integrity_hash":"ffffffffffffffff`), 1)

	if err := os.WriteFile(target, tampered, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateShard(target); err == nil {
		t.Fatal("expected tampered shard to fail validation")
	}
}

func TestExportHTMLWithoutRendererErrors(t *testing.T) {
	dir := t.TempDir()
	writeThreadLog(t, dir, 1, sampleEvents())

	outPath := filepath.Join(t.TempDir(), "out.html")

	opts := DefaultOptions()
	opts.InProcess = false
	opts.Format = FormatHTML

	if _, err := Export(dir, outPath, opts); err == nil {
		t.Fatal("expected an error when no HTMLRenderer is configured")
	}
}

func TestExportEmptyDirectoryYieldsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(t.TempDir(), "out.bin")

	opts := DefaultOptions()
	opts.InProcess = false

	res, err := Export(dir, outPath, opts)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Merge.Records) != 0 {
		t.Fatalf("expected no records from an empty directory, got %d", len(res.Merge.Records))
	}
}
