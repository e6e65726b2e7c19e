package codec

import (
	"bytes"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	events := []Event{
		{
			Tag: EventAllocation, Ptr: 0xdeadbeef, Size: 40, Alignment: 8,
			ThreadID: 7, TimestampNS: 1000, VarName: "v", TypeName: "Vec<u32>",
			ScopeName: "main", CallStack: []uint64{1, 2, 3}, CallStackHash: 99,
			CPUTimeNS: 500,
		},
		{
			Tag: EventDeallocation, Ptr: 0xdeadbeef, Size: 40, ThreadID: 7,
			TimestampNS: 2000,
		},
	}

	var buf bytes.Buffer
	if err := EncodeBatch(&buf, events); err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	decoded, err := DecodeFrame(&buf)
	if err != nil {
		t.Fatalf("DecodeFrame: %v", err)
	}

	if len(decoded) != len(events) {
		t.Fatalf("got %d events, want %d", len(decoded), len(events))
	}

	for i, e := range events {
		d := decoded[i]
		if d.Tag != e.Tag || d.Ptr != e.Ptr || d.Size != e.Size || d.ThreadID != e.ThreadID {
			t.Errorf("event %d mismatch: got %+v, want %+v", i, d, e)
		}

		if d.VarName != e.VarName || d.TypeName != e.TypeName || d.ScopeName != e.ScopeName {
			t.Errorf("event %d string field mismatch: got %+v, want %+v", i, d, e)
		}

		if len(d.CallStack) != len(e.CallStack) {
			t.Errorf("event %d call stack length mismatch: got %d, want %d", i, len(d.CallStack), len(e.CallStack))
		}
	}
}

func TestDecodeFrameTruncatedTail(t *testing.T) {
	events := []Event{{Tag: EventAllocation, Ptr: 1, Size: 8, ThreadID: 1}}

	var buf bytes.Buffer
	if err := EncodeBatch(&buf, events); err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	truncated := buf.Bytes()[:buf.Len()-3]

	if _, err := DecodeFrame(bytes.NewReader(truncated)); err == nil {
		t.Fatal("expected error decoding truncated frame, got nil")
	}
}

func TestDecodeFrameRejectsUnknownVersion(t *testing.T) {
	events := []Event{{Tag: EventAllocation, Ptr: 1, Size: 8, ThreadID: 1}}

	var buf bytes.Buffer
	if err := EncodeBatch(&buf, events); err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}

	raw := buf.Bytes()
	// Byte 4 is the version byte (after the 4-byte frame length prefix).
	raw[4] = 0xff

	if _, err := DecodeFrame(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected unsupported version error, got nil")
	}
}

func TestSummaryRoundTrip(t *testing.T) {
	summaries := []Summary{
		{Hash: 42, Frames: []uint64{1, 2}, Frequency: 10, TotalSize: 400, MinSize: 10, MaxSize: 90, FirstTimestampNS: 1, LastTimestampNS: 100, CumulativeCPUNS: 55},
	}

	var buf bytes.Buffer
	if err := EncodeSummaries(&buf, summaries); err != nil {
		t.Fatalf("EncodeSummaries: %v", err)
	}

	decoded, err := DecodeSummaries(&buf)
	if err != nil {
		t.Fatalf("DecodeSummaries: %v", err)
	}

	if len(decoded) != 1 || decoded[0].Hash != 42 || decoded[0].Frequency != 10 {
		t.Fatalf("unexpected decode result: %+v", decoded)
	}
}
