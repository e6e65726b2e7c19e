// Package codec implements the on-disk binary format for per-thread event
// logs and call-stack frequency logs (SPEC_FULL.md §6). The format is
// little-endian, self-delimiting, and versioned so unknown future event
// tags can be skipped rather than misread (Open Question 2 in
// SPEC_FULL.md §9: the source format this module generalizes from was
// never versioned).
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Version is the current on-disk payload version. Decoders reject a frame
// whose version byte they don't recognize rather than misinterpreting its
// bytes.
const Version uint8 = 1

// EventTag discriminates the on-disk event union.
type EventTag uint8

const (
	EventAllocation   EventTag = 0
	EventDeallocation EventTag = 1
)

// ErrUnsupportedVersion is returned when a frame's version byte is newer
// than this decoder understands.
var ErrUnsupportedVersion = errors.New("codec: unsupported payload version")

// Event is the on-disk representation of one allocation/deallocation,
// carrying the subset of Record fields known at emission time plus the
// thread id and an optional CPU-time sample.
type Event struct {
	Tag           EventTag
	Ptr           uint64
	Size          uint64
	Alignment     uint64
	ThreadID      uint64
	TimestampNS   int64
	VarName       string
	TypeName      string
	ScopeName     string
	CallStack     []uint64
	CallStackHash uint64
	CPUTimeNS     int64
}

func putString(buf *bytes.Buffer, s string) {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf.Write(lenBuf[:])
	buf.WriteString(s)
}

func getString(r *bytes.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}

	n := binary.LittleEndian.Uint16(lenBuf[:])
	b := make([]byte, n)

	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}

	return string(b), nil
}

func putU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func getU64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(b[:]), nil
}

// encodeEvent serializes one event's tag and fields (not its own length
// prefix — EncodeBatch adds that).
func encodeEvent(buf *bytes.Buffer, e Event) {
	buf.WriteByte(byte(e.Tag))
	putU64(buf, e.Ptr)
	putU64(buf, e.Size)
	putU64(buf, e.Alignment)
	putU64(buf, e.ThreadID)
	putU64(buf, uint64(e.TimestampNS))
	putString(buf, e.VarName)
	putString(buf, e.TypeName)
	putString(buf, e.ScopeName)
	buf.WriteByte(byte(len(e.CallStack)))

	for _, pc := range e.CallStack {
		putU64(buf, pc)
	}

	putU64(buf, e.CallStackHash)
	putU64(buf, uint64(e.CPUTimeNS))
}

func decodeEvent(r *bytes.Reader) (Event, error) {
	var e Event

	tag, err := r.ReadByte()
	if err != nil {
		return e, err
	}

	e.Tag = EventTag(tag)

	if e.Ptr, err = getU64(r); err != nil {
		return e, err
	}

	if e.Size, err = getU64(r); err != nil {
		return e, err
	}

	if e.Alignment, err = getU64(r); err != nil {
		return e, err
	}

	if e.ThreadID, err = getU64(r); err != nil {
		return e, err
	}

	ts, err := getU64(r)
	if err != nil {
		return e, err
	}

	e.TimestampNS = int64(ts)

	if e.VarName, err = getString(r); err != nil {
		return e, err
	}

	if e.TypeName, err = getString(r); err != nil {
		return e, err
	}

	if e.ScopeName, err = getString(r); err != nil {
		return e, err
	}

	n, err := r.ReadByte()
	if err != nil {
		return e, err
	}

	e.CallStack = make([]uint64, n)

	for i := 0; i < int(n); i++ {
		if e.CallStack[i], err = getU64(r); err != nil {
			return e, err
		}
	}

	if e.CallStackHash, err = getU64(r); err != nil {
		return e, err
	}

	cpu, err := getU64(r)
	if err != nil {
		return e, err
	}

	e.CPUTimeNS = int64(cpu)

	return e, nil
}

// EncodeBatch serializes a batch of events as one length-prefixed frame and
// writes it to w in a single Write call, matching the "one write per flush"
// requirement of the per-thread recorder (SPEC_FULL.md §4.2).
//
// Payload layout: [u8 version][event*], where each event is itself
// length-prefixed ([u32 len][bytes]) so a decoder that doesn't understand a
// future tag can skip over it without losing sync with the rest of the
// stream.
func EncodeBatch(w io.Writer, events []Event) error {
	payload := &bytes.Buffer{}
	payload.WriteByte(Version)

	for _, e := range events {
		one := &bytes.Buffer{}
		encodeEvent(one, e)

		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(one.Len()))
		payload.Write(lenBuf[:])
		payload.Write(one.Bytes())
	}

	frame := make([]byte, 4, 4+payload.Len())
	binary.LittleEndian.PutUint32(frame, uint32(payload.Len()))
	frame = append(frame, payload.Bytes()...)

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("codec: write frame: %w", err)
	}

	return nil
}

// DecodeFrame decodes one [u32 length][payload] frame's events. It returns
// io.EOF when r is exhausted with no partial frame pending, and a non-nil
// error wrapping ErrUnsupportedVersion or a truncation for a malformed
// frame — callers performing a merge pass (internal use: package merge)
// should skip such a frame and continue with the next one rather than
// aborting the whole file, per SPEC_FULL.md §4.7 step 1.
func DecodeFrame(r io.Reader) ([]Event, error) {
	var lenBuf [4]byte

	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("codec: truncated frame length: %w", err)
		}

		return nil, err
	}

	frameLen := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, frameLen)

	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("codec: truncated frame payload: %w", err)
	}

	br := bytes.NewReader(payload)

	version, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("codec: empty payload: %w", err)
	}

	if version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, version, Version)
	}

	var events []Event

	for br.Len() > 0 {
		var eventLenBuf [4]byte
		if _, err := io.ReadFull(br, eventLenBuf[:]); err != nil {
			return events, fmt.Errorf("codec: truncated event length: %w", err)
		}

		eventLen := binary.LittleEndian.Uint32(eventLenBuf[:])
		eventBytes := make([]byte, eventLen)

		if _, err := io.ReadFull(br, eventBytes); err != nil {
			return events, fmt.Errorf("codec: truncated event body: %w", err)
		}

		ev, err := decodeEvent(bytes.NewReader(eventBytes))
		if err != nil {
			// Unknown/forward-incompatible event shape: skip it, keep
			// decoding the rest of the payload.
			continue
		}

		events = append(events, ev)
	}

	return events, nil
}
