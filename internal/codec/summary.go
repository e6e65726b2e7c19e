package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Summary is the on-disk representation of one model.CallStackSummary,
// written to the sibling ".freq" file at recorder Finalize.
type Summary struct {
	Hash             uint64
	Frames           []uint64
	Frequency        uint64
	TotalSize        uint64
	MinSize          uint64
	MaxSize          uint64
	FirstTimestampNS int64
	LastTimestampNS  int64
	CumulativeCPUNS  int64
}

func encodeSummary(buf *bytes.Buffer, s Summary) {
	putU64(buf, s.Hash)
	buf.WriteByte(byte(len(s.Frames)))

	for _, pc := range s.Frames {
		putU64(buf, pc)
	}

	putU64(buf, s.Frequency)
	putU64(buf, s.TotalSize)
	putU64(buf, s.MinSize)
	putU64(buf, s.MaxSize)
	putU64(buf, uint64(s.FirstTimestampNS))
	putU64(buf, uint64(s.LastTimestampNS))
	putU64(buf, uint64(s.CumulativeCPUNS))
}

func decodeSummary(r *bytes.Reader) (Summary, error) {
	var (
		s   Summary
		err error
	)

	if s.Hash, err = getU64(r); err != nil {
		return s, err
	}

	n, err := r.ReadByte()
	if err != nil {
		return s, err
	}

	s.Frames = make([]uint64, n)

	for i := 0; i < int(n); i++ {
		if s.Frames[i], err = getU64(r); err != nil {
			return s, err
		}
	}

	if s.Frequency, err = getU64(r); err != nil {
		return s, err
	}

	if s.TotalSize, err = getU64(r); err != nil {
		return s, err
	}

	if s.MinSize, err = getU64(r); err != nil {
		return s, err
	}

	if s.MaxSize, err = getU64(r); err != nil {
		return s, err
	}

	first, err := getU64(r)
	if err != nil {
		return s, err
	}

	s.FirstTimestampNS = int64(first)

	last, err := getU64(r)
	if err != nil {
		return s, err
	}

	s.LastTimestampNS = int64(last)

	cpu, err := getU64(r)
	if err != nil {
		return s, err
	}

	s.CumulativeCPUNS = int64(cpu)

	return s, nil
}

// EncodeSummaries writes the full call-stack summary table for one thread as
// a single versioned, length-prefixed frame.
func EncodeSummaries(w io.Writer, summaries []Summary) error {
	payload := &bytes.Buffer{}
	payload.WriteByte(Version)

	for _, s := range summaries {
		one := &bytes.Buffer{}
		encodeSummary(one, s)

		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(one.Len()))
		payload.Write(lenBuf[:])
		payload.Write(one.Bytes())
	}

	var frameLen [4]byte
	binary.LittleEndian.PutUint32(frameLen[:], uint32(payload.Len()))

	if _, err := w.Write(frameLen[:]); err != nil {
		return fmt.Errorf("codec: write summary frame length: %w", err)
	}

	if _, err := w.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("codec: write summary frame payload: %w", err)
	}

	return nil
}

// DecodeSummaries decodes the one-frame summary file written by
// EncodeSummaries.
func DecodeSummaries(r io.Reader) ([]Summary, error) {
	var lenBuf [4]byte

	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}

	frameLen := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, frameLen)

	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("codec: truncated summary frame: %w", err)
	}

	br := bytes.NewReader(payload)

	version, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("codec: empty summary payload: %w", err)
	}

	if version != Version {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrUnsupportedVersion, version, Version)
	}

	var summaries []Summary

	for br.Len() > 0 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return summaries, fmt.Errorf("codec: truncated summary entry length: %w", err)
		}

		entryLen := binary.LittleEndian.Uint32(lenBuf[:])
		entryBytes := make([]byte, entryLen)

		if _, err := io.ReadFull(br, entryBytes); err != nil {
			return summaries, fmt.Errorf("codec: truncated summary entry: %w", err)
		}

		s, err := decodeSummary(bytes.NewReader(entryBytes))
		if err != nil {
			continue
		}

		summaries = append(summaries, s)
	}

	return summaries, nil
}
