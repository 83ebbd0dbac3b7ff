// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Record is one captured frame: a CBOR array [received-ms, protocol, raw].
type Record struct {
	_        struct{} `cbor:",toarray"`
	Received int64    // Unix milliseconds
	Protocol Protocol
	Raw      []byte
}

// Time returns when the frame was received.
func (r *Record) Time() time.Time {
	return time.UnixMilli(r.Received)
}

// Frame decodes the recorded bytes.
func (r *Record) Frame() *Frame {
	return DecodeFrame(r.Protocol, r.Raw, r.Time())
}

// CaptureWriter appends frames to a capture stream.
type CaptureWriter struct {
	enc   *cbor.Encoder
	count int
}

// NewCaptureWriter creates a writer on w.
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: cbor.NewEncoder(w)}
}

// Write records f, bad frames included.
func (c *CaptureWriter) Write(f *Frame) error {
	rec := Record{
		Received: f.Received().UnixMilli(),
		Protocol: f.Protocol,
		Raw:      f.Raw(),
	}
	if err := c.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode capture record: %w", err)
	}
	c.count++
	return nil
}

// Count returns the number of records written.
func (c *CaptureWriter) Count() int {
	return c.count
}

// CaptureReader reads a capture stream.
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader creates a reader on r.
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream.
func (c *CaptureReader) Next() (*Record, error) {
	var rec Record
	if err := c.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode capture record: %w", err)
	}
	if rec.Protocol != ProtocolNMEA && rec.Protocol != ProtocolUBX {
		return nil, fmt.Errorf("capture record has unknown protocol %d", rec.Protocol)
	}
	return &rec, nil
}

// ReplayReader streams the raw bytes of a capture as the receiver sent
// them, for feeding a Pump.
type ReplayReader struct {
	src *CaptureReader
	buf []byte
}

// NewReplayReader creates a byte stream over a capture.
func NewReplayReader(r io.Reader) *ReplayReader {
	return &ReplayReader{src: NewCaptureReader(r)}
}

func (r *ReplayReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		rec, err := r.src.Next()
		if err != nil {
			return 0, err
		}
		r.buf = rec.Raw
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// Write discards p; a replay has no receiver to talk to.
func (r *ReplayReader) Write(p []byte) (int, error) {
	return len(p), nil
}
