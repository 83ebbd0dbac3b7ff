// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"encoding/binary"
	"fmt"
)

// Checksum computes the 8-bit Fletcher checksum over class, id, length and
// payload. Sync bytes must not be included.
func Checksum(data []byte) (ckA, ckB uint8) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// PayloadLength reads the little-endian length field of a frame that begins
// with the sync bytes. The caller must supply at least HeaderSize bytes.
func PayloadLength(frame []byte) uint16 {
	return binary.LittleEndian.Uint16(frame[4:6])
}

// HasSync reports whether b begins with the two sync bytes.
func HasSync(b []byte) bool {
	return len(b) >= 2 && b[0] == Sync1 && b[1] == Sync2
}

// Encode builds a complete frame.
func Encode(class, id uint8, payload []byte) []byte {
	frame := make([]byte, 0, Overhead+len(payload))
	frame = append(frame, Sync1, Sync2, class, id)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)
	ckA, ckB := Checksum(frame[2:])
	return append(frame, ckA, ckB)
}

// Frame is a validated UBX frame.
type Frame struct {
	class   uint8
	id      uint8
	payload []byte
}

// NewFrame creates a frame for transmission.
func NewFrame(id MessageID, payload []byte) *Frame {
	return &Frame{class: id.Class(), id: id.ID(), payload: payload}
}

// ParseFrame validates raw as exactly one frame. The returned frame owns a
// copy of the payload.
func ParseFrame(raw []byte) (*Frame, error) {
	if len(raw) < Overhead {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(raw))
	}
	if !HasSync(raw) {
		return nil, fmt.Errorf("%w: 0x%02X 0x%02X", ErrBadSync, raw[0], raw[1])
	}
	n := int(PayloadLength(raw))
	if n > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooBig, n)
	}
	if Overhead+n != len(raw) {
		return nil, fmt.Errorf("%w: declared %d, have %d", ErrLengthMismatch, n, len(raw)-Overhead)
	}
	ckA, ckB := Checksum(raw[2 : HeaderSize+n])
	if ckA != raw[HeaderSize+n] || ckB != raw[HeaderSize+n+1] {
		return nil, fmt.Errorf("%w: computed %02X%02X, frame carries %02X%02X",
			ErrChecksum, ckA, ckB, raw[HeaderSize+n], raw[HeaderSize+n+1])
	}

	payload := make([]byte, n)
	copy(payload, raw[HeaderSize:HeaderSize+n])
	return &Frame{class: raw[2], id: raw[3], payload: payload}, nil
}

// Class returns the message class.
func (f *Frame) Class() uint8 {
	return f.class
}

// ID returns the message id.
func (f *Frame) ID() uint8 {
	return f.id
}

// MessageID returns the packed class/id pair.
func (f *Frame) MessageID() MessageID {
	return NewMessageID(f.class, f.id)
}

// Payload returns the payload bytes.
func (f *Frame) Payload() []byte {
	return f.payload
}

// Bytes encodes the frame for transmission.
func (f *Frame) Bytes() []byte {
	return Encode(f.class, f.id, f.payload)
}

// Poll builds an empty-payload poll request for id.
func Poll(id MessageID) []byte {
	return Encode(id.Class(), id.ID(), nil)
}
