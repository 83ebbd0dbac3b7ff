// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"time"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// Frame is one decoded frame from the stream. Exactly one of Sentence and
// Message is set, according to Protocol.
type Frame struct {
	Protocol Protocol
	Sentence nmea.Sentence
	Message  ubx.Message

	raw      []byte
	received time.Time
	fixTime  time.Time
}

// DecodeFrame validates and decodes raw as a frame of protocol p. It never
// fails; malformed input yields a frame for which Bad reports true.
func DecodeFrame(p Protocol, raw []byte, received time.Time) *Frame {
	cp := make([]byte, len(raw))
	copy(cp, raw)

	f := &Frame{Protocol: p, raw: cp, received: received}
	switch p {
	case ProtocolNMEA:
		f.Sentence = nmea.Parse(cp)
	default:
		f.Protocol = ProtocolUBX
		f.Message = ubx.Parse(cp)
	}
	return f
}

// Raw returns the frame's wire bytes.
func (f *Frame) Raw() []byte {
	return f.raw
}

// Received returns when the frame was taken off the buffer.
func (f *Frame) Received() time.Time {
	return f.received
}

// FixTime returns the UTC time of a GLL or GNS fix, reconstructed against
// the most recent ZDA date. It is zero when no date is known yet.
func (f *Frame) FixTime() time.Time {
	return f.fixTime
}

// Bad reports whether the frame failed validation or decoding.
func (f *Frame) Bad() bool {
	switch {
	case f.Sentence != nil:
		_, bad := f.Sentence.(*nmea.Bad)
		return bad
	case f.Message != nil:
		_, bad := f.Message.(*ubx.Bad)
		return bad
	}
	return true
}

// Err returns the reason a bad frame was rejected, or nil.
func (f *Frame) Err() error {
	switch m := f.any().(type) {
	case *nmea.Bad:
		return m.Err
	case *ubx.Bad:
		return m.Err
	}
	return nil
}

// Name identifies the frame's message: "GPGLL", "PUBX,41", "ACK-ACK".
func (f *Frame) Name() string {
	if f.Sentence != nil {
		fields := f.Sentence.Fields()
		if f.Sentence.Talker() == nmea.TalkerProprietary {
			return f.Sentence.Message().String()
		}
		if len(fields) > 0 && fields[0] != "" {
			return fields[0]
		}
		return f.Sentence.Talker().String() + f.Sentence.Message().String()
	}
	if f.Message != nil {
		return f.Message.MessageID().String()
	}
	return "?"
}

func (f *Frame) any() interface{} {
	if f.Sentence != nil {
		return f.Sentence
	}
	return f.Message
}

func (f *Frame) String() string {
	if f.Sentence != nil {
		return f.Sentence.String()
	}
	if f.Message != nil {
		return f.Message.String()
	}
	return ""
}
