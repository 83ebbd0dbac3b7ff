// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Message is a decoded UBX message. The concrete type is one of *Ack, *Nak,
// *ValGetResponse, *UniqID, *Unknown or *Bad.
type Message interface {
	MessageID() MessageID
	String() string
}

// Ack acknowledges a CFG input message.
type Ack struct {
	*Frame
	Acked MessageID
}

func (a *Ack) String() string {
	return fmt.Sprintf("ACK-ACK %v", a.Acked)
}

// Nak rejects a CFG input message.
type Nak struct {
	*Frame
	Rejected MessageID
}

func (n *Nak) String() string {
	return fmt.Sprintf("ACK-NAK %v", n.Rejected)
}

// ValGetResponse carries configuration values read back by CFG-VALGET.
type ValGetResponse struct {
	*Frame
	Layer    GetLayer
	Position uint16
	Pairs    []KeyValuePair
}

func (v *ValGetResponse) String() string {
	s := fmt.Sprintf("CFG-VALGET %v pos=%d", v.Layer, v.Position)
	for _, p := range v.Pairs {
		s += fmt.Sprintf(" %v=%v", p.key, p.value)
	}
	return s
}

// UniqID is the chip's unique identifier from SEC-UNIQID.
type UniqID struct {
	*Frame
	Version  uint8
	UniqueID []byte
}

func (u *UniqID) String() string {
	return "SEC-UNIQID " + hex.EncodeToString(u.UniqueID)
}

// Unknown is a valid frame with no typed decoder. Catalogue members are
// still named by MessageID().String().
type Unknown struct {
	*Frame
}

func (u *Unknown) String() string {
	return fmt.Sprintf("%v (%d bytes)", u.MessageID(), len(u.payload))
}

// Bad is a frame that failed validation or payload decoding.
type Bad struct {
	Raw []byte
	Err error
	id  MessageID
}

// MessageID returns the class/id from the header when one was readable.
func (b *Bad) MessageID() MessageID {
	return b.id
}

func (b *Bad) String() string {
	return fmt.Sprintf("bad frame (%v): % X", b.Err, b.Raw)
}

// Parse validates and decodes one complete frame. It never fails: malformed
// input yields *Bad and unrecognized messages yield *Unknown. The returned
// value does not alias raw.
func Parse(raw []byte) Message {
	f, err := ParseFrame(raw)
	if err != nil {
		return newBad(raw, err)
	}

	var m Message
	switch f.MessageID() {
	case AckAck, AckNak:
		if len(f.payload) != 2 {
			err = fmt.Errorf("%w: ACK payload %d bytes", ErrPayload, len(f.payload))
			break
		}
		acked := NewMessageID(f.payload[0], f.payload[1])
		if f.MessageID() == AckAck {
			m = &Ack{Frame: f, Acked: acked}
		} else {
			m = &Nak{Frame: f, Rejected: acked}
		}
	case CfgValGet:
		m, err = decodeValGet(f)
	case SecUniqID:
		m, err = decodeUniqID(f)
	default:
		m = &Unknown{Frame: f}
	}
	if err != nil {
		return newBad(raw, err)
	}
	return m
}

func newBad(raw []byte, err error) *Bad {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	b := &Bad{Raw: cp, Err: err}
	if len(raw) >= 4 && HasSync(raw) {
		b.id = NewMessageID(raw[2], raw[3])
	}
	return b
}

func decodeValGet(f *Frame) (Message, error) {
	p := f.payload
	if len(p) < 4 {
		return nil, fmt.Errorf("%w: VALGET payload %d bytes", ErrPayload, len(p))
	}
	pairs, err := DecodePairs(p[4:])
	if err != nil {
		return nil, err
	}
	if len(pairs) > MaxPairs {
		return nil, fmt.Errorf("%w: %d", ErrTooManyPairs, len(pairs))
	}
	return &ValGetResponse{
		Frame:    f,
		Layer:    GetLayer(p[1]),
		Position: binary.LittleEndian.Uint16(p[2:4]),
		Pairs:    pairs,
	}, nil
}

func decodeUniqID(f *Frame) (Message, error) {
	p := f.payload
	if len(p) < 4 {
		return nil, fmt.Errorf("%w: UNIQID payload %d bytes", ErrPayload, len(p))
	}
	want := 0
	switch p[0] {
	case 1:
		want = 5
	case 2:
		want = 6
	default:
		return nil, fmt.Errorf("%w: UNIQID version %d", ErrPayload, p[0])
	}
	if len(p) != 4+want {
		return nil, fmt.Errorf("%w: UNIQID v%d payload %d bytes", ErrPayload, p[0], len(p))
	}
	return &UniqID{Frame: f, Version: p[0], UniqueID: p[4:]}, nil
}
