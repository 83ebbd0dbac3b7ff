// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"encoding/binary"
	"fmt"
)

// MaxPairs is the most configuration items one CFG-VAL frame may carry.
const MaxPairs = 64

// SetLayer is a bitmask of layers written by CFG-VALSET.
type SetLayer uint8

// VALSET layers
const (
	SetRAM   SetLayer = 0x01
	SetBBR   SetLayer = 0x02
	SetFlash SetLayer = 0x04
	SetAll   SetLayer = SetRAM | SetBBR | SetFlash
)

// GetLayer selects the single layer read by CFG-VALGET.
type GetLayer uint8

// VALGET layers
const (
	GetRAM     GetLayer = 0
	GetBBR     GetLayer = 1
	GetFlash   GetLayer = 2
	GetDefault GetLayer = 7
)

func (l GetLayer) String() string {
	switch l {
	case GetRAM:
		return "RAM"
	case GetBBR:
		return "BBR"
	case GetFlash:
		return "FLASH"
	case GetDefault:
		return "DEFAULT"
	}
	return fmt.Sprintf("layer(%d)", uint8(l))
}

// DelLayer is a bitmask of layers cleared by CFG-VALDEL.
type DelLayer uint8

// VALDEL layers
const (
	DelBBR   DelLayer = 0x02
	DelFlash DelLayer = 0x04
	DelAll   DelLayer = DelBBR | DelFlash
)

// Action is the transaction step of a versioned VALSET or VALDEL.
type Action uint8

// Transaction actions
const (
	Transactionless    Action = 0
	TransactionRestart Action = 1
	TransactionOngoing Action = 2
	TransactionApply   Action = 3
)

// ValSet builds a CFG-VALSET request.
type ValSet struct {
	layers      SetLayer
	transaction bool
	action      Action
	pairs       []KeyValuePair
}

// NewValSet creates a transactionless VALSET writing to layers.
func NewValSet(layers SetLayer) *ValSet {
	return &ValSet{layers: layers}
}

// WithTransaction switches the request to version 1 with the given action.
func (s *ValSet) WithTransaction(a Action) *ValSet {
	s.transaction = true
	s.action = a
	return s
}

// Add appends a pair. The zero KeyValuePair is rejected with ErrValueSize.
func (s *ValSet) Add(p KeyValuePair) error {
	if err := p.check(); err != nil {
		return err
	}
	if len(s.pairs) >= MaxPairs {
		return fmt.Errorf("%w: %v", ErrTooManyPairs, p.key)
	}
	s.pairs = append(s.pairs, p)
	return nil
}

// Set pairs key with v and appends it.
func (s *ValSet) Set(key KeyID, v Value) error {
	p, err := NewKeyValuePair(key, v)
	if err != nil {
		return err
	}
	return s.Add(p)
}

// Pairs returns the items added so far.
func (s *ValSet) Pairs() []KeyValuePair {
	return s.pairs
}

// Len returns the payload length of the request as it stands.
func (s *ValSet) Len() int {
	n := 4
	for _, p := range s.pairs {
		n += p.Len()
	}
	return n
}

// Bytes encodes the complete frame.
func (s *ValSet) Bytes() []byte {
	payload := make([]byte, 0, s.Len())
	payload = append(payload, versionByte(s.transaction), uint8(s.layers))
	if s.transaction {
		payload = append(payload, uint8(s.action), 0)
	} else {
		payload = append(payload, 0, 0)
	}
	for _, p := range s.pairs {
		payload = p.appendTo(payload)
	}
	return Encode(ClassCFG, CfgValSet.ID(), payload)
}

// ValGet builds a CFG-VALGET poll request.
type ValGet struct {
	layer    GetLayer
	position uint16
	keys     []KeyID
}

// NewValGet creates a poll of layer.
func NewValGet(layer GetLayer) *ValGet {
	return &ValGet{layer: layer}
}

// Skip sets the number of matching values to skip, for paging through a
// wildcard request.
func (g *ValGet) Skip(position uint16) *ValGet {
	g.position = position
	return g
}

// Add appends a key. Wildcard keys (item or group 0xFFF) are allowed.
func (g *ValGet) Add(key KeyID) error {
	if len(g.keys) >= MaxPairs {
		return fmt.Errorf("%w: %v", ErrTooManyPairs, key)
	}
	g.keys = append(g.keys, key)
	return nil
}

// Keys returns the keys added so far.
func (g *ValGet) Keys() []KeyID {
	return g.keys
}

// Len returns the payload length.
func (g *ValGet) Len() int {
	return 4 + 4*len(g.keys)
}

// Bytes encodes the complete frame.
func (g *ValGet) Bytes() []byte {
	payload := make([]byte, 0, g.Len())
	payload = append(payload, 0, uint8(g.layer))
	payload = binary.LittleEndian.AppendUint16(payload, g.position)
	for _, k := range g.keys {
		payload = binary.LittleEndian.AppendUint32(payload, k.Key())
	}
	return Encode(ClassCFG, CfgValGet.ID(), payload)
}

// ValDel builds a CFG-VALDEL request.
type ValDel struct {
	layers      DelLayer
	transaction bool
	action      Action
	keys        []KeyID
}

// NewValDel creates a transactionless VALDEL clearing layers.
func NewValDel(layers DelLayer) *ValDel {
	return &ValDel{layers: layers}
}

// WithTransaction switches the request to version 1 with the given action.
func (d *ValDel) WithTransaction(a Action) *ValDel {
	d.transaction = true
	d.action = a
	return d
}

// Add appends a key.
func (d *ValDel) Add(key KeyID) error {
	if len(d.keys) >= MaxPairs {
		return fmt.Errorf("%w: %v", ErrTooManyPairs, key)
	}
	d.keys = append(d.keys, key)
	return nil
}

// Keys returns the keys added so far.
func (d *ValDel) Keys() []KeyID {
	return d.keys
}

// Len returns the payload length.
func (d *ValDel) Len() int {
	return 4 + 4*len(d.keys)
}

// Bytes encodes the complete frame.
func (d *ValDel) Bytes() []byte {
	payload := make([]byte, 0, d.Len())
	payload = append(payload, versionByte(d.transaction), uint8(d.layers))
	if d.transaction {
		payload = append(payload, uint8(d.action), 0)
	} else {
		payload = append(payload, 0, 0)
	}
	for _, k := range d.keys {
		payload = binary.LittleEndian.AppendUint32(payload, k.Key())
	}
	return Encode(ClassCFG, CfgValDel.ID(), payload)
}

func versionByte(transaction bool) uint8 {
	if transaction {
		return 1
	}
	return 0
}
