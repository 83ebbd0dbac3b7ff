// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package ubx implements the u-blox UBX binary protocol as spoken by M9N
// class receivers.
//
// The package provides frame checksums and framing, a catalogue of message
// class/id pairs, typed decoders for the acknowledgement, configuration
// readback and unique id messages, and the configuration interface key-value
// codec used to build CFG-VALSET, CFG-VALGET and CFG-VALDEL requests.
package ubx

import "errors"

// Frame synchronisation bytes
const (
	Sync1 = 0xB5
	Sync2 = 0x62
)

// Frame size limits
const (
	HeaderSize     = 6 // sync(2) + class + id + length(2)
	ChecksumSize   = 2
	Overhead       = HeaderSize + ChecksumSize
	MaxPayloadSize = 4096
	MaxFrameSize   = Overhead + MaxPayloadSize
)

// Message classes
const (
	ClassNAV = 0x01
	ClassRXM = 0x02
	ClassINF = 0x04
	ClassACK = 0x05
	ClassCFG = 0x06
	ClassUPD = 0x09
	ClassMON = 0x0A
	ClassTIM = 0x0D
	ClassMGA = 0x13
	ClassLOG = 0x21
	ClassSEC = 0x27
)

// Framing and codec errors
var (
	ErrShortFrame     = errors.New("ubx: frame shorter than 8 bytes")
	ErrBadSync        = errors.New("ubx: bad sync bytes")
	ErrLengthMismatch = errors.New("ubx: declared length does not match frame size")
	ErrPayloadTooBig  = errors.New("ubx: payload too large")
	ErrChecksum       = errors.New("ubx: checksum mismatch")
	ErrPayload        = errors.New("ubx: malformed payload")
	ErrTooManyPairs   = errors.New("ubx: too many configuration items")
	ErrValueSize      = errors.New("ubx: value type does not match key size")
)
