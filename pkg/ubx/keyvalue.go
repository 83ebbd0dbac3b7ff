// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Size is the storage class encoded in bits 28..30 of a configuration key.
type Size uint8

// Storage classes
const (
	SizeBit    Size = 0x01 // one bit, stored in one byte (LSB)
	SizeByte   Size = 0x02
	SizeWord   Size = 0x03
	SizeDouble Size = 0x04
	SizeQuad   Size = 0x05
)

// Bytes returns the number of bytes a value of this class occupies on the
// wire, or 0 for an invalid class.
func (s Size) Bytes() int {
	switch s {
	case SizeBit, SizeByte:
		return 1
	case SizeWord:
		return 2
	case SizeDouble:
		return 4
	case SizeQuad:
		return 8
	}
	return 0
}

func (s Size) String() string {
	switch s {
	case SizeBit:
		return "L"
	case SizeByte:
		return "U1"
	case SizeWord:
		return "U2"
	case SizeDouble:
		return "U4"
	case SizeQuad:
		return "U8"
	}
	return "size(" + strconv.Itoa(int(s)) + ")"
}

// KeyID identifies one configuration item. Group and Item are 12-bit
// fields; 0xFFF in either is the wildcard used by CFG-VALGET and CFG-VALDEL.
type KeyID struct {
	Size  Size
	Group uint16
	Item  uint16
}

// Key packs the id as size<<28 | group<<16 | item.
func (k KeyID) Key() uint32 {
	return uint32(k.Size&0x07)<<28 | uint32(k.Group&0x0FFF)<<16 | uint32(k.Item&0x0FFF)
}

// KeyIDFromKey unpacks a 32-bit configuration key.
func KeyIDFromKey(key uint32) KeyID {
	return KeyID{
		Size:  Size((key >> 28) & 0x07),
		Group: uint16((key >> 16) & 0x0FFF),
		Item:  uint16(key & 0x0FFF),
	}
}

func (k KeyID) String() string {
	if name, ok := keyNames[k.Key()]; ok {
		return name
	}
	return fmt.Sprintf("0x%08X", k.Key())
}

// Kind is the runtime type tag of a configuration value.
type Kind uint8

// Value kinds
const (
	KindBool Kind = iota + 1
	KindU1
	KindI1
	KindU2
	KindI2
	KindU4
	KindI4
	KindR4
	KindU8
	KindI8
	KindR8
)

// Size returns the storage class that carries values of this kind.
func (k Kind) Size() Size {
	switch k {
	case KindBool:
		return SizeBit
	case KindU1, KindI1:
		return SizeByte
	case KindU2, KindI2:
		return SizeWord
	case KindU4, KindI4, KindR4:
		return SizeDouble
	case KindU8, KindI8, KindR8:
		return SizeQuad
	}
	return 0
}

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "L"
	case KindU1:
		return "U1"
	case KindI1:
		return "I1"
	case KindU2:
		return "U2"
	case KindI2:
		return "I2"
	case KindU4:
		return "U4"
	case KindI4:
		return "I4"
	case KindR4:
		return "R4"
	case KindU8:
		return "U8"
	case KindI8:
		return "I8"
	case KindR8:
		return "R8"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a tagged configuration value. The raw little-endian bit pattern is
// held zero-extended in 64 bits.
type Value struct {
	kind Kind
	bits uint64
}

// Value constructors
func Bool(v bool) Value {
	if v {
		return Value{kind: KindBool, bits: 1}
	}
	return Value{kind: KindBool}
}

func Uint8(v uint8) Value     { return Value{kind: KindU1, bits: uint64(v)} }
func Int8(v int8) Value       { return Value{kind: KindI1, bits: uint64(uint8(v))} }
func Uint16(v uint16) Value   { return Value{kind: KindU2, bits: uint64(v)} }
func Int16(v int16) Value     { return Value{kind: KindI2, bits: uint64(uint16(v))} }
func Uint32(v uint32) Value   { return Value{kind: KindU4, bits: uint64(v)} }
func Int32(v int32) Value     { return Value{kind: KindI4, bits: uint64(uint32(v))} }
func Float32(v float32) Value { return Value{kind: KindR4, bits: uint64(math.Float32bits(v))} }
func Uint64(v uint64) Value   { return Value{kind: KindU8, bits: v} }
func Int64(v int64) Value     { return Value{kind: KindI8, bits: uint64(v)} }
func Float64(v float64) Value { return Value{kind: KindR8, bits: math.Float64bits(v)} }

// Kind returns the value's type tag.
func (v Value) Kind() Kind { return v.kind }

// Bits returns the raw bit pattern.
func (v Value) Bits() uint64 { return v.bits }

// Bool returns the value as a boolean (LSB set).
func (v Value) Bool() bool { return v.bits&1 == 1 }

// Uint returns the value as an unsigned integer.
func (v Value) Uint() uint64 { return v.bits }

// Int returns the value sign-extended from its storage width.
func (v Value) Int() int64 {
	switch v.kind.Size() {
	case SizeByte:
		return int64(int8(v.bits))
	case SizeWord:
		return int64(int16(v.bits))
	case SizeDouble:
		return int64(int32(v.bits))
	}
	return int64(v.bits)
}

// Float returns a floating point value; integer kinds are converted.
func (v Value) Float() float64 {
	switch v.kind {
	case KindR4:
		return float64(math.Float32frombits(uint32(v.bits)))
	case KindR8:
		return math.Float64frombits(v.bits)
	case KindI1, KindI2, KindI4, KindI8:
		return float64(v.Int())
	}
	return float64(v.bits)
}

// As reinterprets the bit pattern as another kind of the same storage class.
func (v Value) As(kind Kind) (Value, error) {
	if kind.Size() != v.kind.Size() {
		return Value{}, fmt.Errorf("%w: %v as %v", ErrValueSize, v.kind, kind)
	}
	return Value{kind: kind, bits: v.bits}, nil
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.Bool())
	case KindI1, KindI2, KindI4, KindI8:
		return strconv.FormatInt(v.Int(), 10)
	case KindR4:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32)
	case KindR8:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	}
	return strconv.FormatUint(v.bits, 10)
}

// DecodeValue reads one value of the key's storage class from b. Values are
// tagged with the unsigned kind for their class (KindBool for bits); use As
// to reinterpret.
func DecodeValue(key KeyID, b []byte) (Value, error) {
	n := key.Size.Bytes()
	if n == 0 {
		return Value{}, fmt.Errorf("%w: invalid size class %d", ErrValueSize, key.Size)
	}
	if len(b) < n {
		return Value{}, fmt.Errorf("%w: need %d bytes for %v, have %d", ErrPayload, n, key, len(b))
	}
	switch key.Size {
	case SizeBit:
		return Value{kind: KindBool, bits: uint64(b[0] & 0x01)}, nil
	case SizeByte:
		return Value{kind: KindU1, bits: uint64(b[0])}, nil
	case SizeWord:
		return Value{kind: KindU2, bits: uint64(binary.LittleEndian.Uint16(b))}, nil
	case SizeDouble:
		return Value{kind: KindU4, bits: uint64(binary.LittleEndian.Uint32(b))}, nil
	default:
		return Value{kind: KindU8, bits: binary.LittleEndian.Uint64(b)}, nil
	}
}

// KeyValuePair is one configuration item and its value.
type KeyValuePair struct {
	key   KeyID
	value Value
}

// NewKeyValuePair pairs a key with a value whose kind matches the key's
// storage class.
func NewKeyValuePair(key KeyID, value Value) (KeyValuePair, error) {
	p := KeyValuePair{key: key, value: value}
	if err := p.check(); err != nil {
		return KeyValuePair{}, err
	}
	return p, nil
}

// KeyID returns the item's key.
func (p KeyValuePair) KeyID() KeyID { return p.key }

// Value returns the item's value.
func (p KeyValuePair) Value() Value { return p.value }

// Len returns the encoded size: 4 key bytes plus the value.
func (p KeyValuePair) Len() int {
	return 4 + p.key.Size.Bytes()
}

// AppendBinary appends the little-endian key followed by the value bytes.
func (p KeyValuePair) AppendBinary(b []byte) ([]byte, error) {
	if err := p.check(); err != nil {
		return b, err
	}
	return p.appendTo(b), nil
}

// check reports whether the pair can be encoded. Only the zero value and
// pairs built around NewKeyValuePair fail.
func (p KeyValuePair) check() error {
	if p.key.Size.Bytes() == 0 || p.value.kind.Size() != p.key.Size {
		return fmt.Errorf("%w: key %v (%v) with %v value", ErrValueSize, p.key, p.key.Size, p.value.kind)
	}
	return nil
}

// appendTo encodes a checked pair.
func (p KeyValuePair) appendTo(b []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, p.key.Key())
	switch p.key.Size {
	case SizeBit, SizeByte:
		b = append(b, uint8(p.value.bits))
	case SizeWord:
		b = binary.LittleEndian.AppendUint16(b, uint16(p.value.bits))
	case SizeDouble:
		b = binary.LittleEndian.AppendUint32(b, uint32(p.value.bits))
	case SizeQuad:
		b = binary.LittleEndian.AppendUint64(b, p.value.bits)
	}
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p KeyValuePair) MarshalBinary() ([]byte, error) {
	return p.AppendBinary(make([]byte, 0, p.Len()))
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must hold
// exactly one pair.
func (p *KeyValuePair) UnmarshalBinary(data []byte) error {
	pairs, err := DecodePairs(data)
	if err != nil {
		return err
	}
	if len(pairs) != 1 {
		return fmt.Errorf("%w: %d pairs, want 1", ErrPayload, len(pairs))
	}
	*p = pairs[0]
	return nil
}

// DecodePairs decodes a run of key-value pairs, as carried by a CFG-VALGET
// response or a CFG-VALSET request after its 4-byte header.
func DecodePairs(b []byte) ([]KeyValuePair, error) {
	var pairs []KeyValuePair
	for len(b) > 0 {
		if len(b) < 4 {
			return pairs, fmt.Errorf("%w: %d trailing bytes", ErrPayload, len(b))
		}
		key := KeyIDFromKey(binary.LittleEndian.Uint32(b))
		v, err := DecodeValue(key, b[4:])
		if err != nil {
			return pairs, err
		}
		pairs = append(pairs, KeyValuePair{key: key, value: v})
		b = b[4+key.Size.Bytes():]
	}
	return pairs, nil
}
