// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package ubx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// ============================================================
// Test Helpers
// ============================================================

// ackValSet acknowledges a CFG-VALSET
var ackValSet = []byte{0xB5, 0x62, 0x05, 0x01, 0x02, 0x00, 0x06, 0x8A, 0x98, 0xC1}

func mustPair(t *testing.T, k KeyID, v Value) KeyValuePair {
	t.Helper()
	p, err := NewKeyValuePair(k, v)
	if err != nil {
		t.Fatalf("NewKeyValuePair(%v, %v): %v", k, v, err)
	}
	return p
}

// ============================================================
// Checksum and Framing Tests
// ============================================================

func TestChecksum_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		ckA, ckB uint8
	}{
		{"empty", nil, 0x00, 0x00},
		{"ACK-ACK body", ackValSet[2:8], 0x98, 0xC1},
		{"SEC-UNIQID poll", []byte{0x27, 0x03, 0x00, 0x00}, 0x2A, 0xA5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := Checksum(tt.data)
			if a != tt.ckA || b != tt.ckB {
				t.Errorf("Checksum = %02X %02X, want %02X %02X", a, b, tt.ckA, tt.ckB)
			}
		})
	}
}

func TestEncode(t *testing.T) {
	got := Encode(ClassACK, 0x01, []byte{0x06, 0x8A})
	if !bytes.Equal(got, ackValSet) {
		t.Errorf("Encode = % X, want % X", got, ackValSet)
	}
	if PayloadLength(got) != 2 {
		t.Errorf("PayloadLength = %d", PayloadLength(got))
	}
	if poll := Poll(SecUniqID); !bytes.Equal(poll, []byte{0xB5, 0x62, 0x27, 0x03, 0x00, 0x00, 0x2A, 0xA5}) {
		t.Errorf("Poll = % X", poll)
	}
}

func TestParseFrame_Errors(t *testing.T) {
	flipped := append([]byte(nil), ackValSet...)
	flipped[7] ^= 0x01
	long := Encode(ClassCFG, 0x8A, []byte{1, 2, 3})
	long = append(long, 0x00)

	tests := []struct {
		name string
		raw  []byte
		err  error
	}{
		{"short", ackValSet[:7], ErrShortFrame},
		{"bad sync", append([]byte{0xB5, 0x63}, ackValSet[2:]...), ErrBadSync},
		{"truncated payload", ackValSet[:9], ErrLengthMismatch},
		{"trailing byte", long, ErrLengthMismatch},
		{"flipped payload bit", flipped, ErrChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFrame(tt.raw)
			if !errors.Is(err, tt.err) {
				t.Errorf("ParseFrame error = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestFrame_RoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	f := NewFrame(NavPVT, payload)
	parsed, err := ParseFrame(f.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if parsed.MessageID() != NavPVT || !bytes.Equal(parsed.Payload(), payload) {
		t.Errorf("round trip = %v % X", parsed.MessageID(), parsed.Payload())
	}
}

// ============================================================
// Message Decode Tests
// ============================================================

func TestParse_AckAck(t *testing.T) {
	m := Parse(ackValSet)
	ack, ok := m.(*Ack)
	if !ok {
		t.Fatalf("Parse returned %T: %v", m, m)
	}
	if ack.Acked != CfgValSet {
		t.Errorf("Acked = %v, want CFG-VALSET", ack.Acked)
	}
	if ack.MessageID() != AckAck {
		t.Errorf("MessageID = %v", ack.MessageID())
	}
}

func TestParse_AckNak(t *testing.T) {
	nak, ok := Parse(Encode(ClassACK, 0x00, []byte{0x06, 0x8B})).(*Nak)
	if !ok {
		t.Fatal("NAK did not decode")
	}
	if nak.Rejected != CfgValGet {
		t.Errorf("Rejected = %v", nak.Rejected)
	}
}

func TestParse_FlippedBitIsBad(t *testing.T) {
	for i := 2; i < len(ackValSet); i++ {
		for bit := 0; bit < 8; bit++ {
			raw := append([]byte(nil), ackValSet...)
			raw[i] ^= 1 << bit
			if _, ok := Parse(raw).(*Bad); !ok {
				t.Errorf("byte %d bit %d: corrupted frame decoded as %T", i, bit, Parse(raw))
			}
		}
	}
}

func TestParse_AckWrongLength(t *testing.T) {
	bad, ok := Parse(Encode(ClassACK, 0x01, []byte{0x06})).(*Bad)
	if !ok {
		t.Fatal("short ACK payload not bad")
	}
	if !errors.Is(bad.Err, ErrPayload) || bad.MessageID() != AckAck {
		t.Errorf("Bad = %v %v", bad.Err, bad.MessageID())
	}
}

func TestParse_UniqID(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		ok      bool
	}{
		{"v1", []byte{1, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF, 0x01}, true},
		{"v2", []byte{2, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}, true},
		{"v1 wrong size", []byte{1, 0, 0, 0, 0xDE, 0xAD}, false},
		{"v3", []byte{3, 0, 0, 0, 0xDE, 0xAD, 0xBE, 0xEF, 0x01}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Parse(Encode(ClassSEC, 0x03, tt.payload))
			u, ok := m.(*UniqID)
			if ok != tt.ok {
				t.Fatalf("Parse returned %T", m)
			}
			if ok && !bytes.Equal(u.UniqueID, tt.payload[4:]) {
				t.Errorf("UniqueID = % X", u.UniqueID)
			}
		})
	}
}

func TestParse_ValGetResponse(t *testing.T) {
	payload := []byte{0x01, uint8(GetRAM), 0x00, 0x00}
	p1 := mustPair(t, CfgRateMeas, Uint16(1000))
	p2 := mustPair(t, CfgNmeaHighPrec, Bool(true))
	payload, _ = p1.AppendBinary(payload)
	payload, _ = p2.AppendBinary(payload)

	resp, ok := Parse(Encode(ClassCFG, 0x8B, payload)).(*ValGetResponse)
	if !ok {
		t.Fatal("VALGET response did not decode")
	}
	if len(resp.Pairs) != 2 {
		t.Fatalf("got %d pairs", len(resp.Pairs))
	}
	if resp.Pairs[0].KeyID() != CfgRateMeas || resp.Pairs[0].Value().Uint() != 1000 {
		t.Errorf("pair 0 = %v=%v", resp.Pairs[0].KeyID(), resp.Pairs[0].Value())
	}
	if !resp.Pairs[1].Value().Bool() {
		t.Errorf("pair 1 = %v", resp.Pairs[1].Value())
	}
}

func TestParse_Unknown(t *testing.T) {
	u, ok := Parse(Encode(ClassNAV, 0x07, make([]byte, 92))).(*Unknown)
	if !ok {
		t.Fatal("NAV-PVT not Unknown")
	}
	if u.MessageID().String() != "NAV-PVT" {
		t.Errorf("name = %q", u.MessageID().String())
	}
	if NewMessageID(0x7F, 0x7F).Known() {
		t.Error("0x7F-0x7F reported known")
	}
	if NewMessageID(0x7F, 0x7F).String() != "0x7F-0x7F" {
		t.Errorf("name = %q", NewMessageID(0x7F, 0x7F).String())
	}
}

func TestParse_DoesNotAlias(t *testing.T) {
	raw := append([]byte(nil), ackValSet...)
	ack := Parse(raw).(*Ack)
	raw[6] = 0
	if ack.Payload()[0] != 0x06 {
		t.Error("decoded frame aliases input")
	}
}

// ============================================================
// KeyID Tests
// ============================================================

func TestKeyID_Pack(t *testing.T) {
	k := KeyID{Size: SizeWord, Group: 0x21, Item: 0x001}
	if k.Key() != 0x30210001 {
		t.Errorf("Key = 0x%08X", k.Key())
	}
	if KeyIDFromKey(0x30210001) != k {
		t.Errorf("KeyIDFromKey = %+v", KeyIDFromKey(0x30210001))
	}
	if k.String() != "CFG-RATE-MEAS" {
		t.Errorf("String = %q", k.String())
	}
	wide := KeyID{Size: SizeByte, Group: 0xFFFF, Item: 0xFFFF}
	if wide.Key() != 0x2FFF0FFF {
		t.Errorf("group and item not masked: 0x%08X", wide.Key())
	}
}

func TestKeyID_Inverse(t *testing.T) {
	for _, key := range []uint32{0x10A3002E, 0x20930031, 0x40520001, 0x50000FFF, 0x1FFF0000, 0x1FFF0FFF} {
		if got := KeyIDFromKey(key).Key(); got != key {
			t.Errorf("round trip 0x%08X -> 0x%08X", key, got)
		}
	}

	all := KeyIDFromKey(0x1FFF0FFF)
	if all.Group != 0x0FFF || all.Item != 0x0FFF {
		t.Errorf("wildcard = %+v", all)
	}
}

func TestSizeBytes(t *testing.T) {
	want := map[Size]int{SizeBit: 1, SizeByte: 1, SizeWord: 2, SizeDouble: 4, SizeQuad: 8, 0: 0, 6: 0}
	for s, n := range want {
		if s.Bytes() != n {
			t.Errorf("Size(%d).Bytes() = %d, want %d", s, s.Bytes(), n)
		}
	}
}

func TestLookupKey(t *testing.T) {
	tests := []struct {
		name string
		want KeyID
		ok   bool
	}{
		{"CFG-RATE-MEAS", CfgRateMeas, true},
		{"cfg_nmea_highprec", CfgNmeaHighPrec, true},
		{"CFG-HW-ANT_CFG_VOLTCTRL", CfgHwAntCfgVoltCtrl, true},
		{"0x40520001", CfgUart1Baudrate, true},
		{"0x00000001", KeyID{}, false},
		{"CFG-NOPE", KeyID{}, false},
		{"0xZZ", KeyID{}, false},
	}
	for _, tt := range tests {
		got, ok := LookupKey(tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("LookupKey(%q) = %v %v, want %v %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

// ============================================================
// Key-Value Codec Tests
// ============================================================

func TestKeyValuePair_RoundTripAllKinds(t *testing.T) {
	tests := []struct {
		name  string
		size  Size
		value Value
	}{
		{"bool true", SizeBit, Bool(true)},
		{"bool false", SizeBit, Bool(false)},
		{"U1", SizeByte, Uint8(0xA5)},
		{"I1", SizeByte, Int8(-100)},
		{"U2", SizeWord, Uint16(0xBEEF)},
		{"I2", SizeWord, Int16(-30000)},
		{"U4", SizeDouble, Uint32(0xDEADBEEF)},
		{"I4", SizeDouble, Int32(math.MinInt32)},
		{"R4", SizeDouble, Float32(-3.25)},
		{"U8", SizeQuad, Uint64(0x0123456789ABCDEF)},
		{"I8", SizeQuad, Int64(math.MinInt64 + 7)},
		{"R8", SizeQuad, Float64(math.Pi)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := KeyID{Size: tt.size, Group: 0x42, Item: 0x123}
			p := mustPair(t, key, tt.value)

			b, err := p.MarshalBinary()
			if err != nil {
				t.Fatal(err)
			}
			if len(b) != 4+tt.size.Bytes() || len(b) != p.Len() {
				t.Fatalf("encoded %d bytes, want %d", len(b), 4+tt.size.Bytes())
			}
			if binary.LittleEndian.Uint32(b) != key.Key() {
				t.Errorf("key bytes = % X", b[:4])
			}

			var back KeyValuePair
			if err := back.UnmarshalBinary(b); err != nil {
				t.Fatal(err)
			}
			if back.KeyID() != key {
				t.Errorf("key = %v", back.KeyID())
			}
			v, err := back.Value().As(tt.value.Kind())
			if err != nil {
				t.Fatal(err)
			}
			if v != tt.value {
				t.Errorf("value = %v (bits %X), want %v (bits %X)", v, v.Bits(), tt.value, tt.value.Bits())
			}
		})
	}
}

func TestValueAccessors(t *testing.T) {
	if Int8(-5).Int() != -5 || Int16(-5).Int() != -5 || Int32(-5).Int() != -5 || Int64(-5).Int() != -5 {
		t.Error("sign extension wrong")
	}
	if Float32(1.5).Float() != 1.5 || Float64(-2.5).Float() != -2.5 || Uint16(7).Float() != 7 {
		t.Error("Float wrong")
	}
	if !Bool(true).Bool() || Bool(false).Bool() {
		t.Error("Bool wrong")
	}
	if Int16(-1).String() != "-1" || Bool(true).String() != "true" || Uint32(42).String() != "42" {
		t.Error("String wrong")
	}
}

func TestNewKeyValuePair_Mismatch(t *testing.T) {
	tests := []struct {
		name  string
		key   KeyID
		value Value
	}{
		{"U2 for byte key", KeyID{Size: SizeByte}, Uint16(1)},
		{"bool for word key", KeyID{Size: SizeWord}, Bool(true)},
		{"U1 for bit key", KeyID{Size: SizeBit}, Uint8(1)},
		{"R8 for double key", KeyID{Size: SizeDouble}, Float64(1)},
		{"invalid size", KeyID{Size: 7}, Uint8(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewKeyValuePair(tt.key, tt.value); !errors.Is(err, ErrValueSize) {
				t.Errorf("error = %v, want ErrValueSize", err)
			}
		})
	}
}

func TestDecodeValue_Short(t *testing.T) {
	if _, err := DecodeValue(CfgUart1Baudrate, []byte{1, 2}); !errors.Is(err, ErrPayload) {
		t.Errorf("error = %v", err)
	}
	if _, err := DecodePairs([]byte{1, 2, 3}); !errors.Is(err, ErrPayload) {
		t.Errorf("error = %v", err)
	}
}

// ============================================================
// VALSET / VALGET / VALDEL Builder Tests
// ============================================================

func TestValSet_Bytes(t *testing.T) {
	s := NewValSet(SetRAM | SetBBR)
	if err := s.Set(CfgRateMeas, Uint16(100)); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 4+6 {
		t.Errorf("Len = %d", s.Len())
	}
	if err := s.Set(CfgNmeaHighPrec, Bool(true)); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 4+6+5 {
		t.Errorf("Len = %d", s.Len())
	}

	f, err := ParseFrame(s.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if f.MessageID() != CfgValSet {
		t.Errorf("MessageID = %v", f.MessageID())
	}
	want := []byte{
		0x00, 0x03, 0x00, 0x00,
		0x01, 0x00, 0x21, 0x30, 0x64, 0x00,
		0x06, 0x00, 0x93, 0x10, 0x01,
	}
	if !bytes.Equal(f.Payload(), want) {
		t.Errorf("payload = % X\nwant      % X", f.Payload(), want)
	}
}

func TestValSet_Transaction(t *testing.T) {
	s := NewValSet(SetFlash).WithTransaction(TransactionApply)
	f, err := ParseFrame(s.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(f.Payload(), []byte{0x01, 0x04, 0x03, 0x00}) {
		t.Errorf("payload = % X", f.Payload())
	}
}

func TestValSet_MaxPairs(t *testing.T) {
	s := NewValSet(SetRAM)
	for i := 0; i < MaxPairs; i++ {
		if err := s.Set(KeyID{Size: SizeByte, Group: 1, Item: uint16(i)}, Uint8(uint8(i))); err != nil {
			t.Fatalf("pair %d: %v", i, err)
		}
	}
	if err := s.Set(CfgRateMeas, Uint16(1)); !errors.Is(err, ErrTooManyPairs) {
		t.Errorf("65th pair error = %v", err)
	}
	if len(s.Pairs()) != MaxPairs {
		t.Errorf("pairs = %d", len(s.Pairs()))
	}
	if _, err := ParseFrame(s.Bytes()); err != nil {
		t.Errorf("full frame invalid: %v", err)
	}
}

func TestValSet_RejectsZeroPair(t *testing.T) {
	s := NewValSet(SetRAM)
	if err := s.Set(CfgRateMeas, Uint16(100)); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(KeyValuePair{}); !errors.Is(err, ErrValueSize) {
		t.Errorf("zero pair error = %v, want ErrValueSize", err)
	}
	if len(s.Pairs()) != 1 {
		t.Errorf("pairs = %d, want 1", len(s.Pairs()))
	}

	f, err := ParseFrame(s.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x01, 0x00, 0x00, 0x01, 0x00, 0x21, 0x30, 0x64, 0x00}
	if !bytes.Equal(f.Payload(), want) {
		t.Errorf("payload = % X\nwant      % X", f.Payload(), want)
	}
}

func TestKeyValuePair_AppendBinaryInvalid(t *testing.T) {
	prefix := []byte{0xAA, 0xBB}
	b, err := KeyValuePair{}.AppendBinary(prefix)
	if !errors.Is(err, ErrValueSize) {
		t.Errorf("error = %v, want ErrValueSize", err)
	}
	if !bytes.Equal(b, prefix) {
		t.Errorf("buffer = % X, want prefix kept", b)
	}
}

func TestValGet_Bytes(t *testing.T) {
	g := NewValGet(GetDefault).Skip(2)
	_ = g.Add(CfgRateMeas)
	_ = g.Add(CfgUart1Baudrate)
	f, err := ParseFrame(g.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x07, 0x02, 0x00, 0x01, 0x00, 0x21, 0x30, 0x01, 0x00, 0x52, 0x40}
	if f.MessageID() != CfgValGet || !bytes.Equal(f.Payload(), want) {
		t.Errorf("frame = %v % X", f.MessageID(), f.Payload())
	}
}

func TestValDel_Bytes(t *testing.T) {
	d := NewValDel(DelAll)
	_ = d.Add(CfgRateMeas)
	f, err := ParseFrame(d.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x00, 0x06, 0x00, 0x00, 0x01, 0x00, 0x21, 0x30}
	if f.MessageID() != CfgValDel || !bytes.Equal(f.Payload(), want) {
		t.Errorf("frame = %v % X", f.MessageID(), f.Payload())
	}
	for i := 1; i < MaxPairs; i++ {
		_ = d.Add(CfgRateMeas)
	}
	if err := d.Add(CfgRateMeas); !errors.Is(err, ErrTooManyPairs) {
		t.Errorf("65th key error = %v", err)
	}
}
