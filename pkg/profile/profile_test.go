// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package profile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// ============================================================
// Test Helpers
// ============================================================

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "profile.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

// valsetPairs checks the framing of a VALSET request and returns its layers
// and items.
func valsetPairs(t *testing.T, frame []byte) (ubx.SetLayer, []ubx.KeyValuePair) {
	t.Helper()
	msg := ubx.Parse(frame)
	if msg.MessageID() != ubx.CfgValSet {
		t.Fatalf("frame is %v, want CFG-VALSET", msg.MessageID())
	}
	payload := frame[ubx.HeaderSize : len(frame)-2]
	pairs, err := ubx.DecodePairs(payload[4:])
	if err != nil {
		t.Fatalf("DecodePairs: %v", err)
	}
	return ubx.SetLayer(payload[1]), pairs
}

// ============================================================
// Load Tests
// ============================================================

func TestLoad_Full(t *testing.T) {
	path := writeTempConfig(t, `
port:
  id: uart1
  baud: 115200
  in: [ubx, nmea]
  out: [nmea]
silence_defaults: true
rates:
  ZDA: {uart1: 1}
  GLL: {uart1: 1, usb: 2}
valset:
  layers: [ram, bbr]
  items:
    - key: CFG-RATE-MEAS
      value: 200
    - key: cfg_nmea_highprec
      value: true
    - key: "0x40520001"
      value: 115200
`)
	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	frames, err := p.Frames()
	if err != nil {
		t.Fatalf("Frames() error: %v", err)
	}

	want := [][]byte{
		nmea.Build("PUBX", "41", "1", "0003", "0002", "115200", "0"),
		// Defaults not named under rates
		nmea.Build("PUBX", "40", "GGA", "0", "0", "0", "0", "0", "0"),
		nmea.Build("PUBX", "40", "GSA", "0", "0", "0", "0", "0", "0"),
		nmea.Build("PUBX", "40", "GSV", "0", "0", "0", "0", "0", "0"),
		nmea.Build("PUBX", "40", "RMC", "0", "0", "0", "0", "0", "0"),
		nmea.Build("PUBX", "40", "VTG", "0", "0", "0", "0", "0", "0"),
		nmea.Build("PUBX", "40", "TXT", "0", "0", "0", "0", "0", "0"),
		// Configured rates, sorted
		nmea.Build("PUBX", "40", "GLL", "0", "1", "0", "2", "0", "0"),
		nmea.Build("PUBX", "40", "ZDA", "0", "1", "0", "0", "0", "0"),
	}
	if len(frames) != len(want)+1 {
		t.Fatalf("got %d frames, want %d", len(frames), len(want)+1)
	}
	for i := range want {
		if !bytes.Equal(frames[i], want[i]) {
			t.Errorf("frame %d = %q, want %q", i, frames[i], want[i])
		}
	}

	layers, pairs := valsetPairs(t, frames[len(frames)-1])
	if layers != ubx.SetRAM|ubx.SetBBR {
		t.Errorf("layers = %#x, want RAM|BBR", layers)
	}
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(pairs))
	}
	checks := []struct {
		key  ubx.KeyID
		want uint64
	}{
		{ubx.CfgRateMeas, 200},
		{ubx.CfgNmeaHighPrec, 1},
		{ubx.CfgUart1Baudrate, 115200},
	}
	for i, c := range checks {
		if pairs[i].KeyID() != c.key || pairs[i].Value().Uint() != c.want {
			t.Errorf("pair %d = %v:%v, want %v:%d", i, pairs[i].KeyID(), pairs[i].Value(), c.key, c.want)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	p, err := Parse([]byte("port: {}\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	pc, ok := p.PortConfig()
	if !ok {
		t.Fatal("port section not reported")
	}
	want := nmea.PortConfig{Port: nmea.PortUART1, In: nmea.InUBX | nmea.InNMEA, Out: nmea.OutUBX | nmea.OutNMEA, Baud: nmea.Baud38400}
	if pc != want {
		t.Errorf("port = %+v, want %+v", pc, want)
	}
	if p.Layers() != ubx.SetRAM {
		t.Errorf("layers = %#x, want RAM", p.Layers())
	}

	frames, err := p.Frames()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 1 {
		t.Errorf("got %d frames, want only the port configuration", len(frames))
	}
}

func TestLoad_Empty(t *testing.T) {
	p, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if _, ok := p.PortConfig(); ok {
		t.Error("empty profile reports a port section")
	}
	frames, err := p.Frames()
	if err != nil || len(frames) != 0 {
		t.Errorf("Frames() = %d frames, %v", len(frames), err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     string
	}{
		{"unknown port", "port: {id: spi}\n", `port.id: unknown port "spi"`},
		{"bad baud", "port: {baud: 12345}\n", "port.baud: unsupported baud rate 12345"},
		{"bad in", "port: {in: [sbf]}\n", `port.in: unknown protocol "sbf"`},
		{"bad out", "port: {out: [rtcm3]}\n", `port.out: unknown protocol "rtcm3"`},
		{"unknown sentence", "rates:\n  XYZ: {uart1: 1}\n", "rates.XYZ: unknown sentence"},
		{"bad layer", "valset: {layers: [rom]}\n", `valset.layers: unknown layer "rom"`},
		{"missing key", "valset:\n  items:\n    - value: 1\n", "valset.items[0]: key is required"},
		{"unknown key", "valset:\n  items:\n    - {key: CFG-NOPE, value: 1}\n", `valset.items[0]: unknown key "CFG-NOPE"`},
		{"missing value", "valset:\n  items:\n    - {key: CFG-RATE-MEAS}\n", "valset.items[0]: CFG-RATE-MEAS: value is required"},
		{"bad type", "valset:\n  items:\n    - {key: CFG-RATE-MEAS, value: 1, type: X2}\n", `valset.items[0]: CFG-RATE-MEAS: unknown type "X2"`},
		{"out of range", "valset:\n  items:\n    - {key: CFG-RATE-MEAS, value: 70000}\n", "valset.items[0]: CFG-RATE-MEAS: 70000 out of range for U2"},
		{"negative unsigned", "valset:\n  items:\n    - {key: CFG-RATE-MEAS, value: -1}\n", "valset.items[0]: CFG-RATE-MEAS: -1 out of range for U2"},
		{"not boolean", "valset:\n  items:\n    - {key: CFG-NMEA-HIGHPREC, value: 2}\n", "valset.items[0]: CFG-NMEA-HIGHPREC: 2 is not a boolean"},
		{"not integer", "valset:\n  items:\n    - {key: CFG-RATE-MEAS, value: fast}\n", "valset.items[0]: CFG-RATE-MEAS: fast is not an integer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tt.contents))
			requireErrEq(t, err, tt.want)
		})
	}
}

func TestLoad_TypeMismatchRejected(t *testing.T) {
	_, err := Parse([]byte("valset:\n  items:\n    - {key: CFG-RATE-MEAS, value: 1, type: I4}\n"))
	if err == nil || !strings.Contains(err.Error(), "CFG-RATE-MEAS") {
		t.Fatalf("err = %v, want size mismatch for CFG-RATE-MEAS", err)
	}
}

// ============================================================
// Value Conversion Tests
// ============================================================

func TestConvert(t *testing.T) {
	tests := []struct {
		kind ubx.Kind
		raw  any
		want ubx.Value
	}{
		{ubx.KindBool, true, ubx.Bool(true)},
		{ubx.KindBool, 0, ubx.Bool(false)},
		{ubx.KindU1, 255, ubx.Uint8(255)},
		{ubx.KindI1, -128, ubx.Int8(-128)},
		{ubx.KindI2, -300, ubx.Int16(-300)},
		{ubx.KindU4, 115200, ubx.Uint32(115200)},
		{ubx.KindI4, -1, ubx.Int32(-1)},
		{ubx.KindR4, 1.5, ubx.Float32(1.5)},
		{ubx.KindR8, 2, ubx.Float64(2)},
		{ubx.KindU8, uint64(1 << 63), ubx.Uint64(1 << 63)},
		{ubx.KindI8, -5, ubx.Int64(-5)},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v/%v", tt.kind, tt.raw), func(t *testing.T) {
			got, err := convert(tt.kind, tt.raw)
			if err != nil {
				t.Fatalf("convert: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v (%v), want %v (%v)", got, got.Kind(), tt.want, tt.want.Kind())
			}
		})
	}

	for _, bad := range []struct {
		kind ubx.Kind
		raw  any
	}{
		{ubx.KindU1, 256},
		{ubx.KindI1, 128},
		{ubx.KindI2, -32769},
		{ubx.KindU4, uint64(1 << 63)},
		{ubx.KindR8, "pi"},
	} {
		if _, err := convert(bad.kind, bad.raw); err == nil {
			t.Errorf("convert(%v, %v) accepted", bad.kind, bad.raw)
		}
	}
}

// ============================================================
// Frame Tests
// ============================================================

func TestFrames_ChunksLargeValSet(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("valset:\n  layers: [flash]\n  items:\n")
	total := ubx.MaxPairs + 6
	for i := 0; i < total; i++ {
		fmt.Fprintf(&sb, "    - {key: CFG-RATE-MEAS, value: %d}\n", 100+i)
	}
	p, err := Parse([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	frames, err := p.Frames()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}

	var values []uint64
	for _, f := range frames {
		layers, pairs := valsetPairs(t, f)
		if layers != ubx.SetFlash {
			t.Errorf("layers = %#x, want FLASH", layers)
		}
		for _, pair := range pairs {
			values = append(values, pair.Value().Uint())
		}
	}
	if len(values) != total {
		t.Fatalf("got %d pairs, want %d", len(values), total)
	}
	for i, v := range values {
		if v != uint64(100+i) {
			t.Fatalf("pair %d = %d, want %d (order lost across chunks)", i, v, 100+i)
		}
	}
}

func TestFrames_ChunksBySize(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("valset:\n  items:\n")
	for i := 0; i < 50; i++ {
		// Eight-byte values: 12 bytes per pair
		sb.WriteString("    - {key: \"0x50110001\", value: 1}\n")
	}
	p, err := Parse([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	frames, err := p.Frames()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	total := 0
	for _, f := range frames {
		if len(f) > MaxFrameSize {
			t.Errorf("frame of %d bytes exceeds %d", len(f), MaxFrameSize)
		}
		_, pairs := valsetPairs(t, f)
		total += len(pairs)
	}
	if total != 50 {
		t.Errorf("got %d pairs, want 50", total)
	}
	if _, first := valsetPairs(t, frames[0]); len(first) != 41 {
		t.Errorf("first frame carries %d pairs, want 41", len(first))
	}
}
