// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// ============================================================
// Test Helpers
// ============================================================

// syncBuffer is a bytes.Buffer safe for the pump's writer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type link struct {
	io.Reader
	io.Writer
}

// baudLink records baud changes.
type baudLink struct {
	link
	baud nmea.Baud
}

func (b *baudLink) SetBaudrate(baud nmea.Baud) error {
	b.baud = baud
	return nil
}

// failingReader fails every read.
type failingReader struct{ reads int }

func (f *failingReader) Read([]byte) (int, error) {
	f.reads++
	return 0, errors.New("framing error")
}

// gatedWriter holds its first write until release is closed.
type gatedWriter struct {
	out      syncBuffer
	started  chan struct{}
	release  chan struct{}
	finished chan struct{}
}

func newGatedWriter() *gatedWriter {
	return &gatedWriter{
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
		finished: make(chan struct{}, 1),
	}
}

func (w *gatedWriter) Write(p []byte) (int, error) {
	select {
	case w.started <- struct{}{}:
	default:
	}
	<-w.release
	n, err := w.out.Write(p)
	select {
	case w.finished <- struct{}{}:
	default:
	}
	return n, err
}

// glitchReader fails once while the writer is mid-write, then lets the
// write finish and ends the stream.
type glitchReader struct {
	w     *gatedWriter
	reads int
}

func (g *glitchReader) Read([]byte) (int, error) {
	g.reads++
	if g.reads == 1 {
		<-g.w.started
		return 0, errors.New("framing error")
	}
	close(g.w.release)
	<-g.w.finished
	return 0, io.EOF
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// ============================================================
// Pump Tests
// ============================================================

func TestPump_ReadsIntoDevice(t *testing.T) {
	var stream []byte
	for i := 0; i < 10; i++ {
		stream = append(stream, gllScenario...)
		stream = append(stream, ackValSet...)
	}

	p := NewPump(link{Reader: bytes.NewReader(stream), Writer: io.Discard})
	dev := NewDevice(p, Config{RxSize: 16, OffloadFactor: 64})
	frames := collect(dev)

	if err := p.Run(context.Background(), dev); err != nil {
		t.Fatalf("Run: %v", err)
	}
	dev.Poll()

	if len(*frames) != 20 {
		t.Fatalf("got %d frames, want 20", len(*frames))
	}
	for i, f := range *frames {
		if f.Bad() {
			t.Errorf("frame %d bad: %v", i, f.Err())
		}
	}
}

func TestPump_Transmits(t *testing.T) {
	pr, pw := io.Pipe()
	out := &syncBuffer{}
	p := NewPump(link{Reader: pr, Writer: out})
	dev := NewDevice(p, Config{})

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), dev) }()

	poll := ubx.Poll(ubx.SecUniqID)
	if err := dev.Transmit(poll); err != nil {
		t.Fatal(err)
	}
	if err := dev.Transmit([]byte(gllScenario)); err != nil {
		t.Fatal(err)
	}
	want := string(poll) + gllScenario
	waitFor(t, "transmission", func() bool { return out.String() == want })
	waitFor(t, "idle transmitter", func() bool { return !dev.Tx().Busy() })

	pw.Close()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestPump_ReadErrorsResetDevice(t *testing.T) {
	r := &failingReader{}
	p := NewPump(link{Reader: r, Writer: io.Discard})
	var reported int
	p.OnError = func(error) { reported++ }
	dev := NewDevice(p, Config{})

	err := p.Run(context.Background(), dev)
	if err == nil {
		t.Fatal("Run returned nil after repeated read errors")
	}
	if r.reads != MaxReadErrors || reported != MaxReadErrors {
		t.Errorf("reads = %d, reported = %d, want %d", r.reads, reported, MaxReadErrors)
	}
}

func TestPump_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPump(link{Reader: bytes.NewReader([]byte(gllScenario)), Writer: io.Discard})
	dev := NewDevice(p, Config{})
	if err := p.Run(ctx, dev); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestPump_SetBaudrate(t *testing.T) {
	plain := NewPump(link{Reader: bytes.NewReader(nil), Writer: io.Discard})
	if err := plain.SetBaudrate(nmea.Baud115200, nmea.PortUART1); !errors.Is(err, ErrNoBaudControl) {
		t.Errorf("plain link: err = %v", err)
	}

	bl := &baudLink{link: link{Reader: bytes.NewReader(nil), Writer: io.Discard}}
	p := NewPump(bl)
	if err := p.SetBaudrate(nmea.Baud115200, nmea.PortUSB); err != nil || bl.baud != 0 {
		t.Errorf("USB port changed local baud: %v %d", err, bl.baud)
	}
	if err := p.SetBaudrate(nmea.Baud115200, nmea.PortUART1); err != nil || bl.baud != nmea.Baud115200 {
		t.Errorf("UART1: err = %v baud = %d", err, bl.baud)
	}
}

func TestReplay_ThroughPump(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	var capture bytes.Buffer
	w := NewCaptureWriter(&capture)
	for _, raw := range [][]byte{[]byte(zdaExample), ackValSet, []byte(gllScenario)} {
		p := ProtocolNMEA
		if raw[0] == ubx.Sync1 {
			p = ProtocolUBX
		}
		if err := w.Write(DecodeFrame(p, raw, now)); err != nil {
			t.Fatal(err)
		}
	}

	replay := NewReplayReader(&capture)
	p := NewPump(replay)
	dev := NewDevice(p, Config{RxSize: 16})
	frames := collect(dev)

	if err := p.Run(context.Background(), dev); err != nil {
		t.Fatalf("Run: %v", err)
	}
	dev.Poll()

	names := []string{"GPZDA", "ACK-ACK", "GPGLL"}
	if len(*frames) != len(names) {
		t.Fatalf("got %d frames, want %d", len(*frames), len(names))
	}
	for i, f := range *frames {
		if f.Name() != names[i] {
			t.Errorf("frame %d = %s, want %s", i, f.Name(), names[i])
		}
	}
	if got := (*frames)[2].FixTime(); !got.Equal(time.Date(2002, 7, 4, 22, 54, 44, 0, time.UTC)) {
		t.Errorf("FixTime = %v", got)
	}
}

func TestPump_ReadErrorKeepsWriteInFlight(t *testing.T) {
	w := newGatedWriter()
	p := NewPump(link{Reader: &glitchReader{w: w}, Writer: w})
	dev := NewDevice(p, Config{})

	var reported []error
	p.OnError = func(err error) { reported = append(reported, err) }

	poll := ubx.Poll(ubx.SecUniqID)
	if err := dev.Transmit(poll); err != nil {
		t.Fatal(err)
	}
	if err := p.Run(context.Background(), dev); err != nil {
		t.Fatalf("Run: %v", err)
	}

	written := bytes.Count([]byte(w.out.String()), poll)
	if queued := len(p.out); written+queued != 1 {
		t.Errorf("message written %d times with %d still queued, want exactly one send", written, queued)
	}
	if dev.Tx().Sent() != 1 {
		t.Errorf("sent = %d, want 1", dev.Tx().Sent())
	}
	if dev.Tx().Busy() || dev.Tx().Pending() != 0 {
		t.Errorf("busy = %v pending = %d after completion", dev.Tx().Busy(), dev.Tx().Pending())
	}
	if len(reported) != 1 {
		t.Errorf("reported %d errors, want 1", len(reported))
	}
}
