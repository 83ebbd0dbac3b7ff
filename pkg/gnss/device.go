// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/sextant/pkg/nmea"
)

// DefaultBaud is the receiver's factory UART1 rate.
const DefaultBaud = nmea.Baud38400

// Transport is the byte link to the receiver.
type Transport interface {
	// Send starts transmitting b. It must not block until the bytes are on
	// the wire and must report completion through Device.OnTransmitComplete.
	// b stays valid until then.
	Send(b []byte) error
	// Delay blocks for d.
	Delay(d time.Duration)
	// SetBaudrate reconfigures the local side of port.
	SetBaudrate(baud nmea.Baud, port nmea.PortID) error
}

// Config sizes a Device. Zero fields take their defaults.
type Config struct {
	RxSize        int // circular receive buffer capacity
	OffloadFactor int // offload buffer = OffloadFactor * RxSize
	TxSize        int
	TxStep        time.Duration
	TxTimeout     time.Duration
	BaudSettle    time.Duration
	Baud          nmea.Baud // current local UART1 rate
	Now           func() time.Time
}

// DefaultConfig returns the default buffer sizes and timings.
func DefaultConfig() Config {
	return Config{
		RxSize:        DefaultRxSize,
		OffloadFactor: DefaultOffloadFactor,
		TxSize:        DefaultTxSize,
		TxStep:        DefaultTxStep,
		TxTimeout:     DefaultTxTimeout,
		BaudSettle:    DefaultBaudSettle,
		Baud:          DefaultBaud,
		Now:           time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RxSize <= 0 {
		c.RxSize = d.RxSize
	}
	if c.OffloadFactor <= 0 {
		c.OffloadFactor = d.OffloadFactor
	}
	if c.TxSize <= 0 {
		c.TxSize = d.TxSize
	}
	if c.TxStep <= 0 {
		c.TxStep = d.TxStep
	}
	if c.TxTimeout <= 0 {
		c.TxTimeout = d.TxTimeout
	}
	if c.BaudSettle <= 0 {
		c.BaudSettle = d.BaudSettle
	}
	if c.Baud == 0 {
		c.Baud = d.Baud
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// Device ties a transport to the receive and transmit paths of one
// receiver. Transport events (OnReceive, OnTransmitComplete,
// ResetAfterTransportError) may arrive on any goroutine; Poll must be driven
// from a single one.
type Device struct {
	transport  Transport
	cfg        Config
	rx         *RxBuffer
	tx         *TxBuffer
	dispatcher *Dispatcher

	pollMu    sync.Mutex
	clock     FixClock
	frames    atomic.Uint64
	discarded atomic.Uint64

	baudMu sync.Mutex
	baud   nmea.Baud
}

// NewDevice creates a device bound to t.
func NewDevice(t Transport, cfg Config) *Device {
	cfg = cfg.withDefaults()
	d := &Device{
		transport:  t,
		cfg:        cfg,
		rx:         NewRxBuffer(cfg.RxSize, cfg.OffloadFactor),
		dispatcher: NewDispatcher(),
		baud:       cfg.Baud,
	}
	d.tx = NewTxBuffer(cfg.TxSize, t.Send, t.Delay)
	d.tx.SetWait(cfg.TxStep, cfg.TxTimeout)
	return d
}

// Dispatcher returns the dispatcher frames are routed through.
func (d *Device) Dispatcher() *Dispatcher { return d.dispatcher }

// Rx returns the receive path.
func (d *Device) Rx() *RxBuffer { return d.rx }

// Tx returns the transmit queue.
func (d *Device) Tx() *TxBuffer { return d.tx }

// RxDMA returns the circular buffer the transport must write into.
func (d *Device) RxDMA() []byte { return d.rx.DMA() }

// OnReceive is the transport's "data available up to cursor" event.
func (d *Device) OnReceive(cursor int) {
	d.rx.OnTransportEvent(cursor)
}

// OnTransmitComplete is the transport's "send finished" event.
func (d *Device) OnTransmitComplete() error {
	return d.tx.OnTransmitComplete()
}

// ResetAfterTransportError restarts reception from the front of the
// circular buffer and resumes any scheduled transmission. Call it only when
// the error also aborted the in-flight write; otherwise the chunk is sent
// twice. Pump rearms reception alone.
func (d *Device) ResetAfterTransportError() error {
	d.rx.Rearm()
	return d.tx.Resume()
}

// DataReady reports whether new bytes arrived since the previous call.
func (d *Device) DataReady() bool {
	return d.rx.DataReady()
}

// InterruptsOff holds off transport events until InterruptsOn.
func (d *Device) InterruptsOff() { d.rx.Lock() }

// InterruptsOn releases transport events.
func (d *Device) InterruptsOn() { d.rx.Unlock() }

// Poll drains the offload buffer, dispatches every complete frame in arrival
// order and keeps incomplete trailing bytes for the next call. It returns
// the number of frames dispatched.
func (d *Device) Poll() int {
	d.pollMu.Lock()
	defer d.pollMu.Unlock()

	snap := d.rx.snapshot()
	if len(snap) == 0 {
		return 0
	}

	res := Scan(snap, d.rx.Capacity())
	d.rx.restore(snap[res.Carry:])
	d.discarded.Add(uint64(res.Discarded()))

	now := d.cfg.Now()
	for _, s := range res.Frames {
		f := DecodeFrame(s.Protocol, snap[s.Start:s.End], now)
		if f.Sentence != nil && !f.Bad() {
			if t, ok := d.clock.Observe(f.Sentence); ok {
				f.fixTime = t
			}
		}
		d.dispatcher.Dispatch(f)
	}
	d.frames.Add(uint64(len(res.Frames)))
	return len(res.Frames)
}

// Run polls every interval until ctx is done.
func (d *Device) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.Poll()
			return ctx.Err()
		case <-ticker.C:
			if d.DataReady() {
				d.Poll()
			}
		}
	}
}

// Frames returns the number of frames dispatched so far.
func (d *Device) Frames() uint64 {
	return d.frames.Load()
}

// Discarded returns the number of bytes the scanner skipped as noise.
func (d *Device) Discarded() uint64 {
	return d.discarded.Load()
}

// Transmit queues msg for sending.
func (d *Device) Transmit(msg []byte) error {
	return d.tx.Transmit(msg)
}

// Baud returns the local UART1 rate.
func (d *Device) Baud() nmea.Baud {
	d.baudMu.Lock()
	defer d.baudMu.Unlock()
	return d.baud
}

// SetConfig sends a PUBX,41 port configuration. If it changes the UART1
// rate, the request is flushed at the old rate and the local side is then
// switched to match.
func (d *Device) SetConfig(cfg nmea.PortConfig) error {
	if !cfg.Baud.Valid() {
		return fmt.Errorf("set config: unsupported baud %d", cfg.Baud)
	}
	if err := d.Transmit(cfg.Sentence()); err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	if cfg.Port != nmea.PortUART1 || cfg.Baud == d.Baud() {
		return nil
	}

	if err := d.drain(); err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	d.transport.Delay(d.cfg.BaudSettle)
	if err := d.transport.SetBaudrate(cfg.Baud, cfg.Port); err != nil {
		return fmt.Errorf("set config: %w", err)
	}

	d.baudMu.Lock()
	d.baud = cfg.Baud
	d.baudMu.Unlock()
	return nil
}

// drain waits for the transmit queue to empty.
func (d *Device) drain() error {
	var waited time.Duration
	for d.tx.Busy() {
		if waited >= d.cfg.TxTimeout {
			return ErrTxTimeout
		}
		d.transport.Delay(d.cfg.TxStep)
		waited += d.cfg.TxStep
	}
	return nil
}

// SetRate sends a PUBX,40 output rate request.
func (d *Device) SetRate(r nmea.Rate) error {
	msg, err := r.Sentence()
	if err != nil {
		return err
	}
	if err := d.Transmit(msg); err != nil {
		return fmt.Errorf("set rate %v: %w", r.Msg, err)
	}
	return nil
}

// SilenceDefaultRates turns off every sentence the receiver emits by
// default, on all ports.
func (d *Device) SilenceDefaultRates() error {
	for _, m := range nmea.DefaultOutputs {
		if err := d.SetRate(nmea.Rate{Msg: m}); err != nil {
			return err
		}
	}
	return nil
}
