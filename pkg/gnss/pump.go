// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/sextant/pkg/nmea"
)

// MaxReadErrors is how many consecutive read errors a Pump absorbs before
// giving up.
const MaxReadErrors = 10

// ErrNoBaudControl is returned by Pump.SetBaudrate when the underlying link
// has no notion of baud rate.
var ErrNoBaudControl = errors.New("gnss: transport cannot change baud rate")

// BaudSetter is implemented by links whose local rate can be changed, such
// as serial ports.
type BaudSetter interface {
	SetBaudrate(baud nmea.Baud) error
}

// Pump is a Transport over an io.ReadWriter. Reads are written straight
// into the device's circular buffer, wrapping at its end, and each read
// raises a receive event. A failed read rearms reception only. Writes run on
// their own goroutine and raise transmit-complete events.
type Pump struct {
	rw  io.ReadWriter
	out chan []byte

	// OnError, if set, is called for every read or write error.
	OnError func(error)
}

// NewPump creates a transport over rw.
func NewPump(rw io.ReadWriter) *Pump {
	return &Pump{
		rw:  rw,
		out: make(chan []byte, 4),
	}
}

// Send queues b for the writer goroutine.
func (p *Pump) Send(b []byte) error {
	select {
	case p.out <- b:
		return nil
	default:
		return ErrTxNoSpace
	}
}

// Delay sleeps for d.
func (p *Pump) Delay(d time.Duration) {
	time.Sleep(d)
}

// SetBaudrate changes the link rate when the link supports it. Only UART1
// maps to the local link.
func (p *Pump) SetBaudrate(baud nmea.Baud, port nmea.PortID) error {
	if port != nmea.PortUART1 {
		return nil
	}
	bs, ok := p.rw.(BaudSetter)
	if !ok {
		return ErrNoBaudControl
	}
	return bs.SetBaudrate(baud)
}

func (p *Pump) report(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

// Run moves bytes between the link and dev until ctx is cancelled, the
// reader reaches EOF or reads keep failing. A read error resets the device's
// receive path. Run does not poll dev.
func (p *Pump) Run(ctx context.Context, dev *Device) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop(ctx, dev)
	}()

	err := p.readLoop(ctx, dev)
	cancel()
	wg.Wait()
	return err
}

func (p *Pump) writeLoop(ctx context.Context, dev *Device) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-p.out:
			if _, err := p.rw.Write(b); err != nil {
				p.report(fmt.Errorf("write: %w", err))
			}
			// A failed chunk is not retried; the receiver would reject a
			// partial sentence anyway.
			if err := dev.OnTransmitComplete(); err != nil {
				p.report(err)
			}
		}
	}
}

func (p *Pump) readLoop(ctx context.Context, dev *Device) error {
	dma := dev.RxDMA()
	pos := 0
	failures := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := p.rw.Read(dma[pos:])
		if n > 0 {
			pos += n
			dev.OnReceive(pos)
			if pos == len(dma) {
				pos = 0
			}
		}
		if err == nil {
			failures = 0
			continue
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		p.report(fmt.Errorf("read: %w", err))
		// The write side is independent; a chunk may still be in flight on
		// the writer goroutine and must not be sent again.
		pos = 0
		dev.Rx().Rearm()
		failures++
		if failures >= MaxReadErrors {
			return fmt.Errorf("read: %w", err)
		}
	}
}
