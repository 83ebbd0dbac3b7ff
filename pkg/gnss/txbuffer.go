// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"fmt"
	"sync"
	"time"
)

// TxBuffer queues outbound messages in a fixed ring and hands them to the
// transport one contiguous chunk at a time. A chunk stays in the ring until
// the transport reports it sent.
type TxBuffer struct {
	mu sync.Mutex

	buf  []byte
	segs []txSegment // scheduled, oldest first; segs[0] is in flight when busy
	busy bool

	send    func([]byte) error
	delay   func(time.Duration)
	step    time.Duration
	timeout time.Duration

	sent   uint64
	failed uint64
}

type txSegment struct {
	start, n int
}

func (s txSegment) end() int { return s.start + s.n }

// NewTxBuffer creates a transmit ring of size bytes. send starts a
// transmission and must not block until it completes; delay is used while
// waiting for space.
func NewTxBuffer(size int, send func([]byte) error, delay func(time.Duration)) *TxBuffer {
	if size <= 0 {
		size = DefaultTxSize
	}
	if delay == nil {
		delay = time.Sleep
	}
	return &TxBuffer{
		buf:     make([]byte, size),
		send:    send,
		delay:   delay,
		step:    DefaultTxStep,
		timeout: DefaultTxTimeout,
	}
}

// SetWait changes the allocation retry step and timeout.
func (t *TxBuffer) SetWait(step, timeout time.Duration) {
	t.mu.Lock()
	if step > 0 {
		t.step = step
	}
	if timeout > 0 {
		t.timeout = timeout
	}
	t.mu.Unlock()
}

// Size returns the ring capacity.
func (t *TxBuffer) Size() int {
	return len(t.buf)
}

// Busy reports whether a transmission is in flight.
func (t *TxBuffer) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.busy
}

// Pending returns the number of bytes scheduled or in flight.
func (t *TxBuffer) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, s := range t.segs {
		n += s.n
	}
	return n
}

// Sent returns the number of chunks the transport reported complete.
func (t *TxBuffer) Sent() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sent
}

// Transmit copies msg into the ring and starts sending it if the transport
// is idle. When the ring is full it waits in fixed steps for the in-flight
// transmission to free space, and gives up with ErrTxTimeout.
func (t *TxBuffer) Transmit(msg []byte) error {
	if len(msg) == 0 {
		return ErrTxEmpty
	}

	t.mu.Lock()
	start, err := t.allocLocked(len(msg))
	if err != nil {
		t.mu.Unlock()
		return err
	}
	copy(t.buf[start:], msg)
	t.segs = append(t.segs, txSegment{start: start, n: len(msg)})
	chunk := t.nextLocked()
	t.mu.Unlock()

	return t.start(chunk)
}

// allocLocked finds n contiguous free bytes. The lock is released while
// waiting.
func (t *TxBuffer) allocLocked(n int) (int, error) {
	if n > len(t.buf) {
		return 0, fmt.Errorf("%w: %d > %d bytes", ErrTxTooLarge, n, len(t.buf))
	}

	var waited time.Duration
	for {
		if start, ok := t.fitLocked(n); ok {
			return start, nil
		}
		if !t.busy {
			return 0, ErrTxNoSpace
		}
		if waited >= t.timeout {
			return 0, ErrTxTimeout
		}
		step := t.step
		t.mu.Unlock()
		t.delay(step)
		t.mu.Lock()
		waited += step
	}
}

// fitLocked places n bytes after the newest segment, or at the front of the
// ring when the tail end is too short.
func (t *TxBuffer) fitLocked(n int) (int, bool) {
	if len(t.segs) == 0 {
		return 0, true
	}
	first, last := t.segs[0], t.segs[len(t.segs)-1]
	head := last.end()

	if last.start >= first.start {
		// Not wrapped: free space is [head, size) and [0, first.start)
		if len(t.buf)-head >= n {
			return head, true
		}
		if first.start >= n {
			return 0, true
		}
		return 0, false
	}
	// Wrapped: free space is [head, first.start)
	if first.start-head >= n {
		return head, true
	}
	return 0, false
}

// nextLocked marks the oldest segment in flight if the transport is idle
// and returns the bytes to send, or nil.
func (t *TxBuffer) nextLocked() []byte {
	if t.busy || len(t.segs) == 0 {
		return nil
	}
	t.busy = true
	s := t.segs[0]
	return t.buf[s.start:s.end()]
}

func (t *TxBuffer) start(chunk []byte) error {
	if chunk == nil {
		return nil
	}
	if err := t.send(chunk); err != nil {
		t.mu.Lock()
		t.failed++
		t.segs = t.segs[1:]
		t.busy = false
		t.mu.Unlock()
		return fmt.Errorf("transmit: %w", err)
	}
	return nil
}

// OnTransmitComplete releases the chunk the transport finished sending and
// starts the next one.
func (t *TxBuffer) OnTransmitComplete() error {
	t.mu.Lock()
	if !t.busy || len(t.segs) == 0 {
		t.mu.Unlock()
		return nil
	}
	t.segs = t.segs[1:]
	t.busy = false
	t.sent++
	chunk := t.nextLocked()
	t.mu.Unlock()

	return t.start(chunk)
}

// Resume restarts the oldest scheduled chunk after the transport was
// reinitialized.
func (t *TxBuffer) Resume() error {
	t.mu.Lock()
	t.busy = false
	chunk := t.nextLocked()
	t.mu.Unlock()

	return t.start(chunk)
}
