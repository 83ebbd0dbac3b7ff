// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import "sync"

// RxBuffer is the dual-buffer receive path: a circular buffer written by the
// transport and a linear offload buffer drained from it on every transport
// event.
//
// The mutex stands in for interrupt masking. Event handlers hold it only
// while copying; the polled side holds it only to snapshot or restore the
// offload buffer.
type RxBuffer struct {
	mu sync.Mutex

	dma  []byte // circular, written by the transport
	tail int    // cursor up to which dma has been drained

	offload []byte // linear, len(offload) == capacity
	used    int

	lastReady int
	dropped   uint64
	resets    uint64
}

// NewRxBuffer creates a receive path with a circular buffer of size bytes
// and an offload buffer of factor*size bytes.
func NewRxBuffer(size, factor int) *RxBuffer {
	if size <= 0 {
		size = DefaultRxSize
	}
	if factor <= 0 {
		factor = DefaultOffloadFactor
	}
	return &RxBuffer{
		dma:     make([]byte, size),
		offload: make([]byte, size*factor),
	}
}

// DMA returns the circular buffer the transport writes into.
func (r *RxBuffer) DMA() []byte {
	return r.dma
}

// Size returns the circular buffer capacity.
func (r *RxBuffer) Size() int {
	return len(r.dma)
}

// Capacity returns the offload buffer capacity.
func (r *RxBuffer) Capacity() int {
	return len(r.offload)
}

// OnTransportEvent drains everything the transport has written between the
// previous cursor and cursor. A cursor equal to the buffer size drains up to
// the end and leaves the tail at 0. Bytes that do not fit in the offload buffer are
// dropped. A cursor outside [0, size] cannot be reconciled with the recorded
// tail; the tail is reset to 0 and nothing is copied.
func (r *RxBuffer) OnTransportEvent(cursor int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := len(r.dma)
	if cursor < 0 || cursor > size || r.tail < 0 || r.tail >= size {
		r.tail = 0
		r.resets++
		return
	}

	switch {
	case cursor == r.tail:
		return
	case cursor > r.tail:
		r.appendLocked(r.dma[r.tail:cursor])
	default:
		// Wrapped
		r.appendLocked(r.dma[r.tail:])
		r.appendLocked(r.dma[:cursor])
	}
	r.tail = cursor % size
}

func (r *RxBuffer) appendLocked(b []byte) {
	free := len(r.offload) - r.used
	if len(b) > free {
		r.dropped += uint64(len(b) - free)
		b = b[:free]
	}
	r.used += copy(r.offload[r.used:], b)
}

// Rearm restarts circular reception from the front of the buffer, for use
// after a transport error. Bytes already in the offload buffer are kept.
func (r *RxBuffer) Rearm() {
	r.mu.Lock()
	r.tail = 0
	r.mu.Unlock()
}

// snapshot copies out the offload buffer and empties it.
func (r *RxBuffer) snapshot() []byte {
	r.mu.Lock()
	snap := make([]byte, r.used)
	copy(snap, r.offload[:r.used])
	r.used = 0
	r.lastReady = 0
	r.mu.Unlock()
	return snap
}

// restore puts carried-over bytes back in front of anything that arrived
// since the snapshot. If both no longer fit, the carry-over is dropped.
func (r *RxBuffer) restore(carry []byte) {
	if len(carry) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(carry)+r.used > len(r.offload) {
		r.dropped += uint64(len(carry))
		return
	}
	copy(r.offload[len(carry):], r.offload[:r.used])
	copy(r.offload, carry)
	r.used += len(carry)
	r.lastReady += len(carry)
}

// DataReady reports whether the offload buffer holds bytes that arrived
// since the previous call.
func (r *RxBuffer) DataReady() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ready := r.used > 0 && r.used > r.lastReady
	r.lastReady = r.used
	return ready
}

// Used returns the number of bytes waiting in the offload buffer.
func (r *RxBuffer) Used() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Dropped returns the number of bytes lost to offload overflow.
func (r *RxBuffer) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Resets returns the number of times an inconsistent cursor forced the tail
// back to 0.
func (r *RxBuffer) Resets() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resets
}

// Lock masks transport events.
func (r *RxBuffer) Lock() { r.mu.Lock() }

// Unlock unmasks transport events.
func (r *RxBuffer) Unlock() { r.mu.Unlock() }
