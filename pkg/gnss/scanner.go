// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package gnss

import (
	"sort"

	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

// Span is a frame located in a scanned buffer: buf[Start:End].
type Span struct {
	Protocol Protocol
	Start    int
	End      int
}

// Len returns the frame size in bytes.
func (s Span) Len() int {
	return s.End - s.Start
}

// ScanResult is the outcome of one pass of the boundary scanner.
type ScanResult struct {
	// Frames are the complete frames found, ordered by Start and
	// non-overlapping.
	Frames []Span
	// Consumed is the end of the last frame, or 0 when none was found.
	Consumed int
	// Carry is where the bytes to keep for the next pass begin. buf[Carry:]
	// is empty when nothing is pending.
	Carry int
}

// Discarded returns the number of bytes before Carry that were not part of
// any frame.
func (r ScanResult) Discarded() int {
	n := r.Carry
	for _, f := range r.Frames {
		n -= f.Len()
	}
	return n
}

type candidate struct {
	Span
	valid   bool // checksum verified
	pending bool // incomplete UBX frame, End is meaningless
}

// Scan locates every complete NMEA sentence and UBX frame in buf, in arrival
// order, and decides which trailing bytes must be kept for the next pass.
// capacity is the size of the buffer buf was accumulated in; a UBX frame
// that could never fit is implausible and ignored, and a pending region
// that fills the whole capacity is given up as noise.
//
// NMEA sentences pair each "\r\n" with the most recent unterminated '$'.
// UBX frames are located by their sync bytes and declared length. A frame
// with a valid checksum is always taken; one with a bad checksum is taken
// (and later reported as bad) only if it does not hide a valid frame or an
// incomplete UBX frame inside it.
func Scan(buf []byte, capacity int) ScanResult {
	n := len(buf)
	if n == 0 {
		return ScanResult{}
	}
	if capacity < n {
		capacity = n
	}

	var (
		cands     []candidate
		lastStart = -1 // most recent unterminated '$'
	)

	for i := 0; i < n; i++ {
		switch buf[i] {
		case nmea.StartChar:
			lastStart = i
		case '\r':
			if i+1 < n && buf[i+1] == '\n' && lastStart >= 0 {
				end := i + 2
				cands = append(cands, candidate{
					Span:  Span{Protocol: ProtocolNMEA, Start: lastStart, End: end},
					valid: nmea.Validate(buf[lastStart:end]),
				})
				lastStart = -1
			}
		case ubx.Sync1:
			if c, ok := ubxCandidate(buf, i, capacity); ok {
				cands = append(cands, c)
			}
		}
	}

	sort.SliceStable(cands, func(a, b int) bool {
		return cands[a].Start < cands[b].Start
	})

	var (
		res          ScanResult
		cursor       int
		firstPending = -1
	)
	for k, c := range cands {
		if c.Start < cursor {
			continue
		}
		if c.pending {
			if firstPending < 0 {
				firstPending = c.Start
			}
			continue
		}
		if !c.valid && (firstPending >= 0 || hidesValidFrame(cands[k+1:], c.End)) {
			continue
		}
		res.Frames = append(res.Frames, c.Span)
		cursor = c.End
		firstPending = -1
	}
	res.Consumed = cursor

	// Keep the earliest incomplete UBX frame or the latest '$', whichever
	// comes first
	carry := n
	if firstPending >= 0 {
		carry = firstPending
	}
	for i := n - 1; i >= cursor && i >= n-nmea.MaxSentenceLength; i-- {
		if buf[i] == nmea.StartChar {
			if i < carry {
				carry = i
			}
			break
		}
	}
	if n-carry >= capacity {
		carry = n
	}
	res.Carry = carry
	return res
}

// ubxCandidate inspects a sync byte at i. Frames whose header or body has
// not fully arrived are returned as pending.
func ubxCandidate(buf []byte, i, capacity int) (candidate, bool) {
	n := len(buf)
	c := candidate{Span: Span{Protocol: ProtocolUBX, Start: i}}

	if i+1 == n {
		// Lone trailing sync byte
		c.pending = true
		return c, true
	}
	if buf[i+1] != ubx.Sync2 {
		return c, false
	}
	if i+ubx.HeaderSize > n {
		c.pending = true
		return c, true
	}

	size := ubx.Overhead + int(ubx.PayloadLength(buf[i:]))
	if size > capacity || size > ubx.MaxFrameSize {
		return c, false
	}
	if i+size > n {
		c.pending = true
		return c, true
	}

	c.End = i + size
	ckA, ckB := ubx.Checksum(buf[i+2 : c.End-2])
	c.valid = ckA == buf[c.End-2] && ckB == buf[c.End-1]
	return c, true
}

// hidesValidFrame reports whether a checksummed frame or an incomplete UBX
// frame starts before end. rest is sorted by Start.
func hidesValidFrame(rest []candidate, end int) bool {
	for _, c := range rest {
		if c.Start >= end {
			return false
		}
		if c.valid || c.pending {
			return true
		}
	}
	return false
}
