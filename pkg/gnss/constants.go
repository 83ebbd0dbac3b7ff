// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package gnss moves a receiver's interleaved NMEA and UBX byte stream from a
// DMA-style circular buffer into typed frames.
//
// Bytes flow one way: the transport writes into the circular receive buffer
// and signals its write cursor (RxBuffer.OnTransportEvent); the delta is
// drained into a linear offload buffer; Device.Poll snapshots the offload
// buffer, runs the boundary scanner over it, carries incomplete trailing
// bytes into the next cycle and dispatches every complete frame, in arrival
// order, through a Dispatcher.
package gnss

import (
	"errors"
	"time"
)

// Protocol tags a frame's wire protocol.
type Protocol uint8

// Wire protocols
const (
	ProtocolNMEA Protocol = iota + 1
	ProtocolUBX
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNMEA:
		return "NMEA"
	case ProtocolUBX:
		return "UBX"
	}
	return "?"
}

// Buffer defaults
const (
	DefaultRxSize        = 254 // circular receive buffer
	DefaultOffloadFactor = 8   // offload buffer = factor * rx size
	DefaultTxSize        = 512
	DefaultTxStep        = 50 * time.Millisecond
	DefaultTxTimeout     = 500 * time.Millisecond
	DefaultBaudSettle    = 100 * time.Millisecond
)

// Transmit errors
var (
	ErrTxTimeout  = errors.New("gnss: timed out waiting for transmit buffer space")
	ErrTxTooLarge = errors.New("gnss: message larger than transmit buffer")
	ErrTxNoSpace  = errors.New("gnss: transmit buffer full")
	ErrTxEmpty    = errors.New("gnss: empty message")
)
