// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Sextant - NMEA and UBX stream analyzer
//
// A CLI tool for decoding, diagnosing and configuring u-blox GNSS receivers
// over a serial port or a WebSocket serial bridge.

package main

import (
	"os"

	"github.com/Thermoquad/sextant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
