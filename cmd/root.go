// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Receive buffer flags
	rxSize        int
	offloadFactor int
)

var rootCmd = &cobra.Command{
	Use:   "sextant",
	Short: "NMEA and UBX stream analyzer for u-blox receivers",
	Long: `Sextant - A CLI tool for watching, diagnosing and configuring u-blox GNSS
receivers that speak NMEA 0183 and UBX on the same link.

Provides commands for frame logging, error detection, capture and replay,
receiver polling, an interactive monitor and applying YAML configuration
profiles.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 38400]
  WebSocket: --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the SEXTANT_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "0.3.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", int(gnss.DefaultBaud), "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Receive buffer flags
	rootCmd.PersistentFlags().IntVar(&rxSize, "rx-size", gnss.DefaultRxSize, "Circular receive buffer size in bytes")
	rootCmd.PersistentFlags().IntVar(&offloadFactor, "offload-factor", gnss.DefaultOffloadFactor, "Offload buffer size as a multiple of --rx-size")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
