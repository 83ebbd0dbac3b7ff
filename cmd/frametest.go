// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
)

var (
	frameTestTimeout int
)

var frameTestCmd = &cobra.Command{
	Use:   "frame_test",
	Short: "Test connection by waiting for a valid NMEA or UBX frame",
	Long: `Wait for a valid NMEA sentence or UBX message on the connection until timeout.

This command connects to a serial port or WebSocket and waits for any frame
that passes its checksum and decodes. Noise between frames and frames with
bad checksums are skipped.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error

Useful for checking the baud rate and the WebSocket serial bridge.`,
	RunE: runFrameTest,
}

func init() {
	rootCmd.AddCommand(frameTestCmd)
	frameTestCmd.Flags().IntVar(&frameTestTimeout, "timeout", 10, "Timeout in seconds to wait for a frame")
}

func runFrameTest(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("Sextant - Frame Test\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Timeout: %d seconds\n", frameTestTimeout)
	fmt.Printf("Waiting for valid frame...\n\n")

	frameChan := make(chan *gnss.Frame, 1)
	var bad atomic.Int64
	s.dev.Dispatcher().OnBad(func(*gnss.Frame) {
		bad.Add(1)
	})
	s.dev.Dispatcher().OnFrame(func(f *gnss.Frame) {
		if f.Bad() {
			return
		}
		select {
		case frameChan <- f:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := s.start(ctx)

	// Wait for frame or timeout
	select {
	case f := <-frameChan:
		fmt.Printf("SUCCESS: Received valid frame\n")
		fmt.Printf("  Protocol: %s\n", f.Protocol)
		fmt.Printf("  Name: %s\n", f.Name())
		fmt.Printf("  Length: %d bytes\n", len(f.Raw()))
		if skipped := s.dev.Discarded(); skipped > 0 || bad.Load() > 0 {
			fmt.Printf("  (skipped %d noise bytes and %d bad frames before it)\n", skipped, bad.Load())
		}
		os.Exit(0)

	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)

	case <-time.After(time.Duration(frameTestTimeout) * time.Second):
		fmt.Fprintf(os.Stderr, "TIMEOUT: No valid frame received within %d seconds\n", frameTestTimeout)
		os.Exit(1)
	}

	return nil
}
