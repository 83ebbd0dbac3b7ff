// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
)

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display frame log in human-readable format",
	Long: `Continuously decode and display NMEA sentences and UBX messages as they arrive.

Each frame is shown with its receive timestamp, protocol, name and decoded
fields. Frames that fail their checksum or cannot be decoded are shown with
the reason and their raw bytes.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
}

func runRawLog(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Sextant - Raw Frame Log\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	s.dev.Dispatcher().OnFrame(func(f *gnss.Frame) {
		fmt.Print(gnss.FormatFrame(f))
	})

	err = <-s.start(context.Background())
	if linkClosed(err) {
		log.Printf("Connection closed")
		return nil
	}
	return err
}
