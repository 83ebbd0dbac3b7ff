// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
)

var recordQuiet bool

var recordCmd = &cobra.Command{
	Use:   "record <capture.cbor>",
	Short: "Record received frames to a capture file",
	Long: `Record every frame the receiver sends, bad frames included, to a CBOR
capture file. Each record holds the receive time, the protocol and the raw
frame bytes.

Recording stops on Ctrl+C or when the link closes. Use replay to play a
capture back through the decoder.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().BoolVar(&recordQuiet, "quiet", false, "Do not print frames while recording")
}

func runRecord(cmd *cobra.Command, args []string) error {
	file, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create capture: %w", err)
	}
	defer file.Close()
	out := bufio.NewWriter(file)

	// Open connection (serial or WebSocket)
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("Sextant - Record\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Capture: %s\n", args[0])
	fmt.Printf("Press Ctrl+C to stop\n\n")

	var mu sync.Mutex
	capture := gnss.NewCaptureWriter(out)
	s.dev.Dispatcher().OnFrame(func(f *gnss.Frame) {
		mu.Lock()
		defer mu.Unlock()
		if err := capture.Write(f); err != nil {
			log.Printf("Capture error: %v", err)
			return
		}
		if !recordQuiet {
			fmt.Print(gnss.FormatFrame(f))
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = <-s.start(ctx)

	mu.Lock()
	defer mu.Unlock()
	if ferr := out.Flush(); ferr != nil {
		return fmt.Errorf("failed to write capture: %w", ferr)
	}
	fmt.Printf("\nRecorded %d frames to %s\n", capture.Count(), args[0])

	if linkClosed(err) {
		return nil
	}
	return err
}
