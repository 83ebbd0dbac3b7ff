// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

var (
	showAll       bool
	statsInterval int
	useTUI        bool
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze bad frames and anomalous values",
	Long: `Track checksum failures, undecodable frames and anomalous values with statistics.

This command validates each frame and detects:
  - NMEA and UBX checksum failures
  - Frames that pass their checksum but cannot be decoded
  - Anomalous values (position out of range, invalid fix mode, DOP out of
    range, impossible dates)
  - Receiver rejections (ACK-NAK)
  - Statistics and trends (frame rate, error rate, bytes dropped or skipped)

By default, only errors are displayed. Use --show-all to display valid frames too.

Frames are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.`,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().BoolVar(&useTUI, "tui", true, "Use terminal UI (false for text mode)")
}

// frameMsg carries a dispatched frame and its validation result.
type frameMsg struct {
	frame            *gnss.Frame
	validationErrors []gnss.ValidationError
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	// Open connection (serial or WebSocket)
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	frames := make(chan frameMsg, 256)
	s.dev.Dispatcher().OnFrame(func(f *gnss.Frame) {
		frames <- frameMsg{frame: f, validationErrors: gnss.ValidateFrame(f)}
	})

	if useTUI {
		return runTUIMode(s, frames)
	}
	return runTextMode(s, frames)
}

// printBadFrame prints a frame that failed its checksum or decode
func printBadFrame(f *gnss.Frame) {
	timestamp := f.Received().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mBAD FRAME:\033[0m %s %s\n", timestamp, f.Protocol, f.Name())
	fmt.Printf("  Error: %v\n", f.Err())
	fmt.Printf("  Raw: %q\n", f.Raw())
	fmt.Printf("  >>> FRAME REJECTED <<<\n\n")
}

// printNak prints a receiver rejection
func printNak(f *gnss.Frame, nak *ubx.Nak) {
	timestamp := f.Received().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;33mACK-NAK:\033[0m receiver rejected %v\n\n", timestamp, nak.Rejected)
}

// printValidationErrors prints validation errors for a frame
func printValidationErrors(f *gnss.Frame, errors []gnss.ValidationError) {
	timestamp := f.Received().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, f.Name())
	fmt.Printf("  Checksum: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case gnss.AnomalyInvalidPosition:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case gnss.AnomalyInvalidFix:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if mode, ok := err.Details["nav_mode"].(int); ok {
				fmt.Printf("    navMode=%d (1=no fix, 2=2D, 3=3D)\n", mode)
			}

		case gnss.AnomalyInvalidDOP:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		case gnss.AnomalyInvalidDate:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	fmt.Printf("  Raw: %q\n", f.Raw())
	fmt.Printf("  >>> FRAME FLAGGED <<<\n\n")
}

// runTUIMode runs error detection in TUI mode
func runTUIMode(s *session, frames <-chan frameMsg) error {
	m := initialModel(s, statsInterval, showAll)
	p := tea.NewProgram(m)

	go func() {
		synchronized := false
		for msg := range frames {
			if !synchronized && !msg.frame.Bad() {
				synchronized = true
				p.Send(syncMsg{skipped: s.dev.Discarded()})
			}
			p.Send(msg)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := <-s.start(ctx); !linkClosed(err) {
			p.Send(linkErrMsg{err: err})
		}
	}()

	// Run TUI
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	return nil
}

// runTextMode runs error detection in text mode
func runTextMode(s *session, frames <-chan frameMsg) error {
	fmt.Printf("Sextant - Error Detection Mode\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	stats := gnss.NewStatistics()

	// Sync tracking: noise before the first valid frame is reported once
	synchronized := false

	// Statistics ticker
	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	done := s.start(context.Background())

	for {
		select {
		case msg := <-frames:
			f := msg.frame
			stats.Update(f, msg.validationErrors)

			if f.Bad() {
				printBadFrame(f)
				continue
			}

			if !synchronized {
				synchronized = true
				if skipped := s.dev.Discarded(); skipped > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d bytes\n\n", skipped)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}

			// Print frame or error based on mode
			if len(msg.validationErrors) > 0 {
				printValidationErrors(f, msg.validationErrors)
			} else if nak, ok := f.Message.(*ubx.Nak); ok {
				// Always print rejections
				printNak(f, nak)
			} else if showAll {
				// Print valid frame (only if --show-all flag is set)
				fmt.Print(gnss.FormatFrame(f))
			}

		case <-statsTicker.C:
			// Print statistics
			stats.UpdateDevice(s.dev)
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()

		case err := <-done:
			stats.UpdateDevice(s.dev)
			fmt.Println()
			fmt.Print(stats.String())
			if linkClosed(err) {
				log.Printf("Connection closed")
				return nil
			}
			return err
		}
	}
}
