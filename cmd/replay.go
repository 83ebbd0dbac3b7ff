// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
)

var replayStats bool

var replayCmd = &cobra.Command{
	Use:   "replay <capture.cbor>",
	Short: "Play a capture file back through the decoder",
	Long: `Feed the raw bytes of a capture made with record through the same
framing and decode path a live receiver uses, and print each frame.

--stats validates every frame and prints the error statistics at the end.

--rx-size and --offload-factor apply, so a capture can be used to check how
a buffer configuration copes with a recorded stream.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayStats, "stats", false, "Validate frames and print statistics")
}

// replayLink is a Connection over a capture file. The device is polled
// before every read so the offload buffer drains at the pace the file is
// read rather than on a timer.
type replayLink struct {
	*gnss.ReplayReader
	file *os.File
	poll func() int
}

func (l *replayLink) Read(p []byte) (int, error) {
	if l.poll != nil {
		l.poll()
	}
	return l.ReplayReader.Read(p)
}

func (l *replayLink) Close() error {
	return l.file.Close()
}

func runReplay(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture: %w", err)
	}

	link := &replayLink{
		ReplayReader: gnss.NewReplayReader(bufio.NewReader(file)),
		file:         file,
	}
	s := newSession(link, fmt.Sprintf("Replay: %s", args[0]))
	defer s.Close()
	link.poll = s.dev.Poll

	fmt.Printf("Sextant - Replay\n")
	fmt.Printf("Connection: %s\n\n", s.info)

	stats := gnss.NewStatistics()
	s.dev.Dispatcher().OnFrame(func(f *gnss.Frame) {
		if replayStats {
			verrs := gnss.ValidateFrame(f)
			stats.Update(f, verrs)
			if len(verrs) > 0 {
				printValidationErrors(f, verrs)
				return
			}
		}
		fmt.Print(gnss.FormatFrame(f))
	})

	// The pump stops at the end of the capture.
	if err := s.pump.Run(cmd.Context(), s.dev); err != nil {
		return err
	}
	s.dev.Poll()

	if replayStats {
		stats.UpdateDevice(s.dev)
		fmt.Println()
		fmt.Print(stats.String())
	}
	fmt.Printf("\n%d frames, %d bytes skipped\n", s.dev.Frames(), s.dev.Discarded())
	return nil
}
