// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

var (
	pollTimeout int
	pollCount   int
	pollKeys    []string
	pollLayer   string
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll the receiver and measure round-trip time",
	Long: `Send UBX poll requests to the receiver and wait for the responses.

Without --key, SEC-UNIQID is polled and the chip's unique ID is shown.
With --key, CFG-VALGET reads the named configuration keys from --layer.

This is useful for verifying:
  - The link works in both directions
  - The receiver accepts UBX input on this port
  - HTTP Basic authentication works (WebSocket bridge)
  - Stored configuration values

Exit codes:
  0 - All polls answered
  1 - One or more polls failed, were rejected or timed out
  2 - Connection error`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().IntVar(&pollTimeout, "timeout", 2, "Timeout in seconds for each poll")
	pollCmd.Flags().IntVar(&pollCount, "count", 3, "Number of polls to send")
	pollCmd.Flags().StringSliceVar(&pollKeys, "key", nil, "Configuration keys to read (name or hex)")
	pollCmd.Flags().StringVar(&pollLayer, "layer", "ram", "Layer to read: ram, bbr, flash or default")
}

// pollRequest builds the request and names the response it expects.
func pollRequest() ([]byte, ubx.MessageID, error) {
	if len(pollKeys) == 0 {
		return ubx.Poll(ubx.SecUniqID), ubx.SecUniqID, nil
	}

	var layer ubx.GetLayer
	switch strings.ToLower(pollLayer) {
	case "ram":
		layer = ubx.GetRAM
	case "bbr":
		layer = ubx.GetBBR
	case "flash":
		layer = ubx.GetFlash
	case "default":
		layer = ubx.GetDefault
	default:
		return nil, 0, fmt.Errorf("unknown layer %q", pollLayer)
	}

	get := ubx.NewValGet(layer)
	for _, name := range pollKeys {
		key, ok := ubx.LookupKey(name)
		if !ok {
			return nil, 0, fmt.Errorf("unknown key %q", name)
		}
		if err := get.Add(key); err != nil {
			return nil, 0, err
		}
	}
	return get.Bytes(), ubx.CfgValGet, nil
}

func describeResponse(m ubx.Message) string {
	switch v := m.(type) {
	case *ubx.UniqID:
		return fmt.Sprintf("unique ID %s", hex.EncodeToString(v.UniqueID))
	case *ubx.ValGetResponse:
		values := make([]string, len(v.Pairs))
		for i, p := range v.Pairs {
			values[i] = fmt.Sprintf("%v=%v", p.KeyID(), p.Value())
		}
		return fmt.Sprintf("%v: %s", v.Layer, strings.Join(values, " "))
	}
	return m.String()
}

func runPoll(cmd *cobra.Command, args []string) error {
	request, want, err := pollRequest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request error: %v\n", err)
		os.Exit(2)
	}

	// Open connection (serial or WebSocket)
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("Sextant - Poll\n")
	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Request: %v\n", want)
	fmt.Printf("Timeout: %d seconds per poll\n", pollTimeout)
	fmt.Printf("Count: %d polls\n\n", pollCount)

	responses := make(chan ubx.Message, 1)
	s.dev.Dispatcher().OnMessage(want, func(f *gnss.Frame) {
		if f.Bad() {
			return
		}
		select {
		case responses <- f.Message:
		default:
		}
	})
	acks := watchAcks(s.dev)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	linkDone := s.start(ctx)

	successCount := 0
	failCount := 0

	for i := 1; i <= pollCount; i++ {
		fmt.Printf("Poll %d/%d: ", i, pollCount)

		startTime := time.Now()
		if err := s.dev.Transmit(request); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		// Wait for response, rejection or timeout
		deadline := time.After(time.Duration(pollTimeout) * time.Second)
	wait:
		for {
			select {
			case m := <-responses:
				rtt := time.Since(startTime)
				fmt.Printf("%s, rtt=%v\n", describeResponse(m), rtt.Round(time.Millisecond))
				successCount++
				break wait

			case a := <-acks:
				if a.id != want || a.acked {
					continue
				}
				fmt.Printf("REJECTED (ACK-NAK)\n")
				failCount++
				break wait

			case err := <-linkDone:
				fmt.Printf("READ FAILED: %v\n", err)
				os.Exit(2)

			case <-deadline:
				fmt.Printf("TIMEOUT (no response in %ds)\n", pollTimeout)
				failCount++
				break wait
			}
		}

		// Small delay between polls
		if i < pollCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Summary
	fmt.Printf("\n--- Poll statistics ---\n")
	fmt.Printf("%d polls sent, %d responses received, %.0f%% loss\n",
		pollCount, successCount, float64(failCount)/float64(pollCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}
