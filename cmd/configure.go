// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
	"github.com/Thermoquad/sextant/pkg/nmea"
	"github.com/Thermoquad/sextant/pkg/profile"
	"github.com/Thermoquad/sextant/pkg/ubx"
)

var (
	configureTimeout int
	configureDryRun  bool
	configureDelete  []string
	configureDelFrom string
)

var configureCmd = &cobra.Command{
	Use:   "configure <profile.yaml>",
	Short: "Apply a YAML configuration profile to the receiver",
	Long: `Load a receiver profile and send it as PUBX and CFG-VALSET requests.

The profile is applied in order:
  1. Port configuration (PUBX,41). If it changes the UART1 baud rate, the
     request is flushed at the old rate and the local port follows.
  2. Default sentences silenced and output rates set (PUBX,40).
  3. Configuration items (CFG-VALSET, at most 64 per request). Each request
     waits for ACK-ACK or ACK-NAK.

--delete clears keys from the BBR and/or flash layers with CFG-VALDEL after
the profile has been applied.

Examples:
  # Show the frames a profile produces without sending them
  sextant configure --dry-run nav-1hz.yaml

  # Apply a profile over serial
  sextant configure --port /dev/ttyUSB0 nav-1hz.yaml

Exit codes:
  0 - Every request was sent and acknowledged
  1 - A request was rejected or not acknowledged in time
  2 - Connection or profile error`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
	configureCmd.Flags().IntVar(&configureTimeout, "timeout", 2, "Timeout in seconds for each acknowledgement")
	configureCmd.Flags().BoolVar(&configureDryRun, "dry-run", false, "Print the frames without connecting")
	configureCmd.Flags().StringSliceVar(&configureDelete, "delete", nil, "Configuration keys to clear (name or hex)")
	configureCmd.Flags().StringVar(&configureDelFrom, "delete-layers", "all", "Layers --delete clears: bbr, flash or all")
}

// ackResult is an ACK-ACK or ACK-NAK for one request.
type ackResult struct {
	id    ubx.MessageID
	acked bool
}

// watchAcks routes acknowledgements of dev into a channel. Acks arriving
// while nobody waits are dropped.
func watchAcks(dev *gnss.Device) <-chan ackResult {
	acks := make(chan ackResult, 8)
	send := func(r ackResult) {
		select {
		case acks <- r:
		default:
		}
	}
	dev.Dispatcher().OnMessage(ubx.AckAck, func(f *gnss.Frame) {
		if a, ok := f.Message.(*ubx.Ack); ok {
			send(ackResult{id: a.Acked, acked: true})
		}
	})
	dev.Dispatcher().OnMessage(ubx.AckNak, func(f *gnss.Frame) {
		if n, ok := f.Message.(*ubx.Nak); ok {
			send(ackResult{id: n.Rejected})
		}
	})
	return acks
}

// errNoAck is returned by awaitAck on timeout.
var errNoAck = errors.New("no acknowledgement")

// awaitAck waits for the acknowledgement of id, skipping any for other
// requests.
func awaitAck(acks <-chan ackResult, id ubx.MessageID, timeout time.Duration) (bool, error) {
	deadline := time.After(timeout)
	for {
		select {
		case r := <-acks:
			if r.id == id {
				return r.acked, nil
			}
		case <-deadline:
			return false, errNoAck
		}
	}
}

func describeFrame(b []byte) string {
	if len(b) > 0 && b[0] == nmea.StartChar {
		return strings.TrimSpace(string(b))
	}
	return hex.EncodeToString(b)
}

func deleteRequest() ([]byte, error) {
	var layers ubx.DelLayer
	switch strings.ToLower(configureDelFrom) {
	case "bbr":
		layers = ubx.DelBBR
	case "flash":
		layers = ubx.DelFlash
	case "all":
		layers = ubx.DelAll
	default:
		return nil, fmt.Errorf("unknown layer %q (use bbr, flash or all)", configureDelFrom)
	}

	del := ubx.NewValDel(layers)
	for _, name := range configureDelete {
		key, ok := ubx.LookupKey(name)
		if !ok {
			return nil, fmt.Errorf("unknown key %q", name)
		}
		if err := del.Add(key); err != nil {
			return nil, err
		}
	}
	return del.Bytes(), nil
}

func runConfigure(cmd *cobra.Command, args []string) error {
	p, err := profile.Load(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Profile error: %v\n", err)
		os.Exit(2)
	}
	frames, err := p.Frames()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Profile error: %v\n", err)
		os.Exit(2)
	}

	var delFrame []byte
	if len(configureDelete) > 0 {
		if delFrame, err = deleteRequest(); err != nil {
			fmt.Fprintf(os.Stderr, "Delete error: %v\n", err)
			os.Exit(2)
		}
	}

	fmt.Printf("Sextant - Configure\n")
	fmt.Printf("Profile: %s (%d frames, %d items)\n", args[0], len(frames), len(p.Pairs()))

	if configureDryRun {
		fmt.Println()
		for _, f := range frames {
			fmt.Println(describeFrame(f))
		}
		if delFrame != nil {
			fmt.Println(describeFrame(delFrame))
		}
		return nil
	}

	// Open connection (serial or WebSocket)
	s, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	fmt.Printf("Connection: %s\n", s.info)
	fmt.Printf("Timeout: %d seconds per acknowledgement\n\n", configureTimeout)

	acks := watchAcks(s.dev)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.start(ctx)

	failures := 0
	timeout := time.Duration(configureTimeout) * time.Second

	if pc, ok := p.PortConfig(); ok {
		fmt.Printf("Port %d: in=%04X out=%04X baud=%d ... ", pc.Port, uint16(pc.In), uint16(pc.Out), pc.Baud)
		err := s.dev.SetConfig(pc)
		switch {
		case errors.Is(err, gnss.ErrNoBaudControl):
			fmt.Printf("SENT (link has no baud control, switch the bridge to %d baud)\n", pc.Baud)
		case err != nil:
			fmt.Printf("FAILED: %v\n", err)
			os.Exit(2)
		default:
			fmt.Printf("OK (local rate %d)\n", s.dev.Baud())
		}
		frames = frames[1:]
	}

	// send transmits f and, for UBX requests, waits for its acknowledgement.
	// PUBX requests are not acknowledged.
	send := func(f []byte) {
		desc := describeFrame(f)
		if len(desc) > 48 {
			desc = desc[:48] + "..."
		}
		fmt.Printf("%s ... ", desc)
		if err := s.dev.Transmit(f); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failures++
			return
		}
		if f[0] == nmea.StartChar {
			fmt.Printf("SENT\n")
			return
		}

		acked, err := awaitAck(acks, ubx.NewMessageID(f[2], f[3]), timeout)
		switch {
		case err != nil:
			fmt.Printf("TIMEOUT (no response in %ds)\n", configureTimeout)
			failures++
		case !acked:
			fmt.Printf("REJECTED (ACK-NAK)\n")
			failures++
		default:
			fmt.Printf("ACK\n")
		}
	}

	for _, f := range frames {
		send(f)
	}
	if delFrame != nil {
		send(delFrame)
	}

	// Summary
	fmt.Printf("\n--- Configure summary ---\n")
	fmt.Printf("%d failed requests\n", failures)

	if failures > 0 {
		os.Exit(1)
	}
	return nil
}
