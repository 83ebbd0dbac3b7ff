// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Thermoquad/sextant/pkg/gnss"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for browsing traffic and reading configuration",
	Long: `Monitor a receiver via an interactive terminal UI.

Features:
  - Message types seen, with counts and the latest decoded frame
  - Statistics tracking
  - Configuration reads (CFG-VALGET) by key name or hex ID
  - Event logging
  - Automatic reconnection on connection loss

Tab cycles between the message list, the key input and the read button.
Left and right on the read button select the layer to read from.

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

// errLinkLost is returned when sending while the link is down.
var errLinkLost = errors.New("connection lost")

// linkManager owns the current session and replaces it when the link fails.
type linkManager struct {
	s    *session
	mu   sync.RWMutex
	p    *tea.Program
	done chan struct{}
}

func (lm *linkManager) getSession() *session {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.s
}

func (lm *linkManager) setSession(s *session) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.s = s
}

// send transmits b on the current session.
func (lm *linkManager) send(b []byte) error {
	s := lm.getSession()
	if s == nil {
		return errLinkLost
	}
	return s.dev.Transmit(b)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	// Open initial connection (serial or WebSocket)
	s, err := openSession()
	if err != nil {
		return err
	}

	lm := &linkManager{
		s:    s,
		done: make(chan struct{}),
	}

	m := initialMonitorModel(lm, s.info)

	// Create TUI program with alt screen and mouse support
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	lm.p = p

	go lm.linkLoop()

	_, err = p.Run()
	close(lm.done) // Signal goroutines to stop
	if s := lm.getSession(); s != nil {
		s.Close()
	}
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// linkLoop runs sessions until shutdown, reconnecting after each failure.
func (lm *linkManager) linkLoop() {
	for {
		err := lm.runSession(lm.getSession())

		select {
		case <-lm.done:
			return
		default:
		}

		lm.p.Send(linkLostMsg{err: err})

		if !lm.reconnect() {
			return // Shutdown requested during reconnect
		}
	}
}

// runSession forwards the frames of s to the TUI in batches until the link
// fails or shutdown is requested.
func (lm *linkManager) runSession(s *session) error {
	frames := make(chan *gnss.Frame, 256)
	s.dev.Dispatcher().OnFrame(func(f *gnss.Frame) {
		select {
		case frames <- f:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	linkDone := s.start(ctx)

	synchronized := false
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-lm.done:
			return nil

		case err := <-linkDone:
			if err == nil {
				err = ErrConnectionClosed
			}
			return err

		case <-ticker.C:
			var batch frameBatchMsg

			// Drain all available frames
		drainLoop:
			for {
				select {
				case f := <-frames:
					if !synchronized && !f.Bad() {
						synchronized = true
						batch.sync = &syncMsg{skipped: s.dev.Discarded()}
					}
					batch.frames = append(batch.frames, f)
				default:
					break drainLoop
				}
			}

			batch.dropped = s.dev.Rx().Dropped()
			batch.discarded = s.dev.Discarded()
			if batch.sync != nil || len(batch.frames) > 0 {
				lm.p.Send(batch)
			}
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (lm *linkManager) reconnect() bool {
	if s := lm.getSession(); s != nil {
		s.Close()
	}
	lm.setSession(nil)

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-lm.done:
			return false
		case <-time.After(backoff):
		}

		s, err := openSession()
		if err == nil {
			lm.setSession(s)
			lm.p.Send(reconnectedMsg{info: s.info})
			return true
		}

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
