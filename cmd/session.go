// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/Thermoquad/sextant/pkg/gnss"
	"github.com/Thermoquad/sextant/pkg/nmea"
)

// pollInterval is how often the offload buffer is checked for new data.
const pollInterval = 20 * time.Millisecond

// session binds an open connection to a receiver device.
type session struct {
	conn Connection
	info string
	pump *gnss.Pump
	dev  *gnss.Device
}

// openSession opens the connection selected by the flags and builds a device
// on top of it.
func openSession() (*session, error) {
	conn, info, err := dial(context.Background())
	if err != nil {
		return nil, err
	}
	return newSession(conn, info), nil
}

// passwordEnv names the variable holding the WebSocket password.
const passwordEnv = "SEXTANT_PASSWORD"

// dial opens the link selected by --url or --port and describes it.
func dial(ctx context.Context) (Connection, string, error) {
	switch {
	case wsURL != "":
		t := wsTarget{url: wsURL, username: wsUsername, skipSSLVerify: wsNoSSLVerify}
		if t.username != "" {
			pw, err := readPassword()
			if err != nil {
				return nil, "", err
			}
			t.password = pw
		}
		conn, err := openWebSocket(ctx, t)
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil

	case portName != "":
		conn, err := openSerial(portName, nmea.Baud(baudRate))
		if err != nil {
			return nil, "", err
		}
		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}
	return nil, "", errors.New("either --port or --url must be specified")
}

// readPassword takes the password from the environment, or prompts without
// echo. Input that is not a terminal is read as a plain line.
func readPassword() (string, error) {
	if pw := os.Getenv(passwordEnv); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		pw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newSession(conn Connection, info string) *session {
	pump := gnss.NewPump(conn)
	pump.OnError = func(err error) {
		log.Printf("Transport error: %v", err)
	}
	return &session{
		conn: conn,
		info: info,
		pump: pump,
		dev:  gnss.NewDevice(pump, deviceConfig()),
	}
}

func deviceConfig() gnss.Config {
	return gnss.Config{
		RxSize:        rxSize,
		OffloadFactor: offloadFactor,
		Baud:          nmea.Baud(baudRate),
	}
}

// start runs the pump and the poll loop until ctx is done or the link
// fails. The returned channel yields the pump's result once.
func (s *session) start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := s.pump.Run(ctx, s.dev)
		// Frames still sitting in the offload buffer
		s.dev.Poll()
		done <- err
	}()
	go s.dev.Run(ctx, pollInterval)
	return done
}

func (s *session) Close() error {
	return s.conn.Close()
}

// linkClosed reports whether a pump error only means the link went away.
func linkClosed(err error) bool {
	return err == nil || errors.Is(err, ErrConnectionClosed) || errors.Is(err, context.Canceled)
}
