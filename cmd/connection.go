// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"

	"github.com/Thermoquad/sextant/pkg/nmea"
)

// Connection is the byte link to the receiver. A serial link also
// implements gnss.BaudSetter.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned by every read once a WebSocket link has
// failed.
var ErrConnectionClosed = errors.New("websocket connection closed")

const (
	wsHandshakeTimeout = 10 * time.Second
	wsDialTimeout      = 15 * time.Second
)

//////////////////////////////////////////////////////////////
// Serial
//////////////////////////////////////////////////////////////

// serialLink is a receiver UART behind a local serial port.
type serialLink struct {
	serial.Port
}

// openSerial opens name at baud, 8N1.
func openSerial(name string, baud nmea.Baud) (*serialLink, error) {
	port, err := serial.Open(name, serialMode(baud))
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return &serialLink{Port: port}, nil
}

// SetBaudrate follows a PUBX,41 rate change on the local side.
func (s *serialLink) SetBaudrate(baud nmea.Baud) error {
	if err := s.SetMode(serialMode(baud)); err != nil {
		return fmt.Errorf("failed to set baud rate %d: %w", baud, err)
	}
	return nil
}

func serialMode(baud nmea.Baud) *serial.Mode {
	return &serial.Mode{
		BaudRate: int(baud),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
}

//////////////////////////////////////////////////////////////
// WebSocket
//////////////////////////////////////////////////////////////

// wsLink is a serial bridge reached over WebSocket. Receiver bytes travel
// as binary messages in both directions; other message types are skipped.
type wsLink struct {
	conn *websocket.Conn
	msg  io.Reader // unread part of the current message
	err  error     // sticky read failure
}

// wsTarget describes a bridge endpoint.
type wsTarget struct {
	url           string
	username      string
	password      string
	skipSSLVerify bool
}

// openWebSocket dials t, authenticating with HTTP Basic when a username is
// set.
func openWebSocket(ctx context.Context, t wsTarget) (*wsLink, error) {
	u, err := url.Parse(t.url)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	switch u.Scheme {
	case "ws":
	case "wss":
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: t.skipSSLVerify}
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	header := http.Header{}
	if t.username != "" {
		req := http.Request{Header: header}
		req.SetBasicAuth(t.username, t.password)
	}

	ctx, cancel := context.WithTimeout(ctx, wsDialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	return &wsLink{conn: conn}, nil
}

func (w *wsLink) Read(p []byte) (int, error) {
	for {
		if w.err != nil {
			return 0, w.err
		}

		if w.msg != nil {
			n, err := w.msg.Read(p)
			if errors.Is(err, io.EOF) {
				w.msg = nil
				err = nil
			}
			if n > 0 || err != nil {
				return n, err
			}
			continue
		}

		typ, r, err := w.conn.NextReader()
		if err != nil {
			w.err = fmt.Errorf("%w: %v", ErrConnectionClosed, err)
			return 0, w.err
		}
		if typ == websocket.BinaryMessage {
			w.msg = r
		}
	}
}

func (w *wsLink) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsLink) Close() error {
	return w.conn.Close()
}
