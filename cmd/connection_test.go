// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
)

// ============================================================
// Test Helpers
// ============================================================

// bridge is a WebSocket serial bridge that sends msgs, echoes one binary
// message back as "echo:<payload>" and records the Basic auth it saw.
func bridge(t *testing.T, msgs []wsMsg) (url string, auth chan string) {
	t.Helper()
	auth = make(chan string, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		auth <- user + ":" + pass

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, m := range msgs {
			if err := conn.WriteMessage(m.typ, []byte(m.data)); err != nil {
				return
			}
		}
		if _, data, err := conn.ReadMessage(); err == nil {
			conn.WriteMessage(websocket.BinaryMessage, append([]byte("echo:"), data...))
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), auth
}

type wsMsg struct {
	typ  int
	data string
}

// ============================================================
// WebSocket Link Tests
// ============================================================

func TestOpenWebSocket_ReadsBinaryOnly(t *testing.T) {
	url, auth := bridge(t, []wsMsg{
		{websocket.BinaryMessage, "$GPGLL,"},
		{websocket.TextMessage, "status: ok"},
		{websocket.BinaryMessage, "4916.45"},
	})

	link, err := openWebSocket(context.Background(), wsTarget{url: url, username: "user", password: "secret"})
	if err != nil {
		t.Fatalf("openWebSocket: %v", err)
	}
	defer link.Close()

	if got := <-auth; got != "user:secret" {
		t.Errorf("basic auth = %q", got)
	}

	// Small reads split one message across calls
	var got []byte
	buf := make([]byte, 4)
	for len(got) < len("$GPGLL,4916.45") {
		n, err := link.Read(buf)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		got = append(got, buf[:n]...)
	}
	if string(got) != "$GPGLL,4916.45" {
		t.Errorf("read %q", got)
	}

	if _, err := link.Write([]byte{0xB5, 0x62}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	echo := make([]byte, 16)
	n, err := link.Read(echo)
	if err != nil {
		t.Fatalf("Read echo: %v", err)
	}
	if string(echo[:n]) != "echo:\xB5\x62" {
		t.Errorf("echo = %q", echo[:n])
	}
}

func TestOpenWebSocket_ClosedIsSticky(t *testing.T) {
	url, auth := bridge(t, nil)

	link, err := openWebSocket(context.Background(), wsTarget{url: url})
	if err != nil {
		t.Fatalf("openWebSocket: %v", err)
	}
	defer link.Close()
	if got := <-auth; got != ":" {
		t.Errorf("unexpected auth %q", got)
	}

	// Unblock the bridge so it hangs up
	if _, err := link.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 16)
	for i := 0; i < 2; i++ {
		for {
			_, err = link.Read(buf)
			if err != nil {
				break
			}
		}
		if !errors.Is(err, ErrConnectionClosed) {
			t.Errorf("read %d: error = %v, want ErrConnectionClosed", i, err)
		}
		if !linkClosed(err) {
			t.Errorf("linkClosed(%v) = false", err)
		}
	}
}

func TestOpenWebSocket_RejectsScheme(t *testing.T) {
	_, err := openWebSocket(context.Background(), wsTarget{url: "http://localhost/bridge"})
	if err == nil || !strings.Contains(err.Error(), "unsupported URL scheme") {
		t.Errorf("error = %v", err)
	}
}

// ============================================================
// Dial Tests
// ============================================================

func TestDial_RequiresTarget(t *testing.T) {
	oldURL, oldPort := wsURL, portName
	wsURL, portName = "", ""
	t.Cleanup(func() { wsURL, portName = oldURL, oldPort })

	if _, _, err := dial(context.Background()); err == nil {
		t.Error("dial without --port or --url succeeded")
	}
}

func TestReadPassword_FromEnvironment(t *testing.T) {
	t.Setenv(passwordEnv, "hunter2")
	pw, err := readPassword()
	if err != nil || pw != "hunter2" {
		t.Errorf("readPassword = %q, %v", pw, err)
	}
}

var _ io.ReadWriteCloser = (*wsLink)(nil)
