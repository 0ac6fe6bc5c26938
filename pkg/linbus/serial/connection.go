// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package serial implements the L0 byte-oriented transport to the LIN
// transceiver: a local UART connection, or a remote WebSocket bridge
// for a dongle attached to a different host.
package serial

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	sserial "go.bug.st/serial"
	"golang.org/x/term"
)

// Connection is the common byte-level interface to the LIN bus,
// whichever transport carries it.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// PortConnection wraps a local UART.
type PortConnection struct {
	port sserial.Port
}

func (p *PortConnection) Read(b []byte) (int, error)  { return p.port.Read(b) }
func (p *PortConnection) Write(b []byte) (int, error) { return p.port.Write(b) }
func (p *PortConnection) Close() error                { return p.port.Close() }

// ErrConnectionClosed is returned once a WebSocket bridge connection has
// failed or been closed.
var ErrConnectionClosed = fmt.Errorf("bus bridge connection closed")

// BridgeConnection wraps a WebSocket connection to a remote LIN bridge,
// exposing it as a byte stream: each binary message is a chunk of raw
// bus bytes.
type BridgeConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (b *BridgeConnection) Read(p []byte) (int, error) {
	if b.closed {
		return 0, ErrConnectionClosed
	}
	if b.bufOffset < len(b.buf) {
		n := copy(p, b.buf[b.bufOffset:])
		b.bufOffset += n
		return n, nil
	}
	for {
		messageType, data, err := b.conn.ReadMessage()
		if err != nil {
			b.closed = true
			return 0, err
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		b.buf = data
		b.bufOffset = 0
		n := copy(p, b.buf)
		b.bufOffset = n
		return n, nil
	}
}

func (b *BridgeConnection) Write(p []byte) (int, error) {
	if err := b.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (b *BridgeConnection) Close() error { return b.conn.Close() }

// OpenPort opens a local UART for the LIN bus at the given baud rate
// (9600 8N1 for the iNet box). It refuses to start if the device is
// already held by another process.
func OpenPort(portName string, baud int) (Connection, error) {
	mode := &sserial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   sserial.NoParity,
		StopBits: sserial.OneStopBit,
	}
	port, err := sserial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(30 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("configure read timeout on %s: %w", portName, err)
	}
	return &PortConnection{port: port}, nil
}

// OpenBridge dials a remote LIN bridge over ws:// or wss://, optionally
// authenticating with HTTP Basic auth.
func OpenBridge(bridgeURL, username, password string, skipTLSVerify bool) (Connection, error) {
	u, err := url.Parse(bridgeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bridge URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported bridge URL scheme %q (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipTLSVerify}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+creds)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, bridgeURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("bridge connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("bridge connection failed: %w", err)
	}
	return &BridgeConnection{conn: conn}, nil
}

// GetPassword reads a bridge password from the named environment
// variable, or prompts interactively without echoing input.
func GetPassword(envVar string) (string, error) {
	if pw := os.Getenv(envVar); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}
	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}
