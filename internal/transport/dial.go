// Package transport dials the TLS-over-TCP connection CP runs on, with
// optional Linux socket-mark tagging for routing agent traffic separately
// from the rest of the host.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"syscall"
	"time"
)

// Dialer opens a connection to the CP server.
type Dialer interface {
	DialContext(ctx context.Context) (net.Conn, error)
}

// TLSDialer dials a TCP connection and then performs a TLS handshake over
// it. A nonzero FWMark is applied to the socket before connecting; outside
// Linux a nonzero FWMark makes the dial fail with an error.
type TLSDialer struct {
	Server     string
	Port       int
	ServerName string
	FWMark     uint32
	Timeout    time.Duration
	TLSConfig  *tls.Config
}

// NewTLSDialer builds a TLSDialer with the given server/port and the
// reference client's default timeout and keepalive.
func NewTLSDialer(server string, port int, serverName string, fwmark uint32) *TLSDialer {
	return &TLSDialer{
		Server:     server,
		Port:       port,
		ServerName: serverName,
		FWMark:     fwmark,
		Timeout:    30 * time.Second,
	}
}

// DialContext opens a TCP connection to d.Server:d.Port and upgrades it to
// TLS, verifying the peer against d.ServerName (or d.Server if unset).
func (d *TLSDialer) DialContext(ctx context.Context) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", d.Server, d.Port)
	dialer := &net.Dialer{
		Timeout:   d.Timeout,
		KeepAlive: 30 * time.Second,
		Control:   d.controlFunc(),
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	serverName := d.ServerName
	if serverName == "" {
		serverName = d.Server
	}
	tlsConfig := d.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
	}
	tlsConn := tls.Client(conn, tlsConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("tls handshake with %s: %w", addr, err)
	}
	return tlsConn, nil
}

func (d *TLSDialer) controlFunc() func(network, address string, c syscall.RawConn) error {
	if d.FWMark == 0 {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = setSocketMark(fd, d.FWMark)
		}); err != nil {
			return err
		}
		return sockErr
	}
}
