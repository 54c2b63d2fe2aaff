// Package relay forwards raw frame lines to a passive observer over a
// connectionless datagram transport (a telegraf-style UDP listener in
// the reference deployment).
package relay

import (
	"fmt"
	"net"
)

// Relay sends one raw line per datagram. Delivery is fire-and-forget.
type Relay interface {
	// Send forwards one line verbatim. Errors are advisory; the caller
	// logs and keeps processing.
	Send(line []byte) error

	// Close releases the socket.
	Close() error
}

// UDPRelay sends datagrams to a fixed destination.
type UDPRelay struct {
	conn net.Conn
}

// NewUDPRelay resolves the destination once and opens a connected UDP
// socket to it.
func NewUDPRelay(addr string) (*UDPRelay, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp %s: %w", addr, err)
	}
	return &UDPRelay{conn: conn}, nil
}

// Send forwards one line as a single datagram.
func (r *UDPRelay) Send(line []byte) error {
	if _, err := r.conn.Write(line); err != nil {
		return fmt.Errorf("relay send: %w", err)
	}
	return nil
}

// Close releases the socket.
func (r *UDPRelay) Close() error {
	return r.conn.Close()
}
