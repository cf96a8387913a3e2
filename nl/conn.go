//go:build linux

package nl

import (
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// initialReaderCapacity is the starting size of the receive buffer.
const initialReaderCapacity = 64 * 1024

// Socket is the kernel datagram primitive the session runs on. The real
// implementation is a NETLINK_ROUTE socket; tests substitute a fake.
type Socket interface {
	Send(b []byte) error
	Receive(b []byte) (int, error)
	Close() error
}

// Conn is a single-use rtnetlink session. It owns one socket and one
// monotonically increasing sequence counter, and must not be shared between
// goroutines.
type Conn struct {
	sock Socket
	seq  uint32
	log  *slog.Logger
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used for transport diagnostics, in particular
// the data-loss report when a receive buffer is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conn) { c.log = l }
}

// Dial opens a NETLINK_ROUTE socket and returns a connection bound to it.
// Callers must Close the connection on every path.
func Dial(opts ...Option) (*Conn, error) {
	sock, err := dialRoute()
	if err != nil {
		return nil, fmt.Errorf("dial netlink route socket: %w", err)
	}
	return newConn(sock, opts...), nil
}

func newConn(sock Socket, opts ...Option) *Conn {
	c := &Conn{sock: sock, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the underlying socket.
func (c *Conn) Close() error {
	return c.sock.Close()
}

// Execute sends one request and reads the reply stream to completion. The
// returned slice holds the inner reply messages in arrival order; a plain
// acknowledgement yields an empty slice. Execute blocks until the kernel
// terminates the exchange — there is no timeout.
func (c *Conn) Execute(m Message) ([]Message, error) {
	if err := c.send(m); err != nil {
		return nil, err
	}
	return c.receive()
}

// send stamps the next sequence number onto the request and writes it in one
// operation. REQUEST and ACK are always set; callers supply the rest (DUMP,
// CREATE, EXCL, REPLACE).
func (c *Conn) send(m Message) error {
	c.seq++
	m.Seq = c.seq
	m.Flags |= unix.NLM_F_REQUEST | unix.NLM_F_ACK
	getMetrics().requestsTotal.Inc()
	if err := c.sock.Send(m.marshal()); err != nil {
		return fmt.Errorf("netlink send: %w", err)
	}
	return nil
}
