//go:build linux

package nl

import (
	"fmt"

	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/sys/unix"
)

// receive reassembles the reply stream for the request in flight. Datagrams
// are appended to a growable buffer and complete frames are drained from its
// front. The loop terminates on a Done marker, an error frame, a non-multipart
// inner message, or an unrecoverable parse failure of the buffer itself.
func (c *Conn) receive() ([]Message, error) {
	results := make([]Message, 0)
	buf := make([]byte, 0, initialReaderCapacity)
	scratch := make([]byte, initialReaderCapacity)

	for {
		n, err := c.sock.Receive(scratch)
		if err != nil {
			return nil, fmt.Errorf("netlink receive: %w", err)
		}
		buf = append(buf, scratch[:n]...)

		for len(buf) > 0 {
			msg, advance, err := extractFrame(buf)
			if err != nil {
				// The length field cannot be trusted, so the start of the
				// next frame is unknowable. Drop the buffer and hand back
				// what already arrived. The loss is logged and counted
				// because the caller only sees fewer results.
				getMetrics().discardedBytesTotal.Add(float64(len(buf)))
				c.log.Error("netlink: discarding receive buffer, cannot resynchronize",
					"error", err, "bytes", len(buf), "seq", c.seq)
				return results, nil
			}
			buf = buf[advance:]

			done, err := c.classify(msg, &results)
			if err != nil {
				return nil, err
			}
			if done {
				return results, nil
			}
		}
	}
}

// classify applies one reply frame to the session. It reports whether the
// exchange is complete.
func (c *Conn) classify(msg Message, results *[]Message) (bool, error) {
	getMetrics().framesTotal.Inc()

	if msg.Seq != c.seq {
		if msg.Seq < c.seq {
			// Stale duplicate from an earlier exchange on this socket.
			getMetrics().staleFramesTotal.Inc()
			c.log.Debug("netlink: discarding stale frame", "seq", msg.Seq, "want", c.seq)
			return false, nil
		}
		return false, &SequenceMismatchError{Got: msg.Seq, Want: c.seq}
	}

	switch msg.Type {
	case unix.NLMSG_DONE:
		return true, nil

	case unix.NLMSG_ERROR:
		if len(msg.Data) < 4 {
			return false, fmt.Errorf("netlink: error frame too short (%d bytes)", len(msg.Data))
		}
		code := nlenc.Int32(msg.Data[0:4])
		if code == 0 {
			// An empty error frame is the kernel's acknowledgement.
			return true, nil
		}
		return false, errnoToError(code)

	case unix.NLMSG_NOOP, unix.NLMSG_OVERRUN:
		return false, fmt.Errorf("netlink: payload type %d: %w", msg.Type, ErrUnimplemented)

	default:
		if msg.Type < unix.NLMSG_MIN_TYPE {
			return false, fmt.Errorf("netlink: control payload type %d: %w", msg.Type, ErrUnimplemented)
		}
		*results = append(*results, msg)
		if msg.Flags&unix.NLM_F_MULTI == 0 {
			// Single-reply request: done without waiting for a Done marker.
			return true, nil
		}
		return false, nil
	}
}
