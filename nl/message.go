//go:build linux

package nl

import (
	"errors"

	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/sys/unix"
)

// Message is one netlink envelope: the nlmsghdr fields plus the payload.
// Length is implied by Data and is filled in on the wire by marshal.
type Message struct {
	Type  uint16
	Flags uint16
	Seq   uint32
	PID   uint32
	Data  []byte
}

var (
	errTruncatedHeader = errors.New("truncated netlink header")
	errInvalidLength   = errors.New("invalid netlink length field")
)

// nlmsgAlign rounds n up to the 4-byte netlink message boundary.
func nlmsgAlign(n int) int {
	return (n + unix.NLMSG_ALIGNTO - 1) &^ (unix.NLMSG_ALIGNTO - 1)
}

// marshal serializes the envelope, padding the frame to the message
// alignment boundary.
func (m Message) marshal() []byte {
	length := unix.NLMSG_HDRLEN + len(m.Data)
	b := make([]byte, nlmsgAlign(length))
	nlenc.PutUint32(b[0:4], uint32(length))
	nlenc.PutUint16(b[4:6], m.Type)
	nlenc.PutUint16(b[6:8], m.Flags)
	nlenc.PutUint32(b[8:12], m.Seq)
	nlenc.PutUint32(b[12:16], m.PID)
	copy(b[unix.NLMSG_HDRLEN:], m.Data)
	return b
}

// extractFrame parses one complete frame from the front of buf and reports
// how many bytes the frame (including alignment padding) consumed. An error
// means the declared length cannot be trusted: the caller cannot find the
// start of the next frame and must discard the whole buffer.
func extractFrame(buf []byte) (Message, int, error) {
	if len(buf) < unix.NLMSG_HDRLEN {
		return Message{}, 0, errTruncatedHeader
	}
	length := int(nlenc.Uint32(buf[0:4]))
	if length < unix.NLMSG_HDRLEN || length > len(buf) {
		return Message{}, 0, errInvalidLength
	}
	m := Message{
		Type:  nlenc.Uint16(buf[4:6]),
		Flags: nlenc.Uint16(buf[6:8]),
		Seq:   nlenc.Uint32(buf[8:12]),
		PID:   nlenc.Uint32(buf[12:16]),
		Data:  buf[unix.NLMSG_HDRLEN:length],
	}
	advance := nlmsgAlign(length)
	if advance > len(buf) {
		advance = len(buf)
	}
	return m, advance, nil
}
