//go:build linux

package nl

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

var (
	// ErrNotFound is returned when the kernel reports that the requested
	// object does not exist.
	ErrNotFound = errors.New("netlink: object not found")

	// ErrExists is returned when the kernel rejects a create because the
	// object is already present.
	ErrExists = errors.New("netlink: object already exists")

	// ErrUnimplemented marks operations and payload kinds this client
	// deliberately does not handle. It is always returned loudly, never
	// swallowed into a no-op.
	ErrUnimplemented = errors.New("netlink: not implemented")
)

// errnoOutcomes maps kernel status codes to their named outcomes. Codes not
// listed here surface as a ProtocolError.
var errnoOutcomes = map[unix.Errno]error{
	unix.ENODEV: ErrNotFound,
	unix.ENOENT: ErrNotFound,
	unix.EEXIST: ErrExists,
}

// errnoToError translates the (negative) status code of an error frame.
func errnoToError(code int32) error {
	errno := unix.Errno(-code)
	if outcome, ok := errnoOutcomes[errno]; ok {
		return outcome
	}
	return &ProtocolError{Errno: errno}
}

// ProtocolError is a non-zero kernel status that has no dedicated outcome.
type ProtocolError struct {
	Errno unix.Errno
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("netlink: error response: %v (errno %d)", e.Errno.Error(), uint32(e.Errno))
}

func (e *ProtocolError) Unwrap() error { return e.Errno }

// SequenceMismatchError reports a reply frame whose sequence number is newer
// than the in-flight request. Stale (older) frames are discarded silently;
// a newer one means the session state is corrupt and the call fails.
type SequenceMismatchError struct {
	Got  uint32
	Want uint32
}

func (e *SequenceMismatchError) Error() string {
	return fmt.Sprintf("netlink: sequence mismatch: got %d, want %d", e.Got, e.Want)
}
