//go:build linux

package nl

import (
	"os"

	"golang.org/x/sys/unix"
)

// routeSocket is the real NETLINK_ROUTE datagram socket.
type routeSocket struct {
	fd int
}

func dialRoute() (Socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	return &routeSocket{fd: fd}, nil
}

func (s *routeSocket) Send(b []byte) error {
	return os.NewSyscallError("sendto",
		unix.Sendto(s.fd, b, 0, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}))
}

func (s *routeSocket) Receive(b []byte) (int, error) {
	n, _, err := unix.Recvfrom(s.fd, b, 0)
	if err != nil {
		return 0, os.NewSyscallError("recvfrom", err)
	}
	return n, nil
}

func (s *routeSocket) Close() error {
	return os.NewSyscallError("close", unix.Close(s.fd))
}
