//go:build linux

package netlinkng

import (
	"fmt"

	"github.com/mdlayher/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
)

type nsKind int

const (
	nsNone nsKind = iota
	nsPID
	nsFD
)

// Namespace identifies a network namespace a link should be moved into,
// either by the pid of a process inside it or by an open namespace file
// descriptor. It is an input only; this package never persists one.
type Namespace struct {
	kind   nsKind
	pid    uint32
	fd     int
	opened bool
}

// NamespacePID references the namespace of the given process.
func NamespacePID(pid uint32) *Namespace {
	return &Namespace{kind: nsPID, pid: pid}
}

// NamespaceFD references a namespace by an already-open file descriptor.
// The caller keeps ownership of the descriptor and must keep it open until
// the request using it has completed.
func NamespaceFD(fd int) *Namespace {
	return &Namespace{kind: nsFD, fd: fd}
}

// NamespaceFromName opens the named namespace under /var/run/netns. The
// returned Namespace owns the descriptor; release it with Close once the
// request has completed.
func NamespaceFromName(name string) (*Namespace, error) {
	handle, err := netns.GetFromName(name)
	if err != nil {
		return nil, fmt.Errorf("open network namespace %q: %w", name, err)
	}
	return &Namespace{kind: nsFD, fd: int(handle), opened: true}, nil
}

// Close releases the namespace descriptor if this package opened it.
func (ns *Namespace) Close() error {
	if !ns.opened || ns.fd < 0 {
		return nil
	}
	err := unix.Close(ns.fd)
	ns.fd = -1
	return err
}

// encode appends the namespace target attribute.
func (ns *Namespace) encode(ae *netlink.AttributeEncoder) {
	switch ns.kind {
	case nsPID:
		ae.Uint32(unix.IFLA_NET_NS_PID, ns.pid)
	case nsFD:
		ae.Uint32(unix.IFLA_NET_NS_FD, uint32(ns.fd))
	}
}
