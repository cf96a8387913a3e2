//go:build linux

package netlinkng

import (
	"errors"
	"fmt"
	"net"

	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/sys/unix"

	"github.com/arthur-zhang/netlink-ng/nl"
)

// Addr is one IP address assigned to a link. IPNet is the primary address;
// Peer is set only for point-to-point addressing.
type Addr struct {
	IPNet     *net.IPNet
	Label     string
	Flags     uint32
	Scope     uint8
	Peer      *net.IPNet
	Broadcast net.IP
	LinkIndex uint32
}

// Equal reports whether two addresses name the same network.
func (a *Addr) Equal(other *Addr) bool {
	return a.IPNet.IP.Equal(other.IPNet.IP) &&
		a.IPNet.Mask.String() == other.IPNet.Mask.String()
}

func (a *Addr) String() string {
	return a.IPNet.String()
}

// AddrAdd assigns the address to the link.
func AddrAdd(id LinkID, addr *Addr) error {
	return addrHandle(id, addr, unix.RTM_NEWADDR, unix.NLM_F_ACK)
}

// AddrDel removes the address from the link.
func AddrDel(id LinkID, addr *Addr) error {
	return addrHandle(id, addr, unix.RTM_DELADDR, unix.NLM_F_ACK)
}

// AddrGet is not built; use AddrList and filter.
func AddrGet(LinkID, *Addr) (*Addr, error) {
	return nil, fmt.Errorf("address get: %w", ErrUnimplemented)
}

// AddrChange is not built; delete and re-add instead.
func AddrChange(LinkID, *Addr) error {
	return fmt.Errorf("address change: %w", ErrUnimplemented)
}

// encodeIfAddrmsg builds the fixed ifaddrmsg header of address messages.
func encodeIfAddrmsg(family, prefixLen, flags, scope uint8, index uint32) []byte {
	b := make([]byte, unix.SizeofIfAddrmsg)
	b[0] = family
	b[1] = prefixLen
	b[2] = flags
	b[3] = scope
	nlenc.PutUint32(b[4:8], index)
	return b
}

func addrHandle(id LinkID, addr *Addr, msgType uint16, flags uint16) error {
	index, err := id.Resolve()
	if err != nil {
		return err
	}
	msg, err := newAddrMsg(index, addr, msgType, flags)
	if err != nil {
		return err
	}
	_, err = execute(msg)
	return err
}

func newAddrMsg(index uint32, addr *Addr, msgType uint16, flags uint16) (nl.Message, error) {
	if addr.IPNet == nil {
		return nl.Message{}, errors.New("netlink-ng: address has no network")
	}

	// The transmitted prefix length comes from the peer's mask when a peer
	// network is given, otherwise from the address's own mask.
	mask := addr.IPNet.Mask
	if addr.Peer != nil {
		mask = addr.Peer.Mask
	}
	prefixLen, _ := mask.Size()

	family := ipFamily(addr.IPNet.IP)
	local := ipToBytes(addr.IPNet.IP)
	dst := local
	if addr.Peer != nil {
		dst = ipToBytes(addr.Peer.IP)
	}

	ae := nl.NewAttrEncoder()
	// Local and destination are both always present; they carry the same
	// bytes when there is no peer.
	ae.Bytes(unix.IFA_LOCAL, local)
	ae.Bytes(unix.IFA_ADDRESS, dst)

	if family == FamilyV4 {
		broadcast := addr.Broadcast
		if broadcast == nil && prefixLen < 31 {
			broadcast = broadcastAddr(addr.IPNet)
		}
		if broadcast != nil {
			ae.Bytes(unix.IFA_BROADCAST, ipToBytes(broadcast))
		}
	}
	if addr.Label != "" {
		ae.String(unix.IFA_LABEL, addr.Label)
	}

	attrs, err := ae.Encode()
	if err != nil {
		return nl.Message{}, fmt.Errorf("encode address attributes: %w", err)
	}
	return nl.Message{
		Type:  msgType,
		Flags: flags,
		Data:  append(encodeIfAddrmsg(family, uint8(prefixLen), 0, addr.Scope, index), attrs...),
	}, nil
}

// AddrList returns the addresses of one link, optionally restricted to a
// family. FamilyAll lists both IPv4 and IPv6.
func AddrList(id LinkID, family Family) ([]*Addr, error) {
	index, err := id.Resolve()
	if err != nil {
		return nil, err
	}
	msg := nl.Message{
		Type:  unix.RTM_GETADDR,
		Flags: unix.NLM_F_DUMP,
		Data:  encodeIfAddrmsg(family, 0, 0, 0, 0),
	}
	replies, err := execute(msg)
	if err != nil {
		return nil, err
	}
	addrs := make([]*Addr, 0, len(replies))
	for _, m := range replies {
		if m.Type != unix.RTM_NEWADDR {
			continue
		}
		addr, err := addrDeserialize(m)
		if err != nil {
			return nil, err
		}
		if addr.LinkIndex != index {
			continue
		}
		if family != FamilyAll && ipFamily(addr.IPNet.IP) != family {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// addrDeserialize reconstructs an Addr from one reply envelope. IPv4
// replies carry identical local and destination values for plain
// addressing; differing values mean point-to-point, with "local" primary
// and "destination" as the peer.
func addrDeserialize(msg nl.Message) (*Addr, error) {
	if len(msg.Data) < unix.SizeofIfAddrmsg {
		return nil, fmt.Errorf("address message too short (%d bytes)", len(msg.Data))
	}
	family := msg.Data[0]
	prefixLen := int(msg.Data[1])
	addr := &Addr{
		Scope:     msg.Data[3],
		LinkIndex: nlenc.Uint32(msg.Data[4:8]),
	}

	var local, dst *net.IPNet
	err := nl.ForEachAttr(msg.Data[unix.SizeofIfAddrmsg:], func(typ uint16, data []byte) error {
		switch typ {
		case unix.IFA_ADDRESS:
			ip, err := bytesToIP(data, family)
			if err != nil {
				return err
			}
			dst = &net.IPNet{IP: ip, Mask: net.CIDRMask(prefixLen, len(data)*8)}
		case unix.IFA_LOCAL:
			ip, err := bytesToIP(data, family)
			if err != nil {
				return err
			}
			bits := len(data) * 8
			local = &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
		case unix.IFA_LABEL:
			addr.Label = nlenc.String(data)
		case unix.IFA_BROADCAST:
			ip, err := bytesToIP(data, family)
			if err != nil {
				return err
			}
			addr.Broadcast = ip
		case unix.IFA_FLAGS:
			addr.Flags = nlenc.Uint32(data)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case local != nil && family == FamilyV4 && dst != nil && dst.IP.Equal(local.IP):
		addr.IPNet = dst
	case local != nil:
		addr.IPNet = local
		addr.Peer = dst
	case dst != nil:
		addr.IPNet = dst
	default:
		return nil, errors.New("address message carries no address")
	}
	return addr, nil
}
