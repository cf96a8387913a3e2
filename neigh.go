//go:build linux

package netlinkng

import (
	"fmt"
	"net"

	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/sys/unix"

	"github.com/arthur-zhang/netlink-ng/nl"
)

// Neigh is one neighbor table (ARP/NDP) entry, keyed by link index and IP.
type Neigh struct {
	LinkIndex    uint32
	Family       Family
	State        uint16
	Type         uint8
	Flags        uint8
	IP           net.IP
	HardwareAddr net.HardwareAddr
	Vlan         uint16
	VNI          uint32
	MasterIndex  uint32
}

func (n *Neigh) String() string {
	return fmt.Sprintf("%s lladdr %s dev %d", n.IP, n.HardwareAddr, n.LinkIndex)
}

// encodeNdMsg builds the fixed ndmsg header of neighbor messages.
func encodeNdMsg(family uint8, index uint32, state uint16, flags, typ uint8) []byte {
	b := make([]byte, unix.SizeofNdMsg)
	b[0] = family
	nlenc.PutUint32(b[4:8], index)
	nlenc.PutUint16(b[8:10], state)
	b[10] = flags
	b[11] = typ
	return b
}

// NeighSet installs the entry, replacing an existing one for the same key.
func NeighSet(neigh *Neigh) error {
	return NeighAdd(neigh, unix.NLM_F_CREATE|unix.NLM_F_REPLACE)
}

// NeighAdd installs the entry with caller-chosen create semantics
// (NLM_F_CREATE, NLM_F_EXCL, NLM_F_REPLACE).
func NeighAdd(neigh *Neigh, flags uint16) error {
	msg, err := newNeighMsg(neigh, flags)
	if err != nil {
		return err
	}
	_, err = execute(msg)
	return err
}

func newNeighMsg(neigh *Neigh, flags uint16) (nl.Message, error) {
	if neigh.IP == nil {
		return nl.Message{}, fmt.Errorf("netlink-ng: neighbor has no IP address")
	}
	family := neigh.Family
	if family == 0 {
		family = ipFamily(neigh.IP)
	}

	ae := nl.NewAttrEncoder()
	ae.Bytes(unix.NDA_DST, ipToBytes(neigh.IP))
	if neigh.HardwareAddr != nil {
		ae.Bytes(unix.NDA_LLADDR, neigh.HardwareAddr)
	}
	if neigh.Vlan > 0 {
		ae.Uint16(unix.NDA_VLAN, neigh.Vlan)
	}
	if neigh.VNI > 0 {
		ae.Uint32(unix.NDA_VNI, neigh.VNI)
	}
	if neigh.MasterIndex > 0 {
		ae.Uint32(unix.NDA_MASTER, neigh.MasterIndex)
	}
	attrs, err := ae.Encode()
	if err != nil {
		return nl.Message{}, fmt.Errorf("encode neighbor attributes: %w", err)
	}
	return nl.Message{
		Type:  unix.RTM_NEWNEIGH,
		Flags: flags,
		Data:  append(encodeNdMsg(family, neigh.LinkIndex, neigh.State, neigh.Flags, neigh.Type), attrs...),
	}, nil
}

// NeighList is not built.
func NeighList(LinkID, Family) ([]*Neigh, error) {
	return nil, fmt.Errorf("neighbor list: %w", ErrUnimplemented)
}

// NeighGet is not built.
func NeighGet(LinkID, net.IP) (*Neigh, error) {
	return nil, fmt.Errorf("neighbor get: %w", ErrUnimplemented)
}
