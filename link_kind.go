//go:build linux

package netlinkng

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/sys/unix"

	"github.com/arthur-zhang/netlink-ng/nl"
)

// Attribute types nested under IFLA_LINKINFO and the per-kind data blocks.
// From linux/if_link.h and linux/veth.h.
const (
	iflaInfoKind = 1
	iflaInfoData = 2

	vethInfoPeer = 1

	iflaBrAgeingTime      = 4
	iflaBrVlanFiltering   = 7
	iflaBrMcastSnooping   = 23
	iflaBrVlanDefaultPVID = 39

	iflaVxlanID            = 1
	iflaVxlanGroup         = 2
	iflaVxlanLink          = 3
	iflaVxlanLocal         = 4
	iflaVxlanTTL           = 5
	iflaVxlanTOS           = 6
	iflaVxlanLearning      = 7
	iflaVxlanAgeing        = 8
	iflaVxlanLimit         = 9
	iflaVxlanPortRange     = 10
	iflaVxlanProxy         = 11
	iflaVxlanRSC           = 12
	iflaVxlanL2Miss        = 13
	iflaVxlanL3Miss        = 14
	iflaVxlanPort          = 15
	iflaVxlanGroup6        = 16
	iflaVxlanLocal6        = 17
	iflaVxlanUDPCSum       = 18
	iflaVxlanZeroCSum6Tx   = 19
	iflaVxlanZeroCSum6Rx   = 20
	iflaVxlanGBP           = 23
	iflaVxlanFlowBased     = 25
	iflaVxlanGPE           = 27
)

// LinkKind is the closed set of link device classes this package knows how
// to describe. The sum is sealed: every variant lives in this file, and both
// the encode and decode sides switch over the full set. A kernel kind
// outside the set decodes to ErrUnimplemented rather than a guessed variant.
type LinkKind interface {
	kindName() string
}

// Device is a plain physical or otherwise pre-existing interface. It cannot
// be created, only observed.
type Device struct{}

func (*Device) kindName() string { return "device" }

// Dummy is a software loopback-style interface with no nested options.
type Dummy struct{}

func (*Dummy) kindName() string { return "dummy" }

// Veth is one end of a virtual ethernet pair. The peer inherits the queue
// length, MTU, and queue counts of the primary end.
type Veth struct {
	PeerName         string
	PeerHardwareAddr net.HardwareAddr
	PeerNamespace    *Namespace
}

func (*Veth) kindName() string { return "veth" }

// Bridge is an 802.1d software bridge. Nil fields keep the kernel default.
type Bridge struct {
	MulticastSnooping *bool
	AgeingTime        *uint32
	HelloTime         *uint32
	VlanFiltering     *bool
	VlanDefaultPVID   *uint16
}

func (*Bridge) kindName() string { return "bridge" }

// Vxlan is a MAC-in-UDP tunnel endpoint. Zero-valued fields are omitted
// from the request; boolean features are sent only when enabled.
type Vxlan struct {
	ID             uint32
	VtepDevIndex   uint32
	SrcAddr        net.IP
	Group          net.IP
	TTL            uint8
	TOS            uint8
	Learning       bool
	Proxy          bool
	RSC            bool
	L2Miss         bool
	L3Miss         bool
	UDPCSum        bool
	UDP6ZeroCSumTx bool
	UDP6ZeroCSumRx bool
	GBP            bool
	FlowBased      bool
	GPE            bool
	NoAge          bool
	Age            uint32
	Limit          uint32
	Port           uint16
	PortLow        uint16
	PortHigh       uint16
}

func (*Vxlan) kindName() string { return "vxlan" }

// Tuntap is a tun/tap character device interface. Creation goes through
// /dev/net/tun ioctls rather than this protocol, so only decode is
// supported.
type Tuntap struct{}

func (*Tuntap) kindName() string { return "tuntap" }

// encodeLinkKind appends IFLA_LINKINFO with the kind tag and, per variant,
// the nested data block.
func encodeLinkKind(ae *netlink.AttributeEncoder, link *Link) error {
	switch kind := link.Kind.(type) {
	case *Dummy:
		ae.Nested(unix.IFLA_LINKINFO, func(nae *netlink.AttributeEncoder) error {
			nae.String(iflaInfoKind, "dummy")
			return nil
		})
		return nil
	case *Veth:
		peer, err := encodeVethPeer(kind, &link.Attrs)
		if err != nil {
			return err
		}
		ae.Nested(unix.IFLA_LINKINFO, func(nae *netlink.AttributeEncoder) error {
			nae.String(iflaInfoKind, "veth")
			nae.Bytes(vethInfoPeer, peer)
			return nil
		})
		return nil
	case *Bridge:
		ae.Nested(unix.IFLA_LINKINFO, func(nae *netlink.AttributeEncoder) error {
			nae.String(iflaInfoKind, "bridge")
			if bridgeHasOptions(kind) {
				nae.Nested(iflaInfoData, func(dae *netlink.AttributeEncoder) error {
					encodeBridgeData(dae, kind)
					return nil
				})
			}
			return nil
		})
		return nil
	case *Vxlan:
		ae.Nested(unix.IFLA_LINKINFO, func(nae *netlink.AttributeEncoder) error {
			nae.String(iflaInfoKind, "vxlan")
			nae.Nested(iflaInfoData, func(dae *netlink.AttributeEncoder) error {
				return encodeVxlanData(dae, kind)
			})
			return nil
		})
		return nil
	case *Device:
		return fmt.Errorf("create device link: %w", ErrUnimplemented)
	case *Tuntap:
		return fmt.Errorf("create tuntap link: %w", ErrUnimplemented)
	default:
		return fmt.Errorf("create %s link: %w", link.Kind.kindName(), ErrUnimplemented)
	}
}

// encodeVethPeer builds the nested peer envelope: a full link message
// (fixed header plus attributes) carried as the value of VETH_INFO_PEER.
func encodeVethPeer(veth *Veth, base *LinkAttrs) ([]byte, error) {
	pae := nl.NewAttrEncoder()
	pae.String(unix.IFLA_IFNAME, veth.PeerName)
	pae.Uint32(unix.IFLA_TXQLEN, base.TxQLen)
	if base.NumTxQueues > 0 {
		pae.Uint32(unix.IFLA_NUM_TX_QUEUES, base.NumTxQueues)
	}
	if base.NumRxQueues > 0 {
		pae.Uint32(unix.IFLA_NUM_RX_QUEUES, base.NumRxQueues)
	}
	if base.MTU > 0 {
		pae.Uint32(unix.IFLA_MTU, base.MTU)
	}
	if len(veth.PeerHardwareAddr) > 0 {
		pae.Bytes(unix.IFLA_ADDRESS, veth.PeerHardwareAddr)
	}
	if veth.PeerNamespace != nil {
		veth.PeerNamespace.encode(pae)
	}
	attrs, err := pae.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode veth peer: %w", err)
	}
	return append(encodeIfInfomsg(unix.AF_UNSPEC, 0, 0, 0, 0), attrs...), nil
}

func bridgeHasOptions(b *Bridge) bool {
	return b.MulticastSnooping != nil || b.AgeingTime != nil ||
		b.VlanFiltering != nil || b.VlanDefaultPVID != nil
}

func encodeBridgeData(dae *netlink.AttributeEncoder, b *Bridge) {
	if b.MulticastSnooping != nil {
		dae.Uint8(iflaBrMcastSnooping, boolToByte(*b.MulticastSnooping))
	}
	if b.AgeingTime != nil {
		dae.Uint32(iflaBrAgeingTime, *b.AgeingTime)
	}
	if b.VlanFiltering != nil {
		dae.Uint8(iflaBrVlanFiltering, boolToByte(*b.VlanFiltering))
	}
	if b.VlanDefaultPVID != nil {
		dae.Uint16(iflaBrVlanDefaultPVID, *b.VlanDefaultPVID)
	}
}

func encodeVxlanData(dae *netlink.AttributeEncoder, v *Vxlan) error {
	dae.Uint32(iflaVxlanID, v.ID)
	if v.VtepDevIndex != 0 {
		dae.Uint32(iflaVxlanLink, v.VtepDevIndex)
	}
	if v.SrcAddr != nil {
		if v4 := v.SrcAddr.To4(); v4 != nil {
			dae.Bytes(iflaVxlanLocal, v4)
		} else {
			dae.Bytes(iflaVxlanLocal6, v.SrcAddr.To16())
		}
	}
	if v.Group != nil {
		if v4 := v.Group.To4(); v4 != nil {
			dae.Bytes(iflaVxlanGroup, v4)
		} else {
			dae.Bytes(iflaVxlanGroup6, v.Group.To16())
		}
	}
	if v.TTL > 0 {
		dae.Uint8(iflaVxlanTTL, v.TTL)
	}
	if v.TOS > 0 {
		dae.Uint8(iflaVxlanTOS, v.TOS)
	}
	if v.Learning {
		dae.Uint8(iflaVxlanLearning, 1)
	}
	if v.Proxy {
		dae.Uint8(iflaVxlanProxy, 1)
	}
	if v.RSC {
		dae.Uint8(iflaVxlanRSC, 1)
	}
	if v.L2Miss {
		dae.Uint8(iflaVxlanL2Miss, 1)
	}
	if v.L3Miss {
		dae.Uint8(iflaVxlanL3Miss, 1)
	}
	if v.UDPCSum {
		dae.Uint8(iflaVxlanUDPCSum, 1)
	}
	if v.UDP6ZeroCSumTx {
		dae.Uint8(iflaVxlanZeroCSum6Tx, 1)
	}
	if v.UDP6ZeroCSumRx {
		dae.Uint8(iflaVxlanZeroCSum6Rx, 1)
	}
	if v.GBP {
		dae.Flag(iflaVxlanGBP, true)
	}
	if v.FlowBased {
		dae.Uint8(iflaVxlanFlowBased, 1)
	}
	if v.GPE {
		dae.Flag(iflaVxlanGPE, true)
	}
	switch {
	case v.NoAge:
		dae.Uint32(iflaVxlanAgeing, 0)
	case v.Age > 0:
		dae.Uint32(iflaVxlanAgeing, v.Age)
	}
	if v.Limit > 0 {
		dae.Uint32(iflaVxlanLimit, v.Limit)
	}
	// The tunnel ports travel big-endian, unlike the rest of the family.
	if v.Port > 0 {
		port := make([]byte, 2)
		binary.BigEndian.PutUint16(port, v.Port)
		dae.Bytes(iflaVxlanPort, port)
	}
	if v.PortLow > 0 && v.PortHigh > 0 {
		rng := make([]byte, 4)
		binary.BigEndian.PutUint16(rng[0:2], v.PortLow)
		binary.BigEndian.PutUint16(rng[2:4], v.PortHigh)
		dae.Bytes(iflaVxlanPortRange, rng)
	}
	return nil
}

// decodeLinkInfo picks the LinkKind variant from the IFLA_LINKINFO block.
// Only the kind tag is interpreted; the per-kind data block is not folded
// back into the variant, so decoded kinds carry no option fields.
func decodeLinkInfo(data []byte) (LinkKind, error) {
	var kind LinkKind
	err := nl.ForEachAttr(data, func(typ uint16, value []byte) error {
		if typ != iflaInfoKind {
			return nil
		}
		name := nlenc.String(value)
		switch name {
		case "bridge":
			kind = &Bridge{}
		case "veth":
			kind = &Veth{}
		case "vxlan":
			kind = &Vxlan{}
		case "tun", "ipip":
			kind = &Tuntap{}
		case "dummy":
			kind = &Dummy{}
		default:
			return fmt.Errorf("link kind %q: %w", name, ErrUnimplemented)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if kind == nil {
		kind = &Device{}
	}
	return kind, nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
