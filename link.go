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

// rtextFilterVF is RTEXT_FILTER_VF from linux/rtnetlink.h, which
// golang.org/x/sys/unix does not export.
const rtextFilterVF = 1 << 0

// OperState is the RFC 2863 operational state reported by the kernel.
type OperState uint8

const (
	OperUnknown OperState = iota
	OperNotPresent
	OperDown
	OperLowerLayerDown
	OperTesting
	OperDormant
	OperUp
)

func (s OperState) String() string {
	switch s {
	case OperNotPresent:
		return "not-present"
	case OperDown:
		return "down"
	case OperLowerLayerDown:
		return "lower-layer-down"
	case OperTesting:
		return "testing"
	case OperDormant:
		return "dormant"
	case OperUp:
		return "up"
	default:
		return "unknown"
	}
}

// LinkStats64 is the kernel's 64-bit interface statistics block.
type LinkStats64 struct {
	RxPackets         uint64
	TxPackets         uint64
	RxBytes           uint64
	TxBytes           uint64
	RxErrors          uint64
	TxErrors          uint64
	RxDropped         uint64
	TxDropped         uint64
	Multicast         uint64
	Collisions        uint64
	RxLengthErrors    uint64
	RxOverErrors      uint64
	RxCRCErrors       uint64
	RxFrameErrors     uint64
	RxFifoErrors      uint64
	RxMissedErrors    uint64
	TxAbortedErrors   uint64
	TxCarrierErrors   uint64
	TxFifoErrors      uint64
	TxHeartbeatErrors uint64
	TxWindowErrors    uint64
	RxCompressed      uint64
	TxCompressed      uint64
	RxNohandler       uint64
}

// parseStats64 fills as many counters as the block carries; older kernels
// send a shorter struct.
func parseStats64(b []byte) *LinkStats64 {
	s := &LinkStats64{}
	fields := []*uint64{
		&s.RxPackets, &s.TxPackets, &s.RxBytes, &s.TxBytes,
		&s.RxErrors, &s.TxErrors, &s.RxDropped, &s.TxDropped,
		&s.Multicast, &s.Collisions,
		&s.RxLengthErrors, &s.RxOverErrors, &s.RxCRCErrors, &s.RxFrameErrors,
		&s.RxFifoErrors, &s.RxMissedErrors,
		&s.TxAbortedErrors, &s.TxCarrierErrors, &s.TxFifoErrors,
		&s.TxHeartbeatErrors, &s.TxWindowErrors,
		&s.RxCompressed, &s.TxCompressed, &s.RxNohandler,
	}
	for i, f := range fields {
		off := i * 8
		if off+8 > len(b) {
			break
		}
		*f = nlenc.Uint64(b[off : off+8])
	}
	return s
}

// LinkAttrs holds the fields common to every link kind. On create, zero
// values mean "leave unset" and are not transmitted.
type LinkAttrs struct {
	Index        uint32
	MTU          uint32
	TxQLen       uint32
	Name         string
	HardwareAddr net.HardwareAddr
	Flags        uint32 // requested IFF_* bits on create/modify
	RawFlags     uint32 // kernel-reported IFF_* bits on decode
	ParentIndex  uint32
	MasterIndex  uint32
	Namespace    *Namespace
	Alias        string
	Statistics   *LinkStats64
	Promisc      bool
	Allmulti     bool
	Multi        bool
	EncapType    string
	OperState    OperState
	PhysSwitchID uint32
	NetNsID      int32 // -1 when the kernel did not report one
	NumTxQueues  uint32
	NumRxQueues  uint32
	GSOMaxSize   uint32
	GSOMaxSegs   uint32
	Group        uint32
}

// Link is one network interface. Exactly one Kind applies; it is only known
// after a full decode and defaults to Device when the kernel reports none.
type Link struct {
	Attrs LinkAttrs
	Kind  LinkKind
}

// encodeIfInfomsg builds the fixed ifinfomsg header of link messages.
func encodeIfInfomsg(family uint8, typ uint16, index, flags, change uint32) []byte {
	b := make([]byte, unix.SizeofIfInfomsg)
	b[0] = family
	nlenc.PutUint16(b[2:4], typ)
	nlenc.PutUint32(b[4:8], index)
	nlenc.PutUint32(b[8:12], flags)
	nlenc.PutUint32(b[12:16], change)
	return b
}

// encapType names the link-layer type code of the ifinfomsg header.
func encapType(linkLayerType uint16) string {
	switch linkLayerType {
	case unix.ARPHRD_ETHER:
		return "ether"
	case unix.ARPHRD_LOOPBACK:
		return "loopback"
	case unix.ARPHRD_NONE:
		return "none"
	case unix.ARPHRD_VOID:
		return "void"
	case unix.ARPHRD_TUNNEL:
		return "ipip"
	case unix.ARPHRD_TUNNEL6:
		return "tunnel6"
	case unix.ARPHRD_SIT:
		return "sit"
	case unix.ARPHRD_IPGRE:
		return "gre"
	case unix.ARPHRD_PPP:
		return "ppp"
	case unix.ARPHRD_INFINIBAND:
		return "infiniband"
	case unix.ARPHRD_IEEE80211:
		return "ieee802.11"
	default:
		return "generic"
	}
}

// LinkByIndex looks a link up by kernel index. It returns nil when nothing
// matched.
func LinkByIndex(index uint32) (*Link, error) {
	msg := nl.Message{
		Type: unix.RTM_GETLINK,
		Data: encodeIfInfomsg(unix.AF_UNSPEC, 0, index, 0, 0),
	}
	replies, err := execute(msg)
	if err != nil {
		return nil, err
	}
	return linkFromReplies(replies, fmt.Sprintf("ifindex %d", index))
}

// LinkByName looks a link up by interface name. It returns nil when nothing
// matched and an AmbiguousLookupError when more than one link did.
func LinkByName(name string) (*Link, error) {
	if name == "" {
		return nil, errors.New("netlink-ng: link name must not be empty")
	}
	ae := nl.NewAttrEncoder()
	ae.Uint32(unix.IFLA_EXT_MASK, rtextFilterVF)
	ae.String(unix.IFLA_IFNAME, name)
	attrs, err := ae.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode link lookup: %w", err)
	}
	msg := nl.Message{
		Type: unix.RTM_GETLINK,
		Data: append(encodeIfInfomsg(unix.AF_UNSPEC, 0, 0, 0, 0), attrs...),
	}
	replies, err := execute(msg)
	if err != nil {
		return nil, err
	}
	return linkFromReplies(replies, name)
}

func linkFromReplies(replies []nl.Message, query string) (*Link, error) {
	if len(replies) == 0 {
		return nil, nil
	}
	if len(replies) > 1 {
		return nil, &AmbiguousLookupError{Query: query, Matches: len(replies)}
	}
	return linkDeserialize(replies[0])
}

// LinkList returns every link in the current namespace.
func LinkList() ([]*Link, error) {
	msg := nl.Message{
		Type:  unix.RTM_GETLINK,
		Flags: unix.NLM_F_DUMP,
		Data:  encodeIfInfomsg(unix.AF_UNSPEC, 0, 0, 0, 0),
	}
	replies, err := execute(msg)
	if err != nil {
		return nil, err
	}
	links := make([]*Link, 0, len(replies))
	for _, m := range replies {
		link, err := linkDeserialize(m)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, nil
}

// LinkAdd creates the link. The name must be set and the kind variant fully
// populated; ErrExists surfaces when the name is taken.
func LinkAdd(link *Link) error {
	return linkModify(link, unix.NLM_F_CREATE|unix.NLM_F_EXCL|unix.NLM_F_ACK)
}

// LinkDel deletes the link. A name that no longer resolves counts as
// success; a kernel-side NotFound on the delete itself still surfaces.
func LinkDel(id LinkID) error {
	index, err := id.Resolve()
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	msg := nl.Message{
		Type: unix.RTM_DELLINK,
		Data: encodeIfInfomsg(unix.AF_UNSPEC, 0, index, 0, 0),
	}
	_, err = execute(msg)
	return err
}

// LinkSetUp brings the link administratively up.
func LinkSetUp(id LinkID) error {
	index, err := id.Resolve()
	if err != nil {
		return err
	}
	msg := nl.Message{
		Type:  unix.RTM_SETLINK,
		Flags: unix.NLM_F_ACK | unix.NLM_F_EXCL | unix.NLM_F_CREATE,
		Data:  encodeIfInfomsg(unix.AF_UNSPEC, 0, index, unix.IFF_UP, unix.IFF_UP),
	}
	_, err = execute(msg)
	return err
}

// LinkSetDown brings the link administratively down.
func LinkSetDown(id LinkID) error {
	index, err := id.Resolve()
	if err != nil {
		return err
	}
	msg := nl.Message{
		Type: unix.RTM_SETLINK,
		Data: encodeIfInfomsg(unix.AF_UNSPEC, 0, index, 0, unix.IFF_UP),
	}
	_, err = execute(msg)
	return err
}

// LinkSetMTU changes the link MTU.
func LinkSetMTU(id LinkID, mtu uint32) error {
	index, err := id.Resolve()
	if err != nil {
		return err
	}
	ae := nl.NewAttrEncoder()
	ae.Uint32(unix.IFLA_MTU, mtu)
	attrs, err := ae.Encode()
	if err != nil {
		return fmt.Errorf("encode mtu: %w", err)
	}
	msg := nl.Message{
		Type: unix.RTM_SETLINK,
		Data: append(encodeIfInfomsg(unix.AF_UNSPEC, 0, index, 0, 0), attrs...),
	}
	_, err = execute(msg)
	return err
}

// LinkSetMaster enslaves the link to master (e.g. attaches a port to a
// bridge). Equivalent to `ip link set $link master $master`.
func LinkSetMaster(id, master LinkID) error {
	masterIndex, err := master.Resolve()
	if err != nil {
		return err
	}
	return linkSetMasterByIndex(id, masterIndex)
}

func linkSetMasterByIndex(id LinkID, masterIndex uint32) error {
	index, err := id.Resolve()
	if err != nil {
		return err
	}
	ae := nl.NewAttrEncoder()
	ae.Uint32(unix.IFLA_MASTER, masterIndex)
	attrs, err := ae.Encode()
	if err != nil {
		return fmt.Errorf("encode master: %w", err)
	}
	msg := nl.Message{
		Type: unix.RTM_SETLINK,
		Data: append(encodeIfInfomsg(unix.AF_UNSPEC, 0, index, 0, 0), attrs...),
	}
	_, err = execute(msg)
	return err
}

// LinkSetPromiscOn enables promiscuous mode on the link.
func LinkSetPromiscOn(id LinkID) error {
	index, err := id.Resolve()
	if err != nil {
		return err
	}
	msg := nl.Message{
		Type: unix.RTM_SETLINK,
		Data: encodeIfInfomsg(unix.AF_UNSPEC, 0, index, unix.IFF_PROMISC, unix.IFF_PROMISC),
	}
	_, err = execute(msg)
	return err
}

// requestedFlags is the subset of interface flags a create/modify request
// may ask for. Flags outside the requested set keep their kernel-side value:
// the change mask only covers what the caller asked to touch.
var requestedFlags = []uint32{
	unix.IFF_UP,
	unix.IFF_BROADCAST,
	unix.IFF_LOOPBACK,
	unix.IFF_POINTOPOINT,
	unix.IFF_MULTICAST,
}

// newLinkModifyMsg builds the create/modify request for a link. Only
// non-default attributes are emitted; zero means "do not include", never
// "set to zero".
func newLinkModifyMsg(link *Link, flags uint16) (nl.Message, error) {
	base := &link.Attrs

	var hdrFlags, change uint32
	for _, f := range requestedFlags {
		if base.Flags&f != 0 {
			hdrFlags |= f
			change |= f
		}
	}

	ae := nl.NewAttrEncoder()
	ae.String(unix.IFLA_IFNAME, base.Name)
	if base.MTU > 0 {
		ae.Uint32(unix.IFLA_MTU, base.MTU)
	}
	if base.TxQLen > 0 {
		ae.Uint32(unix.IFLA_TXQLEN, base.TxQLen)
	}
	if len(base.HardwareAddr) > 0 {
		ae.Bytes(unix.IFLA_ADDRESS, base.HardwareAddr)
	}
	if base.NumTxQueues > 0 {
		ae.Uint32(unix.IFLA_NUM_TX_QUEUES, base.NumTxQueues)
	}
	if base.NumRxQueues > 0 {
		ae.Uint32(unix.IFLA_NUM_RX_QUEUES, base.NumRxQueues)
	}
	if base.GSOMaxSegs > 0 {
		ae.Uint32(unix.IFLA_GSO_MAX_SEGS, base.GSOMaxSegs)
	}
	if base.GSOMaxSize > 0 {
		ae.Uint32(unix.IFLA_GSO_MAX_SIZE, base.GSOMaxSize)
	}
	if base.Group > 0 {
		ae.Uint32(unix.IFLA_GROUP, base.Group)
	}
	if base.Namespace != nil {
		base.Namespace.encode(ae)
	}

	if err := encodeLinkKind(ae, link); err != nil {
		return nl.Message{}, err
	}

	attrs, err := ae.Encode()
	if err != nil {
		return nl.Message{}, fmt.Errorf("encode link attributes: %w", err)
	}
	return nl.Message{
		Type:  unix.RTM_NEWLINK,
		Flags: flags,
		Data:  append(encodeIfInfomsg(unix.AF_UNSPEC, 0, base.Index, hdrFlags, change), attrs...),
	}, nil
}

func linkModify(link *Link, flags uint16) error {
	msg, err := newLinkModifyMsg(link, flags)
	if err != nil {
		return err
	}
	_, err = execute(msg)
	return err
}

// linkDeserialize reconstructs a Link from one reply envelope.
func linkDeserialize(msg nl.Message) (*Link, error) {
	if len(msg.Data) < unix.SizeofIfInfomsg {
		return nil, fmt.Errorf("link message too short (%d bytes)", len(msg.Data))
	}
	linkLayerType := nlenc.Uint16(msg.Data[2:4])
	index := nlenc.Uint32(msg.Data[4:8])
	rawFlags := nlenc.Uint32(msg.Data[8:12])

	base := LinkAttrs{
		Index:     index,
		RawFlags:  rawFlags,
		EncapType: encapType(linkLayerType),
		NetNsID:   -1,
		Promisc:   rawFlags&unix.IFF_PROMISC != 0,
		Allmulti:  rawFlags&unix.IFF_ALLMULTI != 0,
		Multi:     rawFlags&unix.IFF_MULTICAST != 0,
	}

	var kind LinkKind
	err := nl.ForEachAttr(msg.Data[unix.SizeofIfInfomsg:], func(typ uint16, data []byte) error {
		switch typ {
		case unix.IFLA_IFNAME:
			base.Name = nlenc.String(data)
		case unix.IFLA_ADDRESS:
			// Anything that is not a 6-byte MAC becomes the zero address.
			base.HardwareAddr = make(net.HardwareAddr, 6)
			if len(data) == 6 {
				copy(base.HardwareAddr, data)
			}
		case unix.IFLA_MTU:
			base.MTU = nlenc.Uint32(data)
		case unix.IFLA_LINK:
			base.ParentIndex = nlenc.Uint32(data)
		case unix.IFLA_MASTER:
			base.MasterIndex = nlenc.Uint32(data)
		case unix.IFLA_TXQLEN:
			base.TxQLen = nlenc.Uint32(data)
		case unix.IFLA_IFALIAS:
			base.Alias = nlenc.String(data)
		case unix.IFLA_STATS64:
			base.Statistics = parseStats64(data)
		case unix.IFLA_OPERSTATE:
			if len(data) > 0 {
				base.OperState = OperState(data[0])
			}
		case unix.IFLA_PHYS_SWITCH_ID:
			if len(data) == 4 {
				base.PhysSwitchID = nlenc.Uint32(data)
			}
		case unix.IFLA_LINK_NETNSID:
			base.NetNsID = nlenc.Int32(data)
		case unix.IFLA_GSO_MAX_SEGS:
			base.GSOMaxSegs = nlenc.Uint32(data)
		case unix.IFLA_GSO_MAX_SIZE:
			base.GSOMaxSize = nlenc.Uint32(data)
		case unix.IFLA_NUM_TX_QUEUES:
			base.NumTxQueues = nlenc.Uint32(data)
		case unix.IFLA_NUM_RX_QUEUES:
			base.NumRxQueues = nlenc.Uint32(data)
		case unix.IFLA_GROUP:
			base.Group = nlenc.Uint32(data)
		case unix.IFLA_LINKINFO:
			k, err := decodeLinkInfo(data)
			if err != nil {
				return err
			}
			kind = k
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if kind == nil {
		kind = &Device{}
	}
	return &Link{Attrs: base, Kind: kind}, nil
}
