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

// Filter-mask bits for RouteListFiltered. Each bit opts one Route field
// into the match predicate; unset bits mean the field is ignored. MARK,
// MASK, and REALM have no Route field and never constrain a dump.
const (
	RT_FILTER_PROTOCOL uint64 = 1 << (iota + 1)
	RT_FILTER_SCOPE
	RT_FILTER_TYPE
	RT_FILTER_TOS
	RT_FILTER_IIF
	RT_FILTER_OIF
	RT_FILTER_DST
	RT_FILTER_SRC
	RT_FILTER_GW
	RT_FILTER_TABLE
	RT_FILTER_HOPLIMIT
	RT_FILTER_PRIORITY
	RT_FILTER_MARK
	RT_FILTER_MASK
	RT_FILTER_REALM
)

// Route is one routing table entry. Unset header fields fall back to the
// kernel defaults on add: table main, scope universe, protocol boot, type
// unicast. The metric fields from MTU down are advisory tunables; they are
// optional and currently not transmitted.
type Route struct {
	LinkIndex  uint32
	ILinkIndex uint32
	Scope      uint8
	Dst        *net.IPNet
	Src        net.IP
	Gw         net.IP
	Protocol   uint8
	Priority   uint32
	Family     Family
	Table      uint32
	Type       uint8
	Tos        uint8
	Flags      uint32
	MPLSDst    *int32

	MTU        uint32
	Window     uint32
	Rtt        uint32
	RttVar     uint32
	Ssthresh   uint32
	Cwnd       uint32
	AdvMSS     uint32
	Reordering uint32
	HopLimit   uint32
	InitCwnd   uint32
	Features   uint32
	RtoMin     uint32
	InitRwnd   uint32
	QuickAck   uint32
	CongCtl    string
}

func (r *Route) String() string {
	dst := "default"
	if r.Dst != nil {
		dst = r.Dst.String()
	}
	if r.Gw == nil {
		return fmt.Sprintf("%s dev %d", dst, r.LinkIndex)
	}
	return fmt.Sprintf("%s via %s dev %d", dst, r.Gw, r.LinkIndex)
}

// RouteAdd inserts the route, failing with ErrExists when an equal route is
// already present.
func RouteAdd(route *Route) error {
	return routeHandle(route, unix.NLM_F_CREATE|unix.NLM_F_EXCL|unix.NLM_F_ACK)
}

// RouteAddECMP inserts the route, appending a next hop when an equal-cost
// route already exists instead of failing.
func RouteAddECMP(route *Route) error {
	return routeHandle(route, unix.NLM_F_CREATE|unix.NLM_F_ACK)
}

// RouteReplace inserts the route, overwriting an existing equal route.
func RouteReplace(route *Route) error {
	return routeHandle(route, unix.NLM_F_CREATE|unix.NLM_F_REPLACE|unix.NLM_F_ACK)
}

// RouteDel is not built.
func RouteDel(*Route) error {
	return fmt.Errorf("route delete: %w", ErrUnimplemented)
}

// RouteGet is not built; use RouteListFiltered.
func RouteGet(net.IP) (*Route, error) {
	return nil, fmt.Errorf("route get: %w", ErrUnimplemented)
}

// encodeRtMsg builds the fixed rtmsg header of route messages.
func encodeRtMsg(family uint8, dstLen, tos, table, protocol, scope, typ uint8, flags uint32) []byte {
	b := make([]byte, unix.SizeofRtMsg)
	b[0] = family
	b[1] = dstLen
	b[3] = tos
	b[4] = table
	b[5] = protocol
	b[6] = scope
	b[7] = typ
	nlenc.PutUint32(b[8:12], flags)
	return b
}

func routeHandle(route *Route, flags uint16) error {
	msg, err := newRouteMsg(route, flags)
	if err != nil {
		return err
	}
	_, err = execute(msg)
	return err
}

func newRouteMsg(route *Route, flags uint16) (nl.Message, error) {
	if route.Dst == nil && route.Src == nil && route.Gw == nil && route.MPLSDst == nil {
		return nl.Message{}, errors.New("netlink-ng: route needs at least one of dst, src, gw, mpls dst")
	}

	ae := nl.NewAttrEncoder()
	var dstLen uint8
	if route.Dst != nil {
		ones, _ := route.Dst.Mask.Size()
		dstLen = uint8(ones)
		ae.Bytes(unix.RTA_DST, ipToBytes(route.Dst.IP))
	}

	// The gateway attribute is always present; an absent gateway travels as
	// the unspecified IPv4 address, which also pins the address family.
	gw := route.Gw
	if gw == nil {
		gw = net.IPv4zero
	}
	ae.Bytes(unix.RTA_GATEWAY, ipToBytes(gw))
	family := ipFamily(gw)

	table := uint8(unix.RT_TABLE_MAIN)
	if route.Table > 0 {
		if route.Table > 255 {
			table = unix.RT_TABLE_UNSPEC
			ae.Uint32(unix.RTA_TABLE, route.Table)
		} else {
			table = uint8(route.Table)
		}
	}
	ae.Uint32(unix.RTA_OIF, route.LinkIndex)
	if route.Src != nil {
		ae.Bytes(unix.RTA_PREFSRC, ipToBytes(route.Src))
	}
	if route.Priority > 0 {
		ae.Uint32(unix.RTA_PRIORITY, route.Priority)
	}

	scope := route.Scope
	if scope == 0 {
		scope = unix.RT_SCOPE_UNIVERSE
	}
	protocol := route.Protocol
	if protocol == 0 {
		protocol = unix.RTPROT_BOOT
	}
	typ := route.Type
	if typ == 0 {
		typ = unix.RTN_UNICAST
	}

	attrs, err := ae.Encode()
	if err != nil {
		return nl.Message{}, fmt.Errorf("encode route attributes: %w", err)
	}
	return nl.Message{
		Type:  unix.RTM_NEWROUTE,
		Flags: flags,
		Data:  append(encodeRtMsg(family, dstLen, route.Tos, table, protocol, scope, typ, route.Flags), attrs...),
	}, nil
}

// RouteList returns routes in the main table, optionally restricted to one
// output link.
func RouteList(link *LinkID, family Family) ([]*Route, error) {
	var filter *Route
	mask := uint64(0)
	if link != nil {
		index, err := link.Resolve()
		if err != nil {
			return nil, err
		}
		filter = &Route{LinkIndex: index}
		mask = RT_FILTER_OIF
	}
	return RouteListFiltered(family, filter, mask)
}

// RouteListFiltered dumps the routing tables and filters locally. Filter
// fields participate in matching only when their mask bit is set;
// kernel-cloned entries are always dropped, and tables other than main are
// dropped unless table filtering is requested.
func RouteListFiltered(family Family, filter *Route, mask uint64) ([]*Route, error) {
	msg := nl.Message{
		Type:  unix.RTM_GETROUTE,
		Flags: unix.NLM_F_DUMP,
		Data: encodeRtMsg(family, 0, 0,
			unix.RT_TABLE_UNSPEC, unix.RTPROT_UNSPEC, unix.RT_SCOPE_UNIVERSE, unix.RTN_UNSPEC, 0),
	}
	replies, err := execute(msg)
	if err != nil {
		return nil, err
	}
	routes := make([]*Route, 0, len(replies))
	for _, m := range replies {
		if m.Type != unix.RTM_NEWROUTE {
			continue
		}
		route, err := routeDeserialize(m)
		if err != nil {
			return nil, err
		}
		if !routeMatches(route, filter, mask) {
			continue
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// routeMatches applies the local filter predicate of a dump.
func routeMatches(route, filter *Route, mask uint64) bool {
	if route.Flags&unix.RTM_F_CLONED != 0 {
		return false
	}
	if route.Table != unix.RT_TABLE_MAIN {
		if filter == nil || mask&RT_FILTER_TABLE == 0 {
			return false
		}
	}
	if filter == nil {
		return true
	}
	if mask&RT_FILTER_TABLE != 0 && route.Table != filter.Table {
		return false
	}
	if mask&RT_FILTER_OIF != 0 && route.LinkIndex != filter.LinkIndex {
		return false
	}
	if mask&RT_FILTER_PROTOCOL != 0 && route.Protocol != filter.Protocol {
		return false
	}
	if mask&RT_FILTER_SCOPE != 0 && route.Scope != filter.Scope {
		return false
	}
	if mask&RT_FILTER_TYPE != 0 && route.Type != filter.Type {
		return false
	}
	if mask&RT_FILTER_TOS != 0 && route.Tos != filter.Tos {
		return false
	}
	if mask&RT_FILTER_PRIORITY != 0 && route.Priority != filter.Priority {
		return false
	}
	if mask&RT_FILTER_GW != 0 && !route.Gw.Equal(filter.Gw) {
		return false
	}
	if mask&RT_FILTER_DST != 0 && !ipNetEqual(route.Dst, filter.Dst) {
		return false
	}
	if mask&RT_FILTER_SRC != 0 && !route.Src.Equal(filter.Src) {
		return false
	}
	if mask&RT_FILTER_IIF != 0 && route.ILinkIndex != filter.ILinkIndex {
		return false
	}
	if mask&RT_FILTER_HOPLIMIT != 0 && route.HopLimit != filter.HopLimit {
		return false
	}
	return true
}

// ipNetEqual reports whether two networks have the same address and mask.
// A nil filter network matches only routes with no destination (default
// routes).
func ipNetEqual(a, b *net.IPNet) bool {
	if a == nil || b == nil {
		return a == b
	}
	aOnes, aBits := a.Mask.Size()
	bOnes, bBits := b.Mask.Size()
	return aOnes == bOnes && aBits == bBits && a.IP.Equal(b.IP)
}

// routeDeserialize reconstructs a Route from one reply envelope.
func routeDeserialize(msg nl.Message) (*Route, error) {
	if len(msg.Data) < unix.SizeofRtMsg {
		return nil, fmt.Errorf("route message too short (%d bytes)", len(msg.Data))
	}
	route := &Route{
		Family:   msg.Data[0],
		Tos:      msg.Data[3],
		Table:    uint32(msg.Data[4]),
		Protocol: msg.Data[5],
		Scope:    msg.Data[6],
		Type:     msg.Data[7],
		Flags:    nlenc.Uint32(msg.Data[8:12]),
	}
	dstLen := int(msg.Data[1])

	err := nl.ForEachAttr(msg.Data[unix.SizeofRtMsg:], func(typ uint16, data []byte) error {
		switch typ {
		case unix.RTA_GATEWAY:
			ip, err := bytesToIP(data, route.Family)
			if err != nil {
				return err
			}
			route.Gw = ip
		case unix.RTA_TABLE:
			route.Table = nlenc.Uint32(data)
		case unix.RTA_OIF:
			route.LinkIndex = nlenc.Uint32(data)
		case unix.RTA_IIF:
			route.ILinkIndex = nlenc.Uint32(data)
		case unix.RTA_PRIORITY:
			route.Priority = nlenc.Uint32(data)
		case unix.RTA_DST:
			ip, err := bytesToIP(data, route.Family)
			if err != nil {
				return err
			}
			route.Dst = &net.IPNet{IP: ip, Mask: net.CIDRMask(dstLen, len(data)*8)}
		case unix.RTA_PREFSRC:
			ip, err := bytesToIP(data, route.Family)
			if err != nil {
				return err
			}
			route.Src = ip
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}
