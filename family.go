//go:build linux

package netlinkng

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Family selects an address family for list operations. FamilyAll disables
// family filtering.
type Family = uint8

const (
	FamilyAll Family = unix.AF_UNSPEC
	FamilyV4  Family = unix.AF_INET
	FamilyV6  Family = unix.AF_INET6
)

// ipToBytes returns the wire form of ip: 4 bytes for IPv4, 16 for IPv6.
func ipToBytes(ip net.IP) []byte {
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()
}

// ipFamily derives the address family from the form of ip.
func ipFamily(ip net.IP) Family {
	if ip.To4() != nil {
		return FamilyV4
	}
	return FamilyV6
}

// bytesToIP interprets raw attribute bytes under the given family.
func bytesToIP(b []byte, family Family) (net.IP, error) {
	switch family {
	case FamilyV4:
		if len(b) < net.IPv4len {
			return nil, fmt.Errorf("ipv4 address needs 4 bytes, got %d", len(b))
		}
		return net.IP(b[:net.IPv4len]).To16(), nil
	case FamilyV6:
		if len(b) < net.IPv6len {
			return nil, fmt.Errorf("ipv6 address needs 16 bytes, got %d", len(b))
		}
		return net.IP(b[:net.IPv6len]), nil
	default:
		return nil, fmt.Errorf("invalid address family %d", family)
	}
}

// broadcastAddr computes the directed broadcast address of an IPv4 network.
func broadcastAddr(ipnet *net.IPNet) net.IP {
	ip := ipnet.IP.To4()
	if ip == nil {
		return nil
	}
	mask := ipnet.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	bcast := make(net.IP, net.IPv4len)
	for i := range bcast {
		bcast[i] = ip[i] | ^mask[i]
	}
	return bcast
}
