// Package netlinkng is a user-space rtnetlink client for managing Linux
// network interfaces, addresses, routes, and neighbor table entries.
//
// # Overview
//
// Every operation is synchronous and self-contained: it opens its own
// NETLINK_ROUTE socket, performs one request/reply exchange, and closes the
// socket before returning. No state is cached between calls; the structs
// returned by list and get operations are built fresh from the kernel reply.
//
// # Key types
//
//   - [Link]: a network interface with its [LinkKind] (bridge, veth pair,
//     VXLAN tunnel, dummy, tun/tap, or plain device)
//   - [Addr]: an IP network attached to a link
//   - [Route]: a routing table entry
//   - [Neigh]: a neighbor (ARP/NDP) table entry
//   - [LinkID]: a link reference by kernel index or by name
//
// # Errors
//
// Kernel status codes are translated into a small taxonomy checked with
// errors.Is: [ErrNotFound], [ErrExists], and nl.ProtocolError for everything
// else. Operation variants this client does not implement return
// [ErrUnimplemented] instead of silently doing nothing.
//
// # Example
//
//	br := &netlinkng.Link{
//		Attrs: netlinkng.LinkAttrs{Name: "br0", MTU: 1500},
//		Kind:  &netlinkng.Bridge{},
//	}
//	if err := netlinkng.LinkAdd(br); err != nil && !errors.Is(err, netlinkng.ErrExists) {
//		return err
//	}
package netlinkng
