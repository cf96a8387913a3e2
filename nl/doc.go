// Package nl implements the rtnetlink transport: a one-request session over
// a NETLINK_ROUTE socket, with sequence-number correlation, multi-part reply
// reassembly, and translation of kernel status codes into typed errors.
//
// # Session model
//
// Each [Conn] owns exactly one kernel socket and serves one caller. A logical
// operation is a single [Conn.Execute]: one request is sent, then the reply
// stream is read until a terminal frame arrives. There is no timeout and no
// retry; a non-responding kernel blocks the caller. Concurrent callers must
// each [Dial] their own Conn — sequence numbers are per-connection, which is
// safe because each connection only ever sees replies to its own socket.
//
// # Attribute codec
//
// Requests and replies carry flat lists of tagged attributes. [ForEachAttr]
// walks such a list in order; callers interpret the tags they know and skip
// the rest, so replies from older or newer kernels decode without error.
// Encoding uses github.com/mdlayher/netlink's AttributeEncoder, re-exported
// here as [NewAttrEncoder].
package nl
