//go:build linux

package nl

import (
	"github.com/mdlayher/netlink"
)

// ForEachAttr walks the attribute list in b in order, invoking fn with each
// attribute's tag and raw value. Tags the caller does not recognize should
// simply be ignored by fn; an unknown tag is never an error here, which is
// what lets older and newer kernels round-trip through the same decode path.
func ForEachAttr(b []byte, fn func(typ uint16, data []byte) error) error {
	ad, err := netlink.NewAttributeDecoder(b)
	if err != nil {
		return err
	}
	for ad.Next() {
		if err := fn(ad.Type(), ad.Bytes()); err != nil {
			return err
		}
	}
	return ad.Err()
}

// NewAttrEncoder returns an encoder for building an attribute list. Nested
// attribute blocks are built with its Nested method.
func NewAttrEncoder() *netlink.AttributeEncoder {
	return netlink.NewAttributeEncoder()
}
