//go:build linux

package netlinkng

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/arthur-zhang/netlink-ng/internal/testutil"
)

// These tests exchange real messages with the kernel and are gated behind
// NETLINK_NG_KERNEL_TEST.

func TestKernelLinkList(t *testing.T) {
	testutil.RequireKernel(t)

	links, err := LinkList()
	require.NoError(t, err)
	require.NotEmpty(t, links)

	var foundLoopback bool
	for _, l := range links {
		if l.Attrs.Name == "lo" {
			foundLoopback = true
			assert.Equal(t, "loopback", l.Attrs.EncapType)
		}
	}
	assert.True(t, foundLoopback, "loopback interface not reported")
}

func TestKernelLinkByName(t *testing.T) {
	testutil.RequireKernel(t)

	link, err := LinkByName("lo")
	require.NoError(t, err)
	require.NotNil(t, link)
	assert.EqualValues(t, 1, link.Attrs.Index)
}

func TestKernelAddrList(t *testing.T) {
	testutil.RequireKernel(t)

	addrs, err := AddrList(LinkName("lo"), FamilyV4)
	require.NoError(t, err)
	for _, a := range addrs {
		assert.NotNil(t, a.IPNet)
	}
}

func TestKernelRouteList(t *testing.T) {
	testutil.RequireKernel(t)

	routes, err := RouteList(nil, FamilyV4)
	require.NoError(t, err)
	for _, r := range routes {
		assert.Zero(t, r.Flags&unix.RTM_F_CLONED, "cloned routes must be filtered out")
	}
}
