//go:build linux

package main

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	netlinkng "github.com/arthur-zhang/netlink-ng"
	"github.com/arthur-zhang/netlink-ng/internal/config"
)

func TestBuildLinkKinds(t *testing.T) {
	vlan := true
	cases := []struct {
		name string
		in   config.Link
		want netlinkng.LinkKind
	}{
		{"dummy", config.Link{Name: "d0", Kind: "dummy"}, &netlinkng.Dummy{}},
		{"veth", config.Link{Name: "v0", Kind: "veth", Peer: "v1"}, &netlinkng.Veth{}},
		{"bridge", config.Link{Name: "br0", Kind: "bridge", VlanFiltering: &vlan}, &netlinkng.Bridge{}},
		{"vxlan", config.Link{Name: "vx0", Kind: "vxlan", VNI: 100, Local: "10.0.0.1"}, &netlinkng.Vxlan{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			link, err := buildLink(&tc.in)
			require.NoError(t, err)
			assert.IsType(t, tc.want, link.Kind)
			assert.Equal(t, tc.in.Name, link.Attrs.Name)
		})
	}

	_, err := buildLink(&config.Link{Name: "b0", Kind: "bond"})
	assert.Error(t, err)
}

func TestBuildLinkVxlanFields(t *testing.T) {
	link, err := buildLink(&config.Link{
		Name: "vx0", Kind: "vxlan", VNI: 100, Local: "10.0.0.1", Port: 4789, NoAge: true,
	})
	require.NoError(t, err)
	vxlan, ok := link.Kind.(*netlinkng.Vxlan)
	require.True(t, ok)
	assert.EqualValues(t, 100, vxlan.ID)
	assert.EqualValues(t, 4789, vxlan.Port)
	assert.True(t, vxlan.NoAge)
	assert.NotNil(t, vxlan.SrcAddr)
}

func TestParseAddr(t *testing.T) {
	addr, err := parseAddr("192.168.1.10/24")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.10/24", addr.IPNet.String())

	_, err = parseAddr("not-a-cidr")
	assert.Error(t, err)
}

func TestParseRoute(t *testing.T) {
	route, err := parseRoute("192.168.0.0/16", "10.0.0.1", "", 50)
	require.NoError(t, err)
	require.NotNil(t, route.Dst)
	assert.EqualValues(t, 50, route.Priority)
	assert.True(t, route.Gw.Equal(net.ParseIP("10.0.0.1")))

	route, err = parseRoute("default", "10.0.0.1", "", 0)
	require.NoError(t, err)
	assert.Nil(t, route.Dst)

	_, err = parseRoute("bogus", "10.0.0.1", "", 0)
	assert.Error(t, err)
	_, err = parseRoute("192.168.0.0/16", "bogus", "", 0)
	assert.Error(t, err)
}
