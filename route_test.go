//go:build linux

package netlinkng

import (
	"net"
	"testing"

	"github.com/mdlayher/netlink/nlenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRouteRequiresOneTarget(t *testing.T) {
	_, err := newRouteMsg(&Route{LinkIndex: 2}, unix.NLM_F_ACK)
	assert.Error(t, err)
}

func TestRouteHeaderDefaults(t *testing.T) {
	msg, err := newRouteMsg(&Route{
		LinkIndex: 2,
		Dst:       mustCIDR(t, "192.168.0.0/24"),
		Gw:        net.ParseIP("10.0.0.1"),
	}, unix.NLM_F_CREATE|unix.NLM_F_ACK)
	require.NoError(t, err)

	assert.EqualValues(t, unix.AF_INET, msg.Data[0])
	assert.EqualValues(t, 24, msg.Data[1])
	assert.EqualValues(t, unix.RT_TABLE_MAIN, msg.Data[4])
	assert.EqualValues(t, unix.RTPROT_BOOT, msg.Data[5])
	assert.EqualValues(t, unix.RT_SCOPE_UNIVERSE, msg.Data[6])
	assert.EqualValues(t, unix.RTN_UNICAST, msg.Data[7])
}

func TestRouteGatewayAlwaysEmitted(t *testing.T) {
	msg, err := newRouteMsg(&Route{Dst: mustCIDR(t, "192.168.0.0/24")}, unix.NLM_F_ACK)
	require.NoError(t, err)

	attrs := attrsByType(t, msg.Data[unix.SizeofRtMsg:])
	require.Contains(t, attrs, uint16(unix.RTA_GATEWAY))
	// An absent gateway travels as the unspecified IPv4 address.
	assert.Equal(t, []byte{0, 0, 0, 0}, attrs[unix.RTA_GATEWAY])
	assert.EqualValues(t, unix.AF_INET, msg.Data[0])
}

func TestRouteFamilyFollowsGateway(t *testing.T) {
	msg, err := newRouteMsg(&Route{Gw: net.ParseIP("fd00::1")}, unix.NLM_F_ACK)
	require.NoError(t, err)
	assert.EqualValues(t, unix.AF_INET6, msg.Data[0])
}

func TestRouteTablePlacement(t *testing.T) {
	msg, err := newRouteMsg(&Route{Gw: net.ParseIP("10.0.0.1"), Table: 10}, unix.NLM_F_ACK)
	require.NoError(t, err)
	assert.EqualValues(t, 10, msg.Data[4])
	assert.NotContains(t, attrsByType(t, msg.Data[unix.SizeofRtMsg:]), uint16(unix.RTA_TABLE))

	// Tables beyond the 8-bit header field move into an attribute.
	msg, err = newRouteMsg(&Route{Gw: net.ParseIP("10.0.0.1"), Table: 1000}, unix.NLM_F_ACK)
	require.NoError(t, err)
	assert.EqualValues(t, unix.RT_TABLE_UNSPEC, msg.Data[4])
	attrs := attrsByType(t, msg.Data[unix.SizeofRtMsg:])
	require.Contains(t, attrs, uint16(unix.RTA_TABLE))
	assert.EqualValues(t, 1000, nlenc.Uint32(attrs[unix.RTA_TABLE]))
}

func TestRouteOptionalAttributes(t *testing.T) {
	msg, err := newRouteMsg(&Route{
		LinkIndex: 4,
		Gw:        net.ParseIP("10.0.0.1"),
		Src:       net.ParseIP("10.0.0.2"),
		Priority:  100,
	}, unix.NLM_F_ACK)
	require.NoError(t, err)

	attrs := attrsByType(t, msg.Data[unix.SizeofRtMsg:])
	assert.EqualValues(t, 4, nlenc.Uint32(attrs[unix.RTA_OIF]))
	assert.Equal(t, []byte{10, 0, 0, 2}, attrs[unix.RTA_PREFSRC])
	assert.EqualValues(t, 100, nlenc.Uint32(attrs[unix.RTA_PRIORITY]))
}

func TestRouteMatchesClonedAlwaysExcluded(t *testing.T) {
	route := &Route{Table: unix.RT_TABLE_MAIN, Flags: unix.RTM_F_CLONED}
	assert.False(t, routeMatches(route, nil, 0))
	assert.False(t, routeMatches(route, &Route{}, RT_FILTER_TABLE|RT_FILTER_OIF))
}

func TestRouteMatchesTableRules(t *testing.T) {
	main := &Route{Table: unix.RT_TABLE_MAIN}
	other := &Route{Table: 10}

	// Main-table routes always pass the table rule.
	assert.True(t, routeMatches(main, nil, 0))

	// Other tables are dropped unless table filtering is requested.
	assert.False(t, routeMatches(other, nil, 0))
	assert.False(t, routeMatches(other, &Route{Table: 10}, RT_FILTER_OIF))
	assert.True(t, routeMatches(other, &Route{Table: 10}, RT_FILTER_TABLE))
	assert.False(t, routeMatches(other, &Route{Table: 20}, RT_FILTER_TABLE))
}

func TestRouteMatchesOutputInterface(t *testing.T) {
	route := &Route{Table: unix.RT_TABLE_MAIN, LinkIndex: 3}
	assert.True(t, routeMatches(route, &Route{LinkIndex: 3}, RT_FILTER_OIF))
	assert.False(t, routeMatches(route, &Route{LinkIndex: 4}, RT_FILTER_OIF))
	// Without the mask bit the field is ignored.
	assert.True(t, routeMatches(route, &Route{LinkIndex: 4}, 0))
}

func TestRouteMatchesDestination(t *testing.T) {
	route := &Route{Table: unix.RT_TABLE_MAIN, Dst: mustCIDR(t, "192.168.0.0/24")}

	assert.True(t, routeMatches(route, &Route{Dst: mustCIDR(t, "192.168.0.0/24")}, RT_FILTER_DST))
	assert.False(t, routeMatches(route, &Route{Dst: mustCIDR(t, "192.168.1.0/24")}, RT_FILTER_DST))
	assert.False(t, routeMatches(route, &Route{Dst: mustCIDR(t, "192.168.0.0/16")}, RT_FILTER_DST))

	// A nil filter destination matches only default routes.
	assert.False(t, routeMatches(route, &Route{}, RT_FILTER_DST))
	def := &Route{Table: unix.RT_TABLE_MAIN}
	assert.True(t, routeMatches(def, &Route{}, RT_FILTER_DST))
}

func TestRouteMatchesSourceAndInputInterface(t *testing.T) {
	route := &Route{Table: unix.RT_TABLE_MAIN, Src: net.ParseIP("10.0.0.2"), ILinkIndex: 5}

	assert.True(t, routeMatches(route, &Route{Src: net.ParseIP("10.0.0.2")}, RT_FILTER_SRC))
	assert.False(t, routeMatches(route, &Route{Src: net.ParseIP("10.0.0.3")}, RT_FILTER_SRC))

	assert.True(t, routeMatches(route, &Route{ILinkIndex: 5}, RT_FILTER_IIF))
	assert.False(t, routeMatches(route, &Route{ILinkIndex: 6}, RT_FILTER_IIF))
}

func TestRouteMatchesHopLimit(t *testing.T) {
	route := &Route{Table: unix.RT_TABLE_MAIN, HopLimit: 64}
	assert.True(t, routeMatches(route, &Route{HopLimit: 64}, RT_FILTER_HOPLIMIT))
	assert.False(t, routeMatches(route, &Route{HopLimit: 32}, RT_FILTER_HOPLIMIT))
	assert.True(t, routeMatches(route, &Route{HopLimit: 32}, 0))
}

func TestRouteRoundTrip(t *testing.T) {
	msg, err := newRouteMsg(&Route{
		LinkIndex: 2,
		Dst:       mustCIDR(t, "192.168.0.0/24"),
		Gw:        net.ParseIP("10.0.0.1"),
		Priority:  50,
	}, unix.NLM_F_ACK)
	require.NoError(t, err)
	msg.Type = unix.RTM_NEWROUTE

	route, err := routeDeserialize(msg)
	require.NoError(t, err)
	assert.EqualValues(t, 2, route.LinkIndex)
	assert.EqualValues(t, 50, route.Priority)
	assert.EqualValues(t, unix.RT_TABLE_MAIN, route.Table)
	assert.True(t, route.Gw.Equal(net.ParseIP("10.0.0.1")))
	require.NotNil(t, route.Dst)
	assert.True(t, route.Dst.IP.Equal(net.ParseIP("192.168.0.0")))
	ones, _ := route.Dst.Mask.Size()
	assert.Equal(t, 24, ones)
}

func TestRouteDeserializeTableAttrWins(t *testing.T) {
	msg, err := newRouteMsg(&Route{Gw: net.ParseIP("10.0.0.1"), Table: 1000}, unix.NLM_F_ACK)
	require.NoError(t, err)

	route, err := routeDeserialize(msg)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, route.Table)
}

func TestRouteDelAndGetUnimplemented(t *testing.T) {
	assert.ErrorIs(t, RouteDel(&Route{}), ErrUnimplemented)
	_, err := RouteGet(net.ParseIP("10.0.0.1"))
	assert.ErrorIs(t, err, ErrUnimplemented)
}
