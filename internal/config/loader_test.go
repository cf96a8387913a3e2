package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHCL = `
link "br0" {
  kind           = "bridge"
  up             = true
  vlan_filtering = true
}

link "veth-host" {
  kind   = "veth"
  peer   = "veth-ns"
  mtu    = 1400
  master = "br0"
}

link "vxlan100" {
  kind  = "vxlan"
  vni   = 100
  local = "10.0.0.1"
  port  = 4789
}

address "br0" {
  cidr = "192.168.10.1/24"
}

route "lab" {
  destination = "192.168.20.0/24"
  gateway     = "192.168.10.254"
  interface   = "br0"
  metric      = 100
}

neighbor "192.168.10.50" {
  interface = "br0"
  mac       = "3a:91:c1:3f:ee:54"
}
`

func TestLoadHCL(t *testing.T) {
	cfg, err := LoadHCL([]byte(sampleHCL), "sample.hcl")
	require.NoError(t, err)

	require.Len(t, cfg.Links, 3)
	assert.Equal(t, "br0", cfg.Links[0].Name)
	assert.Equal(t, "bridge", cfg.Links[0].Kind)
	require.NotNil(t, cfg.Links[0].VlanFiltering)
	assert.True(t, *cfg.Links[0].VlanFiltering)
	assert.Equal(t, "veth-ns", cfg.Links[1].Peer)
	assert.Equal(t, 100, cfg.Links[2].VNI)

	require.Len(t, cfg.Addresses, 1)
	assert.Equal(t, "br0", cfg.Addresses[0].Interface)

	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, 100, cfg.Routes[0].Metric)

	require.Len(t, cfg.Neighbors, 1)
	assert.Equal(t, "192.168.10.50", cfg.Neighbors[0].IP)
}

func TestLoadHCLRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		hcl  string
	}{
		{"unknown kind", `link "x0" { kind = "bond" }`},
		{"veth without peer", `link "x0" { kind = "veth" }`},
		{"bad mac", `link "x0" { kind = "dummy" mac = "nope" }`},
		{"bad cidr", `address "eth0" { cidr = "300.1.1.1/24" }`},
		{"empty route", `route "r" {}`},
		{"bad neighbor mac", `neighbor "10.0.0.1" { interface = "eth0" mac = "zz" }`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadHCL([]byte(tc.hcl), tc.name+".hcl")
			assert.Error(t, err)
		})
	}
}

func TestLoadJSON(t *testing.T) {
	data := []byte(`{
		"links": [{"name": "dummy0", "kind": "dummy", "mtu": 1500}],
		"routes": [{"name": "default", "gateway": "10.0.0.1"}]
	}`)
	cfg, err := LoadJSON(data)
	require.NoError(t, err)
	require.Len(t, cfg.Links, 1)
	assert.Equal(t, "dummy0", cfg.Links[0].Name)
	require.Len(t, cfg.Routes, 1)
}

func TestGenerateHCLRoundTrip(t *testing.T) {
	cfg, err := LoadHCL([]byte(sampleHCL), "sample.hcl")
	require.NoError(t, err)

	out, err := GenerateHCL(cfg)
	require.NoError(t, err)

	reloaded, err := LoadHCL(out, "generated.hcl")
	require.NoError(t, err)
	assert.Equal(t, cfg.Links, reloaded.Links)
	assert.Equal(t, cfg.Routes, reloaded.Routes)
}
