// Package config defines the declarative network description consumed by
// nlctl apply: links to create, addresses to assign, routes to install, and
// neighbor entries to pin. Files are HCL by convention, JSON as a fallback.
package config

import (
	"fmt"
	"net"
)

// Config is the root of a network description file.
type Config struct {
	Links     []Link     `hcl:"link,block" json:"links,omitempty"`
	Addresses []Address  `hcl:"address,block" json:"addresses,omitempty"`
	Routes    []Route    `hcl:"route,block" json:"routes,omitempty"`
	Neighbors []Neighbor `hcl:"neighbor,block" json:"neighbors,omitempty"`
}

// Link declares one virtual interface to create.
type Link struct {
	Name   string `hcl:"name,label" json:"name"`
	Kind   string `hcl:"kind" json:"kind"` // dummy, veth, bridge, vxlan
	MTU    int    `hcl:"mtu,optional" json:"mtu,omitempty"`
	TxQLen int    `hcl:"txqlen,optional" json:"txqlen,omitempty"`
	MAC    string `hcl:"mac,optional" json:"mac,omitempty"`
	Up     bool   `hcl:"up,optional" json:"up,omitempty"`
	Master string `hcl:"master,optional" json:"master,omitempty"`

	// veth
	Peer string `hcl:"peer,optional" json:"peer,omitempty"`

	// bridge
	VlanFiltering *bool `hcl:"vlan_filtering,optional" json:"vlan_filtering,omitempty"`
	AgeingTime    *int  `hcl:"ageing_time,optional" json:"ageing_time,omitempty"`

	// vxlan
	VNI     int    `hcl:"vni,optional" json:"vni,omitempty"`
	VtepDev string `hcl:"vtep_dev,optional" json:"vtep_dev,omitempty"`
	Local   string `hcl:"local,optional" json:"local,omitempty"`
	Group   string `hcl:"group,optional" json:"group,omitempty"`
	Port    int    `hcl:"port,optional" json:"port,omitempty"`
	NoAge   bool   `hcl:"no_age,optional" json:"no_age,omitempty"`
}

// Address assigns one address to an interface. The label is the interface
// name.
type Address struct {
	Interface string `hcl:"interface,label" json:"interface"`
	CIDR      string `hcl:"cidr" json:"cidr"`
	Peer      string `hcl:"peer,optional" json:"peer,omitempty"`
	Broadcast string `hcl:"broadcast,optional" json:"broadcast,omitempty"`
	Label     string `hcl:"alias,optional" json:"alias,omitempty"`
}

// Route declares one static route.
type Route struct {
	Name        string `hcl:"name,label" json:"name"`
	Destination string `hcl:"destination,optional" json:"destination,omitempty"`
	Gateway     string `hcl:"gateway,optional" json:"gateway,omitempty"`
	Interface   string `hcl:"interface,optional" json:"interface,omitempty"`
	Table       int    `hcl:"table,optional" json:"table,omitempty"`
	Metric      int    `hcl:"metric,optional" json:"metric,omitempty"`
	Replace     bool   `hcl:"replace,optional" json:"replace,omitempty"`
}

// Neighbor pins one neighbor table entry.
type Neighbor struct {
	IP        string `hcl:"ip,label" json:"ip"`
	Interface string `hcl:"interface" json:"interface"`
	MAC       string `hcl:"mac" json:"mac"`
	Vlan      int    `hcl:"vlan,optional" json:"vlan,omitempty"`
	VNI       int    `hcl:"vni,optional" json:"vni,omitempty"`
}

var linkKinds = map[string]bool{
	"dummy":  true,
	"veth":   true,
	"bridge": true,
	"vxlan":  true,
}

// Validate checks the description for errors that would only surface
// halfway through an apply.
func (c *Config) Validate() error {
	for _, l := range c.Links {
		if l.Name == "" {
			return fmt.Errorf("link block without a name")
		}
		if !linkKinds[l.Kind] {
			return fmt.Errorf("link %q: unsupported kind %q", l.Name, l.Kind)
		}
		if l.Kind == "veth" && l.Peer == "" {
			return fmt.Errorf("link %q: veth requires a peer name", l.Name)
		}
		if l.MAC != "" {
			if _, err := net.ParseMAC(l.MAC); err != nil {
				return fmt.Errorf("link %q: bad mac: %w", l.Name, err)
			}
		}
		if l.Local != "" && net.ParseIP(l.Local) == nil {
			return fmt.Errorf("link %q: bad local address %q", l.Name, l.Local)
		}
		if l.Group != "" && net.ParseIP(l.Group) == nil {
			return fmt.Errorf("link %q: bad group address %q", l.Name, l.Group)
		}
	}
	for _, a := range c.Addresses {
		if a.Interface == "" {
			return fmt.Errorf("address block without an interface")
		}
		if _, _, err := net.ParseCIDR(a.CIDR); err != nil {
			return fmt.Errorf("address on %q: bad cidr %q: %w", a.Interface, a.CIDR, err)
		}
		if a.Peer != "" {
			if _, _, err := net.ParseCIDR(a.Peer); err != nil {
				return fmt.Errorf("address on %q: bad peer %q: %w", a.Interface, a.Peer, err)
			}
		}
		if a.Broadcast != "" && net.ParseIP(a.Broadcast) == nil {
			return fmt.Errorf("address on %q: bad broadcast %q", a.Interface, a.Broadcast)
		}
	}
	for _, r := range c.Routes {
		if r.Destination == "" && r.Gateway == "" {
			return fmt.Errorf("route %q: needs a destination or a gateway", r.Name)
		}
		if r.Destination != "" {
			if _, _, err := net.ParseCIDR(r.Destination); err != nil {
				return fmt.Errorf("route %q: bad destination %q: %w", r.Name, r.Destination, err)
			}
		}
		if r.Gateway != "" && net.ParseIP(r.Gateway) == nil {
			return fmt.Errorf("route %q: bad gateway %q", r.Name, r.Gateway)
		}
	}
	for _, n := range c.Neighbors {
		if net.ParseIP(n.IP) == nil {
			return fmt.Errorf("neighbor %q: bad ip", n.IP)
		}
		if n.Interface == "" {
			return fmt.Errorf("neighbor %q: needs an interface", n.IP)
		}
		if _, err := net.ParseMAC(n.MAC); err != nil {
			return fmt.Errorf("neighbor %q: bad mac: %w", n.IP, err)
		}
	}
	return nil
}
