//go:build linux

package main

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	netlinkng "github.com/arthur-zhang/netlink-ng"
	"github.com/arthur-zhang/netlink-ng/internal/config"
	"github.com/arthur-zhang/netlink-ng/internal/logging"
)

func parseAddr(cidr string) (*netlinkng.Addr, error) {
	ip, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, fmt.Errorf("bad address %q: %w", cidr, err)
	}
	ipnet.IP = ip
	return &netlinkng.Addr{IPNet: ipnet}, nil
}

func parseRoute(dst, gw, dev string, metric uint32) (*netlinkng.Route, error) {
	route := &netlinkng.Route{Priority: metric}
	if dst != "" && dst != "default" {
		_, ipnet, err := net.ParseCIDR(dst)
		if err != nil {
			return nil, fmt.Errorf("bad destination %q: %w", dst, err)
		}
		route.Dst = ipnet
	}
	if gw != "" {
		route.Gw = net.ParseIP(gw)
		if route.Gw == nil {
			return nil, fmt.Errorf("bad gateway %q", gw)
		}
	}
	if dev != "" {
		index, err := netlinkng.LinkName(dev).Resolve()
		if err != nil {
			return nil, err
		}
		route.LinkIndex = index
	}
	return route, nil
}

func parseNeigh(dev, ip, mac string) (*netlinkng.Neigh, error) {
	index, err := netlinkng.LinkName(dev).Resolve()
	if err != nil {
		return nil, err
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return nil, fmt.Errorf("bad ip %q", ip)
	}
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return nil, fmt.Errorf("bad mac %q: %w", mac, err)
	}
	return &netlinkng.Neigh{
		LinkIndex:    index,
		State:        unix.NUD_PERMANENT,
		IP:           addr,
		HardwareAddr: hw,
	}, nil
}

// applyConfig walks the description in dependency order: links first, then
// addresses, routes, and neighbors. Creates that hit an already-present
// object are treated as converged, not as failures.
func applyConfig(cfg *config.Config, log *logging.Logger) error {
	for i := range cfg.Links {
		if err := applyLink(&cfg.Links[i], log); err != nil {
			return fmt.Errorf("link %q: %w", cfg.Links[i].Name, err)
		}
	}
	for i := range cfg.Addresses {
		if err := applyAddress(&cfg.Addresses[i], log); err != nil {
			return fmt.Errorf("address %q on %q: %w", cfg.Addresses[i].CIDR, cfg.Addresses[i].Interface, err)
		}
	}
	for i := range cfg.Routes {
		if err := applyRoute(&cfg.Routes[i], log); err != nil {
			return fmt.Errorf("route %q: %w", cfg.Routes[i].Name, err)
		}
	}
	for i := range cfg.Neighbors {
		if err := applyNeighbor(&cfg.Neighbors[i], log); err != nil {
			return fmt.Errorf("neighbor %q: %w", cfg.Neighbors[i].IP, err)
		}
	}
	return nil
}

func buildLink(lc *config.Link) (*netlinkng.Link, error) {
	attrs := netlinkng.LinkAttrs{
		Name:   lc.Name,
		MTU:    uint32(lc.MTU),
		TxQLen: uint32(lc.TxQLen),
	}
	if lc.MAC != "" {
		hw, err := net.ParseMAC(lc.MAC)
		if err != nil {
			return nil, err
		}
		attrs.HardwareAddr = hw
	}

	var kind netlinkng.LinkKind
	switch lc.Kind {
	case "dummy":
		kind = &netlinkng.Dummy{}
	case "veth":
		kind = &netlinkng.Veth{PeerName: lc.Peer}
	case "bridge":
		bridge := &netlinkng.Bridge{VlanFiltering: lc.VlanFiltering}
		if lc.AgeingTime != nil {
			ageing := uint32(*lc.AgeingTime)
			bridge.AgeingTime = &ageing
		}
		kind = bridge
	case "vxlan":
		vxlan := &netlinkng.Vxlan{
			ID:    uint32(lc.VNI),
			Port:  uint16(lc.Port),
			NoAge: lc.NoAge,
		}
		if lc.Local != "" {
			vxlan.SrcAddr = net.ParseIP(lc.Local)
		}
		if lc.Group != "" {
			vxlan.Group = net.ParseIP(lc.Group)
		}
		if lc.VtepDev != "" {
			index, err := netlinkng.LinkName(lc.VtepDev).Resolve()
			if err != nil {
				return nil, err
			}
			vxlan.VtepDevIndex = index
		}
		kind = vxlan
	default:
		return nil, fmt.Errorf("unsupported kind %q", lc.Kind)
	}
	return &netlinkng.Link{Attrs: attrs, Kind: kind}, nil
}

func applyLink(lc *config.Link, log *logging.Logger) error {
	link, err := buildLink(lc)
	if err != nil {
		return err
	}
	switch err := netlinkng.LinkAdd(link); {
	case err == nil:
		log.Info("link created", "name", lc.Name, "kind", lc.Kind)
	case errors.Is(err, netlinkng.ErrExists):
		log.Debug("link already present", "name", lc.Name)
	default:
		return err
	}

	id := netlinkng.LinkName(lc.Name)
	if lc.Master != "" {
		if err := netlinkng.LinkSetMaster(id, netlinkng.LinkName(lc.Master)); err != nil {
			return err
		}
	}
	if lc.Up {
		if err := netlinkng.LinkSetUp(id); err != nil {
			return err
		}
	}
	return nil
}

func applyAddress(ac *config.Address, log *logging.Logger) error {
	addr, err := parseAddr(ac.CIDR)
	if err != nil {
		return err
	}
	if ac.Peer != "" {
		peer, err := parseAddr(ac.Peer)
		if err != nil {
			return err
		}
		addr.Peer = peer.IPNet
	}
	if ac.Broadcast != "" {
		addr.Broadcast = net.ParseIP(ac.Broadcast)
	}
	addr.Label = ac.Label

	switch err := netlinkng.AddrAdd(netlinkng.LinkName(ac.Interface), addr); {
	case err == nil:
		log.Info("address assigned", "interface", ac.Interface, "cidr", ac.CIDR)
		return nil
	case errors.Is(err, netlinkng.ErrExists):
		log.Debug("address already present", "interface", ac.Interface, "cidr", ac.CIDR)
		return nil
	default:
		return err
	}
}

func applyRoute(rc *config.Route, log *logging.Logger) error {
	route, err := parseRoute(rc.Destination, rc.Gateway, rc.Interface, uint32(rc.Metric))
	if err != nil {
		return err
	}
	route.Table = uint32(rc.Table)

	if rc.Replace {
		if err := netlinkng.RouteReplace(route); err != nil {
			return err
		}
		log.Info("route replaced", "name", rc.Name)
		return nil
	}
	switch err := netlinkng.RouteAdd(route); {
	case err == nil:
		log.Info("route installed", "name", rc.Name)
		return nil
	case errors.Is(err, netlinkng.ErrExists):
		log.Debug("route already present", "name", rc.Name)
		return nil
	default:
		return err
	}
}

func applyNeighbor(nc *config.Neighbor, log *logging.Logger) error {
	neigh, err := parseNeigh(nc.Interface, nc.IP, nc.MAC)
	if err != nil {
		return err
	}
	neigh.Vlan = uint16(nc.Vlan)
	neigh.VNI = uint32(nc.VNI)
	if err := netlinkng.NeighSet(neigh); err != nil {
		return err
	}
	log.Info("neighbor pinned", "ip", nc.IP, "interface", nc.Interface)
	return nil
}
