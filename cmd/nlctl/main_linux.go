//go:build linux

// nlctl is a small ip(8)-style front end for the netlink-ng library. It
// inspects and edits links, addresses, routes, and neighbors, and can apply
// a declarative HCL description of all four at once.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	netlinkng "github.com/arthur-zhang/netlink-ng"
	"github.com/arthur-zhang/netlink-ng/internal/config"
	"github.com/arthur-zhang/netlink-ng/internal/logging"
)

func main() {
	logging.SetPrefix("nlctl")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "link":
		err = runLink(os.Args[2:])
	case "addr":
		err = runAddr(os.Args[2:])
	case "route":
		err = runRoute(os.Args[2:])
	case "neigh":
		err = runNeigh(os.Args[2:])
	case "apply":
		err = runApply(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "nlctl: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: nlctl <command> [options]

Commands:
  link list                          List all links
  link add -name N -kind K [opts]    Create a link (dummy, veth, bridge, vxlan)
  link del <name>                    Delete a link
  link set <name> <up|down>          Change link admin state
  link set <name> mtu <bytes>        Change link MTU
  link set <name> master <name>      Attach link to a master device
  addr list <link>                   List addresses on a link
  addr add <link> <cidr>             Assign an address
  addr del <link> <cidr>             Remove an address
  route list [-dev <link>] [-6]      List routes in the main table
  route add <dst> via <gw> [opts]    Install a route
  neigh set <link> <ip> <mac>        Pin a neighbor entry
  apply [-v] <file>                  Apply a declarative network description`)
}

func runLink(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("link needs a subcommand (list, add, del, set)")
	}
	switch args[0] {
	case "list":
		links, err := netlinkng.LinkList()
		if err != nil {
			return err
		}
		for _, l := range links {
			state := "down"
			if l.Attrs.OperState == netlinkng.OperUp {
				state = "up"
			}
			fmt.Printf("%d: %s <%s> mtu %d state %s\n",
				l.Attrs.Index, l.Attrs.Name, l.Attrs.EncapType, l.Attrs.MTU, state)
		}
		return nil

	case "add":
		fs := flag.NewFlagSet("link add", flag.ExitOnError)
		name := fs.String("name", "", "Interface name")
		kind := fs.String("kind", "dummy", "Link kind (dummy, veth, bridge, vxlan)")
		mtu := fs.Uint("mtu", 0, "MTU")
		peer := fs.String("peer", "", "Peer name (veth)")
		vni := fs.Uint("vni", 0, "VXLAN network identifier")
		fs.Parse(args[1:])
		if *name == "" {
			return fmt.Errorf("link add needs -name")
		}

		var k netlinkng.LinkKind
		switch *kind {
		case "dummy":
			k = &netlinkng.Dummy{}
		case "veth":
			if *peer == "" {
				return fmt.Errorf("veth needs -peer")
			}
			k = &netlinkng.Veth{PeerName: *peer}
		case "bridge":
			k = &netlinkng.Bridge{}
		case "vxlan":
			k = &netlinkng.Vxlan{ID: uint32(*vni)}
		default:
			return fmt.Errorf("unsupported kind %q", *kind)
		}
		return netlinkng.LinkAdd(&netlinkng.Link{
			Attrs: netlinkng.LinkAttrs{Name: *name, MTU: uint32(*mtu)},
			Kind:  k,
		})

	case "del":
		if len(args) < 2 {
			return fmt.Errorf("link del needs a name")
		}
		return netlinkng.LinkDel(netlinkng.LinkName(args[1]))

	case "set":
		if len(args) < 3 {
			return fmt.Errorf("link set needs a name and an action")
		}
		id := netlinkng.LinkName(args[1])
		switch args[2] {
		case "up":
			return netlinkng.LinkSetUp(id)
		case "down":
			return netlinkng.LinkSetDown(id)
		case "mtu":
			if len(args) < 4 {
				return fmt.Errorf("link set mtu needs a value")
			}
			mtu, err := strconv.ParseUint(args[3], 10, 32)
			if err != nil {
				return fmt.Errorf("bad mtu %q: %w", args[3], err)
			}
			return netlinkng.LinkSetMTU(id, uint32(mtu))
		case "master":
			if len(args) < 4 {
				return fmt.Errorf("link set master needs a device name")
			}
			return netlinkng.LinkSetMaster(id, netlinkng.LinkName(args[3]))
		case "promisc":
			return netlinkng.LinkSetPromiscOn(id)
		default:
			return fmt.Errorf("unknown link action %q", args[2])
		}

	default:
		return fmt.Errorf("unknown link subcommand %q", args[0])
	}
}

func runAddr(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("addr needs a subcommand and a link")
	}
	id := netlinkng.LinkName(args[1])
	switch args[0] {
	case "list":
		addrs, err := netlinkng.AddrList(id, netlinkng.FamilyAll)
		if err != nil {
			return err
		}
		for _, a := range addrs {
			fmt.Println(a)
		}
		return nil
	case "add", "del":
		if len(args) < 3 {
			return fmt.Errorf("addr %s needs a cidr", args[0])
		}
		addr, err := parseAddr(args[2])
		if err != nil {
			return err
		}
		if args[0] == "add" {
			return netlinkng.AddrAdd(id, addr)
		}
		return netlinkng.AddrDel(id, addr)
	default:
		return fmt.Errorf("unknown addr subcommand %q", args[0])
	}
}

func runRoute(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("route needs a subcommand (list, add)")
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("route list", flag.ExitOnError)
		dev := fs.String("dev", "", "Restrict to one output link")
		v6 := fs.Bool("6", false, "IPv6 routes")
		fs.Parse(args[1:])

		family := netlinkng.FamilyV4
		if *v6 {
			family = netlinkng.FamilyV6
		}
		var link *netlinkng.LinkID
		if *dev != "" {
			id := netlinkng.LinkName(*dev)
			link = &id
		}
		routes, err := netlinkng.RouteList(link, family)
		if err != nil {
			return err
		}
		for _, r := range routes {
			fmt.Println(r)
		}
		return nil

	case "add":
		if len(args) < 4 || args[2] != "via" {
			return fmt.Errorf("usage: route add <dst> via <gw> [-dev <link>] [-metric N]")
		}
		fs := flag.NewFlagSet("route add", flag.ExitOnError)
		dev := fs.String("dev", "", "Output link")
		metric := fs.Uint("metric", 0, "Route priority")
		fs.Parse(args[4:])

		route, err := parseRoute(args[1], args[3], *dev, uint32(*metric))
		if err != nil {
			return err
		}
		return netlinkng.RouteAdd(route)

	default:
		return fmt.Errorf("unknown route subcommand %q", args[0])
	}
}

func runNeigh(args []string) error {
	if len(args) < 4 || args[0] != "set" {
		return fmt.Errorf("usage: neigh set <link> <ip> <mac>")
	}
	neigh, err := parseNeigh(args[1], args[2], args[3])
	if err != nil {
		return err
	}
	return netlinkng.NeighSet(neigh)
}

func runApply(args []string) error {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	verbose := fs.Bool("v", false, "Verbose logging")
	jsonLog := fs.Bool("json-log", false, "Log as JSON")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("apply needs a description file")
	}

	logCfg := logging.DefaultConfig()
	logCfg.JSON = *jsonLog
	if *verbose {
		logCfg.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.New(logCfg))

	cfg, err := config.LoadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	return applyConfig(cfg, logging.WithComponent("apply"))
}
