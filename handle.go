//go:build linux

package netlinkng

import (
	"errors"
	"fmt"

	"github.com/arthur-zhang/netlink-ng/nl"
)

// execute runs one request/reply exchange on a fresh connection. The socket
// is acquired here and released on every exit path; nothing is pooled or
// reused between operations.
func execute(m nl.Message) ([]nl.Message, error) {
	conn, err := nl.Dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return conn.Execute(m)
}

// LinkID references a link by kernel index or, when the index is unknown,
// by interface name.
type LinkID struct {
	index uint32
	name  string
}

// LinkIndex references a link by its kernel interface index.
func LinkIndex(index uint32) LinkID {
	return LinkID{index: index}
}

// LinkName references a link by name; it is resolved to an index on use.
func LinkName(name string) LinkID {
	return LinkID{name: name}
}

// Resolve returns the kernel interface index, looking the link up by name
// when no index was given. A name that matches nothing resolves to
// ErrNotFound.
func (id LinkID) Resolve() (uint32, error) {
	if id.index != 0 {
		return id.index, nil
	}
	if id.name == "" {
		return 0, errors.New("netlink-ng: empty link identifier")
	}
	link, err := LinkByName(id.name)
	if err != nil {
		return 0, err
	}
	if link == nil {
		return 0, fmt.Errorf("link %q: %w", id.name, ErrNotFound)
	}
	return link.Attrs.Index, nil
}

func (id LinkID) String() string {
	if id.index != 0 {
		return fmt.Sprintf("ifindex %d", id.index)
	}
	return id.name
}
