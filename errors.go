//go:build linux

package netlinkng

import (
	"fmt"

	"github.com/arthur-zhang/netlink-ng/nl"
)

// Re-exported transport sentinels so callers rarely need to import nl.
var (
	ErrNotFound      = nl.ErrNotFound
	ErrExists        = nl.ErrExists
	ErrUnimplemented = nl.ErrUnimplemented
)

// AmbiguousLookupError reports a lookup that was expected to match at most
// one object but matched several.
type AmbiguousLookupError struct {
	Query   string
	Matches int
}

func (e *AmbiguousLookupError) Error() string {
	return fmt.Sprintf("netlink-ng: %d objects matched %q, expected at most one", e.Matches, e.Query)
}
