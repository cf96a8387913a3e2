package testutil

import (
	"os"
	"testing"
)

// RequireKernel skips the test if the NETLINK_NG_KERNEL_TEST environment
// variable is not set. Tests that talk to the real route socket mutate or
// inspect host interfaces and must only run where that is acceptable.
func RequireKernel(t *testing.T) {
	t.Helper()
	if os.Getenv("NETLINK_NG_KERNEL_TEST") == "" {
		t.Skip("Skipping test: requires NETLINK_NG_KERNEL_TEST environment")
	}
}
