//go:build !linux

package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "nlctl manages Linux interfaces over the route protocol and only runs on Linux")
	os.Exit(1)
}
