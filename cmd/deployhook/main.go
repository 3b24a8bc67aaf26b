// Package main is the deployhook entry point.
package main

import (
	"os"

	"github.com/leapstack-labs/deployhook/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
