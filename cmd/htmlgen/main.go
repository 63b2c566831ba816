// Package main provides the htmlgen command line.
package main

import (
	"os"

	"github.com/AljoschaMeyer/atm-htmlgen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
