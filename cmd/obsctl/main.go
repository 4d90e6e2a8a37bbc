// Package main is the entry point for the obsctl CLI tool.
package main

import (
	"os"

	"github.com/mkern/obsctl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
