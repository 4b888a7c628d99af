// Package main is the entry point for the locastarr application.
package main

import (
	"os"

	"github.com/jmylchreest/locastarr/cmd/locastarr/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
