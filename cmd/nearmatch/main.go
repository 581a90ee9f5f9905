// Package main provides the entry point for the nearmatch CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/nearmatch/cmd/nearmatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
