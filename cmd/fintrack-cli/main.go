// Package main is the entry point for the fintrack command line tool.
package main

import (
	"os"

	"fintrack/cmd/fintrack-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
