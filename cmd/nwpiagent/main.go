// Package main is the entry point for the nwpiagent CLI.
package main

import (
	"os"

	"github.com/aruiz-p/sdwan-langgraph/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
