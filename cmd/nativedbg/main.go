// Package main is the entry point for nativedbg.
package main

import (
	"os"

	"github.com/dshills/nativedbg/internal/commands"
)

func main() {
	if err := commands.New().Execute(); err != nil {
		os.Exit(1)
	}
}
