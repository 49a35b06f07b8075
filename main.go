// Package main is the entry point for the smart-finance expense tracker.
package main

import (
	"os"

	"gitlab.com/yelinaung/smart-finance/internal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
