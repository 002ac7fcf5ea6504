package main

import (
	"os"

	"github.com/dvloznov/ledger-intake/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
