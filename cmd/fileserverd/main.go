package main

import (
	"os"

	"github.com/bert42/fileserver/cmd/fileserverd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		commands.PrintErr("Error: %v", err)
		os.Exit(1)
	}
}
