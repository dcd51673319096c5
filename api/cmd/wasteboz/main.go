package main

import (
	"os"

	"wasteboz/api/cmd/wasteboz/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
