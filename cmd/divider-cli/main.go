package main

import (
	"os"

	"divider/cmd/divider-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
