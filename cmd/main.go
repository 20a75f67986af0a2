package main

import (
	"os"

	"github.com/forest-guardian/blackmarble-ntl/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
