package main

import (
	"os"

	"github.com/mbeltran/armlex/cmd/armlex/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
