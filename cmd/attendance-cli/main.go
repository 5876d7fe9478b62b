package main

import (
	"fmt"
	"os"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/cli"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/cli/admin"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/cli/keys"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/cli/migrate"
)

func main() {
	registry := cli.NewRegistry()

	// Register commands
	registry.Register(&keys.Command{})
	registry.Register(&admin.Command{})
	registry.Register(&migrate.Command{})

	// Run
	if err := registry.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
