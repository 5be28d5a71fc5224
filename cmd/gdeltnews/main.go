package main

import (
	"os"

	"github.com/spf13/cobra"

	"gdeltnews/internal/interfaces/cli/migrate"
	"gdeltnews/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gdeltnews",
		Short: "GDELT news article API",
		Long:  `Read-only HTTP API serving recent GDELT news articles per country, backed by a deadline-aware coalescing cache in front of the analytical warehouse.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
