package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benvon/tripflow/cmd/plannerctl/commands"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "plannerctl",
		Short:         "Administration tool for the TripFlow planner",
		Long:          "CLI tool for migrating the database, managing trips and moving day itineraries in and out as YAML",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	commands.AddGlobalFlags(rootCmd)

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewTripsCmd())
	rootCmd.AddCommand(commands.NewDayCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
