package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewDayCmd creates the day command with export, import, metrics and slots subcommands
func NewDayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Inspect and move day plans",
		Long:  "Export a day to YAML, import a YAML itinerary, or print a day's slots and metrics. Use --trip for days within a trip.",
	}
	cmd.AddCommand(newDayExportCmd())
	cmd.AddCommand(newDayImportCmd())
	cmd.AddCommand(newDayMetricsCmd())
	cmd.AddCommand(newDaySlotsCmd())
	return cmd
}

func newDayExportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export DATE",
		Short: "Write a day as a YAML itinerary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := context.Background()
			scope, err := resolveScope(ctx, e.users, userEmail, tripFlag)
			if err != nil {
				return err
			}
			day, err := e.days.GetDay(ctx, scope, args[0])
			if err != nil {
				return fmt.Errorf("failed to load day %s: %w", args[0], err)
			}
			data, err := MarshalItinerary(day)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", day.Date, outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "File to write (default stdout)")
	return cmd
}

func newDayImportCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Create a day from a YAML itinerary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			it, err := ParseItinerary(f)
			if err != nil {
				return err
			}

			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := context.Background()
			scope, err := resolveScope(ctx, e.users, userEmail, tripFlag)
			if err != nil {
				return err
			}
			result, err := ImportItinerary(ctx, e.days, scope, it, replace)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %s: %d of %d activities added\n", result.Date, result.Added, len(it.Activities))
			for _, r := range result.Rejected {
				fmt.Fprintf(out, "  rejected %s\n", r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Delete an existing day with the same date first")
	return cmd
}

func newDayMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics DATE",
		Short: "Print a day's budget and time metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := context.Background()
			scope, err := resolveScope(ctx, e.users, userEmail, tripFlag)
			if err != nil {
				return err
			}
			m, err := e.days.Metrics(ctx, scope, args[0])
			if err != nil {
				return fmt.Errorf("failed to compute metrics: %w", err)
			}
			renderMetrics(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newDaySlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots DATE",
		Short: "Print a day's hour slots and the activities in each",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := context.Background()
			scope, err := resolveScope(ctx, e.users, userEmail, tripFlag)
			if err != nil {
				return err
			}
			slots, err := e.days.Slots(ctx, scope, args[0])
			if err != nil {
				return fmt.Errorf("failed to build slots: %w", err)
			}
			renderSlots(cmd.OutOrStdout(), slots)
			return nil
		},
	}
}
