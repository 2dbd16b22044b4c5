package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/benvon/tripflow/internal/models"
)

// NewTripsCmd creates the trips command with list and create subcommands
func NewTripsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Manage a user's trips",
	}
	cmd.AddCommand(newTripsListCmd())
	cmd.AddCommand(newTripsCreateCmd())
	return cmd
}

func newTripsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trips with their date ranges",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := context.Background()
			user, err := resolveUser(ctx, e.users, userEmail)
			if err != nil {
				return err
			}
			trips, err := e.trips.ListTrips(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("failed to list trips: %w", err)
			}
			renderTrips(cmd.OutOrStdout(), trips)
			return nil
		},
	}
}

func newTripsCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			defer e.close()

			ctx := context.Background()
			user, err := resolveUser(ctx, e.users, userEmail)
			if err != nil {
				return err
			}
			trip, err := e.trips.CreateTrip(ctx, user.ID, args[0])
			if err != nil {
				return fmt.Errorf("failed to create trip: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created trip %q (%s)\n", trip.Name, trip.ID)
			return nil
		},
	}
}

func renderTrips(w io.Writer, trips []*models.Trip) {
	if len(trips) == 0 {
		fmt.Fprintln(w, "No trips")
		return
	}
	for _, t := range trips {
		span := "no days"
		if t.DateRange != nil {
			span = t.DateRange.Start + " to " + t.DateRange.End
		}
		fmt.Fprintf(w, "%s  %-30s  %2d days  %s\n", t.ID, t.Name, t.DayCount, span)
	}
}
