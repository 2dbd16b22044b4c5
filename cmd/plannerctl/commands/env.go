package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/benvon/tripflow/internal/cache"
	"github.com/benvon/tripflow/internal/config"
	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/services/itinerary"
)

var (
	userEmail string
	tripFlag  string
)

// AddGlobalFlags registers the flags that select whose data a command works on
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVar(&userEmail, "user", "", "Email of the user that owns the data")
	root.PersistentFlags().StringVar(&tripFlag, "trip", "", "Trip ID; omit for standalone days")
}

// env holds the connections and services a command needs
type env struct {
	db    *database.DB
	users database.UserRepositoryInterface
	days  *itinerary.DayService
	trips *itinerary.TripService
	close func()
}

// openEnv connects to Postgres and, when configured, Redis so edits drop stale analyses.
// AI and queue collaborators are left out; the CLI never calls them.
func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closers := []func() error{db.Close}

	var analysisCache itinerary.AnalysisCache
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: redis unavailable, cached analyses will not be invalidated: %v\n", err)
		} else {
			closers = append(closers, client.Close)
			analysisCache = cache.New(client, cfg.AnalysisCacheTTL, cfg.GeocodeCacheTTL)
		}
	}

	dayRepo := database.NewDayPlanRepository(db)
	tripRepo := database.NewTripRepository(db)
	return &env{
		db:    db,
		users: database.NewUserRepository(db),
		days:  itinerary.NewDayService(dayRepo, tripRepo, analysisCache, nil, nil, nil),
		trips: itinerary.NewTripService(tripRepo, dayRepo, analysisCache, nil),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				if err := closers[i](); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to close connection: %v\n", err)
				}
			}
		},
	}, nil
}

// UserLookup finds users by email
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// resolveUser looks up the --user account
func resolveUser(ctx context.Context, users UserLookup, email string) (*models.User, error) {
	if email == "" {
		return nil, errors.New("--user is required")
	}
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("no user with email %q", email)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return user, nil
}

// resolveScope builds the scope for --user and the optional --trip
func resolveScope(ctx context.Context, users UserLookup, email, trip string) (models.Scope, error) {
	user, err := resolveUser(ctx, users, email)
	if err != nil {
		return models.Scope{}, err
	}
	if trip == "" {
		return models.UserScope(user.ID), nil
	}
	tripID, err := uuid.Parse(trip)
	if err != nil {
		return models.Scope{}, fmt.Errorf("invalid --trip %q: %w", trip, err)
	}
	return models.TripScope(user.ID, tripID), nil
}
