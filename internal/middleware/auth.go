package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/benvon/tripflow/internal/database"
	"github.com/benvon/tripflow/internal/models"
	"github.com/benvon/tripflow/internal/request"
)

// Authenticator verifies a bearer token and returns its claims. *oidc.Authenticator satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.JWTClaims, error)
}

// UserFromContext extracts the user from the request context
func UserFromContext(r *http.Request) *models.User {
	return request.UserFromContext(r)
}

// Auth validates the bearer token on every request and attaches the matching user,
// creating the user on first sign-in and refreshing email and name when the identity provider changed them
func Auth(authenticator Authenticator, users database.UserRepositoryInterface, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Missing or malformed Authorization header", logger)
				return
			}

			ctx := r.Context()
			claims, err := authenticator.Authenticate(ctx, token)
			if err != nil {
				logger.Info("token_verification_failed",
					zap.String("request_id", request.IDFromContext(ctx)),
					zap.Error(err),
				)
				respondErrorJSON(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token", logger)
				return
			}

			user, err := provisionUser(ctx, users, claims, logger)
			if err != nil {
				logger.Error("user_provisioning_failed",
					zap.String("request_id", request.IDFromContext(ctx)),
					zap.Error(err),
				)
				respondErrorJSON(w, r, http.StatusInternalServerError, "Internal Server Error", "Failed to load user", logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(request.WithUser(ctx, user)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func provisionUser(ctx context.Context, users database.UserRepositoryInterface, claims *models.JWTClaims, logger *zap.Logger) (*models.User, error) {
	user, err := users.GetByProviderID(ctx, claims.Sub)
	if errors.Is(err, database.ErrNotFound) {
		user = models.NewUserFromClaims(claims)
		if err := users.Create(ctx, user); err != nil {
			return nil, err
		}
		logger.Info("user_created", zap.String("user_id", user.ID.String()))
		return user, nil
	}
	if err != nil {
		return nil, err
	}

	if changed := user.ApplyClaims(claims); changed {
		if err := users.Update(ctx, user); err != nil {
			logger.Warn("user_update_failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
	return user, nil
}
