package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	logpkg "github.com/benvon/tripflow/internal/logger"
	"github.com/benvon/tripflow/internal/middleware"
	"github.com/benvon/tripflow/internal/services/oidc"
)

// LoginFlow is the OIDC authorization-code flow. *oidc.Provider satisfies it.
type LoginFlow interface {
	GetLoginConfig(ctx context.Context) *oidc.LoginConfig
	AuthCodeURL(ctx context.Context, state string) string
	ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error)
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

var _ LoginFlow = (*oidc.Provider)(nil)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	flow   LoginFlow
	logger *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(flow LoginFlow, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{flow: flow, logger: logger}
}

// RegisterPublicRoutes registers the login routes
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/oidc/login", h.GetOIDCLogin).Methods("GET")
	r.HandleFunc("/oidc/callback", h.OIDCCallback).Methods("POST")
	r.HandleFunc("/oidc/refresh", h.OIDCRefresh).Methods("POST")
}

// RegisterRoutes registers the authenticated auth routes
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
}

// LoginResponse carries what a client needs to start the code flow.
// The client keeps state and compares it on the redirect back.
type LoginResponse struct {
	AuthURL string            `json:"auth_url"`
	State   string            `json:"state"`
	Config  *oidc.LoginConfig `json:"config"`
}

// CallbackRequest represents an authorization-code callback
type CallbackRequest struct {
	Code  string `json:"code" validate:"required,max=4096"`
	State string `json:"state,omitempty" validate:"max=256"`
}

// RefreshRequest carries a refresh token issued by an earlier callback
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=4096"`
}

// TokenResponse carries the tokens issued for a code
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	IDToken      string    `json:"id_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at,omitempty"`
}

// GetOIDCLogin returns the authorization URL and a fresh state value
func (h *AuthHandler) GetOIDCLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := uuid.NewString()
	respondJSON(w, http.StatusOK, LoginResponse{
		AuthURL: h.flow.AuthCodeURL(ctx, state),
		State:   state,
		Config:  h.flow.GetLoginConfig(ctx),
	})
}

// OIDCCallback exchanges an authorization code for tokens
func (h *AuthHandler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.flow.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		h.logger.Warn("oidc_code_exchange_failed",
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Authorization code exchange failed")
		return
	}

	respondJSON(w, http.StatusOK, newTokenResponse(token))
}

// OIDCRefresh trades a refresh token for a new access token
func (h *AuthHandler) OIDCRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.flow.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.logger.Warn("oidc_token_refresh_failed",
			zap.String("error", logpkg.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Token refresh failed")
		return
	}
	respondJSON(w, http.StatusOK, newTokenResponse(token))
}

func newTokenResponse(token *oauth2.Token) TokenResponse {
	resp := TokenResponse{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.Type(),
		ExpiresAt:    token.Expiry,
	}
	if idToken, ok := token.Extra("id_token").(string); ok {
		resp.IDToken = idToken
	}
	return resp
}

// GetMe returns current user information
func (h *AuthHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	respondJSON(w, http.StatusOK, user)
}
