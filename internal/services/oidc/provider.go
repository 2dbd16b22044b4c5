package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/benvon/tripflow/internal/models"
)

// Endpoints are the OAuth2/OIDC URLs resolved for the configured identity provider
type Endpoints struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

// Provider resolves the identity provider's endpoints from its settings and discovery document
type Provider struct {
	config     *models.OIDCConfig
	httpClient *http.Client

	mu        sync.Mutex
	endpoints *Endpoints
}

// NewProvider creates a provider for the given settings
func NewProvider(config *models.OIDCConfig) *Provider {
	return &Provider{
		config:     config,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Config returns the provider settings
func (p *Provider) Config() *models.OIDCConfig {
	return p.config
}

// Endpoints returns the provider endpoints. Discovery is attempted once per successful lookup;
// missing values fall back to issuer- or domain-derived URLs.
func (p *Provider) Endpoints(ctx context.Context) *Endpoints {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.endpoints != nil {
		return p.endpoints
	}

	discovered, err := p.discover(ctx)
	ep := p.fallbackEndpoints()
	if err == nil {
		if discovered.AuthorizationEndpoint != "" && !p.useDomain() {
			ep.AuthorizationEndpoint = discovered.AuthorizationEndpoint
		}
		if discovered.TokenEndpoint != "" && !p.useDomain() {
			ep.TokenEndpoint = discovered.TokenEndpoint
		}
		if discovered.JWKSURI != "" && p.config.JWKSURL == "" {
			ep.JWKSURI = discovered.JWKSURI
		}
		p.endpoints = ep
	}
	return ep
}

// JWKSURL returns the key set URL used to verify tokens
func (p *Provider) JWKSURL(ctx context.Context) string {
	return p.Endpoints(ctx).JWKSURI
}

func (p *Provider) discover(ctx context.Context) (*Endpoints, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.Issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}
	var doc Endpoints
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode discovery document: %w", err)
	}
	return &doc, nil
}

// useDomain reports whether OAuth2 endpoints must come from a Cognito hosted domain
func (p *Provider) useDomain() bool {
	return p.config.Domain != "" && strings.Contains(p.config.Issuer, "cognito-idp.")
}

func (p *Provider) fallbackEndpoints() *Endpoints {
	base := p.config.Issuer
	if p.useDomain() {
		base = p.config.Domain
		if !strings.HasPrefix(base, "https://") {
			base = "https://" + base
		}
		base = strings.TrimRight(base, "/")
	}
	jwks := p.config.JWKSURL
	if jwks == "" {
		jwks = p.config.Issuer + "/.well-known/jwks.json"
	}
	return &Endpoints{
		AuthorizationEndpoint: base + "/oauth2/authorize",
		TokenEndpoint:         base + "/oauth2/token",
		JWKSURI:               jwks,
	}
}

// LoginConfig contains OIDC login configuration for the frontend
type LoginConfig struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	ClientID              string `json:"client_id"`
	RedirectURI           string `json:"redirect_uri"`
	Scope                 string `json:"scope"`
}

// GetLoginConfig returns the configuration needed for frontend OIDC login
func (p *Provider) GetLoginConfig(ctx context.Context) *LoginConfig {
	ep := p.Endpoints(ctx)
	return &LoginConfig{
		AuthorizationEndpoint: ep.AuthorizationEndpoint,
		TokenEndpoint:         ep.TokenEndpoint,
		ClientID:              p.config.ClientID,
		RedirectURI:           p.config.RedirectURI,
		Scope:                 "openid email profile",
	}
}
