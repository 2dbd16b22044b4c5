package oidc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// loginScopes are requested on every authorization
var loginScopes = []string{"openid", "email", "profile"}

// ErrNoRefreshToken is returned when a refresh is attempted without a token
var ErrNoRefreshToken = errors.New("refresh token is required")

// oauthConfig builds the code-flow client for the resolved endpoints. Public clients leave the secret empty.
func (p *Provider) oauthConfig(ctx context.Context) *oauth2.Config {
	ep := p.Endpoints(ctx)
	return &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		RedirectURL:  p.config.RedirectURI,
		Scopes:       loginScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  ep.AuthorizationEndpoint,
			TokenURL: ep.TokenEndpoint,
		},
	}
}

// tokenContext makes oauth2 use the provider's HTTP client and its timeout
func (p *Provider) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// AuthCodeURL returns the authorization URL for the resolved endpoints
func (p *Provider) AuthCodeURL(ctx context.Context, state string) string {
	return p.oauthConfig(ctx).AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for tokens at the resolved token endpoint
func (p *Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.oauthConfig(ctx).Exchange(p.tokenContext(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	return token, nil
}

// RefreshToken obtains a new access token. Providers that do not rotate refresh tokens
// return none, so the old one is carried over.
func (p *Provider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	src := p.oauthConfig(ctx).TokenSource(p.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	return token, nil
}
