package oidc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/benvon/tripflow/internal/models"
)

// newIdentityServer serves discovery and a token endpoint that answers both grant types
func newIdentityServer(t *testing.T, rotate bool) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.well-known/openid-configuration":
			_, _ = w.Write([]byte(`{"authorization_endpoint":"` + srv.URL + `/authorize","token_endpoint":"` + srv.URL + `/token","jwks_uri":"` + srv.URL + `/keys"}`))
		case "/token":
			if err := r.ParseForm(); err != nil {
				t.Errorf("ParseForm failed: %v", err)
			}
			w.Header().Set("Content-Type", "application/json")
			switch {
			case r.Form.Get("grant_type") == "authorization_code" && r.Form.Get("code") == "auth-code":
				_, _ = w.Write([]byte(`{"access_token":"at","id_token":"idt","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`))
			case r.Form.Get("grant_type") == "refresh_token" && r.Form.Get("refresh_token") == "rt":
				if rotate {
					_, _ = w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","token_type":"Bearer","expires_in":3600}`))
					return
				}
				_, _ = w.Write([]byte(`{"access_token":"at2","token_type":"Bearer","expires_in":3600}`))
			default:
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProvider_AuthCodeURL(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, false)
	p := NewProvider(&models.OIDCConfig{Issuer: srv.URL, ClientID: "test-client-id", RedirectURI: "http://localhost:4200/callback"})

	raw := p.AuthCodeURL(context.Background(), "test-state-123")
	if !strings.HasPrefix(raw, srv.URL+"/authorize?") {
		t.Fatalf("Expected discovered authorization endpoint, got %s", raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthCodeURL returned an invalid URL: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "test-state-123" || q.Get("client_id") != "test-client-id" {
		t.Errorf("Expected state and client_id in query, got %s", u.RawQuery)
	}
	if q.Get("scope") != "openid email profile" || q.Get("redirect_uri") != "http://localhost:4200/callback" {
		t.Errorf("Unexpected scope or redirect in %s", u.RawQuery)
	}
}

func TestProvider_ExchangeCode(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, false)
	p := NewProvider(&models.OIDCConfig{Issuer: srv.URL, ClientID: "cid", ClientSecret: "secret"})

	token, err := p.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}
	if token.AccessToken != "at" || token.Extra("id_token") != "idt" {
		t.Errorf("Unexpected token %+v (id_token %v)", token, token.Extra("id_token"))
	}

	if _, err := p.ExchangeCode(context.Background(), "stolen"); err == nil {
		t.Error("Expected an unknown code to be rejected")
	}
}

func TestProvider_RefreshToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		rotate      bool
		refresh     string
		wantErr     bool
		wantRefresh string
	}{
		{name: "provider keeps refresh token", refresh: "rt", wantRefresh: "rt"},
		{name: "provider rotates refresh token", rotate: true, refresh: "rt", wantRefresh: "rt2"},
		{name: "revoked refresh token", refresh: "revoked", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newIdentityServer(t, tt.rotate)
			p := NewProvider(&models.OIDCConfig{Issuer: srv.URL, ClientID: "cid"})

			token, err := p.RefreshToken(context.Background(), tt.refresh)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RefreshToken error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if token.AccessToken != "at2" || token.RefreshToken != tt.wantRefresh {
				t.Errorf("Unexpected token %+v", token)
			}
		})
	}

	p := NewProvider(&models.OIDCConfig{Issuer: "http://127.0.0.1:1", ClientID: "cid"})
	if _, err := p.RefreshToken(context.Background(), "  "); !errors.Is(err, ErrNoRefreshToken) {
		t.Errorf("Expected ErrNoRefreshToken, got %v", err)
	}
}
