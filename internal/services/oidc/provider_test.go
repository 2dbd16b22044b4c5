package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/benvon/tripflow/internal/models"
)

func TestProvider_EndpointsFromDiscovery(t *testing.T) {
	t.Parallel()

	var calls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"authorization_endpoint":"` + srv.URL + `/authorize","token_endpoint":"` + srv.URL + `/token","jwks_uri":"` + srv.URL + `/keys"}`))
	}))
	defer srv.Close()

	p := NewProvider(&models.OIDCConfig{Issuer: srv.URL, ClientID: "cid", RedirectURI: "http://localhost/cb"})
	ep := p.Endpoints(context.Background())
	if ep.AuthorizationEndpoint != srv.URL+"/authorize" || ep.TokenEndpoint != srv.URL+"/token" {
		t.Errorf("Unexpected endpoints %+v", ep)
	}
	if p.JWKSURL(context.Background()) != srv.URL+"/keys" {
		t.Errorf("Unexpected JWKS URL %s", p.JWKSURL(context.Background()))
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected discovery to be cached, got %d calls", got)
	}

	login := p.GetLoginConfig(context.Background())
	if login.ClientID != "cid" || login.Scope != "openid email profile" {
		t.Errorf("Unexpected login config %+v", login)
	}
}

func TestProvider_Fallbacks(t *testing.T) {
	t.Parallel()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()

	tests := []struct {
		name      string
		config    *models.OIDCConfig
		wantAuth  string
		wantToken string
		wantJWKS  string
	}{
		{
			name:      "issuer derived",
			config:    &models.OIDCConfig{Issuer: down.URL},
			wantAuth:  down.URL + "/oauth2/authorize",
			wantToken: down.URL + "/oauth2/token",
			wantJWKS:  down.URL + "/.well-known/jwks.json",
		},
		{
			name:      "explicit jwks url",
			config:    &models.OIDCConfig{Issuer: down.URL, JWKSURL: "https://keys.example/jwks"},
			wantAuth:  down.URL + "/oauth2/authorize",
			wantToken: down.URL + "/oauth2/token",
			wantJWKS:  "https://keys.example/jwks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ep := NewProvider(tt.config).Endpoints(context.Background())
			if ep.AuthorizationEndpoint != tt.wantAuth || ep.TokenEndpoint != tt.wantToken || ep.JWKSURI != tt.wantJWKS {
				t.Errorf("Unexpected endpoints %+v", ep)
			}
		})
	}
}

func TestProvider_CognitoDomain(t *testing.T) {
	t.Parallel()

	p := NewProvider(&models.OIDCConfig{
		Issuer: "http://127.0.0.1:1/cognito-idp.us-east-1.amazonaws.com/pool",
		Domain: "auth.example.com/",
	})
	ep := p.fallbackEndpoints()
	if ep.AuthorizationEndpoint != "https://auth.example.com/oauth2/authorize" {
		t.Errorf("Expected domain-based authorize endpoint, got %s", ep.AuthorizationEndpoint)
	}
	if ep.TokenEndpoint != "https://auth.example.com/oauth2/token" {
		t.Errorf("Expected domain-based token endpoint, got %s", ep.TokenEndpoint)
	}
}
