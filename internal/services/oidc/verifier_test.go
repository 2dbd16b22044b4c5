package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/benvon/tripflow/internal/models"
)

const testIssuer = "https://idp.example.com"

type testKeys struct {
	private jwk.Key
	server  *httptest.Server
	fetches *int32
}

func newTestKeys(t *testing.T) *testKeys {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	private, err := jwk.FromRaw(raw)
	if err != nil {
		t.Fatalf("failed to wrap key: %v", err)
	}
	_ = private.Set(jwk.KeyIDKey, "test-kid")
	_ = private.Set(jwk.AlgorithmKey, jwa.RS256)

	public, err := jwk.PublicKeyOf(private)
	if err != nil {
		t.Fatalf("failed to derive public key: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(public); err != nil {
		t.Fatalf("failed to build key set: %v", err)
	}
	body, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("failed to encode key set: %v", err)
	}

	var fetches int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return &testKeys{private: private, server: srv, fetches: &fetches}
}

func (k *testKeys) sign(t *testing.T, build func(*jwt.Builder) *jwt.Builder) string {
	t.Helper()
	tok, err := build(jwt.NewBuilder()).Build()
	if err != nil {
		t.Fatalf("failed to build token: %v", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, k.private))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return string(signed)
}

func validClaims(b *jwt.Builder) *jwt.Builder {
	return b.Issuer(testIssuer).
		Subject("user-sub").
		Audience([]string{"tripflow"}).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(time.Now().Add(time.Hour)).
		Claim("email", "traveller@example.com").
		Claim("name", "Traveller")
}

func TestVerifier_Verify(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	v := NewVerifier(NewJWKSManager(), testIssuer, "tripflow")

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{name: "valid", token: keys.sign(t, validClaims)},
		{
			name: "wrong issuer",
			token: keys.sign(t, func(b *jwt.Builder) *jwt.Builder {
				return validClaims(b).Issuer("https://evil.example.com")
			}),
			wantErr: true,
		},
		{
			name: "wrong audience",
			token: keys.sign(t, func(b *jwt.Builder) *jwt.Builder {
				return validClaims(b).Audience([]string{"other-app"})
			}),
			wantErr: true,
		},
		{
			name: "expired",
			token: keys.sign(t, func(b *jwt.Builder) *jwt.Builder {
				return validClaims(b).Expiration(time.Now().Add(-time.Hour))
			}),
			wantErr: true,
		},
		{
			name: "missing subject",
			token: keys.sign(t, func(b *jwt.Builder) *jwt.Builder {
				return validClaims(b).Subject("")
			}),
			wantErr: true,
		},
		{name: "garbage", token: "not.a.jwt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			claims, err := v.Verify(context.Background(), tt.token, keys.server.URL)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Errorf("Expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			want := models.JWTClaims{Sub: "user-sub", Email: "traveller@example.com", Name: "Traveller", Iss: testIssuer, Aud: "tripflow"}
			if claims.Sub != want.Sub || claims.Email != want.Email || claims.Name != want.Name || claims.Iss != want.Iss || claims.Aud != want.Aud {
				t.Errorf("Unexpected claims %+v", claims)
			}
			if claims.Exp == 0 || claims.Iat == 0 {
				t.Errorf("Expected exp and iat to be set, got %+v", claims)
			}
		})
	}
}

func TestJWKSManager_Caches(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	m := NewJWKSManager()
	for i := 0; i < 3; i++ {
		if _, err := m.GetJWKS(context.Background(), keys.server.URL); err != nil {
			t.Fatalf("GetJWKS failed: %v", err)
		}
	}
	if got := atomic.LoadInt32(keys.fetches); got != 1 {
		t.Errorf("Expected a single fetch, got %d", got)
	}

	expiring := NewJWKSManagerWithTTL(time.Nanosecond)
	for i := 0; i < 2; i++ {
		if _, err := expiring.GetJWKS(context.Background(), keys.server.URL); err != nil {
			t.Fatalf("GetJWKS failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt32(keys.fetches); got != 3 {
		t.Errorf("Expected refetch after expiry, got %d fetches", got)
	}
}

func TestJWKSManager_ServesStaleKeysWhenRefreshFails(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	m := NewJWKSManagerWithTTL(time.Nanosecond)
	first, err := m.GetJWKS(context.Background(), keys.server.URL)
	if err != nil {
		t.Fatalf("GetJWKS failed: %v", err)
	}

	keys.server.Close()
	time.Sleep(time.Millisecond)

	stale, err := m.GetJWKS(context.Background(), keys.server.URL)
	if err != nil {
		t.Fatalf("Expected the cached set after a failed refresh, got %v", err)
	}
	if stale.Len() != first.Len() {
		t.Errorf("Expected %d stale keys, got %d", first.Len(), stale.Len())
	}

	if _, err := NewJWKSManager().GetJWKS(context.Background(), keys.server.URL); err == nil {
		t.Error("Expected an error with nothing cached and the endpoint down")
	}
}

func TestAuthenticator(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	provider := NewProvider(&models.OIDCConfig{Issuer: "http://127.0.0.1:1", JWKSURL: keys.server.URL})
	auth := NewAuthenticator(provider, NewVerifier(NewJWKSManager(), testIssuer, ""))

	claims, err := auth.Authenticate(context.Background(), keys.sign(t, validClaims))
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if claims.Sub != "user-sub" {
		t.Errorf("Unexpected subject %q", claims.Sub)
	}
}
