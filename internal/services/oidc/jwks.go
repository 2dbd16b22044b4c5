package oidc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
)

const maxJWKSBytes = 1 << 20

type keySetEntry struct {
	keys      jwk.Set
	fetchedAt time.Time
}

// JWKSManager fetches signing key sets and keeps them for ttl. When a refresh fails
// the last good set keeps being served, so an identity provider blip does not log
// every traveller out.
type JWKSManager struct {
	ttl        time.Duration
	httpClient *http.Client

	mu      sync.RWMutex
	entries map[string]keySetEntry
}

// NewJWKSManager caches key sets for an hour
func NewJWKSManager() *JWKSManager {
	return NewJWKSManagerWithTTL(time.Hour)
}

// NewJWKSManagerWithTTL caches key sets for ttl
func NewJWKSManagerWithTTL(ttl time.Duration) *JWKSManager {
	return &JWKSManager{
		ttl:        ttl,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		entries:    make(map[string]keySetEntry),
	}
}

// GetJWKS returns the key set published at jwksURL
func (m *JWKSManager) GetJWKS(ctx context.Context, jwksURL string) (jwk.Set, error) {
	m.mu.RLock()
	entry, ok := m.entries[jwksURL]
	m.mu.RUnlock()
	if ok && time.Since(entry.fetchedAt) < m.ttl {
		return entry.keys, nil
	}

	keys, err := m.fetch(ctx, jwksURL)
	if err != nil {
		if ok {
			return entry.keys, nil
		}
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	m.mu.Lock()
	m.entries[jwksURL] = keySetEntry{keys: keys, fetchedAt: time.Now()}
	m.mu.Unlock()
	return keys, nil
}

func (m *JWKSManager) fetch(ctx context.Context, jwksURL string) (jwk.Set, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build JWKS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}
	keys, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS: %w", err)
	}
	return keys, nil
}
