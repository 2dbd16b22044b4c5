package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a traveller known by their identity provider subject
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewUserFromClaims provisions a user on first sign-in
func NewUserFromClaims(claims *JWTClaims) *User {
	sub := claims.Sub
	user := &User{
		ID:            uuid.New(),
		Email:         claims.Email,
		ProviderID:    &sub,
		EmailVerified: claims.EmailVerified,
	}
	if claims.Name != "" {
		name := claims.Name
		user.Name = &name
	}
	return user
}

// ApplyClaims copies non-empty profile claims onto the user and reports whether anything changed.
// A token that omits email_verified never downgrades a verified address.
func (u *User) ApplyClaims(claims *JWTClaims) bool {
	changed := false
	if claims.Email != "" && u.Email != claims.Email {
		u.Email = claims.Email
		u.EmailVerified = claims.EmailVerified
		changed = true
	} else if claims.EmailVerified && !u.EmailVerified {
		u.EmailVerified = true
		changed = true
	}
	if claims.Name != "" && (u.Name == nil || *u.Name != claims.Name) {
		name := claims.Name
		u.Name = &name
		changed = true
	}
	return changed
}

// DisplayName is the profile name, falling back to the email
func (u *User) DisplayName() string {
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}
