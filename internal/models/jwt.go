package models

// JWTClaims are the identity token claims the API relies on after verification
type JWTClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Exp           int64  `json:"exp"`
	Iat           int64  `json:"iat"`
	Iss           string `json:"iss"`
	// Aud is the first audience entry
	Aud string `json:"aud"`
}
