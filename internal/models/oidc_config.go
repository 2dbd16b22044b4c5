package models

// OIDCConfig holds the identity provider settings used for login and token verification
type OIDCConfig struct {
	Provider     string `json:"provider"`
	Issuer       string `json:"issuer"`
	Domain       string `json:"domain,omitempty"` // OAuth2 domain, e.g. a Cognito hosted UI domain
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"` // empty for public clients
	RedirectURI  string `json:"redirect_uri"`
	JWKSURL      string `json:"jwks_url,omitempty"`
}
