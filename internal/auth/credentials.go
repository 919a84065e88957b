// Package auth defines the OAuth2 credential bundle handed to the core by the
// external login flow, and a token cache that keeps a valid access token for
// Gmail API calls.
package auth

import (
	"errors"
)

// Credentials is the opaque credential bundle produced by the external OAuth
// login flow. It is treated as an immutable value: scheduled jobs carry a
// snapshot taken at scheduling time, and the core never persists it.
type Credentials struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

// Validate checks that the bundle is usable for transport calls. A bundle is
// usable if it carries an access token, or enough material to mint one via the
// refresh-token grant.
func (c Credentials) Validate() error {
	if c.Token != "" {
		return nil
	}
	if c.RefreshToken == "" {
		return errors.New("credentials missing both access token and refresh token")
	}
	if c.TokenURI == "" {
		return errors.New("credentials missing token_uri")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return errors.New("credentials missing client_id or client_secret")
	}
	return nil
}

// Refreshable returns true if the bundle carries enough material for the
// refresh-token grant.
func (c Credentials) Refreshable() bool {
	return c.RefreshToken != "" && c.TokenURI != "" && c.ClientID != "" && c.ClientSecret != ""
}
