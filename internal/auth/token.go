package auth

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenExpiryBuffer is the time before actual expiry when we consider a token
// expired. This prevents using a token that is about to expire during a request.
const tokenExpiryBuffer = 5 * time.Minute

// tokenResponse represents the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// TokenSource manages an access token for a credential bundle with thread-safe
// caching and refresh via the OAuth2 refresh-token grant.
//
// The bundle's initial access token is used as-is until a refresh is forced
// (its remaining lifetime is unknown to the core), after which refreshed
// tokens are cached until shortly before their reported expiry.
type TokenSource struct {
	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
	creds       Credentials
	httpClient  *http.Client
}

// NewTokenSource creates a token source seeded with the bundle's access token.
func NewTokenSource(creds Credentials, httpClient *http.Client) *TokenSource {
	return &TokenSource{
		accessToken: creds.Token,
		creds:       creds,
		httpClient:  httpClient,
	}
}

// Token returns a valid access token, refreshing it if necessary.
// This method is safe for concurrent use.
func (ts *TokenSource) Token() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.accessToken != "" && (ts.expiresAt.IsZero() || time.Now().Before(ts.expiresAt)) {
		return ts.accessToken, nil
	}

	return ts.refresh()
}

// ForceRefresh discards the current token and acquires a new one.
// This is used when a 401 response indicates the token is invalid.
func (ts *TokenSource) ForceRefresh() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.accessToken = ""
	ts.expiresAt = time.Time{}

	return ts.refresh()
}

// refresh exchanges the refresh token for a new access token.
// The caller must hold ts.mu.
func (ts *TokenSource) refresh() (string, error) {
	if !ts.creds.Refreshable() {
		return "", fmt.Errorf("credentials cannot be refreshed: missing refresh token or client configuration")
	}

	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {ts.creds.RefreshToken},
		"client_id":     {ts.creds.ClientID},
		"client_secret": {ts.creds.ClientSecret},
	}

	req, err := http.NewRequest(http.MethodPost, ts.creds.TokenURI, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	ts.accessToken = tokenResp.AccessToken
	ts.expiresAt = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenExpiryBuffer)

	return ts.accessToken, nil
}
