package openlend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// OAuth2 grant types understood by the token endpoint.
const (
	grantClientCredentials = "client_credentials"
	grantPassword          = "password"
	grantRefreshToken      = "refresh_token"
)

// expiryWindow is the safety margin subtracted from a token's literal
// expiry so that it is replaced slightly before the server would reject it.
// The same margin applies to the access token and the refresh token.
const expiryWindow = 300 * time.Millisecond

// oauthResponse mirrors the token endpoint response body.
type oauthResponse struct {
	AccessToken      string  `json:"access_token"`
	ExpiresIn        float64 `json:"expires_in"`
	RefreshExpiresIn float64 `json:"refresh_expires_in"`
	RefreshToken     string  `json:"refresh_token"`
	TokenType        string  `json:"token_type"`
	SessionState     string  `json:"session_state"`
	Scope            string  `json:"scope"`
}

// accessToken is an oauthResponse with expiry timestamps derived at the
// moment the response was received. A Gateway holds at most one; it is
// replaced as a whole on every acquisition, never mutated in place.
type accessToken struct {
	oauthResponse
	expiresAt        time.Time
	refreshExpiresAt time.Time
}

func newAccessToken(resp oauthResponse) *accessToken {
	now := time.Now()
	return &accessToken{
		oauthResponse:    resp,
		expiresAt:        now.Add(time.Duration(resp.ExpiresIn * float64(time.Second))),
		refreshExpiresAt: now.Add(time.Duration(resp.RefreshExpiresIn * float64(time.Second))),
	}
}

// accessExpired reports whether the access token is within its expiry window.
func (t *accessToken) accessExpired() bool {
	return t.expiresAt.Add(-expiryWindow).Before(time.Now())
}

// refreshExpired reports whether the refresh token is within its expiry window.
func (t *accessToken) refreshExpired() bool {
	return t.refreshExpiresAt.Add(-expiryWindow).Before(time.Now())
}

// ensureToken returns a valid access token, acquiring or refreshing one if
// needed. A cached token is reused only while both its access and refresh
// expiries are outside the window; a stale refresh token forces a full
// acquisition even when the access token is still valid. Concurrent callers
// share a single acquisition: the cache is re-checked under the write lock
// before any token endpoint call is made.
func (g *Gateway) ensureToken(ctx context.Context) (string, error) {
	g.mu.RLock()
	if tok := g.token; tok != nil && !tok.accessExpired() && !tok.refreshExpired() {
		g.mu.RUnlock()
		return tok.AccessToken, nil
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	// Double check
	if tok := g.token; tok != nil && !tok.accessExpired() && !tok.refreshExpired() {
		return tok.AccessToken, nil
	}

	if tok := g.token; tok != nil && tok.accessExpired() && !tok.refreshExpired() {
		// Refresh failures fall back to a full acquisition; only the
		// fallback's error propagates.
		resp, err := g.requestToken(ctx, tok.RefreshToken)
		if err != nil {
			resp, err = g.requestToken(ctx, "")
		}
		if err != nil {
			return "", err
		}
		g.token = newAccessToken(resp)
		return g.token.AccessToken, nil
	}

	resp, err := g.requestToken(ctx, "")
	if err != nil {
		return "", err
	}
	g.token = newAccessToken(resp)
	return g.token.AccessToken, nil
}

// grantType returns the primary grant for the credential set.
func (c Credentials) grantType() string {
	if c.Username != "" && c.Password != "" {
		return grantPassword
	}
	return grantClientCredentials
}

// requestToken calls the OAuth token endpoint. A non-empty refreshToken
// selects the refresh_token grant, otherwise the credential set's primary
// grant is used.
func (g *Gateway) requestToken(ctx context.Context, refreshToken string) (oauthResponse, error) {
	form := url.Values{}
	if refreshToken != "" {
		form.Set("refresh_token", refreshToken)
		form.Set("grant_type", grantRefreshToken)
		form.Set("client_id", g.credentials.ClientID)
		form.Set("client_secret", g.credentials.ClientSecret)
	} else {
		form.Set("client_id", g.credentials.ClientID)
		if g.credentials.ClientSecret != "" {
			form.Set("client_secret", g.credentials.ClientSecret)
		}
		if g.credentials.Username != "" {
			form.Set("username", g.credentials.Username)
		}
		if g.credentials.Password != "" {
			form.Set("password", g.credentials.Password)
		}
		form.Set("grant_type", g.credentials.grantType())
	}

	endpoint := fmt.Sprintf("%s/v%d/oauth/token", g.baseURL, g.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return oauthResponse{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return oauthResponse{}, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return oauthResponse{}, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oauthResponse{}, &APIError{
			StatusCode: resp.StatusCode,
			Method:     http.MethodPost,
			Path:       fmt.Sprintf("/v%d/oauth/token", g.apiVersion),
			Body:       respBody,
		}
	}

	var token oauthResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return oauthResponse{}, fmt.Errorf("failed to decode token response: %w", err)
	}
	return token, nil
}
