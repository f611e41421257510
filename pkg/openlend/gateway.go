package openlend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxResponseSize is the maximum allowed response body size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Credentials holds one OAuth2 client credential set. The grant type is
// derived from it: password when both Username and Password are set,
// client_credentials otherwise.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Options configures optional Gateway behavior.
type Options struct {
	// Debug enables request/response logging. It has no effect unless
	// Logger is also set.
	Debug bool
	// Logger receives debug logs when Debug is true.
	Logger *zerolog.Logger
	// APIVersion selects the versioned token endpoint path. Defaults to 1.
	APIVersion int
	// HTTPClient overrides the underlying transport. Defaults to a
	// client with a 60s timeout.
	HTTPClient *http.Client
}

// RequestConfig describes one outgoing API call.
type RequestConfig struct {
	Method  string
	Path    string
	Body    any
	Query   url.Values
	Headers http.Header
}

// Gateway dispatches authenticated requests for a single credential set.
// It acquires, caches and refreshes the OAuth2 access token and injects
// the bearer header on every call, unless an explicit Authorization
// override applies.
type Gateway struct {
	httpClient  *http.Client
	baseURL     string
	credentials Credentials
	apiVersion  int
	debug       bool
	logger      zerolog.Logger

	// mu guards the pinned header and the cached token.
	mu         sync.RWMutex
	authHeader string
	token      *accessToken
}

// NewGateway creates a Gateway for the given base URL and credentials.
func NewGateway(baseURL string, credentials Credentials, opts *Options) *Gateway {
	g := &Gateway{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		credentials: credentials,
		apiVersion:  1,
		logger:      zerolog.Nop(),
	}
	if opts != nil {
		if opts.APIVersion > 0 {
			g.apiVersion = opts.APIVersion
		}
		if opts.HTTPClient != nil {
			g.httpClient = opts.HTTPClient
		}
		if opts.Debug && opts.Logger != nil {
			g.debug = true
			g.logger = *opts.Logger
		}
	}
	return g
}

// PinAuthorizationHeader pins a fixed Authorization header on the Gateway.
// While set, token management is bypassed entirely. Pass the empty string
// to unpin and fall back to managed tokens. Safe for concurrent use with Do.
func (g *Gateway) PinAuthorizationHeader(header string) {
	g.mu.Lock()
	g.authHeader = header
	g.mu.Unlock()
}

// AuthorizationHeader resolves the Authorization header the Gateway would
// attach to the next request: the pinned header if one is set, otherwise
// a bearer header backed by a valid cached or freshly acquired token.
func (g *Gateway) AuthorizationHeader(ctx context.Context) (string, error) {
	g.mu.RLock()
	pinned := g.authHeader
	g.mu.RUnlock()
	if pinned != "" {
		return pinned, nil
	}
	token, err := g.ensureToken(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

// Do performs one API call and decodes the JSON response into result.
// A nil result discards the response body. Non-2xx statuses are returned
// as *APIError.
func (g *Gateway) Do(ctx context.Context, cfg RequestConfig, result any) error {
	auth := cfg.Headers.Get("Authorization")
	if auth == "" {
		var err error
		auth, err = g.AuthorizationHeader(ctx)
		if err != nil {
			return err
		}
	}

	endpoint := g.baseURL + cfg.Path
	if len(cfg.Query) > 0 {
		endpoint += "?" + cfg.Query.Encode()
	}

	var payload []byte
	if cfg.Body != nil {
		var err error
		payload, err = json.Marshal(cfg.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cfg.Method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range cfg.Headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", auth)

	if g.debug {
		event := g.logger.Debug().
			Str("client_id", g.credentials.ClientID).
			Str("method", cfg.Method).
			Str("endpoint", endpoint)
		if payload != nil {
			event = event.RawJSON("request", sanitizeForLog(payload))
		}
		event.Msg("[OPENLEND] Outgoing request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		if g.debug {
			g.logger.Error().
				Str("client_id", g.credentials.ClientID).
				Str("method", cfg.Method).
				Str("endpoint", endpoint).
				Err(err).
				Msg("[OPENLEND] Request failed")
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if g.debug {
		event := g.logger.Debug().
			Str("client_id", g.credentials.ClientID).
			Str("method", cfg.Method).
			Str("endpoint", endpoint).
			Int("status_code", resp.StatusCode)
		if len(respBody) > 0 {
			event = event.RawJSON("response", sanitizeForLog(respBody))
		}
		event.Msg("[OPENLEND] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     cfg.Method,
			Path:       cfg.Path,
			Body:       respBody,
		}
		if g.debug {
			g.logger.Error().
				Str("client_id", g.credentials.ClientID).
				Str("method", cfg.Method).
				Str("endpoint", endpoint).
				Int("status_code", resp.StatusCode).
				Msg("[OPENLEND] API error response")
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// sanitizeForLog removes or masks sensitive fields from JSON for logging
func sanitizeForLog(data []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		// Arrays and scalars carry no credential fields, log as-is.
		if json.Valid(data) {
			return data
		}
		return []byte(`{"_error": "failed to parse for sanitization"}`)
	}

	sensitiveFields := []string{"password", "secret", "token", "authorization"}
	sanitizeMap(obj, sensitiveFields)

	sanitized, err := json.Marshal(obj)
	if err != nil {
		return []byte(`{"_error": "failed to marshal sanitized data"}`)
	}
	return sanitized
}

// sanitizeMap recursively masks sensitive fields in a map
func sanitizeMap(obj map[string]any, sensitiveFields []string) {
	for key, value := range obj {
		keyLower := strings.ToLower(key)
		for _, sensitive := range sensitiveFields {
			if strings.Contains(keyLower, sensitive) {
				obj[key] = "***MASKED***"
				break
			}
		}
		if nested, ok := value.(map[string]any); ok {
			sanitizeMap(nested, sensitiveFields)
		}
	}
}
