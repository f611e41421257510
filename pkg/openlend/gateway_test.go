package openlend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform is an httptest-backed stand-in for the OpenLend API: it
// serves the OAuth token endpoint, records every grant it sees and lets
// tests register extra handlers for resource routes.
type fakePlatform struct {
	mux *http.ServeMux
	srv *httptest.Server

	mu               sync.Mutex
	grants           []string
	tokenForms       []map[string]string
	expiresIn        float64
	refreshExpiresIn float64
	failRefresh      bool
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{
		mux:              http.NewServeMux(),
		expiresIn:        300,
		refreshExpiresIn: 2000,
	}
	f.mux.HandleFunc("POST /v1/oauth/token", f.handleToken)
	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakePlatform) url() string {
	return f.srv.URL
}

func (f *fakePlatform) handle(pattern string, handler http.HandlerFunc) {
	f.mux.HandleFunc(pattern, handler)
}

func (f *fakePlatform) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		form[key] = r.PostForm.Get(key)
	}
	grant := form["grant_type"]

	f.mu.Lock()
	f.grants = append(f.grants, grant)
	f.tokenForms = append(f.tokenForms, form)
	fail := f.failRefresh && grant == grantRefreshToken
	expiresIn, refreshExpiresIn := f.expiresIn, f.refreshExpiresIn
	f.mu.Unlock()

	if fail {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":       "fake_access_token",
		"expires_in":         expiresIn,
		"refresh_expires_in": refreshExpiresIn,
		"refresh_token":      "fake_refresh_token",
		"token_type":         "Bearer",
		"session_state":      "session_state",
		"scope":              "profile",
	})
}

func (f *fakePlatform) tokenGrants() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.grants...)
}

func (f *fakePlatform) setTokenLifetimes(expiresIn, refreshExpiresIn float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiresIn = expiresIn
	f.refreshExpiresIn = refreshExpiresIn
}

func TestGatewayGrantTypeSelection(t *testing.T) {
	tests := []struct {
		name        string
		credentials Credentials
		wantGrant   string
	}{
		{
			name:        "client credentials",
			credentials: Credentials{ClientID: "a", ClientSecret: "a"},
			wantGrant:   grantClientCredentials,
		},
		{
			name:        "username and password",
			credentials: Credentials{ClientID: "a", Username: "user", Password: "password"},
			wantGrant:   grantPassword,
		},
		{
			name:        "username without password",
			credentials: Credentials{ClientID: "a", ClientSecret: "a", Username: "user"},
			wantGrant:   grantClientCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			platform := newFakePlatform(t)
			platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			gateway := NewGateway(platform.url(), tt.credentials, nil)
			err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
			require.NoError(t, err)

			grants := platform.tokenGrants()
			require.Len(t, grants, 1)
			assert.Equal(t, tt.wantGrant, grants[0])
		})
	}
}

func TestGatewayReusesCachedToken(t *testing.T) {
	platform := newFakePlatform(t)

	var apiCalls int
	var lastAuth string
	platform.handle("GET /v1/service-accounts", func(w http.ResponseWriter, r *http.Request) {
		apiCalls++
		lastAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)

	for range 2 {
		var accounts []ServiceAccount
		err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/v1/service-accounts"}, &accounts)
		require.NoError(t, err)
	}

	assert.Len(t, platform.tokenGrants(), 1, "second call must reuse the cached token")
	assert.Equal(t, 2, apiCalls)
	assert.Equal(t, "Bearer fake_access_token", lastAuth)
}

func TestGatewayRefreshesExpiredAccessToken(t *testing.T) {
	platform := newFakePlatform(t)
	platform.setTokenLifetimes(0.05, 1000)
	platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)

	err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	err = gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err)

	grants := platform.tokenGrants()
	require.Len(t, grants, 2)
	assert.Equal(t, grantClientCredentials, grants[0])
	assert.Equal(t, grantRefreshToken, grants[1])

	f := platform
	f.mu.Lock()
	refreshForm := f.tokenForms[1]
	f.mu.Unlock()
	assert.Equal(t, "fake_refresh_token", refreshForm["refresh_token"])
}

func TestGatewayFullGrantWhenRefreshTokenExpired(t *testing.T) {
	platform := newFakePlatform(t)
	platform.setTokenLifetimes(0.05, 0.05)
	platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)

	err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	err = gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err)

	grants := platform.tokenGrants()
	require.Len(t, grants, 2)
	assert.Equal(t, grantClientCredentials, grants[1], "expired refresh token must not be used")
}

func TestGatewayFullGrantWhenRefreshExpiresBeforeAccess(t *testing.T) {
	platform := newFakePlatform(t)
	platform.setTokenLifetimes(1000, 0.05)
	platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)

	err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	err = gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err)

	grants := platform.tokenGrants()
	require.Len(t, grants, 2, "a stale refresh token must force re-acquisition even while the access token is valid")
	assert.Equal(t, []string{grantClientCredentials, grantClientCredentials}, grants)
}

func TestGatewayFallsBackWhenRefreshFails(t *testing.T) {
	platform := newFakePlatform(t)
	platform.setTokenLifetimes(0.05, 1000)
	platform.mu.Lock()
	platform.failRefresh = true
	platform.mu.Unlock()
	platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)

	err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err)

	time.Sleep(500 * time.Millisecond)

	err = gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.NoError(t, err, "the request must survive a failed refresh via the primary grant")

	grants := platform.tokenGrants()
	require.Len(t, grants, 3)
	assert.Equal(t, []string{grantClientCredentials, grantRefreshToken, grantClientCredentials}, grants)
}

func TestGatewayAuthorizationOverrides(t *testing.T) {
	t.Run("per-call header wins", func(t *testing.T) {
		platform := newFakePlatform(t)
		var gotAuth string
		platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		})

		gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)
		headers := http.Header{}
		headers.Set("Authorization", "Bearer external-token")

		err := gateway.Do(context.Background(), RequestConfig{
			Method:  http.MethodGet,
			Path:    "/ping",
			Headers: headers,
		}, nil)
		require.NoError(t, err)

		assert.Empty(t, platform.tokenGrants(), "explicit Authorization must bypass token management")
		assert.Equal(t, "Bearer external-token", gotAuth)
	})

	t.Run("pinned header wins over token management", func(t *testing.T) {
		platform := newFakePlatform(t)
		var gotAuth string
		platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		})

		gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)
		gateway.PinAuthorizationHeader("Bearer pinned-token")

		err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
		require.NoError(t, err)

		assert.Empty(t, platform.tokenGrants())
		assert.Equal(t, "Bearer pinned-token", gotAuth)
	})
}

func TestGatewayPinAuthorizationHeaderConcurrent(t *testing.T) {
	platform := newFakePlatform(t)
	platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				gateway.PinAuthorizationHeader("Bearer pinned-token")
			}
			errs[i] = gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	header, err := gateway.AuthorizationHeader(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer pinned-token", header)
}

func TestGatewayReturnsAPIError(t *testing.T) {
	platform := newFakePlatform(t)
	platform.handle("GET /missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)
	err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/missing"}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "/missing", apiErr.Path)
	assert.Contains(t, string(apiErr.Body), "not found")
}

func TestGatewayConcurrentRequestsShareOneAcquisition(t *testing.T) {
	platform := newFakePlatform(t)
	platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	gateway := NewGateway(platform.url(), Credentials{ClientID: "a", ClientSecret: "a"}, nil)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Len(t, platform.tokenGrants(), 1, "concurrent callers must share one acquisition")
}

func TestGatewayTokenEndpointFailurePropagates(t *testing.T) {
	platform := newFakePlatform(t)
	platform.handle("GET /ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Wrong-credentials simulation: every grant is rejected.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized_client"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	gateway := NewGateway(srv.URL, Credentials{ClientID: "bad", ClientSecret: "bad"}, nil)
	err := gateway.Do(context.Background(), RequestConfig{Method: http.MethodGet, Path: "/ping"}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
