package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlend/openlend-go/pkg/openlend"
)

const hookSecret = "topsecret"

// newTestClient spins a fake platform with one service account holding one
// active subscription, and returns a client that already discovered it.
func newTestClient(t *testing.T) (*openlend.Client, *[]string) {
	t.Helper()

	var mu sync.Mutex
	ackedEvents := &[]string{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fake_access_token","expires_in":300,"refresh_expires_in":2000,"refresh_token":"fake_refresh_token"}`))
	})
	mux.HandleFunc("GET /v1/service-accounts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"sa1","clientId":"client1","clientSecret":"secret1"}]`))
	})
	mux.HandleFunc("GET /v1/subscriptions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"sub1","eventName":"application_updated","status":"ACTIVE","target":"https://connector.example.com","secret":"` + hookSecret + `"}]`))
	})
	mux.HandleFunc("PATCH /v1/subscriptions/sub1/events/{eventId}", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		*ackedEvents = append(*ackedEvents, r.PathValue("eventId"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := openlend.New(srv.URL, openlend.Credentials{ClientID: "a", ClientSecret: "a"}, nil)
	err := client.InitRestHooks(context.Background(), "https://connector.example.com",
		[]openlend.EventName{openlend.EventApplicationUpdated}, hookSecret)
	require.NoError(t, err)
	return client, ackedEvents
}

func newTestRouter(client *openlend.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/hooks", NewRestHookHandler(client).HandleEvent)
	return router
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func deliver(router *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/hooks", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature", signature)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleEventAcknowledgesSignedDelivery(t *testing.T) {
	client, acked := newTestClient(t)
	router := newTestRouter(client)

	body, err := json.Marshal(map[string]any{
		"subscription": map[string]any{"id": "sub1", "eventName": "application_updated"},
		"id":           "evt1",
		"index":        "0",
		"time":         1712000000000,
		"payload":      map[string]any{"applicationId": "app1"},
	})
	require.NoError(t, err)

	rec := deliver(router, body, signBody(hookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"evt1"}, *acked)
}

func TestHandleEventFallsBackToIndexWhenIDMissing(t *testing.T) {
	client, acked := newTestClient(t)
	router := newTestRouter(client)

	body := []byte(`{"subscription":{"id":"sub1"},"index":"42","payload":{}}`)
	rec := deliver(router, body, signBody(hookSecret, body))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"42"}, *acked)
}

func TestHandleEventRejectsBadSignature(t *testing.T) {
	client, acked := newTestClient(t)
	router := newTestRouter(client)

	body := []byte(`{"subscription":{"id":"sub1"},"id":"evt1","payload":{}}`)
	rec := deliver(router, body, signBody("wrong-secret", body))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, *acked)
}

func TestHandleEventRejectsUnknownSubscription(t *testing.T) {
	client, acked := newTestClient(t)
	router := newTestRouter(client)

	body := []byte(`{"subscription":{"id":"nope"},"id":"evt1","payload":{}}`)
	rec := deliver(router, body, signBody(hookSecret, body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, *acked)
}

func TestHandleEventRejectsInvalidJSON(t *testing.T) {
	client, _ := newTestClient(t)
	router := newTestRouter(client)

	rec := deliver(router, []byte(`not json`), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
