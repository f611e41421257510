package openlend

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

// Subscription is a resthook subscription attached to a service account.
type Subscription struct {
	ID        string             `json:"id"`
	Target    string             `json:"target"`
	EventName EventName          `json:"eventName"`
	Status    SubscriptionStatus `json:"status"`
	// Secret is the optional HMAC key used to sign event payloads sent to
	// the target. Setting one is strongly recommended.
	Secret string `json:"secret,omitempty"`

	gateway *Gateway
}

// SubscriptionBody is the request body for creating a subscription.
type SubscriptionBody struct {
	EventName EventName `json:"eventName"`
	Target    string    `json:"target"`
	Secret    string    `json:"secret,omitempty"`
}

// getSubscriptions fetches all subscriptions visible to the gateway's
// credential set.
func getSubscriptions(ctx context.Context, gateway *Gateway) ([]*Subscription, error) {
	var subscriptions []*Subscription
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   "/v1/subscriptions",
	}, &subscriptions)
	if err != nil {
		return nil, err
	}
	for _, sub := range subscriptions {
		sub.gateway = gateway
	}
	return subscriptions, nil
}

// createSubscription creates a new subscription.
func createSubscription(ctx context.Context, gateway *Gateway, body SubscriptionBody) (*Subscription, error) {
	subscription := &Subscription{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodPost,
		Path:   "/v1/subscriptions",
		Body:   body,
	}, subscription)
	if err != nil {
		return nil, err
	}
	subscription.gateway = gateway
	return subscription, nil
}

// Update patches the subscription status. The local status is replaced only
// after the server accepted the change.
func (s *Subscription) Update(ctx context.Context, status SubscriptionStatus) error {
	err := s.gateway.Do(ctx, RequestConfig{
		Method: http.MethodPatch,
		Path:   "/v1/subscriptions/" + s.ID,
		Body:   map[string]SubscriptionStatus{"status": status},
	}, nil)
	if err != nil {
		return err
	}
	s.Status = status
	return nil
}

// ValidateSignature verifies an inbound resthook payload against the
// X-Hub-Signature header. When the subscription carries no secret there is
// nothing to verify and the payload is accepted. The payload must be the
// raw request body bytes: the signature covers the exact JSON text sent by
// the platform.
func (s *Subscription) ValidateSignature(signatureHeader string, payload []byte) bool {
	if s.Secret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.Secret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
