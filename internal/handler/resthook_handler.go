package handler

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/openlend/openlend-go/pkg/openlend"
)

// RestHookHandler handles event deliveries pushed by the lending platform
// to the resthook target.
type RestHookHandler struct {
	client *openlend.Client
}

// NewRestHookHandler constructs a RestHookHandler.
func NewRestHookHandler(client *openlend.Client) *RestHookHandler {
	return &RestHookHandler{client: client}
}

// eventEnvelope is the delivery body sent to the target. The payload shape
// depends on the event name, so it stays raw until a consumer needs it.
type eventEnvelope struct {
	Subscription struct {
		ID        string             `json:"id"`
		EventName openlend.EventName `json:"eventName"`
	} `json:"subscription"`
	ID      string          `json:"id"`
	Index   string          `json:"index"`
	Time    int64           `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

// eventID returns the identifier used to acknowledge the event. Older
// platform versions omit the id field and key events by index instead.
func (e *eventEnvelope) eventID() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Index
}

// HandleEvent handles POST /v1/hooks
func (h *RestHookHandler) HandleEvent(c *gin.Context) {
	// 1. Read body
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "Invalid body"})
		return
	}

	// 2. Parse payload
	var event eventEnvelope
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(400, gin.H{"error": "Invalid JSON"})
		return
	}

	// 3. Match the delivery to a known subscription
	subscription := h.subscriptionByID(event.Subscription.ID)
	if subscription == nil {
		log.Warn().Str("subscription", event.Subscription.ID).Msg("Event for unknown subscription")
		c.JSON(404, gin.H{"error": "Unknown subscription"})
		return
	}

	// 4. Verify signature against the raw body
	if !subscription.ValidateSignature(c.GetHeader("X-Hub-Signature"), body) {
		log.Warn().Str("subscription", subscription.ID).Msg("Event signature mismatch")
		c.JSON(401, gin.H{"error": "Invalid signature"})
		return
	}

	log.Info().
		Str("subscription", subscription.ID).
		Str("event", string(subscription.EventName)).
		Str("index", event.Index).
		Msg("Event received")

	// 5. Acknowledge processing on the platform
	if err := subscription.UpdateEventStatus(c.Request.Context(), event.eventID(), openlend.EventProcessed); err != nil {
		log.Error().Err(err).Str("subscription", subscription.ID).Msg("Failed to acknowledge event")
		c.JSON(500, gin.H{"error": "Processing failed"})
		return
	}

	c.JSON(200, gin.H{"received": true})
}

// subscriptionByID looks the subscription up across all discovered service
// accounts.
func (h *RestHookHandler) subscriptionByID(id string) *openlend.Subscription {
	account := h.client.ServiceAccountBySubscriptionID(id)
	if account == nil {
		return nil
	}
	for _, subscription := range account.Subscriptions {
		if subscription.ID == id {
			return subscription
		}
	}
	return nil
}
