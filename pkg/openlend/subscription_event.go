package openlend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SubscriptionEvent is one event emitted on a subscription.
type SubscriptionEvent struct {
	Index    string          `json:"index"`
	Payload  json.RawMessage `json:"payload"`
	Statuses []struct {
		CreatedAt time.Time   `json:"createdAt"`
		Name      EventStatus `json:"name"`
	} `json:"statuses"`
	Subscription *Subscription `json:"subscription"`
	Time         int64         `json:"time"`
}

// EventQuery filters the events listed for a subscription.
type EventQuery struct {
	ApplicationID string
	LowIndex      int
	HighIndex     int
}

// GetEvents lists the events emitted on the subscription.
func (s *Subscription) GetEvents(ctx context.Context, query EventQuery) ([]SubscriptionEvent, error) {
	values := url.Values{}
	if query.ApplicationID != "" {
		values.Set("applicationId", query.ApplicationID)
	}
	if query.LowIndex > 0 {
		values.Set("lowIndex", strconv.Itoa(query.LowIndex))
	}
	if query.HighIndex > 0 {
		values.Set("highIndex", strconv.Itoa(query.HighIndex))
	}

	var events []SubscriptionEvent
	err := s.gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   "/v1/subscriptions/" + s.ID + "/events",
		Query:  values,
	}, &events)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// UpdateEventStatus patches the processing status of one emitted event.
func (s *Subscription) UpdateEventStatus(ctx context.Context, eventID string, status EventStatus) error {
	return s.gateway.Do(ctx, RequestConfig{
		Method: http.MethodPatch,
		Path:   fmt.Sprintf("/v1/subscriptions/%s/events/%s", s.ID, eventID),
		Body:   map[string]EventStatus{"status": status},
	}, nil)
}
