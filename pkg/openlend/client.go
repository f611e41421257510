// Package openlend is a Go client for the OpenLend loan-origination API.
//
// A Client authenticates with one OAuth2 credential set, discovers the
// service accounts it manages and reconciles resthook subscriptions across
// them. Every outgoing request goes through a Gateway, which transparently
// acquires, caches and refreshes the access token for its credential set.
package openlend

import (
	"context"
	"fmt"
)

// Client is the entrypoint to the OpenLend API.
type Client struct {
	// BaseURL of the OpenLend environment, e.g. https://api.openlend.com.
	BaseURL string
	// ServiceAccounts discovered by the last GetServiceAccounts or
	// InitRestHooks call.
	ServiceAccounts []*ServiceAccount

	gateway *Gateway
	opts    *Options
}

// New creates a Client for the given environment and credentials.
func New(baseURL string, credentials Credentials, opts *Options) *Client {
	return &Client{
		BaseURL: baseURL,
		gateway: NewGateway(baseURL, credentials, opts),
		opts:    opts,
	}
}

// Gateway exposes the client's own authenticated request gateway.
func (c *Client) Gateway() *Gateway {
	return c.gateway
}

// GetServiceAccounts fetches all service accounts visible to the client's
// credentials and stores them on the client.
func (c *Client) GetServiceAccounts(ctx context.Context) ([]*ServiceAccount, error) {
	accounts, err := getServiceAccounts(ctx, c.BaseURL, c.gateway, c.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch service accounts: %w", err)
	}
	c.ServiceAccounts = accounts
	return accounts, nil
}

// InitRestHooks discovers the client's service accounts and subscribes each
// of them to the given events, all pointed at one target URL. The optional
// secret becomes the HMAC key signing the X-Hub-Signature header of
// delivered events. Accounts with existing subscriptions only get their
// non-ACTIVE subscriptions re-activated.
func (c *Client) InitRestHooks(ctx context.Context, target string, events []EventName, secret string) error {
	if _, err := c.GetServiceAccounts(ctx); err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}
	bodies := make([]SubscriptionBody, 0, len(events))
	for _, event := range events {
		bodies = append(bodies, SubscriptionBody{
			EventName: event,
			Target:    target,
			Secret:    secret,
		})
	}
	return c.reconcileSubscriptions(ctx, bodies)
}

// InitRestHooksFromBodies is InitRestHooks with explicit per-subscription
// request bodies, for callers that need different targets or secrets per
// event.
func (c *Client) InitRestHooksFromBodies(ctx context.Context, bodies []SubscriptionBody) error {
	if _, err := c.GetServiceAccounts(ctx); err != nil {
		return err
	}
	return c.reconcileSubscriptions(ctx, bodies)
}

// reconcileSubscriptions applies the requested subscriptions to every
// discovered service account, one account at a time so a failure surfaces
// immediately and token acquisitions are not interleaved.
func (c *Client) reconcileSubscriptions(ctx context.Context, bodies []SubscriptionBody) error {
	for _, account := range c.ServiceAccounts {
		if _, err := account.GetOrCreateSubscriptions(ctx, bodies); err != nil {
			return fmt.Errorf("failed to reconcile subscriptions for service account %s: %w", account.ID, err)
		}
	}
	return nil
}

// ServiceAccountBySubscriptionID returns the discovered service account
// holding the given subscription, or nil when none matches.
func (c *Client) ServiceAccountBySubscriptionID(subscriptionID string) *ServiceAccount {
	for _, account := range c.ServiceAccounts {
		for _, subscription := range account.Subscriptions {
			if subscription.ID == subscriptionID {
				return account
			}
		}
	}
	return nil
}
