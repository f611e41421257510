package openlend

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ServiceAccount is one OAuth2 client of the platform. Each service account
// owns its own Gateway built from its credentials, so resource calls made
// through it are authenticated as that account.
type ServiceAccount struct {
	ID           string          `json:"id"`
	ClientID     string          `json:"clientId"`
	ClientSecret string          `json:"clientSecret"`
	CreatedAt    time.Time       `json:"createdAt"`
	Config       json.RawMessage `json:"config,omitempty"`

	// Subscriptions fetched for this account, refreshed by GetSubscriptions.
	Subscriptions []*Subscription `json:"-"`

	gateway *Gateway
}

// getServiceAccounts fetches all service accounts visible to the gateway's
// credentials and equips each with its own Gateway.
func getServiceAccounts(ctx context.Context, baseURL string, gateway *Gateway, opts *Options) ([]*ServiceAccount, error) {
	var accounts []*ServiceAccount
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   "/v1/service-accounts",
	}, &accounts)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		account.gateway = NewGateway(baseURL, Credentials{
			ClientID:     account.ClientID,
			ClientSecret: account.ClientSecret,
		}, opts)
	}
	return accounts, nil
}

// Gateway exposes the account's authenticated request gateway so callers can
// issue requests not covered by the typed helpers.
func (sa *ServiceAccount) Gateway() *Gateway {
	return sa.gateway
}

// AuthorizationHeader resolves a valid bearer header for this account.
func (sa *ServiceAccount) AuthorizationHeader(ctx context.Context) (string, error) {
	return sa.gateway.AuthorizationHeader(ctx)
}

// GetSubscriptions fetches the account's subscriptions and stores them on
// the account.
func (sa *ServiceAccount) GetSubscriptions(ctx context.Context) ([]*Subscription, error) {
	subscriptions, err := getSubscriptions(ctx, sa.gateway)
	if err != nil {
		return nil, err
	}
	sa.Subscriptions = subscriptions
	return subscriptions, nil
}

// CreateSubscriptions creates one subscription per body, sequentially, and
// appends them to the account's subscription list.
func (sa *ServiceAccount) CreateSubscriptions(ctx context.Context, bodies []SubscriptionBody) ([]*Subscription, error) {
	created := make([]*Subscription, 0, len(bodies))
	for _, body := range bodies {
		subscription, err := createSubscription(ctx, sa.gateway, body)
		if err != nil {
			return nil, err
		}
		sa.Subscriptions = append(sa.Subscriptions, subscription)
		created = append(created, subscription)
	}
	return created, nil
}

// GetOrCreateSubscriptions reconciles the account's subscriptions: when the
// account has none, all requested ones are created; otherwise every existing
// subscription that is not ACTIVE is re-activated. Existing subscriptions are
// never recreated or diffed against the requested set.
func (sa *ServiceAccount) GetOrCreateSubscriptions(ctx context.Context, bodies []SubscriptionBody) ([]*Subscription, error) {
	subscriptions, err := sa.GetSubscriptions(ctx)
	if err != nil {
		return nil, err
	}

	if len(subscriptions) == 0 {
		return sa.CreateSubscriptions(ctx, bodies)
	}

	for _, subscription := range subscriptions {
		if subscription.Status != SubscriptionActive {
			if err := subscription.Update(ctx, SubscriptionActive); err != nil {
				return nil, err
			}
		}
	}
	return subscriptions, nil
}

// GetBanksUserByID fetches a bank user as this account.
func (sa *ServiceAccount) GetBanksUserByID(ctx context.Context, id string) (*BanksUser, error) {
	return getBanksUserByID(ctx, sa.gateway, id)
}

// GetApplicationByID fetches an application as this account.
func (sa *ServiceAccount) GetApplicationByID(ctx context.Context, id string) (*Application, error) {
	return getApplicationByID(ctx, sa.gateway, id)
}

// GetSignatureByID fetches one signature from a folder.
func (sa *ServiceAccount) GetSignatureByID(ctx context.Context, folderID, signatureID string) (*Signature, error) {
	return getSignatureByID(ctx, sa.gateway, folderID, signatureID)
}

// CreateSignature creates a signature in the given folder.
func (sa *ServiceAccount) CreateSignature(ctx context.Context, folderID string, body SignatureBody) (*Signature, error) {
	return createSignature(ctx, sa.gateway, folderID, body)
}

// CreateLegalDocuments pushes new legal documents into a folder.
func (sa *ServiceAccount) CreateLegalDocuments(ctx context.Context, folderID string, bodies []LegalDocumentBody) (*MultiResourceCreationResponse[LegalDocument], error) {
	return createLegalDocuments(ctx, sa.gateway, folderID, bodies)
}

// GetLegalFileByID fetches one file from a legal document in a folder.
func (sa *ServiceAccount) GetLegalFileByID(ctx context.Context, folderID, legalDocumentID, fileID string) (*LegalFile, error) {
	return getLegalFileByID(ctx, sa.gateway, folderID, legalDocumentID, fileID)
}
