package openlend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// Score is a credit score computed for a bank user.
type Score struct {
	CreatedAt time.Time `json:"createdAt"`
	Score     float64   `json:"score"`
	Type      string    `json:"type"`
	Version   string    `json:"version"`
}

// BanksUser represents one end user going through bank account aggregation.
type BanksUser struct {
	ID                   string          `json:"id"`
	Status               BanksUserStatus `json:"status"`
	RedirectURL          string          `json:"redirectUrl"`
	RedirectURLCreatedAt int64           `json:"redirectUrlCreatedAt"`
	RedirectURLTTL       int             `json:"redirectUrlTTL"`
	CallbackURL          string          `json:"callbackUrl,omitempty"`
	PartnerID            string          `json:"partnerId,omitempty"`
	PlugIn               json.RawMessage `json:"plugIn,omitempty"`
	Scores               []Score         `json:"scores"`
	Analysis             json.RawMessage `json:"analysis,omitempty"`

	gateway *Gateway
}

// BanksUserAccount is one aggregated bank account.
type BanksUserAccount struct {
	ID       string          `json:"id,omitempty"`
	Balance  float64         `json:"balance"`
	Currency string          `json:"currency"`
	Type     string          `json:"type"`
	Usage    string          `json:"usage"`
	Name     string          `json:"name,omitempty"`
	Bank     string          `json:"bank,omitempty"`
	IBAN     string          `json:"iban,omitempty"`
	Loan     json.RawMessage `json:"loanDetails,omitempty"`
}

// BanksUserTransaction is one transaction on an aggregated account.
type BanksUserTransaction struct {
	ID          string  `json:"id,omitempty"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category,omitempty"`
	Date        string  `json:"date"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type"`
}

// getBanksUserByID fetches a bank user.
func getBanksUserByID(ctx context.Context, gateway *Gateway, id string) (*BanksUser, error) {
	banksUser := &BanksUser{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   "/v1/banks-users/" + id,
	}, banksUser)
	if err != nil {
		return nil, err
	}
	banksUser.gateway = gateway
	return banksUser, nil
}

// CreateBanksUser creates a new bank user through a service account.
func (sa *ServiceAccount) CreateBanksUser(ctx context.Context, body map[string]any) (*BanksUser, error) {
	banksUser := &BanksUser{}
	err := sa.gateway.Do(ctx, RequestConfig{
		Method: http.MethodPost,
		Path:   "/v1/banks-users",
		Body:   body,
	}, banksUser)
	if err != nil {
		return nil, err
	}
	banksUser.gateway = sa.gateway
	return banksUser, nil
}

// Update patches the bank user and replaces the local value with the
// server's response. The optional code is forwarded as a query parameter.
func (bu *BanksUser) Update(ctx context.Context, body map[string]any, code string) error {
	var query url.Values
	if code != "" {
		query = url.Values{"code": {code}}
	}

	updated := BanksUser{}
	err := bu.gateway.Do(ctx, RequestConfig{
		Method: http.MethodPatch,
		Path:   "/v1/banks-users/" + bu.ID,
		Query:  query,
		Body:   body,
	}, &updated)
	if err != nil {
		return err
	}
	updated.gateway = bu.gateway
	*bu = updated
	return nil
}

// GetAccounts lists the bank user's aggregated accounts.
func (bu *BanksUser) GetAccounts(ctx context.Context) ([]BanksUserAccount, error) {
	var accounts []BanksUserAccount
	err := bu.gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   "/v1/banks-users/" + bu.ID + "/accounts",
	}, &accounts)
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetTransactions lists the transactions of one of the bank user's accounts.
func (bu *BanksUser) GetTransactions(ctx context.Context, accountID string) ([]BanksUserTransaction, error) {
	var transactions []BanksUserTransaction
	err := bu.gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   "/v1/banks-users/" + bu.ID + "/accounts/" + accountID + "/transactions",
	}, &transactions)
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

// CreateAccounts posts the given accounts one by one and returns the created
// resources in order.
func (bu *BanksUser) CreateAccounts(ctx context.Context, bodies []BanksUserAccount) ([]BanksUserAccount, error) {
	created := make([]BanksUserAccount, 0, len(bodies))
	for _, body := range bodies {
		account := BanksUserAccount{}
		err := bu.gateway.Do(ctx, RequestConfig{
			Method: http.MethodPost,
			Path:   "/v1/banks-users/" + bu.ID + "/accounts",
			Body:   body,
		}, &account)
		if err != nil {
			return nil, err
		}
		created = append(created, account)
	}
	return created, nil
}

// CreateTransactions posts transactions in bulk on one account.
func (bu *BanksUser) CreateTransactions(ctx context.Context, accountID string, bodies []BanksUserTransaction) (*MultiResourceCreationResponse[BanksUserTransaction], error) {
	response := &MultiResourceCreationResponse[BanksUserTransaction]{}
	err := bu.gateway.Do(ctx, RequestConfig{
		Method: http.MethodPost,
		Path:   "/v1/banks-users/" + bu.ID + "/accounts/" + accountID + "/transactions",
		Body:   bodies,
	}, response)
	if err != nil {
		return nil, err
	}
	return response, nil
}
