package openlend

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Application is a loan application. Nested applicant blocks are kept as raw
// JSON: their schema is large, partner-specific and irrelevant to the SDK.
type Application struct {
	ID                   string          `json:"id"`
	Status               string          `json:"status,omitempty"`
	LoanTerm             int             `json:"loanTerm,omitempty"`
	LoanAmount           float64         `json:"loanAmount,omitempty"`
	PaymentAmount        float64         `json:"paymentAmount,omitempty"`
	PaymentFrequency     string          `json:"paymentFrequency,omitempty"`
	ProjectType          string          `json:"projectType,omitempty"`
	MaritalStatus        string          `json:"maritalStatus,omitempty"`
	NumberOfChildren     int             `json:"numberOfChildren,omitempty"`
	OtherDependentNumber int             `json:"otherDependentNumber,omitempty"`
	ResidentialStatus    string          `json:"residentialStatus,omitempty"`
	HousingType          string          `json:"housingType,omitempty"`
	PartnerID            string          `json:"partnerId,omitempty"`
	ProductID            string          `json:"productId,omitempty"`
	SkipAggregation      bool            `json:"skipAggregation,omitempty"`
	Applicant            json.RawMessage `json:"applicant,omitempty"`
	CoApplicant          json.RawMessage `json:"coApplicant,omitempty"`
	PartnerData          json.RawMessage `json:"partnerData,omitempty"`
	ExternalErrors       json.RawMessage `json:"externalErrors,omitempty"`
	CreatedAt            time.Time       `json:"createdAt,omitempty"`
	UpdatedAt            time.Time       `json:"updatedAt,omitempty"`

	gateway *Gateway
}

// getApplicationByID fetches an application.
func getApplicationByID(ctx context.Context, gateway *Gateway, id string) (*Application, error) {
	application := &Application{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   "/v1/applications/" + id,
	}, application)
	if err != nil {
		return nil, err
	}
	application.gateway = gateway
	return application, nil
}

// Update patches the application and replaces the local value with the
// server's response as a whole, so it never drifts field by field.
func (a *Application) Update(ctx context.Context, body map[string]any) error {
	updated := Application{}
	err := a.gateway.Do(ctx, RequestConfig{
		Method: http.MethodPatch,
		Path:   "/v1/applications/" + a.ID,
		Body:   body,
	}, &updated)
	if err != nil {
		return err
	}
	updated.gateway = a.gateway
	*a = updated
	return nil
}
