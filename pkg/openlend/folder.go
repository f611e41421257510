package openlend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Holder identifies whose document or signature a folder entry is:
// the applicant or the co-applicant.
type Holder string

const (
	HolderApplicant   Holder = "APPLICANT"
	HolderCoApplicant Holder = "CO_APPLICANT"
)

// LegalDocument is a legal document section inside a KYC folder.
type LegalDocument struct {
	ID             string      `json:"id"`
	Category       string      `json:"category"`
	Holder         Holder      `json:"holder"`
	State          string      `json:"state,omitempty"`
	Required       bool        `json:"required"`
	PartnerID      string      `json:"partnerId,omitempty"`
	RejectionCode  int         `json:"rejectionCode,omitempty"`
	RedirectURL    string      `json:"redirectUrl,omitempty"`
	RedirectURLTTL int         `json:"redirectUrlTTL,omitempty"`
	ValidFileTypes []string    `json:"validFileTypes,omitempty"`
	Files          []LegalFile `json:"files,omitempty"`
	CreatedAt      time.Time   `json:"createdAt,omitempty"`
	UpdatedAt      time.Time   `json:"updatedAt,omitempty"`
}

// LegalFile is one uploaded file inside a legal document section.
type LegalFile struct {
	ID                 string          `json:"id"`
	Type               string          `json:"type,omitempty"`
	State              string          `json:"state,omitempty"`
	SignedURL          string          `json:"signedUrl,omitempty"`
	SignedURLCreatedAt time.Time       `json:"signedUrlCreatedAt,omitempty"`
	SignedURLTTL       int             `json:"signedUrlTTL,omitempty"`
	RejectionCode      int             `json:"rejectionCode,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
	CreatedAt          time.Time       `json:"createdAt,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt,omitempty"`
}

// LegalDocumentBody is the request body for creating a legal document.
type LegalDocumentBody struct {
	Category       string   `json:"category"`
	Holder         Holder   `json:"holder"`
	Required       bool     `json:"required"`
	PartnerID      string   `json:"partnerId,omitempty"`
	RedirectURL    string   `json:"redirectUrl,omitempty"`
	RedirectURLTTL int      `json:"redirectUrlTTL,omitempty"`
	ValidFileTypes []string `json:"validFileTypes,omitempty"`
}

// Signature is an electronic signature attached to a folder.
type Signature struct {
	ID                   string          `json:"id"`
	State                string          `json:"state,omitempty"`
	Holder               Holder          `json:"holder"`
	LegalDocumentIDs     []string        `json:"legalDocumentIds"`
	PartnerID            string          `json:"partnerId,omitempty"`
	CallbackURL          string          `json:"callbackUrl,omitempty"`
	RedirectURL          string          `json:"redirectUrl,omitempty"`
	RedirectURLCreatedAt time.Time       `json:"redirectUrlCreatedAt,omitempty"`
	RedirectURLTTL       int             `json:"redirectUrlTTL,omitempty"`
	Metadata             json.RawMessage `json:"metadata,omitempty"`
	CreatedAt            time.Time       `json:"createdAt,omitempty"`
}

// SignatureBody is the request body for creating a signature.
type SignatureBody struct {
	Holder           Holder         `json:"holder"`
	LegalDocumentIDs []string       `json:"legalDocumentIds"`
	PartnerID        string         `json:"partnerId"`
	RedirectURL      string         `json:"redirectUrl,omitempty"`
	RedirectURLTTL   int            `json:"redirectUrlTTL,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

func createLegalDocuments(ctx context.Context, gateway *Gateway, folderID string, bodies []LegalDocumentBody) (*MultiResourceCreationResponse[LegalDocument], error) {
	response := &MultiResourceCreationResponse[LegalDocument]{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v1/folders/%s/legal-documents", folderID),
		Body:   bodies,
	}, response)
	if err != nil {
		return nil, err
	}
	return response, nil
}

func getLegalDocumentByID(ctx context.Context, gateway *Gateway, folderID, legalDocumentID string) (*LegalDocument, error) {
	document := &LegalDocument{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/v1/folders/%s/legal-documents/%s", folderID, legalDocumentID),
	}, document)
	if err != nil {
		return nil, err
	}
	return document, nil
}

func getLegalFileByID(ctx context.Context, gateway *Gateway, folderID, legalDocumentID, fileID string) (*LegalFile, error) {
	file := &LegalFile{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/v1/folders/%s/legal-documents/%s/files/%s", folderID, legalDocumentID, fileID),
	}, file)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func getSignatureByID(ctx context.Context, gateway *Gateway, folderID, signatureID string) (*Signature, error) {
	signature := &Signature{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/v1/folders/%s/signatures/%s", folderID, signatureID),
	}, signature)
	if err != nil {
		return nil, err
	}
	return signature, nil
}

func createSignature(ctx context.Context, gateway *Gateway, folderID string, body SignatureBody) (*Signature, error) {
	signature := &Signature{}
	err := gateway.Do(ctx, RequestConfig{
		Method: http.MethodPost,
		Path:   fmt.Sprintf("/v1/folders/%s/signatures", folderID),
		Body:   body,
	}, signature)
	if err != nil {
		return nil, err
	}
	return signature, nil
}

// GetLegalDocumentByID fetches one legal document from a folder.
func (sa *ServiceAccount) GetLegalDocumentByID(ctx context.Context, folderID, legalDocumentID string) (*LegalDocument, error) {
	return getLegalDocumentByID(ctx, sa.gateway, folderID, legalDocumentID)
}
