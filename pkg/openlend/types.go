package openlend

// EventName identifies a resthook event a subscription can listen to.
type EventName string

// Resthook event names emitted by the OpenLend platform.
const (
	EventServiceAccountCreated     EventName = "service_account_created"
	EventServiceAccountUpdated     EventName = "service_account_updated"
	EventServiceAccountDeleted     EventName = "service_account_deleted"
	EventBankreaderLinkRequired    EventName = "bankreader_link_required"
	EventBankreaderConfigRequired  EventName = "bankreader_configuration_required"
	EventBankreaderRequired        EventName = "bankreader_required"
	EventBankreaderCompleted       EventName = "bankreader_completed"
	EventCreditScoreRequired       EventName = "credit_score_required"
	EventCreditScoreCompleted      EventName = "credit_score_completed"
	EventDecisionRequired          EventName = "decision_required"
	EventProductsRequired          EventName = "products_required"
	EventPricingsRequired          EventName = "pricings_required"
	EventApplicationUpdated        EventName = "application_updated"
	EventLegalDocumentsRequired    EventName = "legal_documents_required"
	EventSignatureLinkRequired     EventName = "electronic_signature_link_required"
	EventSignatureCompleted        EventName = "electronic_signature_completed"
	EventAggregatorLinkRequired    EventName = "aggregator_link_required"
	EventBankDetailsRequired       EventName = "bank_details_required"
	EventKYCFileUploaded           EventName = "kyc_file_uploaded"
	EventKYCDocumentsListRequired  EventName = "kyc_documents_list_required"
	EventKYCFolderValidationNeeded EventName = "kyc_folder_validation_required"
)

// SubscriptionStatus is the lifecycle status of a resthook subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionDisable  SubscriptionStatus = "DISABLE"
	SubscriptionInactive SubscriptionStatus = "INACTIVE"
)

// EventStatus is the processing status of one emitted subscription event.
type EventStatus string

const (
	// EventInProgress means the platform has just created the event and is
	// about to call the resthook target.
	EventInProgress EventStatus = "IN_PROGRESS"
	// EventAck means the target has acknowledged the delivery.
	EventAck EventStatus = "ACK"
	// EventProcessed warns the platform that processing fully completed.
	EventProcessed EventStatus = "PROCESSED"
	// EventFailed warns the platform that an error occurred during processing.
	EventFailed EventStatus = "FAILED"
	// EventError means the target did not acknowledge the delivery.
	EventError    EventStatus = "ERROR"
	EventWarning  EventStatus = "WARNING"
	EventCritical EventStatus = "CRITICAL"
)

// BanksUserStatus tracks a bank user's aggregation progress.
type BanksUserStatus string

const (
	BanksUserNew                  BanksUserStatus = "NEW"
	BanksUserSynchronizing        BanksUserStatus = "SYNCHRONIZING"
	BanksUserAccountsSynchronized BanksUserStatus = "ACCOUNTS_SYNCHRONIZED"
	BanksUserConnectionCompleted  BanksUserStatus = "CONNECTION_COMPLETED"
	BanksUserFinished             BanksUserStatus = "FINISHED"
)

// MultiResourceCreationResponse is the envelope returned by bulk creation
// endpoints: each element carries the created resource and its own status.
type MultiResourceCreationResponse[T any] struct {
	Elements []struct {
		Resource T   `json:"resource"`
		Status   int `json:"status"`
	} `json:"elements"`
	Metadata struct {
		Failure int `json:"failure"`
		// The wire format really spells it "sucess".
		Success int `json:"sucess"`
		Total   int `json:"total"`
	} `json:"metadata"`
}
