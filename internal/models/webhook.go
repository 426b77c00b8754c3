package models

import "encoding/json"

// Capability names as reported by the platform.
const (
	CapabilityReceivePayments               = "receivePayments"
	CapabilitySendToTransferInstrument      = "sendToTransferInstrument"
	CapabilitySendToBalanceAccount          = "sendToBalanceAccount"
	CapabilityReceiveFromBalanceAccount     = "receiveFromBalanceAccount"
	CapabilityReceiveFromTransferInstrument = "receiveFromTransferInstrument"
	CapabilityReceiveFromPlatformPayments   = "receiveFromPlatformPayments"
)

// CapabilityNames lists the six capabilities tracked on the merchant record.
var CapabilityNames = []string{
	CapabilityReceivePayments,
	CapabilitySendToTransferInstrument,
	CapabilitySendToBalanceAccount,
	CapabilityReceiveFromBalanceAccount,
	CapabilityReceiveFromTransferInstrument,
	CapabilityReceiveFromPlatformPayments,
}

const VerificationStatusValid = "valid"

// Capability is the platform's verification snapshot for one capability.
type Capability struct {
	Allowed             bool     `json:"allowed"`
	VerificationStatus  string   `json:"verificationStatus"` // valid, invalid or pending
	TransferInstruments []string `json:"transferInstruments,omitempty"`
}

// Amount is a platform monetary value.
type Amount struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

// WebhookNotification is the canonical shape every inbound notification is
// normalized into before any business logic sees it. Raw payloads arrive in
// two shapes (classic notification items and balance-platform events); the
// ingestion boundary folds both into this one type.
type WebhookNotification struct {
	PSPReference        string `json:"pspReference"`
	OriginalReference   string `json:"originalReference,omitempty"`
	EventCode           string `json:"eventCode"`
	Success             bool   `json:"success"`
	Live                bool   `json:"live"`
	MerchantAccountCode string `json:"merchantAccountCode,omitempty"`
	MerchantReference   string `json:"merchantReference,omitempty"`

	Amount *Amount `json:"amount,omitempty"`

	// HMACSignature is carried in additionalData by classic notifications.
	// Balance-platform events are exempt from signature checking.
	HMACSignature string `json:"hmacSignature,omitempty"`

	AccountHolderID string `json:"accountHolderId,omitempty"`
	LegalEntityID   string `json:"legalEntityId,omitempty"`

	// Capabilities is present on account-holder lifecycle events.
	Capabilities map[string]Capability `json:"capabilities,omitempty"`

	// Raw preserves the original item payload for durable storage.
	Raw json.RawMessage `json:"-"`
}

// VerificationEvent is the payload fanned out on the event bus, one per
// accepted notification item.
type VerificationEvent struct {
	EventID      string              `json:"eventId"`
	Category     string              `json:"category"`
	Notification WebhookNotification `json:"notification"`
}
