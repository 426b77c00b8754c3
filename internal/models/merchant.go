package models

import "time"

// OnboardingStatus is the lifecycle state of a merchant record. Transitions
// are forward only; once Onboarded a record never reverts.
type OnboardingStatus string

const (
	StatusSubmitted        OnboardingStatus = "SUBMITTED"
	StatusReadyForPlatform OnboardingStatus = "READY_FOR_PLATFORM"
	StatusOnboarded        OnboardingStatus = "ONBOARDED"
)

// CreationProgress is the sparse set of Adyen entity identifiers accumulated
// by the orchestrator. A populated field means the entity already exists and
// its creation step is skipped on replay.
type CreationProgress struct {
	LegalEntityID             string `json:"legalEntityId,omitempty" dynamodbav:"legalEntityId,omitempty"`
	SoleProprietorshipID      string `json:"soleProprietorshipId,omitempty" dynamodbav:"soleProprietorshipId,omitempty"`
	AccountHolderID           string `json:"accountHolderId,omitempty" dynamodbav:"accountHolderId,omitempty"`
	BusinessLineID            string `json:"businessLineId,omitempty" dynamodbav:"businessLineId,omitempty"`
	SplitConfigurationID      string `json:"splitConfigurationId,omitempty" dynamodbav:"splitConfigurationId,omitempty"`
	BalanceAccountID          string `json:"balanceAccountId,omitempty" dynamodbav:"balanceAccountId,omitempty"`
	StoreID                   string `json:"storeId,omitempty" dynamodbav:"storeId,omitempty"`
	VisaPaymentMethodID       string `json:"visaPaymentMethodId,omitempty" dynamodbav:"visaPaymentMethodId,omitempty"`
	MastercardPaymentMethodID string `json:"mastercardPaymentMethodId,omitempty" dynamodbav:"mastercardPaymentMethodId,omitempty"`
	TransferInstrumentID      string `json:"transferInstrumentId,omitempty" dynamodbav:"transferInstrumentId,omitempty"`
	SweepID                   string `json:"sweepId,omitempty" dynamodbav:"sweepId,omitempty"`
}

// VerificationStatuses tracks platform-reported capability validity. Each
// flag is monotonic: false to true only, never cleared by a later report.
type VerificationStatuses struct {
	ReceivePayments               bool `json:"receivePayments" dynamodbav:"receivePayments"`
	SendToTransferInstrument      bool `json:"sendToTransferInstrument" dynamodbav:"sendToTransferInstrument"`
	SendToBalanceAccount          bool `json:"sendToBalanceAccount" dynamodbav:"sendToBalanceAccount"`
	ReceiveFromBalanceAccount     bool `json:"receiveFromBalanceAccount" dynamodbav:"receiveFromBalanceAccount"`
	ReceiveFromTransferInstrument bool `json:"receiveFromTransferInstrument" dynamodbav:"receiveFromTransferInstrument"`
	ReceiveFromPlatformPayments   bool `json:"receiveFromPlatformPayments" dynamodbav:"receiveFromPlatformPayments"`
}

// AllVerified reports whether every capability has been verified.
func (v VerificationStatuses) AllVerified() bool {
	return v.ReceivePayments &&
		v.SendToTransferInstrument &&
		v.SendToBalanceAccount &&
		v.ReceiveFromBalanceAccount &&
		v.ReceiveFromTransferInstrument &&
		v.ReceiveFromPlatformPayments
}

// MerchantOnboardingRecord is the single per-merchant record shared by the
// orchestrator and the verification state machine. It is never deleted, only
// mutated, and the two write paths touch disjoint field sets except for
// Progress.TransferInstrumentID and Progress.SweepID.
type MerchantOnboardingRecord struct {
	MerchantID string           `json:"merchantId" dynamodbav:"merchantId"`
	Status     OnboardingStatus `json:"status" dynamodbav:"status"`

	// AccountHolderID mirrors Progress.AccountHolderID at the top level; it
	// is the secondary-index key for webhook lookups.
	AccountHolderID string `json:"accountHolderId,omitempty" dynamodbav:"accountHolderId,omitempty"`

	HasGeneratedLink bool                  `json:"hasGeneratedLink" dynamodbav:"hasGeneratedLink"`
	Progress         CreationProgress      `json:"creationProgress" dynamodbav:"creationProgress"`
	Verification     VerificationStatuses  `json:"verificationStatuses" dynamodbav:"verificationStatuses"`
	TaxID            string                `json:"taxId,omitempty" dynamodbav:"taxId,omitempty"`
	Profile          *OnboardingSubmission `json:"profile,omitempty" dynamodbav:"profile,omitempty"`
	CreatedAt        time.Time             `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt" dynamodbav:"updatedAt"`
}

// OnboardingSubmission is the merchant profile submitted to start onboarding.
type OnboardingSubmission struct {
	LegalEntity *LegalEntityData `json:"legalEntity,omitempty" dynamodbav:"legalEntity,omitempty"`
	Stores      []StoreData      `json:"stores,omitempty" dynamodbav:"stores,omitempty"`
}

// LegalEntityData describes the business or individual being onboarded.
type LegalEntityData struct {
	Type         string            `json:"type" dynamodbav:"type"` // individual or organization
	CountryCode  string            `json:"countryCode" dynamodbav:"countryCode"`
	Individual   *IndividualData   `json:"individual,omitempty" dynamodbav:"individual,omitempty"`
	Organization *OrganizationData `json:"organization,omitempty" dynamodbav:"organization,omitempty"`
}

type IndividualData struct {
	FirstName string `json:"firstName" dynamodbav:"firstName"`
	LastName  string `json:"lastName" dynamodbav:"lastName"`
	Email     string `json:"email" dynamodbav:"email"`
}

type OrganizationData struct {
	LegalName          string `json:"legalName" dynamodbav:"legalName"`
	RegistrationNumber string `json:"registrationNumber,omitempty" dynamodbav:"registrationNumber,omitempty"`
}

// StoreData describes one sellable channel under the merchant.
type StoreData struct {
	Reference   string `json:"reference" dynamodbav:"reference"`
	Description string `json:"description,omitempty" dynamodbav:"description,omitempty"`
	PhoneNumber string `json:"phoneNumber" dynamodbav:"phoneNumber"`
	City        string `json:"city,omitempty" dynamodbav:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty" dynamodbav:"postalCode,omitempty"`
	Line1       string `json:"line1,omitempty" dynamodbav:"line1,omitempty"`
}

// IsIndividual reports whether the submitted legal entity is a natural
// person, which requires the companion sole-proprietorship workaround.
func (s *OnboardingSubmission) IsIndividual() bool {
	return s != nil && s.LegalEntity != nil && s.LegalEntity.Type == "individual"
}
