package adyen

import (
	"context"
	"fmt"
	"strings"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// Card networks provisioned for every store.
const (
	NetworkVisa       = "visa"
	NetworkMastercard = "mc"
)

type idResponse struct {
	ID string `json:"id"`
}

// --- Legal entity management API ---

type legalEntityRequest struct {
	Type               string               `json:"type"`
	Individual         *individualPayload   `json:"individual,omitempty"`
	Organization       *organizationPayload `json:"organization,omitempty"`
	EntityAssociations []entityAssociation  `json:"entityAssociations,omitempty"`
}

type individualPayload struct {
	Name      namePayload      `json:"name"`
	Email     string           `json:"email,omitempty"`
	Residency residencyPayload `json:"residentialAddress"`
}

type namePayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type residencyPayload struct {
	Country string `json:"country"`
}

type organizationPayload struct {
	LegalName          string           `json:"legalName"`
	RegistrationNumber string           `json:"registrationNumber,omitempty"`
	RegisteredAddress  residencyPayload `json:"registeredAddress"`
}

type entityAssociation struct {
	LegalEntityID string `json:"legalEntityId"`
	Type          string `json:"type"`
}

// CreateLegalEntity registers the submitted business or individual with the
// platform and returns the new legal entity id.
func (c *Client) CreateLegalEntity(ctx context.Context, data *models.LegalEntityData) (string, error) {
	req := legalEntityRequest{Type: data.Type}
	switch data.Type {
	case "individual":
		req.Individual = &individualPayload{
			Name: namePayload{
				FirstName: data.Individual.FirstName,
				LastName:  data.Individual.LastName,
			},
			Email:     data.Individual.Email,
			Residency: residencyPayload{Country: data.CountryCode},
		}
	case "organization":
		req.Organization = &organizationPayload{
			LegalName:          data.Organization.LegalName,
			RegistrationNumber: data.Organization.RegistrationNumber,
			RegisteredAddress:  residencyPayload{Country: data.CountryCode},
		}
	default:
		return "", fmt.Errorf("unsupported legal entity type %q", data.Type)
	}

	var resp idResponse
	if err := c.post(ctx, c.lemBaseURL+"/legalEntities", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateSoleProprietorshipLegalEntity creates the companion business-typed
// entity the platform requires before an individual can own business lines
// and stores.
func (c *Client) CreateSoleProprietorshipLegalEntity(ctx context.Context, data *models.LegalEntityData) (string, error) {
	name := data.Individual.FirstName + " " + data.Individual.LastName
	req := map[string]interface{}{
		"type": "soleProprietorship",
		"soleProprietorship": map[string]interface{}{
			"name":                  name,
			"countryOfGoverningLaw": data.CountryCode,
			"registeredAddress":     map[string]string{"country": data.CountryCode},
		},
	}

	var resp idResponse
	if err := c.post(ctx, c.lemBaseURL+"/legalEntities", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// AssociateSoleProprietorship links the individual legal entity to its
// companion sole proprietorship as the owner.
func (c *Client) AssociateSoleProprietorship(ctx context.Context, individualID, soleProprietorshipID string) error {
	req := legalEntityRequest{
		EntityAssociations: []entityAssociation{
			{LegalEntityID: soleProprietorshipID, Type: "soleProprietorship"},
		},
	}
	url := fmt.Sprintf("%s/legalEntities/%s", c.lemBaseURL, individualID)
	return c.patch(ctx, url, req, nil)
}

// TaxInformation is one tax registration on a legal entity.
type TaxInformation struct {
	Country string `json:"country,omitempty"`
	Number  string `json:"number,omitempty"`
	Type    string `json:"type,omitempty"`
}

// LegalEntity is the subset of the platform's legal entity representation the
// service reads back, currently only for tax identifier extraction.
type LegalEntity struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Organization *struct {
		TaxInformation []TaxInformation `json:"taxInformation,omitempty"`
	} `json:"organization,omitempty"`
	Individual *struct {
		TaxInformation []TaxInformation `json:"taxInformation,omitempty"`
	} `json:"individual,omitempty"`
	SoleProprietorship *struct {
		TaxInformation []TaxInformation `json:"taxInformation,omitempty"`
	} `json:"soleProprietorship,omitempty"`
}

// TaxID returns the first tax number present on the entity, or "".
func (le *LegalEntity) TaxID() string {
	var infos []TaxInformation
	switch {
	case le.Organization != nil:
		infos = le.Organization.TaxInformation
	case le.SoleProprietorship != nil:
		infos = le.SoleProprietorship.TaxInformation
	case le.Individual != nil:
		infos = le.Individual.TaxInformation
	}
	for _, info := range infos {
		if info.Number != "" {
			return info.Number
		}
	}
	return ""
}

// GetLegalEntity fetches a legal entity, used to lazily resolve the tax
// identifier once the platform has collected it.
func (c *Client) GetLegalEntity(ctx context.Context, legalEntityID string) (*LegalEntity, error) {
	var resp LegalEntity
	url := fmt.Sprintf("%s/legalEntities/%s", c.lemBaseURL, legalEntityID)
	if err := c.get(ctx, url, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateBusinessLine declares the merchant's line of commerce under the legal
// entity; the platform requires one before stores can be created.
func (c *Client) CreateBusinessLine(ctx context.Context, legalEntityID string) (string, error) {
	req := map[string]interface{}{
		"legalEntityId": legalEntityID,
		"service":       "paymentProcessing",
		"industryCode":  "339E",
		"salesChannels": []string{"eCommerce", "ecomMoto"},
	}

	var resp idResponse
	if err := c.post(ctx, c.lemBaseURL+"/businessLines", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateOnboardingLink produces a one-time hosted onboarding URL for the
// given legal entity. Links are single-use; a fresh one is created per
// invocation and never recorded in creation progress.
func (c *Client) CreateOnboardingLink(ctx context.Context, legalEntityID, themeID, redirectURL string) (string, error) {
	req := map[string]interface{}{
		"themeId":     themeID,
		"redirectUrl": redirectURL,
	}

	var resp struct {
		URL string `json:"url"`
	}
	url := fmt.Sprintf("%s/legalEntities/%s/onboardingLinks", c.lemBaseURL, legalEntityID)
	if err := c.post(ctx, url, req, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// --- Balance platform API ---

// CreateAccountHolder creates the holder-of-funds abstraction under the legal
// entity.
func (c *Client) CreateAccountHolder(ctx context.Context, legalEntityID string) (string, error) {
	req := map[string]interface{}{
		"legalEntityId":   legalEntityID,
		"balancePlatform": c.balancePlatform,
	}

	var resp idResponse
	if err := c.post(ctx, c.balanceBaseURL+"/accountHolders", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateBalanceAccount creates the ledger account where the merchant's funds
// accrue.
func (c *Client) CreateBalanceAccount(ctx context.Context, accountHolderID string) (string, error) {
	req := map[string]interface{}{
		"accountHolderId":     accountHolderID,
		"defaultCurrencyCode": "USD",
	}

	var resp idResponse
	if err := c.post(ctx, c.balanceBaseURL+"/balanceAccounts", req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateSweep installs the scheduled payout rule that pushes the balance
// account's funds to the merchant's transfer instrument.
func (c *Client) CreateSweep(ctx context.Context, balanceAccountID, transferInstrumentID string) (string, error) {
	req := map[string]interface{}{
		"counterparty": map[string]string{
			"transferInstrumentId": transferInstrumentID,
		},
		"currency": "USD",
		"schedule": map[string]string{"type": "daily"},
		"type":     "push",
		"category": "bank",
	}

	var resp idResponse
	url := fmt.Sprintf("%s/balanceAccounts/%s/sweeps", c.balanceBaseURL, balanceAccountID)
	if err := c.post(ctx, url, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// --- Management API ---

// CreateSplitConfiguration installs the fixed commission split template
// scoped to the platform merchant account.
func (c *Client) CreateSplitConfiguration(ctx context.Context, description string) (string, error) {
	req := map[string]interface{}{
		"description": description,
		"rules": []map[string]interface{}{
			{
				"paymentMethod":      "ANY",
				"shopperInteraction": "ANY",
				"fundingSource":      "ANY",
				"currency":           "ANY",
				"splitLogic": map[string]interface{}{
					"commission": map[string]interface{}{
						"variablePercentage": 250,
					},
					"paymentFee": "deductFromLiableAccount",
				},
			},
		},
	}

	var resp struct {
		SplitConfigurationID string `json:"splitConfigurationId"`
	}
	url := fmt.Sprintf("%s/merchants/%s/splitConfigurations", c.managementBaseURL, c.merchantAccount)
	if err := c.post(ctx, url, req, &resp); err != nil {
		return "", err
	}
	return resp.SplitConfigurationID, nil
}

// CreateStore registers a sellable channel under the business line. A
// "reference already exists" rejection maps to ErrStoreReferenceExists;
// callers must not retry it with the same input.
func (c *Client) CreateStore(ctx context.Context, store models.StoreData, businessLineID, balanceAccountID, splitConfigurationID string) (string, error) {
	req := map[string]interface{}{
		"merchantId":      c.merchantAccount,
		"reference":       store.Reference,
		"description":     store.Description,
		"phoneNumber":     store.PhoneNumber,
		"businessLineIds": []string{businessLineID},
		"address": map[string]string{
			"city":       store.City,
			"postalCode": store.PostalCode,
			"line1":      store.Line1,
		},
		"splitConfiguration": map[string]string{
			"balanceAccountId":     balanceAccountID,
			"splitConfigurationId": splitConfigurationID,
		},
	}

	var resp idResponse
	if err := c.post(ctx, c.managementBaseURL+"/stores", req, &resp); err != nil {
		if isReferenceConflict(err) {
			return "", fmt.Errorf("%w: %s", ErrStoreReferenceExists, store.Reference)
		}
		return "", err
	}
	return resp.ID, nil
}

// isReferenceConflict recognizes the platform's duplicate-reference
// rejection in a store-creation error.
func isReferenceConflict(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exist") && strings.Contains(msg, "reference")
}

// CreatePaymentMethod enables one card network on the store's business line
// and returns the payment method id.
func (c *Client) CreatePaymentMethod(ctx context.Context, businessLineID, storeID, network string) (string, error) {
	req := map[string]interface{}{
		"type":           network,
		"businessLineId": businessLineID,
		"storeIds":       []string{storeID},
		"currencies":     []string{"USD"},
	}

	var resp idResponse
	url := fmt.Sprintf("%s/merchants/%s/paymentMethodSettings", c.managementBaseURL, c.merchantAccount)
	if err := c.post(ctx, url, req, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
