package onboarding

import (
	"fmt"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/validation"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// GetInputSchema returns the schema for the submission payload. Structural
// checks happen here; business checks live in ValidateSubmission.
func GetInputSchema() validation.JSONSchema {
	one := 1
	return validation.JSONSchema{
		Type:                 "object",
		AdditionalProperties: true,
		Required:             []string{"legalEntity", "stores"},
		Properties: map[string]validation.Property{
			"legalEntity": {
				Type:     "object",
				Required: []string{"type", "countryCode"},
				Properties: map[string]validation.Property{
					"type":        {Type: "string", Enum: []string{"individual", "organization"}},
					"countryCode": {Type: "string", MinLength: &one},
				},
			},
			"stores": {
				Type:     "array",
				MinItems: &one,
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"reference", "phoneNumber"},
					Properties: map[string]validation.Property{
						"reference":   {Type: "string", MinLength: &one},
						"phoneNumber": {Type: "string", MinLength: &one},
					},
				},
			},
		},
	}
}

// ValidateSubmission applies the business checks the schema cannot express:
// the legal entity subobject must match its declared type, and every store
// phone number must be plausibly dialable.
func ValidateSubmission(submission *models.OnboardingSubmission) []string {
	var errs []string

	if submission.LegalEntity == nil {
		errs = append(errs, "legalEntity: required field missing")
		return errs
	}

	switch submission.LegalEntity.Type {
	case "individual":
		if submission.LegalEntity.Individual == nil {
			errs = append(errs, "legalEntity.individual: required for type individual")
		}
	case "organization":
		if submission.LegalEntity.Organization == nil {
			errs = append(errs, "legalEntity.organization: required for type organization")
		}
	}

	if len(submission.Stores) == 0 {
		errs = append(errs, "stores: at least one store is required")
	}
	for i, storeData := range submission.Stores {
		if storeData.PhoneNumber == "" {
			errs = append(errs, fmt.Sprintf("stores[%d].phoneNumber: required field missing", i))
			continue
		}
		if !validation.ValidatePhone(storeData.PhoneNumber) {
			errs = append(errs, fmt.Sprintf("stores[%d].phoneNumber: invalid phone number", i))
		}
	}

	return errs
}
