package onboarding

import "github.com/vtem-rh/payersync-be-test-sub000/internal/models"

type Input struct {
	MerchantID string
	Submission models.OnboardingSubmission
}

type Output struct {
	MerchantID    string `json:"merchantId"`
	OnboardingURL string `json:"onboardingUrl"`
}
