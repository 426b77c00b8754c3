package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		eventCode string
		category  string
		known     bool
	}{
		{eventCode: "AUTHORISATION", category: CategoryStandard, known: true},
		{eventCode: "CHARGEBACK", category: CategoryStandard, known: true},
		{eventCode: "REPORT_AVAILABLE", category: CategoryStandard, known: true},
		{eventCode: "ACCOUNT_HOLDER_UPDATED", category: CategoryKYC, known: true},
		{eventCode: "ACCOUNT_HOLDER_VERIFICATION", category: CategoryKYC, known: true},
		{eventCode: "balancePlatform.transfer.created", category: CategoryTransfer, known: true},
		{eventCode: "balancePlatform.accountHolder.updated", category: CategoryBalancePlatform, known: true},
		{eventCode: "balancePlatform.balanceAccount.sweep.created", category: CategoryBalancePlatform, known: true},
		{eventCode: "SOMETHING_ELSE", category: "", known: false},
		{eventCode: "", category: "", known: false},
		{eventCode: "authorisation", category: "", known: false}, // case-sensitive
	}

	for _, tt := range tests {
		t.Run(tt.eventCode, func(t *testing.T) {
			category, known := Classify(tt.eventCode)
			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.category, category)
		})
	}
}
