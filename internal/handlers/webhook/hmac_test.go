package webhook

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

var testHMACKey = hex.EncodeToString([]byte("test-hmac-shared-secret"))

func TestComputeSignature_Deterministic(t *testing.T) {
	n := models.WebhookNotification{
		PSPReference:        "PSP-001",
		MerchantAccountCode: "PayerSyncECOM",
		MerchantReference:   "order-42",
		EventCode:           "AUTHORISATION",
		Success:             true,
		Amount:              &models.Amount{Value: 1250, Currency: "EUR"},
	}

	first, err := ComputeSignature(n, testHMACKey)
	require.NoError(t, err)
	second, err := ComputeSignature(n, testHMACKey)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestComputeSignature_MissingAmountSignsAsZeroUSD(t *testing.T) {
	withAmount := models.WebhookNotification{
		PSPReference: "PSP-002",
		EventCode:    "ACCOUNT_HOLDER_UPDATED",
		Success:      true,
		Amount:       &models.Amount{Value: 0, Currency: "USD"},
	}
	withoutAmount := withAmount
	withoutAmount.Amount = nil

	sigWith, err := ComputeSignature(withAmount, testHMACKey)
	require.NoError(t, err)
	sigWithout, err := ComputeSignature(withoutAmount, testHMACKey)
	require.NoError(t, err)
	assert.Equal(t, sigWith, sigWithout)
}

func TestComputeSignature_RejectsNonHexKey(t *testing.T) {
	_, err := ComputeSignature(models.WebhookNotification{PSPReference: "PSP-003"}, "not-hex!")
	require.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	base := models.WebhookNotification{
		PSPReference:        "PSP-004",
		MerchantAccountCode: "PayerSyncECOM",
		EventCode:           "AUTHORISATION",
		Success:             true,
	}

	signature, err := ComputeSignature(base, testHMACKey)
	require.NoError(t, err)

	t.Run("valid signature passes", func(t *testing.T) {
		n := base
		n.HMACSignature = signature
		assert.NoError(t, VerifySignature(n, testHMACKey))
	})

	t.Run("missing signature fails", func(t *testing.T) {
		assert.Error(t, VerifySignature(base, testHMACKey))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		n := base
		n.HMACSignature = signature
		otherKey := hex.EncodeToString([]byte("some-other-secret"))
		assert.Error(t, VerifySignature(n, otherKey))
	})

	t.Run("tampered field fails", func(t *testing.T) {
		n := base
		n.HMACSignature = signature
		n.Success = false
		assert.Error(t, VerifySignature(n, testHMACKey))
	})
}
