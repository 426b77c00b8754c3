package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// defaultCurrency stands in for the amount currency on events that carry no
// amount at all.
const defaultCurrency = "USD"

// ComputeSignature calculates the HMAC-SHA256 signature of a notification:
// the colon-joined signing tuple, keyed with the hex-decoded shared secret,
// encoded base64.
func ComputeSignature(n models.WebhookNotification, hexKey string) (string, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return "", fmt.Errorf("hmac key is not valid hex: %w", err)
	}

	value := "0"
	currency := defaultCurrency
	if n.Amount != nil {
		value = strconv.FormatInt(n.Amount.Value, 10)
		currency = n.Amount.Currency
	}

	// Field order is fixed by the platform; originalReference is always
	// signed as empty.
	payload := strings.Join([]string{
		n.PSPReference,
		"",
		n.MerchantAccountCode,
		n.MerchantReference,
		value,
		currency,
		n.EventCode,
		strconv.FormatBool(n.Success),
	}, ":")

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature checks the signature attached to a notification against
// the shared secret using a constant-time compare.
func VerifySignature(n models.WebhookNotification, hexKey string) error {
	if n.HMACSignature == "" {
		return fmt.Errorf("notification %s carries no hmac signature", n.PSPReference)
	}

	expected, err := ComputeSignature(n, hexKey)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(n.HMACSignature)) {
		return fmt.Errorf("hmac signature mismatch for notification %s", n.PSPReference)
	}
	return nil
}
