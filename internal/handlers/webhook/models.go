package webhook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// notificationRequest is the classic notification envelope: a batch of
// wrapped items plus a live flag.
type notificationRequest struct {
	Live              string                    `json:"live"`
	NotificationItems []notificationItemWrapper `json:"notificationItems"`
}

type notificationItemWrapper struct {
	NotificationRequestItem notificationRequestItem `json:"NotificationRequestItem"`
}

type notificationRequestItem struct {
	PSPReference        string            `json:"pspReference"`
	OriginalReference   string            `json:"originalReference"`
	MerchantAccountCode string            `json:"merchantAccountCode"`
	MerchantReference   string            `json:"merchantReference"`
	EventCode           string            `json:"eventCode"`
	Success             string            `json:"success"`
	Amount              *models.Amount    `json:"amount"`
	AdditionalData      map[string]string `json:"additionalData"`
}

// balancePlatformEvent is the platform-account-level shape. These events
// carry no item signature and rely on transport-level trust.
type balancePlatformEvent struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Environment string `json:"environment"`
	Data        struct {
		BalancePlatform string `json:"balancePlatform"`
		AccountHolder   struct {
			ID            string                       `json:"id"`
			LegalEntityID string                       `json:"legalEntityId"`
			Capabilities  map[string]models.Capability `json:"capabilities"`
		} `json:"accountHolder"`
	} `json:"data"`
}

// parseBatch normalizes an inbound payload into canonical notifications.
// Two shapes are recognized: the classic batched envelope and the
// balance-platform event. Anything else is malformed.
func parseBatch(body []byte) ([]models.WebhookNotification, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}

	if _, ok := probe["notificationItems"]; ok {
		return parseClassicBatch(body)
	}
	if _, ok := probe["type"]; ok {
		return parseBalancePlatformEvent(body)
	}
	return nil, fmt.Errorf("payload matches no known notification shape")
}

func parseClassicBatch(body []byte) ([]models.WebhookNotification, error) {
	var req notificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("malformed notification envelope: %w", err)
	}
	if len(req.NotificationItems) == 0 {
		return nil, fmt.Errorf("notificationItems is empty")
	}

	notifications := make([]models.WebhookNotification, 0, len(req.NotificationItems))
	for _, wrapper := range req.NotificationItems {
		item := wrapper.NotificationRequestItem
		raw, _ := json.Marshal(item)

		n := models.WebhookNotification{
			PSPReference:        item.PSPReference,
			OriginalReference:   item.OriginalReference,
			EventCode:           item.EventCode,
			Success:             item.Success != "false", // absent defaults to true
			Live:                req.Live == "true",
			MerchantAccountCode: item.MerchantAccountCode,
			MerchantReference:   item.MerchantReference,
			Amount:              item.Amount,
			Raw:                 raw,
		}
		if item.AdditionalData != nil {
			n.HMACSignature = item.AdditionalData["hmacSignature"]
			n.AccountHolderID = item.AdditionalData["accountHolderId"]
			n.LegalEntityID = item.AdditionalData["legalEntityId"]
		}
		notifications = append(notifications, n)
	}
	return notifications, nil
}

func parseBalancePlatformEvent(body []byte) ([]models.WebhookNotification, error) {
	var evt balancePlatformEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("malformed balance-platform event: %w", err)
	}
	if !strings.HasPrefix(evt.Type, "balancePlatform.") {
		return nil, fmt.Errorf("unrecognized event type %q", evt.Type)
	}

	return []models.WebhookNotification{{
		PSPReference:    evt.ID,
		EventCode:       evt.Type,
		Success:         true,
		Live:            evt.Environment == "live",
		AccountHolderID: evt.Data.AccountHolder.ID,
		LegalEntityID:   evt.Data.AccountHolder.LegalEntityID,
		Capabilities:    evt.Data.AccountHolder.Capabilities,
		Raw:             body,
	}}, nil
}

// signatureExempt reports whether the notification family skips item-level
// signature checking.
func signatureExempt(n models.WebhookNotification) bool {
	return strings.HasPrefix(n.EventCode, "balancePlatform.")
}
