package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/config"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/database"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeBlobStore struct {
	puts    map[string][]byte
	failPut bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{puts: map[string][]byte{}}
}

func (b *fakeBlobStore) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	if b.failPut {
		return fmt.Errorf("bucket unavailable")
	}
	b.puts[bucket+"/"+key] = body
	return nil
}

type fakePublisher struct {
	events      []models.VerificationEvent
	failPublish bool
	failPSP     string
}

func (p *fakePublisher) Publish(ctx context.Context, event models.VerificationEvent) error {
	if p.failPublish || (p.failPSP != "" && event.Notification.PSPReference == p.failPSP) {
		return fmt.Errorf("topic unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

type failingDeduper struct{}

func (failingDeduper) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return false, fmt.Errorf("dedup store unavailable")
}

func (failingDeduper) Del(ctx context.Context, keys ...string) error {
	return fmt.Errorf("dedup store unavailable")
}

type handlerFixture struct {
	handler   *Handler
	blobs     *fakeBlobStore
	publisher *fakePublisher
	redis     *miniredis.Miniredis
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { redisClient.Close() })

	blobs := newFakeBlobStore()
	publisher := &fakePublisher{}

	handler, err := NewHandler(nil, &Config{
		Timeout:       5 * time.Second,
		WebhookBucket: "webhook-payloads",
		DedupTTL:      time.Hour,
	}, HandlerDependencies{
		HMACKey:   testHMACKey,
		Blobs:     blobs,
		Publisher: publisher,
		Dedup:     redisClient,
		Logger:    logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	return &handlerFixture{handler: handler, blobs: blobs, publisher: publisher, redis: mr}
}

func (f *handlerFixture) post(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/adyen", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.HandleNotifications(rec, req)
	return rec
}

// signedBatch builds a classic notification envelope, signing every item
// with the given key.
func signedBatch(t *testing.T, hexKey string, items ...models.WebhookNotification) []byte {
	t.Helper()

	wrappers := make([]map[string]interface{}, 0, len(items))
	for _, n := range items {
		additionalData := map[string]string{}
		if hexKey != "" {
			signature, err := ComputeSignature(n, hexKey)
			require.NoError(t, err)
			additionalData["hmacSignature"] = signature
		}
		if n.AccountHolderID != "" {
			additionalData["accountHolderId"] = n.AccountHolderID
		}
		if n.LegalEntityID != "" {
			additionalData["legalEntityId"] = n.LegalEntityID
		}

		item := map[string]interface{}{
			"pspReference":        n.PSPReference,
			"merchantAccountCode": n.MerchantAccountCode,
			"merchantReference":   n.MerchantReference,
			"eventCode":           n.EventCode,
			"success":             fmt.Sprintf("%t", n.Success),
			"additionalData":      additionalData,
		}
		if n.Amount != nil {
			item["amount"] = n.Amount
		}
		wrappers = append(wrappers, map[string]interface{}{"NotificationRequestItem": item})
	}

	body, err := json.Marshal(map[string]interface{}{
		"live":              "false",
		"notificationItems": wrappers,
	})
	require.NoError(t, err)
	return body
}

func kycItem(psp string) models.WebhookNotification {
	return models.WebhookNotification{
		PSPReference:        psp,
		MerchantAccountCode: "PayerSyncECOM",
		EventCode:           "ACCOUNT_HOLDER_UPDATED",
		Success:             true,
		AccountHolderID:     "AH-001",
	}
}

// ==========================
// Ingestion Tests
// ==========================

func TestHandler_AcceptsSignedBatch(t *testing.T) {
	fixture := newHandlerFixture(t)

	rec := fixture.post(t, signedBatch(t, testHMACKey, kycItem("PSP-001")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[accepted]", rec.Body.String())

	require.Len(t, fixture.publisher.events, 1)
	event := fixture.publisher.events[0]
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "kyc", event.Category)
	assert.Equal(t, "PSP-001", event.Notification.PSPReference)
	assert.Equal(t, "AH-001", event.Notification.AccountHolderID)

	// Raw payload stored before fanout, dedup key claimed.
	assert.Len(t, fixture.blobs.puts, 1)
	assert.True(t, fixture.redis.Exists("webhook:psp:PSP-001"))
}

func TestHandler_RejectsBadSignatureBatchEntirely(t *testing.T) {
	fixture := newHandlerFixture(t)

	good := kycItem("PSP-002")
	bad := kycItem("PSP-003")
	body := signedBatch(t, testHMACKey, good)

	// Re-sign the second item with the wrong secret and merge the batches.
	wrongKey := "deadbeefdeadbeef"
	badBody := signedBatch(t, wrongKey, bad)
	var goodEnvelope, badEnvelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &goodEnvelope))
	require.NoError(t, json.Unmarshal(badBody, &badEnvelope))
	var goodItems, badItems []json.RawMessage
	require.NoError(t, json.Unmarshal(goodEnvelope["notificationItems"], &goodItems))
	require.NoError(t, json.Unmarshal(badEnvelope["notificationItems"], &badItems))
	merged, err := json.Marshal(map[string]interface{}{
		"live":              "false",
		"notificationItems": append(goodItems, badItems...),
	})
	require.NoError(t, err)

	rec := fixture.post(t, merged)

	// One bad item rejects the whole batch; nothing is stored or published.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fixture.publisher.events)
	assert.Empty(t, fixture.blobs.puts)
	assert.False(t, fixture.redis.Exists("webhook:psp:PSP-002"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "HMAC_VERIFICATION_FAILED", response["code"])
}

func TestHandler_RejectsMissingSignature(t *testing.T) {
	fixture := newHandlerFixture(t)

	rec := fixture.post(t, signedBatch(t, "", kycItem("PSP-004")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fixture.publisher.events)
}

func TestHandler_RejectsUnknownEventCode(t *testing.T) {
	fixture := newHandlerFixture(t)

	item := kycItem("PSP-005")
	item.EventCode = "SOMETHING_NEW"
	rec := fixture.post(t, signedBatch(t, testHMACKey, item))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, fixture.publisher.events)
}

func TestHandler_RejectsMissingPSPReference(t *testing.T) {
	fixture := newHandlerFixture(t)

	rec := fixture.post(t, signedBatch(t, testHMACKey, kycItem("")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RejectsMalformedPayload(t *testing.T) {
	fixture := newHandlerFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "not json at all"},
		{name: "unknown shape", body: `{"something":"else"}`},
		{name: "empty batch", body: `{"live":"false","notificationItems":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := fixture.post(t, []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandler_DeduplicatesRedeliveredBatch(t *testing.T) {
	fixture := newHandlerFixture(t)
	body := signedBatch(t, testHMACKey, kycItem("PSP-006"))

	rec := fixture.post(t, body)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Redelivery of the same batch is acknowledged but publishes nothing new.
	rec = fixture.post(t, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[accepted]", rec.Body.String())
	assert.Len(t, fixture.publisher.events, 1)

	// The raw payload of every delivery is still stored.
	assert.Len(t, fixture.blobs.puts, 2)
}

func TestHandler_DedupFailureProcessesAnyway(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.handler.dedup = failingDeduper{}

	rec := fixture.post(t, signedBatch(t, testHMACKey, kycItem("PSP-007")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, fixture.publisher.events, 1)
}

func TestHandler_BalancePlatformEventIsSignatureExempt(t *testing.T) {
	fixture := newHandlerFixture(t)

	body := []byte(`{
		"id": "EVT-001",
		"type": "balancePlatform.accountHolder.updated",
		"environment": "test",
		"data": {
			"balancePlatform": "PayerSyncPlatform",
			"accountHolder": {
				"id": "AH-002",
				"legalEntityId": "LE-002",
				"capabilities": {
					"receivePayments": {"allowed": true, "verificationStatus": "valid"}
				}
			}
		}
	}`)

	rec := fixture.post(t, body)
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, fixture.publisher.events, 1)
	event := fixture.publisher.events[0]
	assert.Equal(t, "balance-platform", event.Category)
	assert.Equal(t, "AH-002", event.Notification.AccountHolderID)
	assert.Equal(t, "LE-002", event.Notification.LegalEntityID)
	assert.Equal(t, "valid", event.Notification.Capabilities["receivePayments"].VerificationStatus)
}

func TestHandler_BlobWriteFailureRejectsBatch(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.blobs.failPut = true

	rec := fixture.post(t, signedBatch(t, testHMACKey, kycItem("PSP-008")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, fixture.publisher.events)
}

func TestHandler_PublishFailureRejectsBatch(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.publisher.failPublish = true
	body := signedBatch(t, testHMACKey, kycItem("PSP-009"))

	rec := fixture.post(t, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, fixture.publisher.events)

	// The failed item's claim is released so redelivery is not treated as a
	// duplicate.
	assert.False(t, fixture.redis.Exists("webhook:psp:PSP-009"))

	// The bus recovers and the sender redelivers: the event is published
	// exactly once.
	fixture.publisher.failPublish = false
	rec = fixture.post(t, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fixture.publisher.events, 1)
	assert.Equal(t, "PSP-009", fixture.publisher.events[0].Notification.PSPReference)
}

func TestHandler_MidBatchPublishFailureRedelivery(t *testing.T) {
	fixture := newHandlerFixture(t)
	fixture.publisher.failPSP = "PSP-011"
	body := signedBatch(t, testHMACKey, kycItem("PSP-010"), kycItem("PSP-011"))

	rec := fixture.post(t, body)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// The first item went out before the failure; its claim stays.
	require.Len(t, fixture.publisher.events, 1)
	assert.True(t, fixture.redis.Exists("webhook:psp:PSP-010"))
	assert.False(t, fixture.redis.Exists("webhook:psp:PSP-011"))

	// Redelivery skips the already-published item and publishes the failed
	// one, so every item ends up published exactly once.
	fixture.publisher.failPSP = ""
	rec = fixture.post(t, body)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fixture.publisher.events, 2)
	assert.Equal(t, "PSP-010", fixture.publisher.events[0].Notification.PSPReference)
	assert.Equal(t, "PSP-011", fixture.publisher.events[1].Notification.PSPReference)
}
