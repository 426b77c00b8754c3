package verification

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/store"
)

func newTestHandler(t *testing.T) (*Handler, *fakePlatform, store.RecordStore) {
	t.Helper()

	platform := &fakePlatform{}
	records := store.NewMemoryStore()

	handler, err := NewHandler(nil, &Config{Timeout: 5 * time.Second}, ServiceDependencies{
		Platform: platform,
		Records:  records,
		Notifier: &recordingNotifier{},
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return handler, platform, records
}

func TestHandler_HandleEvent(t *testing.T) {
	handler, platform, records := newTestHandler(t)
	seedRecord(t, records)

	event := models.VerificationEvent{
		EventID:      "evt-001",
		Category:     "kyc",
		Notification: accountHolderEvent(allCapabilities("valid", "TI-001")),
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/verification", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, platform.sweepCalls)

	record, err := records.Get(req.Context(), "merchant-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnboarded, record.Status)
}

func TestHandler_HandleEvent_MalformedBody(t *testing.T) {
	handler, platform, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/verification", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	handler.HandleEvent(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, platform.sweepCalls)
}

func TestHandler_HandleCompletion_GatesOnTaxID(t *testing.T) {
	handler, platform, records := newTestHandler(t)
	seedRecord(t, records)

	event := models.VerificationEvent{
		EventID:      "evt-002",
		Category:     "kyc",
		Notification: accountHolderEvent(allCapabilities("valid", "TI-001")),
	}
	body, err := json.Marshal(event)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/events/completion", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleCompletion(rec, req)

	// The fake platform reports no tax registration; the event is still
	// acknowledged but the sweep stays gated.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, platform.legalEntityCalls)
	assert.Equal(t, 0, platform.sweepCalls)
}
