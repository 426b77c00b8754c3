package onboarding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/store"
)

func newTestRouter(t *testing.T) (chi.Router, *fakePlatform, store.RecordStore) {
	t.Helper()

	platform := newFakePlatform()
	records := store.NewMemoryStore()

	handler, err := NewHandler(nil, &Config{
		Enabled:               true,
		Timeout:               5 * time.Second,
		OnboardingTheme:       "theme-001",
		OnboardingRedirectURL: "https://app.example.com/done",
	}, ServiceDependencies{
		Platform: platform,
		Records:  records,
		Logger:   logger.NewTestLogger(t),
	})
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Post("/merchants/{merchantId}/onboarding", handler.HandleSubmit)
	return router, platform, records
}

func postSubmission(router chi.Router, merchantID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/merchants/%s/onboarding", merchantID), bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

const validSubmissionBody = `{
	"legalEntity": {
		"type": "organization",
		"countryCode": "US",
		"organization": {"legalName": "Rivera Dental LLC"}
	},
	"stores": [
		{"reference": "store-001", "phoneNumber": "+1 555 010 0100", "city": "Austin"}
	]
}`

func TestHandler_HandleSubmit_Success(t *testing.T) {
	router, platform, _ := newTestRouter(t)

	rec := postSubmission(router, "merchant-1", validSubmissionBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var output Output
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &output))
	assert.Equal(t, "merchant-1", output.MerchantID)
	assert.Equal(t, "https://onboarding.example.com/LE-001", output.OnboardingURL)
	assert.Equal(t, 1, platform.calls["createOnboardingLink"])
}

func TestHandler_HandleSubmit_ValidationErrorsNameEveryField(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantMentioned []string
	}{
		{
			name:          "missing everything",
			body:          `{}`,
			wantMentioned: []string{"legalEntity", "stores"},
		},
		{
			name: "missing store phone number",
			body: `{
				"legalEntity": {"type": "organization", "countryCode": "US", "organization": {"legalName": "X"}},
				"stores": [{"reference": "store-001"}]
			}`,
			wantMentioned: []string{"phoneNumber"},
		},
		{
			name: "empty stores array",
			body: `{
				"legalEntity": {"type": "organization", "countryCode": "US", "organization": {"legalName": "X"}},
				"stores": []
			}`,
			wantMentioned: []string{"stores"},
		},
		{
			name: "type subobject mismatch",
			body: `{
				"legalEntity": {"type": "individual", "countryCode": "US"},
				"stores": [{"reference": "store-001", "phoneNumber": "+1 555 010 0100"}]
			}`,
			wantMentioned: []string{"legalEntity.individual"},
		},
		{
			name: "implausible phone number",
			body: `{
				"legalEntity": {"type": "organization", "countryCode": "US", "organization": {"legalName": "X"}},
				"stores": [{"reference": "store-001", "phoneNumber": "nope"}]
			}`,
			wantMentioned: []string{"phoneNumber"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, platform, _ := newTestRouter(t)

			rec := postSubmission(router, "merchant-1", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var response struct {
				Code    string `json:"code"`
				Details string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
			assert.Equal(t, "VALIDATION_FAILED", response.Code)
			for _, field := range tt.wantMentioned {
				assert.Contains(t, response.Details, field)
			}

			// Validation failures never reach the platform.
			assert.Empty(t, platform.calls)
		})
	}
}

func TestHandler_HandleSubmit_MalformedBody(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := postSubmission(router, "merchant-1", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_HandleSubmit_StoreConflictMapsTo409(t *testing.T) {
	router, platform, _ := newTestRouter(t)
	platform.storeConflict = true

	rec := postSubmission(router, "merchant-1", validSubmissionBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "STORE_REFERENCE_CONFLICT", response["code"])
}
