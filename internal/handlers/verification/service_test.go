package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/adyen"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type fakePlatform struct {
	sweepCalls       int
	sweepErr         error
	legalEntityCalls int
	legalEntityErr   error
	taxID            string
}

func (p *fakePlatform) CreateSweep(ctx context.Context, balanceAccountID, transferInstrumentID string) (string, error) {
	p.sweepCalls++
	if p.sweepErr != nil {
		return "", p.sweepErr
	}
	return fmt.Sprintf("SWP-%03d", p.sweepCalls), nil
}

func (p *fakePlatform) GetLegalEntity(ctx context.Context, legalEntityID string) (*adyen.LegalEntity, error) {
	p.legalEntityCalls++
	if p.legalEntityErr != nil {
		return nil, p.legalEntityErr
	}
	raw := fmt.Sprintf(`{"id":%q,"type":"organization","organization":{"taxInformation":[{"country":"US","number":%q,"type":"EIN"}]}}`, legalEntityID, p.taxID)
	var legalEntity adyen.LegalEntity
	if err := json.Unmarshal([]byte(raw), &legalEntity); err != nil {
		return nil, err
	}
	return &legalEntity, nil
}

type recordingNotifier struct {
	onboarded []string
}

func (n *recordingNotifier) MerchantOnboarded(ctx context.Context, merchantID string) {
	n.onboarded = append(n.onboarded, merchantID)
}

func createTestService(t *testing.T, platform *fakePlatform, records store.RecordStore, changeNotifier *recordingNotifier) *Service {
	t.Helper()
	return NewService(ServiceDependencies{
		Platform: platform,
		Records:  records,
		Notifier: changeNotifier,
		Logger:   logger.NewTestLogger(t),
	})
}

func seedRecord(t *testing.T, records store.RecordStore) *models.MerchantOnboardingRecord {
	t.Helper()
	record := &models.MerchantOnboardingRecord{
		MerchantID:      "merchant-1",
		Status:          models.StatusReadyForPlatform,
		AccountHolderID: "AH-001",
		Progress: models.CreationProgress{
			LegalEntityID:    "LE-001",
			AccountHolderID:  "AH-001",
			BalanceAccountID: "BA-001",
		},
	}
	require.NoError(t, records.Put(context.Background(), record))
	return record
}

func allCapabilities(status string, transferInstruments ...string) map[string]models.Capability {
	capabilities := map[string]models.Capability{}
	for _, name := range models.CapabilityNames {
		capabilities[name] = models.Capability{Allowed: true, VerificationStatus: status}
	}
	if len(transferInstruments) > 0 {
		capability := capabilities[models.CapabilitySendToTransferInstrument]
		capability.TransferInstruments = transferInstruments
		capabilities[models.CapabilitySendToTransferInstrument] = capability
	}
	return capabilities
}

func accountHolderEvent(capabilities map[string]models.Capability) models.WebhookNotification {
	return models.WebhookNotification{
		PSPReference:    "PSP-001",
		EventCode:       "ACCOUNT_HOLDER_UPDATED",
		Success:         true,
		AccountHolderID: "AH-001",
		Capabilities:    capabilities,
	}
}

// ==========================
// State Machine Tests
// ==========================

func TestService_FullyVerifiedEventOnboardsMerchant(t *testing.T) {
	platform := &fakePlatform{}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))

	assert.Equal(t, 1, platform.sweepCalls)
	assert.Equal(t, []string{"merchant-1"}, changeNotifier.onboarded)

	record, err := records.Get(context.Background(), "merchant-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnboarded, record.Status)
	assert.Equal(t, "SWP-001", record.Progress.SweepID)
	assert.Equal(t, "TI-001", record.Progress.TransferInstrumentID)
	assert.True(t, record.Verification.AllVerified())
}

func TestService_DuplicateEventDoesNotRepeatSweepOrNotification(t *testing.T) {
	platform := &fakePlatform{}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))

	assert.Equal(t, 1, platform.sweepCalls)
	assert.Equal(t, []string{"merchant-1"}, changeNotifier.onboarded)
}

func TestService_FlagsAreMonotonic(t *testing.T) {
	platform := &fakePlatform{}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	// First event reports two capabilities valid.
	partial := map[string]models.Capability{
		models.CapabilityReceivePayments:      {Allowed: true, VerificationStatus: "valid"},
		models.CapabilitySendToBalanceAccount: {Allowed: true, VerificationStatus: "valid"},
	}
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), accountHolderEvent(partial)))

	// A later event downgrading them to pending must not clear the flags.
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), accountHolderEvent(allCapabilities("pending"))))

	record, err := records.Get(context.Background(), "merchant-1")
	require.NoError(t, err)
	assert.True(t, record.Verification.ReceivePayments)
	assert.True(t, record.Verification.SendToBalanceAccount)
	assert.False(t, record.Verification.ReceiveFromPlatformPayments)
	assert.Equal(t, 0, platform.sweepCalls)
	assert.Empty(t, changeNotifier.onboarded)
}

func TestService_NoSweepWithoutTransferInstrument(t *testing.T) {
	platform := &fakePlatform{}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), accountHolderEvent(allCapabilities("valid"))))

	assert.Equal(t, 0, platform.sweepCalls)
	assert.Empty(t, changeNotifier.onboarded)

	record, err := records.Get(context.Background(), "merchant-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyForPlatform, record.Status)
	assert.True(t, record.Verification.AllVerified())
}

func TestService_SweepFailureIsNonFatalAndRetried(t *testing.T) {
	platform := &fakePlatform{sweepErr: fmt.Errorf("sweep rejected")}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))
	assert.Equal(t, 1, platform.sweepCalls)
	assert.Empty(t, changeNotifier.onboarded)

	record, err := records.Get(context.Background(), "merchant-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyForPlatform, record.Status)
	assert.Empty(t, record.Progress.SweepID)

	// The platform recovers; the next event completes the transition.
	platform.sweepErr = nil
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))
	assert.Equal(t, 2, platform.sweepCalls)
	assert.Equal(t, []string{"merchant-1"}, changeNotifier.onboarded)

	record, err = records.Get(context.Background(), "merchant-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnboarded, record.Status)
}

func TestService_UnknownAccountHolderIsAcknowledged(t *testing.T) {
	platform := &fakePlatform{}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	event.AccountHolderID = "AH-unknown"
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))
	assert.Equal(t, 0, platform.sweepCalls)
}

func TestService_MissingAccountHolderIDIsNoOp(t *testing.T) {
	platform := &fakePlatform{}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	event.AccountHolderID = ""
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))
	assert.Equal(t, 0, platform.sweepCalls)
}

func TestService_OnboardedRecordAbsorbsRefreshOnly(t *testing.T) {
	platform := &fakePlatform{}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)

	record := seedRecord(t, records)
	record.Status = models.StatusOnboarded
	record.Progress.SweepID = "SWP-existing"
	require.NoError(t, records.Put(context.Background(), record))

	event := accountHolderEvent(allCapabilities("valid", "TI-002"))
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))

	assert.Equal(t, 0, platform.sweepCalls)
	assert.Empty(t, changeNotifier.onboarded)

	stored, err := records.Get(context.Background(), "merchant-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnboarded, stored.Status)
	assert.Equal(t, "SWP-existing", stored.Progress.SweepID)
	// Capability flags and the transfer instrument are still refreshed.
	assert.True(t, stored.Verification.AllVerified())
	assert.Equal(t, "TI-002", stored.Progress.TransferInstrumentID)
}

// ==========================
// Completion Variant Tests
// ==========================

func TestService_CompletionRequiresTaxID(t *testing.T) {
	platform := &fakePlatform{taxID: ""}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	require.NoError(t, service.HandleOnboardingCompleted(context.Background(), event))

	// The entity has no tax registration yet; the sweep is gated.
	assert.Equal(t, 1, platform.legalEntityCalls)
	assert.Equal(t, 0, platform.sweepCalls)
	assert.Empty(t, changeNotifier.onboarded)
}

func TestService_CompletionFetchesTaxIDAndOnboards(t *testing.T) {
	platform := &fakePlatform{taxID: "12-3456789"}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	require.NoError(t, service.HandleOnboardingCompleted(context.Background(), event))

	assert.Equal(t, 1, platform.legalEntityCalls)
	assert.Equal(t, 1, platform.sweepCalls)
	assert.Equal(t, []string{"merchant-1"}, changeNotifier.onboarded)

	record, err := records.Get(context.Background(), "merchant-1")
	require.NoError(t, err)
	assert.Equal(t, "12-3456789", record.TaxID)
	assert.Equal(t, models.StatusOnboarded, record.Status)
}

func TestService_CompletionToleratesTaxIDFetchFailure(t *testing.T) {
	platform := &fakePlatform{legalEntityErr: fmt.Errorf("entity lookup failed")}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	require.NoError(t, service.HandleOnboardingCompleted(context.Background(), event))

	assert.Equal(t, 0, platform.sweepCalls)

	// A known tax identifier on the record skips the fetch entirely.
	require.NoError(t, records.Update(context.Background(), "merchant-1", store.Fields{"taxId": "98-7654321"}))
	require.NoError(t, service.HandleOnboardingCompleted(context.Background(), event))
	assert.Equal(t, 1, platform.legalEntityCalls)
	assert.Equal(t, 1, platform.sweepCalls)
}

func TestService_WebhookVariantIgnoresTaxID(t *testing.T) {
	platform := &fakePlatform{taxID: ""}
	records := store.NewMemoryStore()
	changeNotifier := &recordingNotifier{}
	service := createTestService(t, platform, records, changeNotifier)
	seedRecord(t, records)

	event := accountHolderEvent(allCapabilities("valid", "TI-001"))
	require.NoError(t, service.HandleAccountHolderUpdated(context.Background(), event))

	assert.Equal(t, 0, platform.legalEntityCalls)
	assert.Equal(t, 1, platform.sweepCalls)
	assert.Equal(t, []string{"merchant-1"}, changeNotifier.onboarded)
}
