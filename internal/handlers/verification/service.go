package verification

import (
	"context"
	stderrors "errors"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/adyen"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/errors"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/metrics"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/notifier"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/store"
)

// Platform is the slice of the Adyen client the state machine needs.
type Platform interface {
	CreateSweep(ctx context.Context, balanceAccountID, transferInstrumentID string) (string, error)
	GetLegalEntity(ctx context.Context, legalEntityID string) (*adyen.LegalEntity, error)
}

type ServiceDependencies struct {
	Platform Platform
	Records  store.RecordStore
	Notifier notifier.ChangeNotifier
	Logger   logger.Logger
}

// Service applies the capability verification transition rule. Capability
// flags only ever move false to true; the sweep is created at most once; the
// ONBOARDED transition happens at most once per record and is the single
// externally observable completion signal.
type Service struct {
	platform Platform
	records  store.RecordStore
	notifier notifier.ChangeNotifier
	logger   logger.Logger
}

func NewService(deps ServiceDependencies) *Service {
	changeNotifier := deps.Notifier
	if changeNotifier == nil {
		changeNotifier = notifier.NoopNotifier{}
	}
	return &Service{
		platform: deps.Platform,
		records:  deps.Records,
		notifier: changeNotifier,
		logger:   deps.Logger,
	}
}

// HandleAccountHolderUpdated is the webhook-variant entry point. It does not
// gate sweep creation on a known tax identifier.
func (s *Service) HandleAccountHolderUpdated(ctx context.Context, n models.WebhookNotification) error {
	return s.process(ctx, n, false)
}

// HandleOnboardingCompleted is the completion-variant entry point. It
// additionally requires a tax identifier before the sweep may be created,
// fetching it lazily from the platform when unknown. The divergence from the
// webhook variant is deliberate and preserved as-is.
func (s *Service) HandleOnboardingCompleted(ctx context.Context, n models.WebhookNotification) error {
	return s.process(ctx, n, true)
}

func (s *Service) process(ctx context.Context, n models.WebhookNotification, requireTaxID bool) error {
	if n.AccountHolderID == "" {
		// Nothing to look up; acknowledge and move on.
		return nil
	}

	record, err := s.records.FindByAccountHolderID(ctx, n.AccountHolderID)
	if stderrors.Is(err, store.ErrNotFound) {
		// The platform notifies about holders unrelated to this system.
		s.logger.Info("no merchant for account holder, acknowledging", map[string]interface{}{
			"accountHolderId": n.AccountHolderID,
			"eventCode":       n.EventCode,
		})
		return nil
	}
	if err != nil {
		return errors.NewRecordReadFailedError(n.AccountHolderID, err)
	}

	log := s.logger.WithFields(map[string]interface{}{
		"merchantId":      record.MerchantID,
		"accountHolderId": n.AccountHolderID,
	})

	statuses := record.Verification
	flagsChanged := mergeCapabilities(&statuses, n.Capabilities)

	transferInstrumentID := record.Progress.TransferInstrumentID
	if transferInstrumentID == "" {
		transferInstrumentID = extractTransferInstrument(n.Capabilities)
	}

	// Terminal records only absorb capability and transfer-instrument
	// refreshes; they never recompute the sweep or re-emit completion.
	if record.Status == models.StatusOnboarded {
		fields := store.Fields{}
		if flagsChanged {
			fields["verificationStatuses"] = statuses
		}
		if transferInstrumentID != record.Progress.TransferInstrumentID {
			fields["creationProgress.transferInstrumentId"] = transferInstrumentID
		}
		if len(fields) == 0 {
			return nil
		}
		if err := s.records.Update(ctx, record.MerchantID, fields); err != nil {
			return errors.NewRecordWriteFailedError(record.MerchantID, err)
		}
		return nil
	}

	allVerified := statuses.AllVerified()

	taxID := record.TaxID
	if requireTaxID && taxID == "" {
		taxID = s.fetchTaxID(ctx, record, n, log)
	}

	sweepID := record.Progress.SweepID
	sweepSatisfied := sweepID != ""

	canAttemptSweep := allVerified &&
		transferInstrumentID != "" &&
		record.Progress.BalanceAccountID != "" &&
		sweepID == "" &&
		(!requireTaxID || taxID != "")

	if canAttemptSweep {
		created, err := s.platform.CreateSweep(ctx, record.Progress.BalanceAccountID, transferInstrumentID)
		if err != nil {
			// Non-fatal: a later event retries sweep creation.
			log.Warn("sweep creation failed, will retry on a later event", map[string]interface{}{
				"balanceAccountId": record.Progress.BalanceAccountID,
				"error":            err.Error(),
			})
		} else {
			sweepID = created
			sweepSatisfied = true
			metrics.SweepsCreated.Inc()
			log.Info("sweep created", map[string]interface{}{"sweepId": sweepID})
		}
	}

	becameOnboarded := allVerified && sweepSatisfied && record.Status != models.StatusOnboarded

	fields := store.Fields{}
	if flagsChanged {
		fields["verificationStatuses"] = statuses
	}
	if transferInstrumentID != record.Progress.TransferInstrumentID {
		fields["creationProgress.transferInstrumentId"] = transferInstrumentID
	}
	if sweepID != record.Progress.SweepID {
		fields["creationProgress.sweepId"] = sweepID
	}
	if taxID != record.TaxID {
		fields["taxId"] = taxID
	}
	if becameOnboarded {
		fields["status"] = models.StatusOnboarded
	}

	if len(fields) > 0 {
		if err := s.records.Update(ctx, record.MerchantID, fields); err != nil {
			return errors.NewRecordWriteFailedError(record.MerchantID, err)
		}
	}

	if becameOnboarded {
		metrics.MerchantsOnboarded.Inc()
		log.Info("merchant onboarded", nil)
		s.notifier.MerchantOnboarded(ctx, record.MerchantID)
	}

	return nil
}

// mergeCapabilities folds a capability snapshot into the stored flags.
// A "valid" report sets the flag; no report ever clears one.
func mergeCapabilities(statuses *models.VerificationStatuses, capabilities map[string]models.Capability) bool {
	changed := false
	set := func(flag *bool, name string) {
		capability, ok := capabilities[name]
		if !ok || *flag {
			return
		}
		if capability.VerificationStatus == models.VerificationStatusValid {
			*flag = true
			changed = true
		}
	}

	set(&statuses.ReceivePayments, models.CapabilityReceivePayments)
	set(&statuses.SendToTransferInstrument, models.CapabilitySendToTransferInstrument)
	set(&statuses.SendToBalanceAccount, models.CapabilitySendToBalanceAccount)
	set(&statuses.ReceiveFromBalanceAccount, models.CapabilityReceiveFromBalanceAccount)
	set(&statuses.ReceiveFromTransferInstrument, models.CapabilityReceiveFromTransferInstrument)
	set(&statuses.ReceiveFromPlatformPayments, models.CapabilityReceiveFromPlatformPayments)

	return changed
}

// extractTransferInstrument returns the first transfer instrument attached
// to any capability, scanning in fixed capability order.
func extractTransferInstrument(capabilities map[string]models.Capability) string {
	for _, name := range models.CapabilityNames {
		if capability, ok := capabilities[name]; ok {
			if len(capability.TransferInstruments) > 0 {
				return capability.TransferInstruments[0]
			}
		}
	}
	return ""
}

// fetchTaxID lazily resolves the merchant's tax identifier via the legal
// entity. Failures are logged, never fatal.
func (s *Service) fetchTaxID(ctx context.Context, record *models.MerchantOnboardingRecord, n models.WebhookNotification, log logger.Logger) string {
	legalEntityID := record.Progress.LegalEntityID
	if legalEntityID == "" {
		legalEntityID = n.LegalEntityID
	}
	if legalEntityID == "" {
		return ""
	}

	legalEntity, err := s.platform.GetLegalEntity(ctx, legalEntityID)
	if err != nil {
		log.Warn("tax identifier fetch failed", map[string]interface{}{
			"legalEntityId": legalEntityID,
			"error":         err.Error(),
		})
		return ""
	}
	return legalEntity.TaxID()
}
