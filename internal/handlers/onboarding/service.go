package onboarding

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/adyen"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/errors"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/logger"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/common/metrics"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
	"github.com/vtem-rh/payersync-be-test-sub000/internal/store"
)

// Platform is the slice of the Adyen client the orchestrator drives.
type Platform interface {
	CreateLegalEntity(ctx context.Context, data *models.LegalEntityData) (string, error)
	CreateSoleProprietorshipLegalEntity(ctx context.Context, data *models.LegalEntityData) (string, error)
	AssociateSoleProprietorship(ctx context.Context, individualID, soleProprietorshipID string) error
	CreateAccountHolder(ctx context.Context, legalEntityID string) (string, error)
	CreateBusinessLine(ctx context.Context, legalEntityID string) (string, error)
	CreateSplitConfiguration(ctx context.Context, description string) (string, error)
	CreateBalanceAccount(ctx context.Context, accountHolderID string) (string, error)
	CreateStore(ctx context.Context, storeData models.StoreData, businessLineID, balanceAccountID, splitConfigurationID string) (string, error)
	CreatePaymentMethod(ctx context.Context, businessLineID, storeID, network string) (string, error)
	CreateOnboardingLink(ctx context.Context, legalEntityID, themeID, redirectURL string) (string, error)
}

type ServiceDependencies struct {
	Platform Platform
	Records  store.RecordStore
	Logger   logger.Logger
}

// Service drives the entity-creation saga. Creation progress is computed
// in memory from the last persisted snapshot; nothing is written until the
// final persistence step, so a failed invocation leaves the record exactly
// as it was loaded.
type Service struct {
	platform Platform
	records  store.RecordStore
	logger   logger.Logger
	config   *Config
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		platform: deps.Platform,
		records:  deps.Records,
		logger:   deps.Logger,
		config:   config,
	}
}

// Execute runs the saga for one submission and returns a one-time hosted
// onboarding URL. Completed steps (identifier already in creation progress)
// are skipped; the remaining steps run strictly in order because each
// depends on the identifier produced by the previous one.
func (s *Service) Execute(ctx context.Context, input *Input) (*Output, error) {
	record, err := s.loadOrCreateRecord(ctx, input)
	if err != nil {
		return nil, err
	}

	profile := record.Profile
	if profile == nil || profile.LegalEntity == nil || len(profile.Stores) == 0 {
		return nil, errors.NewValidationFailedError([]string{"legalEntity: required field missing", "stores: at least one store is required"})
	}
	progress := record.Progress // in-memory working copy of the persisted snapshot

	log := s.logger.WithFields(map[string]interface{}{"merchantId": input.MerchantID})

	// Step 1: legal entity.
	if err := s.step("createLegalEntity", progress.LegalEntityID, func() (string, error) {
		return s.platform.CreateLegalEntity(ctx, profile.LegalEntity)
	}, &progress.LegalEntityID); err != nil {
		return nil, err
	}

	// Step 2: individuals need a companion business-typed entity before any
	// business-line or store operation will be accepted.
	if profile.IsIndividual() {
		created := progress.SoleProprietorshipID == ""
		if err := s.step("createSoleProprietorship", progress.SoleProprietorshipID, func() (string, error) {
			return s.platform.CreateSoleProprietorshipLegalEntity(ctx, profile.LegalEntity)
		}, &progress.SoleProprietorshipID); err != nil {
			return nil, err
		}
		if created {
			if err := s.platform.AssociateSoleProprietorship(ctx, progress.LegalEntityID, progress.SoleProprietorshipID); err != nil {
				return nil, errors.NewAdyenCallFailedError("associateSoleProprietorship", err)
			}
		}
	}

	businessEntityID := progress.LegalEntityID
	if profile.IsIndividual() {
		businessEntityID = progress.SoleProprietorshipID
	}

	// Step 3: account holder.
	if err := s.step("createAccountHolder", progress.AccountHolderID, func() (string, error) {
		return s.platform.CreateAccountHolder(ctx, progress.LegalEntityID)
	}, &progress.AccountHolderID); err != nil {
		return nil, err
	}

	// Step 4: business line.
	if err := s.step("createBusinessLine", progress.BusinessLineID, func() (string, error) {
		return s.platform.CreateBusinessLine(ctx, businessEntityID)
	}, &progress.BusinessLineID); err != nil {
		return nil, err
	}

	// Step 5: split configuration.
	if err := s.step("createSplitConfiguration", progress.SplitConfigurationID, func() (string, error) {
		return s.platform.CreateSplitConfiguration(ctx, "payersync commission split")
	}, &progress.SplitConfigurationID); err != nil {
		return nil, err
	}

	// Step 6: balance account.
	if err := s.step("createBalanceAccount", progress.BalanceAccountID, func() (string, error) {
		return s.platform.CreateBalanceAccount(ctx, progress.AccountHolderID)
	}, &progress.BalanceAccountID); err != nil {
		return nil, err
	}

	// Step 7: store. A duplicate-reference rejection is terminal; any other
	// failure also aborts this invocation.
	if progress.StoreID == "" {
		metrics.SagaStepsExecuted.WithLabelValues("createStore").Inc()
		storeID, err := s.platform.CreateStore(ctx, profile.Stores[0], progress.BusinessLineID, progress.BalanceAccountID, progress.SplitConfigurationID)
		if err != nil {
			if stderrors.Is(err, adyen.ErrStoreReferenceExists) {
				return nil, errors.NewStoreReferenceConflictError(profile.Stores[0].Reference)
			}
			return nil, errors.NewAdyenCallFailedError("createStore", err)
		}
		progress.StoreID = storeID
	} else {
		metrics.SagaStepsSkipped.WithLabelValues("createStore").Inc()
	}

	// Step 8: the two fixed card networks.
	if err := s.step("createVisaPaymentMethod", progress.VisaPaymentMethodID, func() (string, error) {
		return s.platform.CreatePaymentMethod(ctx, progress.BusinessLineID, progress.StoreID, adyen.NetworkVisa)
	}, &progress.VisaPaymentMethodID); err != nil {
		return nil, err
	}
	if err := s.step("createMastercardPaymentMethod", progress.MastercardPaymentMethodID, func() (string, error) {
		return s.platform.CreatePaymentMethod(ctx, progress.BusinessLineID, progress.StoreID, adyen.NetworkMastercard)
	}, &progress.MastercardPaymentMethodID); err != nil {
		return nil, err
	}

	// Step 9: hosted onboarding link. Links are one-time use and never
	// recorded in creation progress, so this step always runs.
	linkTarget := businessEntityID
	onboardingURL, err := s.platform.CreateOnboardingLink(ctx, linkTarget, s.config.OnboardingTheme, s.config.OnboardingRedirectURL)
	if err != nil {
		return nil, errors.NewAdyenCallFailedError("createOnboardingLink", err)
	}

	// Step 10: persistence tail. The link already exists and may be shown to
	// the merchant, so a failed write here cannot be rolled back and is
	// surfaced for operator escalation.
	if progress != record.Progress {
		fields := store.Fields{
			"creationProgress": progress,
			"accountHolderId":  progress.AccountHolderID,
		}
		if err := s.records.Update(ctx, input.MerchantID, fields); err != nil {
			return nil, errors.NewPersistenceAfterSideEffectError(input.MerchantID, err)
		}
	}
	if !record.HasGeneratedLink {
		if err := s.records.Update(ctx, input.MerchantID, store.Fields{"hasGeneratedLink": true}); err != nil {
			return nil, errors.NewPersistenceAfterSideEffectError(input.MerchantID, err)
		}
	}

	log.Info("onboarding link generated", map[string]interface{}{
		"legalEntityId":   progress.LegalEntityID,
		"accountHolderId": progress.AccountHolderID,
		"storeId":         progress.StoreID,
	})

	return &Output{MerchantID: input.MerchantID, OnboardingURL: onboardingURL}, nil
}

// step runs one skip-if-present saga step and stores the produced id.
func (s *Service) step(name, existingID string, create func() (string, error), target *string) error {
	if existingID != "" {
		metrics.SagaStepsSkipped.WithLabelValues(name).Inc()
		return nil
	}
	metrics.SagaStepsExecuted.WithLabelValues(name).Inc()
	id, err := create()
	if err != nil {
		return errors.NewAdyenCallFailedError(name, err)
	}
	*target = id
	return nil
}

// loadOrCreateRecord fetches the merchant record, creating it on first
// submission. Until the first link has been generated a resubmission
// replaces the stored profile; afterwards the profile is write-once and the
// submitted data is ignored.
func (s *Service) loadOrCreateRecord(ctx context.Context, input *Input) (*models.MerchantOnboardingRecord, error) {
	record, err := s.records.Get(ctx, input.MerchantID)
	if stderrors.Is(err, store.ErrNotFound) {
		now := time.Now().UTC()
		record = &models.MerchantOnboardingRecord{
			MerchantID: input.MerchantID,
			Status:     models.StatusSubmitted,
			Profile:    &input.Submission,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if len(input.Submission.Stores) > 0 {
			record.Status = models.StatusReadyForPlatform
		}
		if err := s.records.Put(ctx, record); err != nil {
			return nil, errors.NewRecordWriteFailedError(input.MerchantID, err)
		}
		return record, nil
	}
	if err != nil {
		return nil, errors.NewRecordReadFailedError(input.MerchantID, err)
	}

	if record.HasGeneratedLink {
		return record, nil
	}

	record.Profile = &input.Submission
	fields := store.Fields{"profile": &input.Submission}
	if record.Status == models.StatusSubmitted && len(input.Submission.Stores) > 0 {
		record.Status = models.StatusReadyForPlatform
		fields["status"] = models.StatusReadyForPlatform
	}
	if err := s.records.Update(ctx, input.MerchantID, fields); err != nil {
		return nil, errors.NewRecordWriteFailedError(input.MerchantID, err)
	}
	return record, nil
}
