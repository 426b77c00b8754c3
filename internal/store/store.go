// Package store provides access to the per-merchant onboarding record.
package store

import (
	"context"
	"errors"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// ErrNotFound is returned when no record exists for the given key.
var ErrNotFound = errors.New("merchant record not found")

// Fields is a partial update keyed by attribute path, e.g. "status",
// "creationProgress" or "creationProgress.sweepId". Values are marshalled
// with the record's field encoding.
type Fields map[string]interface{}

// RecordStore is the gateway to the merchant onboarding record. Updates are
// partial-field writes at the store's native granularity; there is no
// version token, so concurrent writers race on overlapping fields.
type RecordStore interface {
	Get(ctx context.Context, merchantID string) (*models.MerchantOnboardingRecord, error)
	Put(ctx context.Context, record *models.MerchantOnboardingRecord) error
	Update(ctx context.Context, merchantID string, fields Fields) error
	FindByAccountHolderID(ctx context.Context, accountHolderID string) (*models.MerchantOnboardingRecord, error)
}
