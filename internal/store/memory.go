package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vtem-rh/payersync-be-test-sub000/internal/models"
)

// MemoryStore is an in-memory RecordStore for tests and local development.
// It applies partial updates with the same path semantics as the DynamoDB
// implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.MerchantOnboardingRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.MerchantOnboardingRecord),
	}
}

func (s *MemoryStore) Get(ctx context.Context, merchantID string) (*models.MerchantOnboardingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[merchantID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(record)
}

func (s *MemoryStore) Put(ctx context.Context, record *models.MerchantOnboardingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := copyRecord(record)
	if err != nil {
		return err
	}
	s.records[record.MerchantID] = stored
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, merchantID string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[merchantID]
	if !ok {
		return ErrNotFound
	}

	// Apply path-keyed sets through a JSON round trip so nested paths like
	// creationProgress.sweepId behave like the DynamoDB update expression.
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}

	for path, value := range fields {
		if err := setPath(doc, path, value); err != nil {
			return err
		}
	}
	doc["updatedAt"] = time.Now().UTC().Format(time.RFC3339Nano)

	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var updated models.MerchantOnboardingRecord
	if err := json.Unmarshal(merged, &updated); err != nil {
		return err
	}

	s.records[merchantID] = &updated
	return nil
}

func (s *MemoryStore) FindByAccountHolderID(ctx context.Context, accountHolderID string) (*models.MerchantOnboardingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, record := range s.records {
		if record.AccountHolderID == accountHolderID {
			return copyRecord(record)
		}
	}
	return nil, ErrNotFound
}

func copyRecord(record *models.MerchantOnboardingRecord) (*models.MerchantOnboardingRecord, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var out models.MerchantOnboardingRecord
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func setPath(doc map[string]interface{}, path string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal field %s: %w", path, err)
	}
	var plain interface{}
	if err := json.Unmarshal(raw, &plain); err != nil {
		return fmt.Errorf("unmarshal field %s: %w", path, err)
	}

	segments := strings.Split(path, ".")
	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = plain
	return nil
}
