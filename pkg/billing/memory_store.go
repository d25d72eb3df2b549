package billing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore is an in-memory RecordStore for tests and local development.
type memoryStore struct {
	mu       sync.RWMutex
	records  map[uuid.UUID]*Record
	profiles map[uuid.UUID]Status
}

// NewMemoryStore returns an empty in-memory RecordStore.
func NewMemoryStore() RecordStore {
	return &memoryStore{
		records:  make(map[uuid.UUID]*Record),
		profiles: make(map[uuid.UUID]Status),
	}
}

func (s *memoryStore) Get(_ context.Context, accountID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[accountID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memoryStore) FindByCustomerID(_ context.Context, customerID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if customerID == "" {
		return nil, ErrRecordNotFound
	}
	for _, rec := range s.records {
		if rec.CustomerID == customerID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *memoryStore) Upsert(_ context.Context, accountID uuid.UUID, patch RecordPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[accountID]
	if !ok {
		rec = &Record{AccountID: accountID, Status: StatusNoSubscription}
		s.records[accountID] = rec
	}

	if patch.CustomerID != nil {
		rec.CustomerID = *patch.CustomerID
	}
	if patch.SubscriptionID != nil {
		rec.SubscriptionID = *patch.SubscriptionID
	}
	if patch.PriceID != nil {
		rec.PriceID = *patch.PriceID
	}
	if patch.State != nil {
		rec.Status = patch.State.Status
		rec.TrialEnd = patch.State.TrialEnd
		rec.CurrentPeriodEnd = patch.State.CurrentPeriodEnd
		rec.Provisional = false
	}
	if patch.Provisional != nil {
		rec.Provisional = *patch.Provisional
	}
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryStore) SetProfileStatus(_ context.Context, accountID uuid.UUID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[accountID] = status
	return nil
}
