package store

import (
	"sync"

	"github.com/wagrab/wagrab/internal/models"
)

// Compile-time check that InMemoryStore implements Store.
var _ Store = (*InMemoryStore)(nil)

// InMemoryStore keeps audit records in process memory. It is the default
// backend when no DATABASE_URL is configured and the backend all tests use.
type InMemoryStore struct {
	mu         sync.Mutex
	inbound    []models.InboundRecord
	deliveries []models.DeliveryRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddInbound(rec models.InboundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbound = append(s.inbound, rec)
	return nil
}

func (s *InMemoryStore) AddDelivery(rec models.DeliveryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliveries = append(s.deliveries, rec)
	return nil
}

// ListInbound returns the most recent inbound records, newest first.
// limit <= 0 returns everything.
func (s *InMemoryStore) ListInbound(limit int) ([]models.InboundRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InboundRecord, 0, len(s.inbound))
	for i := len(s.inbound) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.inbound[i])
	}
	return out, nil
}

// ListDeliveries returns the most recent delivery records, newest first.
// limit <= 0 returns everything.
func (s *InMemoryStore) ListDeliveries(limit int) ([]models.DeliveryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DeliveryRecord, 0, len(s.deliveries))
	for i := len(s.deliveries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s.deliveries[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
