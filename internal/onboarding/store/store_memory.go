package store

import (
	"context"
	"encoding/json"
	"sync"

	"analysthub/internal/onboarding/models"
	"analysthub/pkg/platform/sentinel"
)

// InMemoryStore keeps wizard state in process memory. It is the default for
// tests and single-instance development; production deployments use the
// Redis or Postgres implementations.
//
// Records are held serialized so Save/Load round-trips behave exactly like
// the durable backends: callers never share pointers with the store.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string][]byte)}
}

func (s *InMemoryStore) Save(_ context.Context, userID string, state *models.WizardState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[userID] = raw
	return nil
}

func (s *InMemoryStore) Load(_ context.Context, userID string) (*models.WizardState, error) {
	s.mu.RLock()
	raw, ok := s.records[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var state models.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, sentinel.ErrNotFound
	}
	return &state, nil
}

func (s *InMemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}
