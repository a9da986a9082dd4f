package store

import (
	"context"
	"time"

	"analysthub/internal/onboarding/models"
	"analysthub/internal/platform/metrics"
)

// InstrumentedStore decorates any Store with persistence latency metrics.
// Save is on the hot path of every wizard mutation, so its latency is the
// one worth watching.
type InstrumentedStore struct {
	inner   Store
	metrics *metrics.Metrics
}

func NewInstrumented(inner Store, m *metrics.Metrics) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, metrics: m}
}

func (s *InstrumentedStore) Save(ctx context.Context, userID string, state *models.WizardState) error {
	start := time.Now()
	err := s.inner.Save(ctx, userID, state)
	s.metrics.ObserveStateSave(start)
	return err
}

func (s *InstrumentedStore) Load(ctx context.Context, userID string) (*models.WizardState, error) {
	return s.inner.Load(ctx, userID)
}

func (s *InstrumentedStore) Clear(ctx context.Context, userID string) error {
	return s.inner.Clear(ctx, userID)
}
