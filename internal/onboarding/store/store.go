// Package store persists in-progress wizard state so onboarding survives
// process restarts. Implementations overwrite the whole record on every
// save; there is no partial write, so a crash can lose at most the latest
// edit, never corrupt the stored copy.
package store

import (
	"context"

	"analysthub/internal/onboarding/models"
)

// Store is the durable key-value contract for wizard state, keyed per user.
//
// Load returns sentinel.ErrNotFound both when nothing was saved and when
// the stored value fails to parse: a corrupt record must never block the
// user from starting fresh. Clear is idempotent.
type Store interface {
	Save(ctx context.Context, userID string, state *models.WizardState) error
	Load(ctx context.Context, userID string) (*models.WizardState, error)
	Clear(ctx context.Context, userID string) error
}
