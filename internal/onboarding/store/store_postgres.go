package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"analysthub/internal/onboarding/models"
	"analysthub/pkg/platform/sentinel"
)

// PostgresStore persists wizard state as one JSONB row per user. The upsert
// overwrites wholesale, matching the Store contract.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

const createWizardStateTable = `
CREATE TABLE IF NOT EXISTS onboarding_wizard_state (
    user_id    TEXT PRIMARY KEY,
    state      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// EnsureSchema creates the backing table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createWizardStateTable); err != nil {
		return fmt.Errorf("ensure wizard state schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, userID string, state *models.WizardState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal wizard state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO onboarding_wizard_state (user_id, state, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET state = $2, updated_at = $3`,
		userID, raw, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save wizard state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (*models.WizardState, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM onboarding_wizard_state WHERE user_id = $1`, userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard state: %w", err)
	}

	var state models.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.WarnContext(ctx, "discarding unparseable wizard state",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, sentinel.ErrNotFound
	}
	return &state, nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM onboarding_wizard_state WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("clear wizard state: %w", err)
	}
	return nil
}
