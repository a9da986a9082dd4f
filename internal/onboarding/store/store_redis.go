package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"analysthub/internal/onboarding/models"
	"analysthub/pkg/platform/sentinel"
)

const wizardStateKeyPrefix = "onboarding:state:"

// RedisStore persists wizard state in Redis. Keys carry no TTL: onboarding
// can span days while the analyst waits for a certificate scan, and the
// record is erased explicitly after a successful submission.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisStore(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func stateKey(userID string) string {
	return wizardStateKeyPrefix + userID
}

func (s *RedisStore) Save(ctx context.Context, userID string, state *models.WizardState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal wizard state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("save wizard state: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, userID string) (*models.WizardState, error) {
	raw, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load wizard state: %w", err)
	}

	var state models.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt record must not strand the user; log and start fresh.
		s.logger.WarnContext(ctx, "discarding unparseable wizard state",
			"user_id", userID,
			"error", err.Error(),
		)
		return nil, sentinel.ErrNotFound
	}
	return &state, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear wizard state: %w", err)
	}
	return nil
}
