//go:build integration

package store_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"analysthub/internal/onboarding/models"
	"analysthub/internal/onboarding/store"
	"analysthub/pkg/platform/sentinel"
	"analysthub/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	client *goredis.Client
	store  *store.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.client = containers.StartRedis(s.T())
	s.store = store.NewRedisStore(s.client, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *RedisStoreSuite) TestSaveAndLoad() {
	ctx := context.Background()

	state := models.NewWizardState()
	state.CurrentStep = models.StepPricing
	state.FormData.DisplayName = "Rajesh Mehta"
	state.FormData.SEBINumber = "INA000012345"

	s.Require().NoError(s.store.Save(ctx, "user-1", state))

	loaded, err := s.store.Load(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(state.CurrentStep, loaded.CurrentStep)
	s.Equal(state.FormData, loaded.FormData)
}

func (s *RedisStoreSuite) TestLoadAbsent() {
	_, err := s.store.Load(context.Background(), "nobody")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestKeysCarryNoTTL() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, "user-1", models.NewWizardState()))

	ttl, err := s.client.TTL(ctx, "onboarding:state:user-1").Result()
	s.Require().NoError(err)
	s.Equal(time.Duration(-1), ttl) // key exists with no expiry
}

func (s *RedisStoreSuite) TestCorruptRecordReadsAsAbsent() {
	ctx := context.Background()
	s.Require().NoError(s.client.Set(ctx, "onboarding:state:user-1", "{not json", 0).Err())

	_, err := s.store.Load(ctx, "user-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestClear() {
	ctx := context.Background()

	s.Require().NoError(s.store.Save(ctx, "user-1", models.NewWizardState()))
	s.Require().NoError(s.store.Clear(ctx, "user-1"))

	_, err := s.store.Load(ctx, "user-1")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	s.Require().NoError(s.store.Clear(ctx, "user-1"))
}
