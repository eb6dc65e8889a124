//go:build integration

package redis_test

import (
	"context"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/boddenberg/donations-ledger-go/internal/infra/redis"
)

type SettingsStoreSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *goredis.Client
	store     *redis.SettingsStore
}

func TestSettingsStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(SettingsStoreSuite))
}

func (s *SettingsStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err)
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	client, err := redis.NewClient(ctx, url)
	s.Require().NoError(err)
	s.client = client
	s.store = redis.NewSettingsStore(client)
}

func (s *SettingsStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	s.NoError(testcontainers.TerminateContainer(s.container))
}

func (s *SettingsStoreSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(context.Background()).Err())
}

func (s *SettingsStoreSuite) TestGetMissing() {
	_, found, err := s.store.GetSetting(context.Background(), "goal")
	s.Require().NoError(err)
	s.False(found)
}

func (s *SettingsStoreSuite) TestSaveCountsOnlyChangedKeys() {
	ctx := context.Background()

	n, err := s.store.SaveSettings(ctx, map[string]string{"goal": "5000", "min_amount": "5"})
	s.Require().NoError(err)
	s.Equal(2, n)

	n, err = s.store.SaveSettings(ctx, map[string]string{"goal": "5000", "min_amount": "10"})
	s.Require().NoError(err)
	s.Equal(1, n)

	all, err := s.store.AllSettings(ctx)
	s.Require().NoError(err)
	s.Equal(map[string]string{"goal": "5000", "min_amount": "10"}, all)

	v, found, err := s.store.GetSetting(ctx, "min_amount")
	s.Require().NoError(err)
	s.True(found)
	s.Equal("10", v)
}
