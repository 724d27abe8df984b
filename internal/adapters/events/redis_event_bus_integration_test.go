//go:build integration

package events

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/clients/redis"
	"github.com/pagewise/bookstore/backend/pkg/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newTestRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	port, err := strconv.Atoi(getEnv("TEST_REDIS_PORT", "6379"))
	require.NoError(t, err)

	cfg := &config.RedisConfig{
		Host:     getEnv("TEST_REDIS_HOST", "localhost"),
		Port:     port,
		Password: getEnv("TEST_REDIS_PASSWORD", ""),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg)
	require.NoError(t, err, "Failed to create redis client")
	return client
}

func waitForReportEvent(t *testing.T, ch <-chan *entities.ReportEvent) *entities.ReportEvent {
	t.Helper()
	select {
	case ev := <-ch:
		require.NotNil(t, ev)
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for report event")
		return nil
	}
}

func TestRedisEventBusFanoutIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	bus := NewRedisEventBus(redisClient)
	defer bus.Close()

	report := &entities.InsightReport{ID: "r-int-1", OwnerID: "owner-int", Status: entities.ReportStatusGenerating}
	channel := providers.GetReportChannel(report.ID)

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel1()
	defer cancel2()

	sub1, err := bus.Subscribe(ctx1, channel)
	require.NoError(t, err)
	sub2, err := bus.Subscribe(ctx2, channel)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	event := entities.NewReportEvent(report, entities.ReportEventProgress, "aggregating sales")
	require.NoError(t, bus.Publish(context.Background(), channel, event))

	got1 := waitForReportEvent(t, sub1)
	got2 := waitForReportEvent(t, sub2)
	assert.Equal(t, event.ID, got1.ID)
	assert.Equal(t, event.ID, got2.ID)
	assert.Equal(t, "owner-int", got1.OwnerID)
}

func TestRedisEventBusCancelledSubscriberIsRemovedIntegration(t *testing.T) {
	if os.Getenv("TEST_REDIS_HOST") == "" {
		t.Skip("Skipping integration test: TEST_REDIS_HOST not set")
	}

	redisClient := newTestRedisClient(t)
	defer redisClient.Close()

	bus := NewRedisEventBus(redisClient)
	defer bus.Close()

	channel := providers.GetReportChannel("r-int-2")
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := bus.Subscribe(ctx, channel)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-sub:
		assert.False(t, ok, "subscription channel should be closed after cancel")
	case <-time.After(3 * time.Second):
		t.Fatal("subscription was not closed")
	}
}
