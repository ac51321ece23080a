//go:build integration

package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_BlockExpires(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, "it", 5*time.Second, logger)
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("Retry-After", "1")
	if err := tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsBlocked(time.Now()) {
		t.Fatal("expected an active block")
	}

	// Real Redis expires the keys with the block.
	time.Sleep(2500 * time.Millisecond)

	state, err = tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() after expiry error = %v", err)
	}
	if !state.BlockedUntil.IsZero() {
		t.Errorf("BlockedUntil = %v, want zero after expiry", state.BlockedUntil)
	}
}

func TestTracker_Integration_SharedAcrossInstances(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	first := NewTracker(redisClient, "shared", 10*time.Millisecond, logger)
	second := NewTracker(redisClient, "shared", 10*time.Millisecond, logger)
	other := NewTracker(redisClient, "other", 10*time.Millisecond, logger)
	ctx := context.Background()

	headers := http.Header{}
	headers.Set("Retry-After", "30")
	if err := first.UpdateFromResponse(ctx, http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	if err := second.Wait(ctx); !errors.Is(err, ErrBlocked) {
		t.Errorf("second.Wait() error = %v, want ErrBlocked", err)
	}
	if err := other.Wait(ctx); err != nil {
		t.Errorf("other scope should not be blocked: %v", err)
	}
}
