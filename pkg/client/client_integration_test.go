//go:build integration

package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sternrassler/ninox-connector/internal/testutil"
	"github.com/Sternrassler/ninox-connector/pkg/ninox"
	"github.com/Sternrassler/ninox-connector/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer creates a Redis container for integration testing.
func setupRedisContainer(t *testing.T) (*redis.Client, func()) {
	t.Helper()

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

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func newIntegrationClient(t *testing.T, baseURL, token string, rdb *redis.Client) *Client {
	t.Helper()

	cfg := DefaultConfig(token)
	cfg.BaseURL = baseURL
	cfg.Redis = rdb
	cfg.MaxRateLimitWait = 100 * time.Millisecond
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func TestIntegration_SchemaCacheSharedAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockNinox()
	defer mock.Close()

	db := ninox.DatabaseRef{Team: "t1", Database: "db1"}
	mock.SetResponse("/"+db.TablesPath(), testutil.NewJSONResponse(`[{"id":"A","name":"Customers"}]`))

	ctx := context.Background()
	first := newIntegrationClient(t, mock.URL(), "token", redisClient)
	second := newIntegrationClient(t, mock.URL(), "token", redisClient)
	other := newIntegrationClient(t, mock.URL(), "other-token", redisClient)

	for _, c := range []*Client{first, second} {
		if _, err := c.Tables(ctx, db); err != nil {
			t.Fatalf("Tables() failed: %v", err)
		}
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1 (same token shares cache)", got)
	}

	if _, err := other.Tables(ctx, db); err != nil {
		t.Fatalf("Tables() failed: %v", err)
	}
	if got := mock.GetRequestCount(); got != 2 {
		t.Errorf("request count = %d, want 2 (tokens never share cache)", got)
	}
}

func TestIntegration_RateLimitSharedAcrossClients(t *testing.T) {
	redisClient, cleanup := setupRedisContainer(t)
	defer cleanup()

	mock := testutil.NewMockNinox()
	defer mock.Close()

	table := ninox.TableRef{Team: "t1", Database: "db1", Table: "A"}
	mock.SetResponse("/"+table.RecordsPath(), testutil.NewRateLimitResponse("60"))

	ctx := context.Background()
	first := newIntegrationClient(t, mock.URL(), "token", redisClient)
	second := newIntegrationClient(t, mock.URL(), "token", redisClient)

	if _, err := first.FetchPage(ctx, table, 0, 10, ninox.ListQuery{}); err == nil {
		t.Fatal("Expected 429 error")
	}

	_, err := second.FetchPage(ctx, table, 0, 10, ninox.ListQuery{})
	if !errors.Is(err, ratelimit.ErrBlocked) {
		t.Fatalf("error = %v, want ErrBlocked", err)
	}
	if got := mock.GetRequestCount(); got != 1 {
		t.Errorf("request count = %d, want 1", got)
	}
}
