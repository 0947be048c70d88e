//go:build integration

package credential

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client
}

func TestIntegration_SharedTokenAcrossProviders(t *testing.T) {
	client := setupRedisContainer(t)
	ts := newTokenServer(t)
	store := NewRedisStore(client)
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)

	newP := func() *ClientCredentials {
		p, err := NewClientCredentials(ClientCredentialsConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			TokenURL:     ts.URL,
			HTTPClient:   ts.Client(),
			Store:        store,
		}, logger)
		if err != nil {
			t.Fatalf("NewClientCredentials() error = %v", err)
		}
		return p
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		state, err := newP().Refresh(ctx)
		if err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if state.Token != "token-1" {
			t.Errorf("provider %d token = %q, want token-1", i, state.Token)
		}
	}

	if got := ts.hits.Load(); got != 1 {
		t.Errorf("token requests = %d, want 1", got)
	}
}
