//go:build integration

package handoff

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
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
		t.Fatalf("start redis: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedisChannel_Integration(t *testing.T) {
	ctx := context.Background()
	c, err := NewRedisChannel(ctx, startRedis(t), time.Minute)
	if err != nil {
		t.Fatalf("NewRedisChannel() error = %v", err)
	}
	defer c.Close()

	if err := c.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	ex := sampleExercise("ai-42")
	if err := c.Put(ctx, "tab-1", ex); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	ttl, err := c.client.TTL(ctx, key("tab-1")).Result()
	if err != nil || ttl <= 0 {
		t.Errorf("TTL = %v, %v; want positive", ttl, err)
	}

	got, err := c.Take(ctx, "tab-1")
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if *got != *ex {
		t.Errorf("Take() = %+v, want %+v", got, ex)
	}
	if _, err := c.Take(ctx, "tab-1"); !errors.Is(err, ErrEmpty) {
		t.Errorf("second Take() error = %v, want ErrEmpty", err)
	}

	if err := c.client.Set(ctx, key("tab-2"), "{not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	if _, err := c.Take(ctx, "tab-2"); !errors.Is(err, ErrEmpty) {
		t.Errorf("corrupt Take() error = %v, want ErrEmpty", err)
	}
}
