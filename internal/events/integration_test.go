//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
)

func setupRabbitMQ(t *testing.T) string {
	ctx := context.Background()

	container, err := rabbitmq.Run(ctx, "rabbitmq:3.12-management")
	if err != nil {
		t.Fatalf("failed to start RabbitMQ container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatalf("failed to get AMQP URL: %v", err)
	}
	return amqpURL
}

func TestIntegration_PublishActivityEvent(t *testing.T) {
	amqpURL := setupRabbitMQ(t)

	conn, err := events.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	defer conn.Close()

	if !conn.IsConnected() {
		t.Fatal("expected connection to be active")
	}

	rec := events.NewRecorder(events.NewAMQPPublisher(conn))
	rec.Record(context.Background(), events.ExerciseGenerated, "tab-42", events.OutcomeOK)

	// read it back with a second connection
	consumer, err := events.NewConnection(amqpURL)
	if err != nil {
		t.Fatalf("NewConnection() error = %v", err)
	}
	defer consumer.Close()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		msg, ok, err := consumer.Get(events.ActivityQueueName)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if !ok {
			time.Sleep(100 * time.Millisecond)
			continue
		}
		var ev events.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		if ev.Type != events.ExerciseGenerated || ev.TabID != "tab-42" {
			t.Errorf("event = %+v", ev)
		}
		return
	}
	t.Fatal("no event received")
}

func TestIntegration_Connection_InvalidURL(t *testing.T) {
	if _, err := events.NewConnection("amqp://invalid:5672"); err == nil {
		t.Error("expected error for invalid URL")
	}
}
