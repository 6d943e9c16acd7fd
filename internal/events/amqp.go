package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ActivityQueueName is the durable queue events are published to.
const ActivityQueueName = "pymaster.activity"

const (
	maxReconnectAttempts = 10
	maxReconnectBackoff  = 30 * time.Second
)

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url        string
	conn       *amqp.Connection
	channel    *amqp.Channel
	mu         sync.RWMutex
	closed     bool
	reconnects int
}

// NewConnection dials RabbitMQ and declares the activity queue.
func NewConnection(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		ActivityQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(24 * time.Hour / time.Millisecond),
		},
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare activity queue: %w", err)
	}

	c.conn = conn
	c.channel = ch
	go c.handleReconnect(conn)

	slog.Info("connected to RabbitMQ", "url", sanitizeURL(c.url))
	return nil
}

// handleReconnect waits for the connection to drop and redials with
// exponential backoff.
func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return
	}

	for i := 0; i < maxReconnectAttempts; i++ {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.reconnects++
		attempts := c.reconnects
		c.mu.Unlock()

		slog.Warn("RabbitMQ connection closed, attempting to reconnect",
			"error", err,
			"reconnects", attempts,
		)

		backoff := time.Duration(1<<i) * time.Second
		if backoff > maxReconnectBackoff {
			backoff = maxReconnectBackoff
		}
		time.Sleep(backoff)

		if cerr := c.connect(); cerr != nil {
			slog.Error("reconnection failed", "error", cerr, "attempt", i+1)
			continue
		}
		slog.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}
	slog.Error("failed to reconnect to RabbitMQ", "attempts", maxReconnectAttempts)
}

// Close closes the connection
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a JSON message to a queue
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()
	if ch == nil {
		return fmt.Errorf("publish to %s: channel not open", queue)
	}

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Get pulls one message from queue, acknowledging it on receipt. ok is
// false when the queue is empty.
func (c *Connection) Get(queue string) (body []byte, ok bool, err error) {
	c.mu.RLock()
	ch := c.channel
	c.mu.RUnlock()
	if ch == nil {
		return nil, false, fmt.Errorf("get from %s: channel not open", queue)
	}

	msg, ok, err := ch.Get(queue, true)
	if err != nil || !ok {
		return nil, ok, err
	}
	return msg.Body, true, nil
}

// AMQPPublisher publishes events to the activity queue.
type AMQPPublisher struct {
	conn *Connection
}

// NewAMQPPublisher creates a publisher over an open connection.
func NewAMQPPublisher(conn *Connection) *AMQPPublisher {
	return &AMQPPublisher{conn: conn}
}

// Publish sends ev to the activity queue.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	if err := p.conn.PublishJSON(ctx, ActivityQueueName, ev); err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	slog.Debug("published activity event", "id", ev.ID, "type", ev.Type, "outcome", ev.Outcome)
	return nil
}

// sanitizeURL drops credentials from an AMQP URL for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<invalid url>"
	}
	return u.Scheme + "://" + u.Host + u.Path
}
