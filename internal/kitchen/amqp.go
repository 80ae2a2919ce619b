// Package kitchen moves dispatch batches to the kitchen and brings "done"
// notifications back.
package kitchen

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Client owns one AMQP connection and channel.
type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Dial(url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &Client{conn: conn, ch: ch}, nil
}

func (c *Client) Channel() *amqp.Channel { return c.ch }

// DeclareTopology declares the dispatch exchange, the kitchen queue bound to
// it and the queue the kitchen reports finished batches on. Declaring is
// idempotent.
func (c *Client) DeclareTopology(exchange, doneQueue string) error {
	if err := c.ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", exchange, err)
	}
	if _, err := c.ch.QueueDeclare("kitchen.q", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare kitchen.q: %w", err)
	}
	if err := c.ch.QueueBind("kitchen.q", "kitchen.#", exchange, false, nil); err != nil {
		return fmt.Errorf("bind kitchen.q: %w", err)
	}
	if _, err := c.ch.QueueDeclare(doneQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", doneQueue, err)
	}
	return nil
}

// Consume starts a manual-ack consumer on queue.
func (c *Client) Consume(queue, consumer string, prefetch int) (<-chan amqp.Delivery, error) {
	if err := c.ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("qos: %w", err)
	}
	return c.ch.Consume(queue, consumer, false, false, false, false, nil)
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
