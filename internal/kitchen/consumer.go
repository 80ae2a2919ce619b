package kitchen

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/database"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// DoneMessage is what the kitchen publishes when a batch is ready.
type DoneMessage struct {
	OwnerID uuid.UUID `json:"owner_id"`
	BatchID uuid.UUID `json:"batch_id"`
}

// BatchMarker records that a batch is done. Satisfied by *database.Store.
type BatchMarker interface {
	MarkKitchenBatchDone(ctx context.Context, owner, batchID uuid.UUID) error
}

// Consumer applies done notifications to the kitchen queue.
type Consumer struct {
	marker BatchMarker
	log    zerolog.Logger
}

func NewConsumer(marker BatchMarker, log zerolog.Logger) *Consumer {
	return &Consumer{marker: marker, log: log.With().Str("component", "kitchen_consumer").Logger()}
}

// Run handles deliveries until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("kitchen done deliveries closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks processed and unknown batches, drops malformed messages and
// requeues on store errors.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var msg DoneMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.OwnerID == uuid.Nil || msg.BatchID == uuid.Nil {
		c.log.Warn().Err(err).Str("message_id", d.MessageId).Msg("rejecting malformed done message")
		c.nack(d, false)
		return
	}

	err := c.marker.MarkKitchenBatchDone(ctx, msg.OwnerID, msg.BatchID)
	switch {
	case errors.Is(err, database.ErrBatchNotFound):
		c.log.Info().Str("batch_id", msg.BatchID.String()).Msg("done message for unknown or finished batch")
		c.ack(d)
	case err != nil:
		c.log.Error().Err(err).Str("batch_id", msg.BatchID.String()).Msg("mark batch done failed; requeueing")
		c.nack(d, true)
	default:
		c.log.Info().Str("owner_id", msg.OwnerID.String()).Str("batch_id", msg.BatchID.String()).Msg("kitchen batch done")
		c.ack(d)
	}
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.log.Warn().Err(err).Uint64("delivery_tag", d.DeliveryTag).Msg("ack failed")
	}
}

func (c *Consumer) nack(d amqp.Delivery, requeue bool) {
	if err := d.Nack(false, requeue); err != nil {
		c.log.Warn().Err(err).Uint64("delivery_tag", d.DeliveryTag).Bool("requeue", requeue).Msg("nack failed")
	}
}
