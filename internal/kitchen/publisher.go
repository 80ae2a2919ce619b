package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/order"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DispatchMessage is the body published for every dispatch batch.
type DispatchMessage struct {
	OwnerID   uuid.UUID             `json:"owner_id"`
	BatchID   uuid.UUID             `json:"batch_id"`
	Table     string                `json:"table"`
	Tickets   []order.KitchenTicket `json:"tickets"`
	CreatedAt time.Time             `json:"created_at"`
}

// Publisher sends dispatch batches to a topic exchange, routed by owner.
type Publisher struct {
	ch       Channel
	exchange string
}

func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

func routingKey(owner uuid.UUID) string {
	return "kitchen." + owner.String() + ".dispatch"
}

func (p *Publisher) EnqueueDispatch(ctx context.Context, owner uuid.UUID, b order.DispatchBatch) error {
	body, err := json.Marshal(DispatchMessage{
		OwnerID:   owner,
		BatchID:   b.ID,
		Table:     b.Table,
		Tickets:   b.Tickets,
		CreatedAt: b.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode dispatch: %w", err)
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey(owner), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    b.ID.String(),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish dispatch: %w", err)
	}
	return nil
}
