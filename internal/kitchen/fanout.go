package kitchen

import (
	"context"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/order"
	"github.com/rs/zerolog"
)

// Fanout writes a batch to the primary queue and then to every mirror.
// Only the primary decides success; mirror failures are logged.
type Fanout struct {
	primary order.KitchenQueue
	mirrors []order.KitchenQueue
	log     zerolog.Logger
}

func NewFanout(primary order.KitchenQueue, log zerolog.Logger, mirrors ...order.KitchenQueue) *Fanout {
	return &Fanout{
		primary: primary,
		mirrors: mirrors,
		log:     log.With().Str("component", "kitchen").Logger(),
	}
}

func (f *Fanout) EnqueueDispatch(ctx context.Context, owner uuid.UUID, b order.DispatchBatch) error {
	if err := f.primary.EnqueueDispatch(ctx, owner, b); err != nil {
		return err
	}
	for _, m := range f.mirrors {
		if err := m.EnqueueDispatch(ctx, owner, b); err != nil {
			f.log.Warn().Err(err).
				Str("owner_id", owner.String()).
				Str("batch_id", b.ID.String()).
				Msg("kitchen mirror failed; batch is in the primary queue")
		}
	}
	return nil
}
