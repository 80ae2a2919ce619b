package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/micaja/api/internal/syncclient"
	"github.com/rs/zerolog"
)

// ChangeChannel is the NOTIFY channel the notify_change trigger writes to.
const ChangeChannel = "micaja_changes"

// Listener turns PostgreSQL notifications into change events.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	backoff time.Duration
	log     zerolog.Logger
}

func NewListener(pool *pgxpool.Pool, log zerolog.Logger) *Listener {
	return &Listener{
		pool:    pool,
		channel: ChangeChannel,
		backoff: 2 * time.Second,
		log:     log.With().Str("component", "listener").Logger(),
	}
}

// Listen delivers events to fn until ctx is done, reconnecting after
// connection errors.
func (l *Listener) Listen(ctx context.Context, fn func(syncclient.ChangeEvent)) error {
	for {
		err := l.listenOnce(ctx, fn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		l.log.Warn().Err(err).Dur("retry_in", l.backoff).Msg("change feed interrupted")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listenOnce(ctx context.Context, fn func(syncclient.ChangeEvent)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+l.channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.log.Info().Str("channel", l.channel).Msg("listening for changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		ev, err := ParseNotification(n.Payload)
		if err != nil {
			l.log.Warn().Err(err).Str("payload", n.Payload).Msg("ignoring malformed notification")
			continue
		}
		fn(ev)
	}
}

// ParseNotification decodes a notify_change payload.
func ParseNotification(payload string) (syncclient.ChangeEvent, error) {
	var ev syncclient.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return syncclient.ChangeEvent{}, fmt.Errorf("decode notification: %w", err)
	}
	if ev.Collection == "" || ev.OwnerID == uuid.Nil {
		return syncclient.ChangeEvent{}, errors.New("notification missing collection or owner_id")
	}
	return ev, nil
}
