// Package syncclient keeps an order.Engine in step with the remote store:
// it pre-populates from a local cache, refreshes on change-feed events and
// mirrors the result back into the cache.
package syncclient

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/debounce"
	"github.com/micaja/api/internal/enum"
	"github.com/micaja/api/internal/order"
	"github.com/rs/zerolog"
)

// Source reads the two collections the engine mirrors.
// Satisfied by *database.Store.
type Source interface {
	ListTables(ctx context.Context, owner uuid.UUID) ([]order.Table, error)
	ListLines(ctx context.Context, owner uuid.UUID) ([]order.LineItem, error)
}

// ChangeEvent is one change-feed notification.
type ChangeEvent struct {
	Collection string    `json:"collection"`
	Op         string    `json:"op"`
	OwnerID    uuid.UUID `json:"owner_id"`
}

// Feed delivers change events until ctx is done.
// Satisfied by *database.Listener.
type Feed interface {
	Listen(ctx context.Context, fn func(ChangeEvent)) error
}

type Options struct {
	// Debounce coalesces change events into one refresh. Defaults to 1s.
	Debounce time.Duration
	// SaveDelay coalesces local changes into one cache write. Defaults to 250ms.
	SaveDelay time.Duration
	// Timeout bounds a debounced refresh. Defaults to 30s.
	Timeout time.Duration
	Logger  zerolog.Logger
}

type Client struct {
	engine  *order.Engine
	source  Source
	cache   Cache
	timeout time.Duration
	log     zerolog.Logger

	refresher *debounce.Debouncer
	saver     *debounce.Debouncer

	mu        sync.Mutex
	refreshMu sync.Mutex
	started   bool
	refreshes atomic.Int64
}

// New wires a client to engine. cache may be nil.
func New(engine *order.Engine, source Source, cache Cache, opts Options) *Client {
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.SaveDelay <= 0 {
		opts.SaveDelay = 250 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	c := &Client{
		engine:  engine,
		source:  source,
		cache:   cache,
		timeout: opts.Timeout,
		log:     opts.Logger.With().Str("component", "syncclient").Str("owner_id", engine.Owner().String()).Logger(),
	}
	c.refresher = debounce.New(opts.Debounce, c.debouncedRefresh)
	c.saver = debounce.New(opts.SaveDelay, c.saveCache)
	return c
}

// Start shows cached state first, then loads the remote state and makes
// sure the registry has a table. A failed remote load is returned but the
// cached state stays in place.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	if c.cache != nil {
		snap, err := c.cache.Load(c.engine.Owner())
		if err != nil {
			c.log.Warn().Err(err).Msg("ignoring unreadable local cache")
		} else if snap != nil {
			c.engine.Replace(snap.Tables, snap.Lines)
			c.log.Debug().Int("tables", len(snap.Tables)).Int("lines", len(snap.Lines)).Msg("state restored from local cache")
		}
	}

	refreshErr := c.Refresh(ctx)
	if err := c.engine.EnsureTable(ctx); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}
	c.engine.OnChange(c.saver.Trigger)
	return refreshErr
}

// Notify schedules a refresh for events on the collections the engine
// mirrors. It reports whether the event was relevant.
func (c *Client) Notify(ev ChangeEvent) bool {
	switch ev.Collection {
	case enum.CollectionTables, enum.CollectionLines:
		c.refresher.Trigger()
		return true
	}
	return false
}

// Refresh waits for pending local writes, re-reads both collections and
// replaces the engine state with them.
func (c *Client) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if err := c.engine.Flush(ctx); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}
	owner := c.engine.Owner()
	tables, err := c.source.ListTables(ctx, owner)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	lines, err := c.source.ListLines(ctx, owner)
	if err != nil {
		return fmt.Errorf("list lines: %w", err)
	}

	c.engine.Replace(tables, lines)
	c.refreshes.Add(1)
	c.saveCache()
	c.log.Debug().Int("tables", len(tables)).Int("lines", len(lines)).Msg("refreshed from remote")
	return nil
}

// Refreshes counts completed refreshes.
func (c *Client) Refreshes() int64 {
	return c.refreshes.Load()
}

func (c *Client) debouncedRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.Refresh(ctx); err != nil {
		c.log.Error().Err(err).Msg("refresh failed; keeping current state")
	}
}

func (c *Client) saveCache() {
	if c.cache == nil {
		return
	}
	tables, lines := c.engine.Export()
	snap := Snapshot{Tables: tables, Lines: lines, SavedAt: time.Now()}
	if err := c.cache.Save(c.engine.Owner(), snap); err != nil {
		c.log.Warn().Err(err).Msg("saving local cache failed")
	}
}

// Close cancels pending refreshes and writes the cache one last time.
func (c *Client) Close() {
	c.refresher.Stop()
	c.saver.Stop()
	c.saveCache()
}
