// Package session owns one order engine per account owner and routes
// change-feed events to it.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/enum"
	"github.com/micaja/api/internal/order"
	"github.com/micaja/api/internal/syncclient"
	"github.com/micaja/api/internal/ws"
	"github.com/rs/zerolog"
)

var ErrClosed = errors.New("session manager closed")

// Broadcaster pushes events to an owner's terminals.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToOwner(ownerID uuid.UUID, event ws.Event)
}

type Options struct {
	Store   order.Store
	Kitchen order.KitchenQueue
	// Cache may be nil.
	Cache syncclient.Cache
	// Hub may be nil.
	Hub Broadcaster

	WritePolicy     string
	SettlementGuard string
	Location        *time.Location
	CommentDebounce time.Duration
	PersistTimeout  time.Duration
	SyncDebounce    time.Duration

	// StartTimeout bounds the first remote load of a session. Defaults to 15s.
	StartTimeout time.Duration
	// CloseTimeout bounds the final flush of each session. Defaults to 10s.
	CloseTimeout time.Duration

	Now    func() time.Time
	Logger zerolog.Logger
}

type session struct {
	engine *order.Engine
	client *syncclient.Client
	once   sync.Once
}

type Manager struct {
	opts Options
	log  zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	closed   bool
}

func NewManager(opts Options) *Manager {
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 15 * time.Second
	}
	if opts.CloseTimeout <= 0 {
		opts.CloseTimeout = 10 * time.Second
	}
	return &Manager{
		opts:     opts,
		log:      opts.Logger.With().Str("component", "session").Logger(),
		sessions: make(map[uuid.UUID]*session),
	}
}

// Engine returns the owner's engine, building and starting it on first use.
// A failed first load is logged; the engine then serves cached state until
// the next change-feed refresh succeeds.
func (m *Manager) Engine(ctx context.Context, owner uuid.UUID) (*order.Engine, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	s, ok := m.sessions[owner]
	if !ok {
		s = m.newSession(owner)
		m.sessions[owner] = s
	}
	m.mu.Unlock()

	s.once.Do(func() {
		startCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.StartTimeout)
		defer cancel()
		if err := s.client.Start(startCtx); err != nil {
			m.log.Error().Err(err).Str("owner_id", owner.String()).Msg("session start incomplete")
			return
		}
		m.log.Info().Str("owner_id", owner.String()).Int("tables", len(s.engine.Tables())).Msg("session started")
	})
	return s.engine, nil
}

func (m *Manager) newSession(owner uuid.UUID) *session {
	engine := order.NewEngine(order.Options{
		Owner:           owner,
		Store:           m.opts.Store,
		Kitchen:         m.opts.Kitchen,
		WritePolicy:     m.opts.WritePolicy,
		SettlementGuard: m.opts.SettlementGuard,
		Location:        m.opts.Location,
		CommentDebounce: m.opts.CommentDebounce,
		PersistTimeout:  m.opts.PersistTimeout,
		Now:             m.opts.Now,
		Logger:          m.opts.Logger,
	})
	client := syncclient.New(engine, m.opts.Store, m.opts.Cache, syncclient.Options{
		Debounce: m.opts.SyncDebounce,
		Logger:   m.opts.Logger,
	})
	return &session{engine: engine, client: client}
}

// Owners lists the owners with a live session.
func (m *Manager) Owners() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, id)
	}
	return out
}

// Run consumes feed until ctx is done.
func (m *Manager) Run(ctx context.Context, feed syncclient.Feed) error {
	return feed.Listen(ctx, m.Route)
}

// Route hands one change event to the owner's sync client and tells the
// owner's terminals what changed. Owners without a session only get the
// broadcast.
func (m *Manager) Route(ev syncclient.ChangeEvent) {
	m.mu.Lock()
	s := m.sessions[ev.OwnerID]
	m.mu.Unlock()

	if s != nil {
		s.client.Notify(ev)
	}

	if m.opts.Hub == nil {
		return
	}
	eventType, ok := eventFor(ev.Collection)
	if !ok {
		m.log.Debug().Str("collection", ev.Collection).Msg("ignoring change on unknown collection")
		return
	}
	event, err := ws.NewEvent(eventType, map[string]string{"collection": ev.Collection, "op": ev.Op})
	if err != nil {
		m.log.Error().Err(err).Msg("build websocket event")
		return
	}
	m.opts.Hub.BroadcastToOwner(ev.OwnerID, event)
}

func eventFor(collection string) (string, bool) {
	switch collection {
	case enum.CollectionTables:
		return ws.EventTablesChanged, true
	case enum.CollectionLines:
		return ws.EventLinesChanged, true
	case enum.CollectionKitchenQueue:
		return ws.EventKitchenChanged, true
	case enum.CollectionSettled:
		return ws.EventOrdersChanged, true
	}
	return "", false
}

// Close flushes and closes every session. Later Engine calls fail with
// ErrClosed.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*session)
	m.mu.Unlock()

	for owner, s := range sessions {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.CloseTimeout)
		if err := s.engine.Flush(ctx); err != nil {
			m.log.Error().Err(err).Str("owner_id", owner.String()).Msg("flush on close")
		}
		cancel()
		s.client.Close()
		s.engine.Close()
	}
}
