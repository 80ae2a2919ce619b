package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/enum"
	"github.com/micaja/api/internal/order"
	"github.com/micaja/api/internal/order/ordertest"
	"github.com/micaja/api/internal/syncclient"
	"github.com/micaja/api/internal/ws"
	"github.com/rs/zerolog"
)

type recordedEvent struct {
	owner uuid.UUID
	event ws.Event
}

type mockHub struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockHub) BroadcastToOwner(owner uuid.UUID, ev ws.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{owner: owner, event: ev})
}

func (m *mockHub) all() []recordedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedEvent(nil), m.events...)
}

// mockFeed replays a fixed list of events and then waits for ctx.
type mockFeed struct {
	events []syncclient.ChangeEvent
}

func (f *mockFeed) Listen(ctx context.Context, fn func(syncclient.ChangeEvent)) error {
	for _, ev := range f.events {
		fn(ev)
	}
	<-ctx.Done()
	return ctx.Err()
}

func newTestManager(t *testing.T, store *ordertest.MemStore, hub Broadcaster) *Manager {
	t.Helper()
	m := NewManager(Options{
		Store:        store,
		Kitchen:      store,
		Hub:          hub,
		SyncDebounce: 10 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(m.Close)
	return m
}

func TestEngine_BuildsOncePerOwner(t *testing.T) {
	store := ordertest.NewMemStore()
	owner := uuid.New()
	store.Seed(owner, []order.Table{{Name: "Terraza", OrderIndex: 0}}, nil)
	m := newTestManager(t, store, nil)

	e1, err := m.Engine(context.Background(), owner)
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	e2, err := m.Engine(context.Background(), owner)
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if e1 != e2 {
		t.Fatal("expected the same engine for the same owner")
	}
	if got := store.Calls("ListTables"); got != 1 {
		t.Errorf("expected one remote load, got %d", got)
	}
	if tables := e1.Tables(); len(tables) != 1 || tables[0].Name != "Terraza" {
		t.Errorf("unexpected tables: %+v", tables)
	}

	other, err := m.Engine(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if other == e1 {
		t.Fatal("expected a separate engine per owner")
	}
	if len(m.Owners()) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(m.Owners()))
	}
}

func TestEngine_NewOwnerGetsDefaultTable(t *testing.T) {
	store := ordertest.NewMemStore()
	m := newTestManager(t, store, nil)

	e, err := m.Engine(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	tables := e.Tables()
	if len(tables) != 1 || tables[0].Name != "Mesa 1" {
		t.Errorf("expected default table, got %+v", tables)
	}
}

func TestEngine_StartFailureStillServes(t *testing.T) {
	store := ordertest.NewMemStore()
	store.SetFail(errors.New("connection refused"))
	m := newTestManager(t, store, nil)

	e, err := m.Engine(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if e == nil {
		t.Fatal("expected an engine even when the first load fails")
	}
}

func TestEngine_AfterClose(t *testing.T) {
	m := NewManager(Options{Store: ordertest.NewMemStore(), Logger: zerolog.Nop()})
	m.Close()
	if _, err := m.Engine(context.Background(), uuid.New()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestRoute_BroadcastsByCollection(t *testing.T) {
	hub := &mockHub{}
	m := newTestManager(t, ordertest.NewMemStore(), hub)
	owner := uuid.New()

	cases := []struct {
		collection string
		want       string
	}{
		{enum.CollectionTables, ws.EventTablesChanged},
		{enum.CollectionLines, ws.EventLinesChanged},
		{enum.CollectionKitchenQueue, ws.EventKitchenChanged},
		{enum.CollectionSettled, ws.EventOrdersChanged},
	}
	for _, tc := range cases {
		m.Route(syncclient.ChangeEvent{Collection: tc.collection, Op: "INSERT", OwnerID: owner})
	}
	m.Route(syncclient.ChangeEvent{Collection: "unknown", Op: "INSERT", OwnerID: owner})

	events := hub.all()
	if len(events) != len(cases) {
		t.Fatalf("expected %d broadcasts, got %d", len(cases), len(events))
	}
	for i, tc := range cases {
		if events[i].owner != owner {
			t.Errorf("event %d: wrong owner", i)
		}
		if events[i].event.Type != tc.want {
			t.Errorf("event %d: got %q, want %q", i, events[i].event.Type, tc.want)
		}
		var payload map[string]string
		if err := json.Unmarshal(events[i].event.Payload, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload["collection"] != tc.collection || payload["op"] != "INSERT" {
			t.Errorf("event %d: payload %v", i, payload)
		}
	}
}

func TestRun_RefreshesOwnerSession(t *testing.T) {
	store := ordertest.NewMemStore()
	owner := uuid.New()
	store.Seed(owner, []order.Table{{Name: "Barra", OrderIndex: 0}}, nil)
	m := newTestManager(t, store, &mockHub{})

	e, err := m.Engine(context.Background(), owner)
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}

	// Another terminal adds a table remotely.
	store.Seed(owner, []order.Table{{Name: "Barra", OrderIndex: 0}, {Name: "Patio", OrderIndex: 1}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := &mockFeed{events: []syncclient.ChangeEvent{
		{Collection: enum.CollectionTables, Op: "INSERT", OwnerID: owner},
		{Collection: enum.CollectionTables, Op: "INSERT", OwnerID: uuid.New()},
	}}
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, feed) }()

	deadline := time.Now().Add(time.Second)
	for len(e.Tables()) != 2 {
		if time.Now().After(deadline) {
			t.Fatalf("engine was not refreshed, tables: %+v", e.Tables())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(m.Owners()) != 1 {
		t.Errorf("events for unknown owners must not create sessions")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run: expected context.Canceled, got %v", err)
	}
}

func TestClose_FlushesPendingWrites(t *testing.T) {
	store := ordertest.NewMemStore()
	owner := uuid.New()
	m := NewManager(Options{Store: store, Kitchen: store, Logger: zerolog.Nop()})

	e, err := m.Engine(context.Background(), owner)
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if _, err := e.AddTable(context.Background(), "Patio"); err != nil {
		t.Fatalf("AddTable: %v", err)
	}
	m.Close()

	tables, _ := store.ListTables(context.Background(), owner)
	if len(tables) != 2 {
		t.Errorf("expected default table and Patio persisted, got %+v", tables)
	}
}
