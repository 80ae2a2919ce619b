package syncclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/enum"
	"github.com/micaja/api/internal/order"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// memStore implements order.Store and Source over in-memory slices.
type memStore struct {
	mu        sync.Mutex
	tables    []order.Table
	lines     []order.LineItem
	listErr   error
	listCalls int
}

func (m *memStore) ListTables(ctx context.Context, owner uuid.UUID) ([]order.Table, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]order.Table(nil), m.tables...), nil
}
func (m *memStore) ListLines(ctx context.Context, owner uuid.UUID) ([]order.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]order.LineItem(nil), m.lines...), nil
}
func (m *memStore) InsertTable(ctx context.Context, owner uuid.UUID, t order.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables = append(m.tables, t)
	return nil
}
func (m *memStore) RenameTable(ctx context.Context, owner uuid.UUID, oldName, newName string) error {
	return nil
}
func (m *memStore) DeleteTable(ctx context.Context, owner uuid.UUID, name string) error { return nil }
func (m *memStore) ReorderTables(ctx context.Context, owner uuid.UUID, tables []order.Table) error {
	return nil
}
func (m *memStore) InsertLine(ctx context.Context, owner uuid.UUID, line order.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, line)
	return nil
}
func (m *memStore) DeleteLine(ctx context.Context, owner uuid.UUID, lineID string) error { return nil }
func (m *memStore) UpdateLineComments(ctx context.Context, owner uuid.UUID, lineID, comments string) error {
	return nil
}
func (m *memStore) InsertSettlement(ctx context.Context, owner uuid.UUID, o order.Order) error {
	return nil
}
func (m *memStore) ListSettledOrders(ctx context.Context, owner uuid.UUID, date string) ([]order.Order, error) {
	return nil, nil
}
func (m *memStore) GetOpeningFloat(ctx context.Context, owner uuid.UUID, date string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (m *memStore) SetOpeningFloat(ctx context.Context, owner uuid.UUID, date string, amount decimal.Decimal) error {
	return nil
}

func (m *memStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func newTestClient(t *testing.T, store *memStore, cache Cache, window time.Duration) (*Client, *order.Engine) {
	t.Helper()
	e := order.NewEngine(order.Options{Owner: uuid.New(), Store: store, Logger: zerolog.Nop()})
	t.Cleanup(e.Close)
	c := New(e, store, cache, Options{Debounce: window, SaveDelay: time.Hour, Logger: zerolog.Nop()})
	t.Cleanup(c.Close)
	return c, e
}

func TestStart_LoadsRemoteState(t *testing.T) {
	store := &memStore{
		tables: []order.Table{{Name: "Barra", OrderIndex: 0}, {Name: "Terraza", OrderIndex: 1}},
		lines: []order.LineItem{{
			ID: "l1", Table: "Terraza", ProductName: "Coffee", Unit: enum.UnitCount,
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(1500), Subtotal: decimal.NewFromInt(1500),
		}},
	}
	c, e := newTestClient(t, store, nil, time.Second)

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := len(e.Tables()); got != 2 {
		t.Errorf("expected 2 tables, got %d", got)
	}
	if got := len(e.Lines("Terraza")); got != 1 {
		t.Errorf("expected 1 line on Terraza, got %d", got)
	}
	if e.Active() != "Barra" {
		t.Errorf("expected first table active, got %q", e.Active())
	}
}

func TestStart_SeedsDefaultTableForNewOwner(t *testing.T) {
	store := &memStore{}
	c, e := newTestClient(t, store, nil, time.Second)

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if tables := e.Tables(); len(tables) != 1 || tables[0].Name != "Mesa 1" {
		t.Errorf("expected Mesa 1, got %+v", tables)
	}
	if err := e.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(store.tables) != 1 {
		t.Errorf("expected default table persisted, got %+v", store.tables)
	}
}

func TestStart_FallsBackToCache(t *testing.T) {
	cache := NewFileCache(t.TempDir())
	store := &memStore{listErr: errors.New("connection refused")}
	c, e := newTestClient(t, store, cache, time.Second)

	snap := Snapshot{
		Tables: []order.Table{{Name: "Mesa 7", OrderIndex: 0}},
		Lines: []order.LineItem{{
			ID: "l1", Table: "Mesa 7", ProductName: "Cake", Unit: enum.UnitCount,
			Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(3000), Subtotal: decimal.NewFromInt(3000),
		}},
	}
	if err := cache.Save(e.Owner(), snap); err != nil {
		t.Fatal(err)
	}

	if err := c.Start(context.Background()); err == nil {
		t.Error("expected remote error to be reported")
	}
	if tables := e.Tables(); len(tables) != 1 || tables[0].Name != "Mesa 7" {
		t.Errorf("expected cached table, got %+v", tables)
	}
	if got := len(e.Lines("Mesa 7")); got != 1 {
		t.Errorf("expected cached line, got %d", got)
	}
}

func TestNotify_CoalescesBurst(t *testing.T) {
	store := &memStore{tables: []order.Table{{Name: "Mesa 1"}}}
	c, _ := newTestClient(t, store, nil, 30*time.Millisecond)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := c.Refreshes()

	for i := 0; i < 5; i++ {
		if !c.Notify(ChangeEvent{Collection: enum.CollectionLines, Op: "INSERT"}) {
			t.Fatal("expected lines event to be relevant")
		}
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.Refreshes() == before && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if got := c.Refreshes() - before; got != 1 {
		t.Errorf("expected one coalesced refresh, got %d", got)
	}
}

func TestNotify_IgnoresOtherCollections(t *testing.T) {
	c, _ := newTestClient(t, &memStore{}, nil, time.Millisecond)
	for _, col := range []string{enum.CollectionKitchenQueue, enum.CollectionSettled, "expenses"} {
		if c.Notify(ChangeEvent{Collection: col}) {
			t.Errorf("expected %s to be ignored", col)
		}
	}
}

func TestRefresh_SavesCache(t *testing.T) {
	cache := NewFileCache(t.TempDir())
	store := &memStore{tables: []order.Table{{Name: "Mesa 1"}}}
	c, e := newTestClient(t, store, cache, time.Second)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap, err := cache.Load(e.Owner())
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || len(snap.Tables) != 1 || snap.Tables[0].Name != "Mesa 1" {
		t.Errorf("unexpected cached snapshot %+v", snap)
	}
}

func TestRefresh_FailureKeepsState(t *testing.T) {
	store := &memStore{tables: []order.Table{{Name: "Mesa 1"}}}
	c, e := newTestClient(t, store, nil, time.Second)
	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	store.mu.Lock()
	store.listErr = errors.New("timeout")
	store.mu.Unlock()
	if err := c.Refresh(context.Background()); err == nil {
		t.Error("expected refresh error")
	}
	if len(e.Tables()) != 1 {
		t.Errorf("expected state kept, got %+v", e.Tables())
	}
	if store.calls() < 2 {
		t.Errorf("expected a second fetch attempt, got %d", store.calls())
	}
}
