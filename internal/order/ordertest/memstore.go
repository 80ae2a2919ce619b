// Package ordertest provides an in-memory order.Store and order.KitchenQueue
// for tests of packages built on the engine.
package ordertest

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/order"
	"github.com/shopspring/decimal"
)

type ownerData struct {
	tables  []order.Table
	lines   []order.LineItem
	orders  []order.Order
	floats  map[string]decimal.Decimal
	batches []order.DispatchBatch
}

// MemStore keeps every owner's collections in memory.
type MemStore struct {
	mu     sync.Mutex
	owners map[uuid.UUID]*ownerData
	calls  map[string]int
	fail   error
}

func NewMemStore() *MemStore {
	return &MemStore{
		owners: make(map[uuid.UUID]*ownerData),
		calls:  make(map[string]int),
	}
}

// lock takes the mutex, counts the call and returns the owner's data.
// The caller must unlock.
func (m *MemStore) lock(name string, owner uuid.UUID) (*ownerData, error) {
	m.mu.Lock()
	m.calls[name]++
	if m.fail != nil {
		return nil, m.fail
	}
	d, ok := m.owners[owner]
	if !ok {
		d = &ownerData{floats: make(map[string]decimal.Decimal)}
		m.owners[owner] = d
	}
	return d, nil
}

// SetFail makes every later call return err. A nil err heals the store.
func (m *MemStore) SetFail(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

// Calls reports how many times the named method ran.
func (m *MemStore) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// Seed replaces an owner's tables and lines.
func (m *MemStore) Seed(owner uuid.UUID, tables []order.Table, lines []order.LineItem) {
	d, _ := m.lock("Seed", owner)
	defer m.mu.Unlock()
	if d == nil {
		return
	}
	d.tables = append([]order.Table(nil), tables...)
	d.lines = append([]order.LineItem(nil), lines...)
}

// Batches returns the dispatch batches enqueued for owner.
func (m *MemStore) Batches(owner uuid.UUID) []order.DispatchBatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.owners[owner]; ok {
		return append([]order.DispatchBatch(nil), d.batches...)
	}
	return nil
}

func (m *MemStore) ListTables(ctx context.Context, owner uuid.UUID) ([]order.Table, error) {
	d, err := m.lock("ListTables", owner)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := append([]order.Table(nil), d.tables...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (m *MemStore) InsertTable(ctx context.Context, owner uuid.UUID, t order.Table) error {
	d, err := m.lock("InsertTable", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	for _, existing := range d.tables {
		if existing.Name == t.Name {
			return nil
		}
	}
	d.tables = append(d.tables, t)
	return nil
}

func (m *MemStore) RenameTable(ctx context.Context, owner uuid.UUID, oldName, newName string) error {
	d, err := m.lock("RenameTable", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	for i := range d.tables {
		if d.tables[i].Name == oldName {
			d.tables[i].Name = newName
		}
	}
	for i := range d.lines {
		if d.lines[i].Table == oldName {
			d.lines[i].Table = newName
		}
	}
	return nil
}

func (m *MemStore) DeleteTable(ctx context.Context, owner uuid.UUID, name string) error {
	d, err := m.lock("DeleteTable", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	tables := d.tables[:0]
	for _, t := range d.tables {
		if t.Name != name {
			tables = append(tables, t)
		}
	}
	d.tables = tables
	d.lines = filterLines(d.lines, func(l order.LineItem) bool { return l.Table != name })
	return nil
}

func (m *MemStore) ReorderTables(ctx context.Context, owner uuid.UUID, tables []order.Table) error {
	d, err := m.lock("ReorderTables", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	idx := make(map[string]int, len(tables))
	for _, t := range tables {
		idx[t.Name] = t.OrderIndex
	}
	for i := range d.tables {
		if v, ok := idx[d.tables[i].Name]; ok {
			d.tables[i].OrderIndex = v
		}
	}
	return nil
}

func (m *MemStore) ListLines(ctx context.Context, owner uuid.UUID) ([]order.LineItem, error) {
	d, err := m.lock("ListLines", owner)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return append([]order.LineItem(nil), d.lines...), nil
}

func (m *MemStore) InsertLine(ctx context.Context, owner uuid.UUID, line order.LineItem) error {
	d, err := m.lock("InsertLine", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	d.lines = append(d.lines, line)
	return nil
}

func (m *MemStore) DeleteLine(ctx context.Context, owner uuid.UUID, lineID string) error {
	d, err := m.lock("DeleteLine", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	d.lines = filterLines(d.lines, func(l order.LineItem) bool { return l.ID != lineID })
	return nil
}

func (m *MemStore) UpdateLineComments(ctx context.Context, owner uuid.UUID, lineID, comments string) error {
	d, err := m.lock("UpdateLineComments", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	for i := range d.lines {
		if d.lines[i].ID == lineID {
			d.lines[i].Comments = comments
		}
	}
	return nil
}

func (m *MemStore) InsertSettlement(ctx context.Context, owner uuid.UUID, o order.Order) error {
	d, err := m.lock("InsertSettlement", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	paid := make(map[string]bool, len(o.Lines))
	for _, l := range o.Lines {
		paid[l.LineID] = true
	}
	d.orders = append(d.orders, o)
	d.lines = filterLines(d.lines, func(l order.LineItem) bool { return !paid[l.ID] })
	return nil
}

func (m *MemStore) ListSettledOrders(ctx context.Context, owner uuid.UUID, businessDate string) ([]order.Order, error) {
	d, err := m.lock("ListSettledOrders", owner)
	defer m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	var out []order.Order
	for _, o := range d.orders {
		if o.BusinessDate == businessDate {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemStore) GetOpeningFloat(ctx context.Context, owner uuid.UUID, businessDate string) (decimal.Decimal, error) {
	d, err := m.lock("GetOpeningFloat", owner)
	defer m.mu.Unlock()
	if err != nil {
		return decimal.Zero, err
	}
	return d.floats[businessDate], nil
}

func (m *MemStore) SetOpeningFloat(ctx context.Context, owner uuid.UUID, businessDate string, amount decimal.Decimal) error {
	d, err := m.lock("SetOpeningFloat", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	d.floats[businessDate] = amount
	return nil
}

func (m *MemStore) EnqueueDispatch(ctx context.Context, owner uuid.UUID, b order.DispatchBatch) error {
	d, err := m.lock("EnqueueDispatch", owner)
	defer m.mu.Unlock()
	if err != nil {
		return err
	}
	d.batches = append(d.batches, b)
	return nil
}

func filterLines(lines []order.LineItem, keep func(order.LineItem) bool) []order.LineItem {
	out := lines[:0]
	for _, l := range lines {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}
