package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/micaja/api/internal/debounce"
	"github.com/micaja/api/internal/enum"
	"github.com/rs/zerolog"
)

// Options configures an Engine. Zero values pick the defaults noted per field.
type Options struct {
	Owner   uuid.UUID
	Store   Store
	Kitchen KitchenQueue

	// WritePolicy is enum.WritePolicyOptimistic (default) or
	// enum.WritePolicyPessimistic.
	WritePolicy string
	// SettlementGuard is enum.SettlementGuardGlobal (default) or
	// enum.SettlementGuardTable.
	SettlementGuard string

	// Location defines the business day. Defaults to UTC.
	Location *time.Location
	// CommentDebounce delays remote comment updates. Zero writes immediately.
	CommentDebounce time.Duration
	// PersistTimeout bounds each remote call. Defaults to 10s.
	PersistTimeout time.Duration

	Now    func() time.Time
	Logger zerolog.Logger
}

// Engine holds the working state of one owner's tables and mediates every
// change to it. Local state is guarded by one mutex; remote writes go
// through a FIFO writer.
type Engine struct {
	owner   uuid.UUID
	store   Store
	kitchen KitchenQueue
	policy  string
	guard   string
	loc     *time.Location
	now     func() time.Time
	log     zerolog.Logger

	writes   *writer
	comments *debounce.Keyed
	debounce time.Duration

	mu           sync.Mutex
	tables       []Table
	lines        map[string][]LineItem
	kitchenSel   map[string]idSet
	paymentSel   map[string]idSet
	dispatched   map[string][]DispatchedItem
	checkout     map[string]*Checkout
	active       string
	businessDate string
	settling     map[string]bool

	lmu       sync.Mutex
	listeners []func()
}

func NewEngine(opts Options) *Engine {
	if opts.WritePolicy == "" {
		opts.WritePolicy = enum.WritePolicyOptimistic
	}
	if opts.SettlementGuard == "" {
		opts.SettlementGuard = enum.SettlementGuardGlobal
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.With().Str("component", "engine").Str("owner_id", opts.Owner.String()).Logger()

	return &Engine{
		owner:      opts.Owner,
		store:      opts.Store,
		kitchen:    opts.Kitchen,
		policy:     opts.WritePolicy,
		guard:      opts.SettlementGuard,
		loc:        opts.Location,
		now:        opts.Now,
		log:        log,
		writes:     newWriter(opts.PersistTimeout, log),
		comments:   debounce.NewKeyed(opts.CommentDebounce),
		debounce:   opts.CommentDebounce,
		lines:      make(map[string][]LineItem),
		kitchenSel: make(map[string]idSet),
		paymentSel: make(map[string]idSet),
		dispatched: make(map[string][]DispatchedItem),
		checkout:   make(map[string]*Checkout),
		settling:   make(map[string]bool),
	}
}

func (e *Engine) Owner() uuid.UUID { return e.owner }

// OnChange registers fn to run after every local state change. fn runs
// outside the engine lock and may call back into the engine.
func (e *Engine) OnChange(fn func()) {
	e.lmu.Lock()
	e.listeners = append(e.listeners, fn)
	e.lmu.Unlock()
}

func (e *Engine) changed() {
	e.lmu.Lock()
	fns := append([]func(){}, e.listeners...)
	e.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Flush pushes pending comment edits and waits until every queued remote
// write has finished.
func (e *Engine) Flush(ctx context.Context) error {
	e.comments.FlushAll()
	return wait(ctx, e.writes.enqueue("flush", nil, false))
}

// PendingWrites reports how many remote writes are queued or running.
func (e *Engine) PendingWrites() int {
	return int(e.writes.pending.Load())
}

// Close flushes pending comment edits, drains the write queue and stops the
// writer. The engine rejects remote work afterwards.
func (e *Engine) Close() {
	e.comments.FlushAll()
	e.writes.close()
}

// mutate applies one validated change under the write policy. It must be
// called with e.mu held and returns with e.mu released.
//
// Optimistic: apply now, persist in the background, failures are logged.
// Pessimistic: persist first, apply only after the store acknowledged. Once
// queued the write is awaited to its end regardless of ctx.
func (e *Engine) mutate(ctx context.Context, op string, apply func(), remote func(ctx context.Context) error) error {
	if e.policy == enum.WritePolicyPessimistic {
		if err := ctx.Err(); err != nil {
			e.mu.Unlock()
			return err
		}
		done := e.writes.enqueue(op, remote, false)
		e.mu.Unlock()
		if err := await(done); err != nil {
			return &PersistenceFailure{Op: op, Err: err}
		}
		e.mu.Lock()
		apply()
		e.mu.Unlock()
		e.changed()
		return nil
	}

	apply()
	e.writes.enqueue(op, remote, true)
	e.mu.Unlock()
	e.changed()
	return nil
}

func (e *Engine) tableIndex(name string) int {
	for i, t := range e.tables {
		if t.Name == name {
			return i
		}
	}
	return -1
}

func (e *Engine) sortTables() {
	sort.SliceStable(e.tables, func(i, j int) bool {
		return e.tables[i].OrderIndex < e.tables[j].OrderIndex
	})
}

func (e *Engine) lineIndex(table, lineID string) int {
	for i, l := range e.lines[table] {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

func (e *Engine) selLocked(kind string) map[string]idSet {
	if kind == enum.SelectionKitchen {
		return e.kitchenSel
	}
	return e.paymentSel
}

func (e *Engine) checkoutLocked(table string) *Checkout {
	c, ok := e.checkout[table]
	if !ok {
		c = &Checkout{}
		e.checkout[table] = c
	}
	return c
}

// dropTableLocked removes every piece of keyed state for table.
func (e *Engine) dropTableLocked(table string) {
	for _, l := range e.lines[table] {
		e.comments.Cancel(l.ID)
	}
	delete(e.lines, table)
	delete(e.kitchenSel, table)
	delete(e.paymentSel, table)
	delete(e.dispatched, table)
	delete(e.checkout, table)
}
