package order

import (
	"context"

	"github.com/micaja/api/internal/enum"
)

// DispatchSelected sends one ticket per kitchen-selected line to the
// kitchen queue and waits for it to accept the batch. The selection is kept
// so the UI can show what was sent; the dispatched log is appended only
// after the queue accepted the batch. Once queued the call waits for the
// queue's answer even if ctx ends.
func (e *Engine) DispatchSelected(ctx context.Context, table string) (*DispatchBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	if e.tableIndex(table) < 0 {
		e.mu.Unlock()
		return nil, invalid(ErrTableNotFound)
	}
	set := e.kitchenSel[table]
	if len(set) == 0 {
		e.mu.Unlock()
		return nil, invalid(ErrEmptyKitchenSelection)
	}

	batch := DispatchBatch{ID: newBatchID(), Table: table, CreatedAt: e.now()}
	var items []DispatchedItem
	for _, l := range e.lines[table] {
		if _, ok := set[l.ID]; !ok {
			continue
		}
		t := KitchenTicket{
			LineID:      l.ID,
			Table:       table,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
			Comments:    l.Comments,
		}
		if len(batch.Tickets) == 0 {
			t.Status = enum.KitchenStatusPending
		}
		batch.Tickets = append(batch.Tickets, t)
		items = append(items, DispatchedItem{
			LineID:      l.ID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Unit:        l.Unit,
		})
	}

	done := e.writes.enqueue("dispatch", func(ctx context.Context) error {
		return e.kitchen.EnqueueDispatch(ctx, e.owner, batch)
	}, false)
	e.mu.Unlock()

	if err := await(done); err != nil {
		e.log.Error().Err(err).Str("table", table).Msg("dispatch failed")
		return nil, &PersistenceFailure{Op: "dispatch", Err: err}
	}

	e.mu.Lock()
	if e.tableIndex(batch.Table) >= 0 {
		e.dispatched[batch.Table] = append(e.dispatched[batch.Table], items...)
	}
	e.mu.Unlock()
	e.changed()

	e.log.Info().Str("table", table).Str("batch_id", batch.ID.String()).Int("tickets", len(batch.Tickets)).Msg("dispatched to kitchen")
	return &batch, nil
}

// Dispatched returns the informational log of items sent to the kitchen.
func (e *Engine) Dispatched(table string) []DispatchedItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]DispatchedItem(nil), e.dispatched[table]...)
}
