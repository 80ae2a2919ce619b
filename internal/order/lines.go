package order

import (
	"context"
	"strings"

	"github.com/micaja/api/internal/enum"
)

// Lines returns a copy of the table's working lines in insertion order.
func (e *Engine) Lines(table string) []LineItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]LineItem(nil), e.lines[table]...)
}

// AddLine validates and appends a product to a table.
func (e *Engine) AddLine(ctx context.Context, nl NewLine) (LineItem, error) {
	product := strings.TrimSpace(nl.ProductName)
	switch {
	case product == "":
		return LineItem{}, invalid(ErrEmptyProductName)
	case !enum.IsValidUnit(nl.Unit):
		return LineItem{}, invalid(ErrInvalidUnit)
	case !nl.Quantity.IsPositive():
		return LineItem{}, invalid(ErrInvalidQuantity)
	case !nl.UnitPrice.IsPositive():
		return LineItem{}, invalid(ErrInvalidUnitPrice)
	}

	e.mu.Lock()
	if e.tableIndex(nl.Table) < 0 {
		e.mu.Unlock()
		return LineItem{}, invalid(ErrTableNotFound)
	}

	line := LineItem{
		ID:          newID(),
		Table:       nl.Table,
		ProductName: product,
		Unit:        nl.Unit,
		Quantity:    nl.Quantity,
		UnitPrice:   nl.UnitPrice,
		Subtotal:    lineSubtotal(nl.Quantity, nl.UnitPrice),
		Comments:    strings.ToUpper(nl.Comments),
		CreatedAt:   e.now(),
	}

	err := e.mutate(ctx, "add line",
		func() {
			e.lines[line.Table] = append(e.lines[line.Table], line)
		},
		func(ctx context.Context) error {
			return e.store.InsertLine(ctx, e.owner, line)
		},
	)
	if err != nil {
		return LineItem{}, err
	}
	return line, nil
}

// UpdateComments stores upper-cased comments on a line. The local value
// changes immediately; under the optimistic policy the remote write waits
// for the comment debounce window so a typing burst becomes one write.
func (e *Engine) UpdateComments(ctx context.Context, table, lineID, text string) error {
	text = strings.ToUpper(text)

	e.mu.Lock()
	if e.lineIndex(table, lineID) < 0 {
		e.mu.Unlock()
		return invalid(ErrLineNotFound)
	}

	setLocal := func() {
		if i := e.lineIndex(table, lineID); i >= 0 {
			e.lines[table][i].Comments = text
		}
	}
	remote := func(ctx context.Context) error {
		return e.store.UpdateLineComments(ctx, e.owner, lineID, text)
	}

	if e.policy == enum.WritePolicyPessimistic || e.debounce <= 0 {
		return e.mutate(ctx, "update comments", setLocal, remote)
	}

	setLocal()
	e.mu.Unlock()
	e.comments.Trigger(lineID, func() {
		e.writes.enqueue("update comments", remote, true)
	})
	e.changed()
	return nil
}

// RemoveLine deletes a line and prunes it from both selection sets.
func (e *Engine) RemoveLine(ctx context.Context, table, lineID string) error {
	e.mu.Lock()
	if e.lineIndex(table, lineID) < 0 {
		e.mu.Unlock()
		return invalid(ErrLineNotFound)
	}

	return e.mutate(ctx, "remove line",
		func() {
			i := e.lineIndex(table, lineID)
			if i < 0 {
				return
			}
			e.comments.Cancel(lineID)
			lines := e.lines[table]
			e.lines[table] = append(lines[:i:i], lines[i+1:]...)
			e.pruneLocked(table)
		},
		func(ctx context.Context) error {
			return e.store.DeleteLine(ctx, e.owner, lineID)
		},
	)
}
