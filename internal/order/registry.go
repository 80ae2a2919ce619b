package order

import (
	"context"
	"fmt"
	"strings"
)

const defaultTablePrefix = "Mesa"

// Tables returns the registry in display order.
func (e *Engine) Tables() []Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Table(nil), e.tables...)
}

// Active returns the name of the table the UI is focused on.
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SetActive makes name the active table.
func (e *Engine) SetActive(name string) error {
	e.mu.Lock()
	if e.tableIndex(name) < 0 {
		e.mu.Unlock()
		return invalid(ErrTableNotFound)
	}
	e.active = name
	e.mu.Unlock()
	e.changed()
	return nil
}

// AddTable appends a table. A blank name picks the next free "Mesa N".
func (e *Engine) AddTable(ctx context.Context, name string) (Table, error) {
	e.mu.Lock()
	name = strings.TrimSpace(name)
	if name == "" {
		name = e.nextDefaultNameLocked()
	} else if e.tableIndex(name) >= 0 {
		e.mu.Unlock()
		return Table{}, invalid(ErrTableExists)
	}

	t := Table{Name: name, OrderIndex: e.nextOrderIndexLocked()}
	err := e.mutate(ctx, "add table",
		func() {
			if e.tableIndex(t.Name) >= 0 {
				return
			}
			e.tables = append(e.tables, t)
			e.sortTables()
			if e.active == "" {
				e.active = t.Name
			}
		},
		func(ctx context.Context) error {
			return e.store.InsertTable(ctx, e.owner, t)
		},
	)
	if err != nil {
		return Table{}, err
	}
	return t, nil
}

// EnsureTable seeds a default table when the registry is empty, keeping
// the at-least-one-table invariant after a load from an empty store.
func (e *Engine) EnsureTable(ctx context.Context) error {
	e.mu.Lock()
	empty := len(e.tables) == 0
	e.mu.Unlock()
	if !empty {
		return nil
	}
	_, err := e.AddTable(ctx, "")
	return err
}

// RenameTable renames a table and re-keys every map that refers to it.
func (e *Engine) RenameTable(ctx context.Context, oldName, newName string) error {
	newName = strings.TrimSpace(newName)

	e.mu.Lock()
	if newName == "" {
		e.mu.Unlock()
		return invalid(ErrBlankTableName)
	}
	if e.tableIndex(oldName) < 0 {
		e.mu.Unlock()
		return invalid(ErrTableNotFound)
	}
	if oldName == newName {
		e.mu.Unlock()
		return nil
	}
	if e.tableIndex(newName) >= 0 {
		e.mu.Unlock()
		return invalid(ErrTableExists)
	}

	return e.mutate(ctx, "rename table",
		func() { e.renameLocked(oldName, newName) },
		func(ctx context.Context) error {
			return e.store.RenameTable(ctx, e.owner, oldName, newName)
		},
	)
}

func (e *Engine) renameLocked(oldName, newName string) {
	i := e.tableIndex(oldName)
	if i < 0 || e.tableIndex(newName) >= 0 {
		return
	}
	e.tables[i].Name = newName

	if lines, ok := e.lines[oldName]; ok {
		for j := range lines {
			lines[j].Table = newName
		}
		e.lines[newName] = lines
		delete(e.lines, oldName)
	}
	rekey(e.kitchenSel, oldName, newName)
	rekey(e.paymentSel, oldName, newName)
	rekey(e.dispatched, oldName, newName)
	rekey(e.checkout, oldName, newName)

	if e.active == oldName {
		e.active = newName
	}
}

func rekey[V any](m map[string]V, oldKey, newKey string) {
	if v, ok := m[oldKey]; ok {
		m[newKey] = v
		delete(m, oldKey)
	}
}

// RemoveTable deletes a table and its keyed state. The last table cannot be
// removed. If it was active, the previous table (else the next) becomes active.
func (e *Engine) RemoveTable(ctx context.Context, name string) error {
	e.mu.Lock()
	if e.tableIndex(name) < 0 {
		e.mu.Unlock()
		return invalid(ErrTableNotFound)
	}
	if len(e.tables) <= 1 {
		e.mu.Unlock()
		return &InvariantViolation{Err: ErrLastTable}
	}

	return e.mutate(ctx, "remove table",
		func() { e.removeLocked(name) },
		func(ctx context.Context) error {
			return e.store.DeleteTable(ctx, e.owner, name)
		},
	)
}

func (e *Engine) removeLocked(name string) {
	i := e.tableIndex(name)
	if i < 0 || len(e.tables) <= 1 {
		return
	}
	e.tables = append(e.tables[:i], e.tables[i+1:]...)
	e.dropTableLocked(name)

	if e.active == name {
		if i > 0 {
			e.active = e.tables[i-1].Name
		} else {
			e.active = e.tables[0].Name
		}
	}
}

// Reorder replaces the display order. names must list every table exactly
// once. Reordering to the current order changes nothing.
func (e *Engine) Reorder(ctx context.Context, names []string) error {
	e.mu.Lock()
	if len(names) != len(e.tables) {
		e.mu.Unlock()
		return invalid(ErrReorderMismatch)
	}
	seen := make(map[string]bool, len(names))
	same := true
	for i, n := range names {
		if seen[n] || e.tableIndex(n) < 0 {
			e.mu.Unlock()
			return invalid(ErrReorderMismatch)
		}
		seen[n] = true
		if e.tables[i].Name != n {
			same = false
		}
	}
	if same {
		e.mu.Unlock()
		return nil
	}

	reordered := make([]Table, len(names))
	for i, n := range names {
		reordered[i] = Table{Name: n, OrderIndex: i}
	}

	return e.mutate(ctx, "reorder tables",
		func() {
			if len(reordered) != len(e.tables) {
				return
			}
			for _, t := range reordered {
				if e.tableIndex(t.Name) < 0 {
					return
				}
			}
			e.tables = append([]Table(nil), reordered...)
		},
		func(ctx context.Context) error {
			return e.store.ReorderTables(ctx, e.owner, reordered)
		},
	)
}

func (e *Engine) nextDefaultNameLocked() string {
	for n := len(e.tables) + 1; ; n++ {
		name := fmt.Sprintf("%s %d", defaultTablePrefix, n)
		if e.tableIndex(name) < 0 {
			return name
		}
	}
}

func (e *Engine) nextOrderIndexLocked() int {
	next := 0
	for _, t := range e.tables {
		if t.OrderIndex >= next {
			next = t.OrderIndex + 1
		}
	}
	return next
}
