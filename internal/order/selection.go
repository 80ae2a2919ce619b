package order

import "github.com/micaja/api/internal/enum"

// Toggle flips lineID's membership in the table's kitchen or payment set.
func (e *Engine) Toggle(kind, table, lineID string) error {
	if !enum.IsValidSelection(kind) {
		return invalid(ErrInvalidSelection)
	}

	e.mu.Lock()
	if e.lineIndex(table, lineID) < 0 {
		e.mu.Unlock()
		return invalid(ErrLineNotFound)
	}
	sets := e.selLocked(kind)
	set, ok := sets[table]
	if !ok {
		set = make(idSet)
		sets[table] = set
	}
	if _, on := set[lineID]; on {
		delete(set, lineID)
	} else {
		set[lineID] = struct{}{}
	}
	e.mu.Unlock()
	e.changed()
	return nil
}

// SelectAll selects every line of the table, or clears the set when every
// line is already selected.
func (e *Engine) SelectAll(kind, table string) error {
	if !enum.IsValidSelection(kind) {
		return invalid(ErrInvalidSelection)
	}

	e.mu.Lock()
	if e.tableIndex(table) < 0 {
		e.mu.Unlock()
		return invalid(ErrTableNotFound)
	}
	sets := e.selLocked(kind)
	lines := e.lines[table]
	if len(lines) > 0 && len(sets[table]) == len(lines) {
		delete(sets, table)
	} else {
		set := make(idSet, len(lines))
		for _, l := range lines {
			set[l.ID] = struct{}{}
		}
		sets[table] = set
	}
	e.mu.Unlock()
	e.changed()
	return nil
}

// Clear empties one selection set of the table.
func (e *Engine) Clear(kind, table string) error {
	if !enum.IsValidSelection(kind) {
		return invalid(ErrInvalidSelection)
	}

	e.mu.Lock()
	delete(e.selLocked(kind), table)
	e.mu.Unlock()
	e.changed()
	return nil
}

// Selected returns the selected line ids of a set in line order.
func (e *Engine) Selected(kind, table string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedLocked(kind, table)
}

func (e *Engine) selectedLocked(kind, table string) []string {
	set := e.selLocked(kind)[table]
	var ids []string
	for _, l := range e.lines[table] {
		if _, ok := set[l.ID]; ok {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

// LineState derives the line's position in the order flow from the
// selection sets and the dispatched log.
func (e *Engine) LineState(table, lineID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lineStateLocked(table, lineID)
}

func (e *Engine) lineStateLocked(table, lineID string) string {
	if _, ok := e.paymentSel[table][lineID]; ok {
		return enum.LineStateQueuedForPayment
	}
	for _, d := range e.dispatched[table] {
		if d.LineID == lineID {
			return enum.LineStateDispatched
		}
	}
	if _, ok := e.kitchenSel[table][lineID]; ok {
		return enum.LineStateQueuedForKitchen
	}
	return enum.LineStateNew
}

// pruneLocked drops selected ids that no longer name a line of the table.
func (e *Engine) pruneLocked(table string) {
	present := make(idSet, len(e.lines[table]))
	for _, l := range e.lines[table] {
		present[l.ID] = struct{}{}
	}
	for _, sets := range []map[string]idSet{e.kitchenSel, e.paymentSel} {
		set, ok := sets[table]
		if !ok {
			continue
		}
		for id := range set {
			if _, ok := present[id]; !ok {
				delete(set, id)
			}
		}
		if len(set) == 0 {
			delete(sets, table)
		}
	}
}
