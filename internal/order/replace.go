package order

// Replace swaps the registry and working lines for a snapshot loaded from
// the remote store or the local cache. The snapshot is authoritative for
// existence and field values; selections are pruned against it, never
// merged. An empty table list keeps the current registry so the engine is
// never left without tables.
func (e *Engine) Replace(tables []Table, lines []LineItem) {
	e.mu.Lock()

	if len(tables) > 0 {
		next := make(map[string]bool, len(tables))
		for _, t := range tables {
			next[t.Name] = true
		}
		for _, t := range e.tables {
			if !next[t.Name] {
				e.dropTableLocked(t.Name)
			}
		}
		e.tables = append([]Table(nil), tables...)
		e.sortTables()
	}

	grouped := make(map[string][]LineItem, len(e.tables))
	for _, l := range lines {
		if e.tableIndex(l.Table) < 0 {
			continue
		}
		grouped[l.Table] = append(grouped[l.Table], l)
	}
	for _, t := range e.tables {
		if ls, ok := grouped[t.Name]; ok {
			e.lines[t.Name] = ls
		} else {
			delete(e.lines, t.Name)
		}
		e.pruneLocked(t.Name)
	}

	if e.tableIndex(e.active) < 0 {
		e.active = ""
		if len(e.tables) > 0 {
			e.active = e.tables[0].Name
		}
	}
	e.mu.Unlock()
	e.changed()
}

// Export returns the registry and every working line, for caching.
func (e *Engine) Export() ([]Table, []LineItem) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tables := append([]Table(nil), e.tables...)
	var lines []LineItem
	for _, t := range e.tables {
		lines = append(lines, e.lines[t.Name]...)
	}
	return tables, lines
}
