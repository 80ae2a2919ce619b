package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/micaja/api/internal/order"
	"github.com/shopspring/decimal"
)

// ErrBatchNotFound is returned when a kitchen done notification names a
// batch that does not exist or is already done.
var ErrBatchNotFound = errors.New("kitchen batch not found")

// Pool is what Store needs from *pgxpool.Pool.
type Pool interface {
	DBTX
	TxBeginner
}

// Store implements order.Store and order.KitchenQueue on PostgreSQL.
type Store struct {
	pool Pool
	q    *Queries
}

func NewStore(pool Pool) *Store {
	return &Store{pool: pool, q: New(pool)}
}

// Queries exposes the typed queries for callers outside the engine.
func (s *Store) Queries() *Queries { return s.q }

func (s *Store) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(s.q.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// --- tables ---

func (s *Store) ListTables(ctx context.Context, owner uuid.UUID) ([]order.Table, error) {
	rows, err := s.q.ListTableConfigs(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	tables := make([]order.Table, len(rows))
	for i, r := range rows {
		tables[i] = tableFromRow(r)
	}
	return tables, nil
}

func (s *Store) InsertTable(ctx context.Context, owner uuid.UUID, t order.Table) error {
	err := s.q.InsertTableConfig(ctx, InsertTableConfigParams{
		OwnerID:    owner,
		TableName:  t.Name,
		OrderIndex: int32(t.OrderIndex),
	})
	if err != nil {
		return fmt.Errorf("insert table: %w", err)
	}
	return nil
}

func (s *Store) RenameTable(ctx context.Context, owner uuid.UUID, oldName, newName string) error {
	return s.inTx(ctx, func(q *Queries) error {
		if _, err := q.RenameTableConfig(ctx, owner, oldName, newName); err != nil {
			return fmt.Errorf("rename table: %w", err)
		}
		if err := q.MoveWorkingLines(ctx, owner, oldName, newName); err != nil {
			return fmt.Errorf("move lines: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteTable(ctx context.Context, owner uuid.UUID, name string) error {
	return s.inTx(ctx, func(q *Queries) error {
		if err := q.DeleteWorkingLinesForTable(ctx, owner, name); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		if err := q.DeleteTableConfig(ctx, owner, name); err != nil {
			return fmt.Errorf("delete table: %w", err)
		}
		return nil
	})
}

func (s *Store) ReorderTables(ctx context.Context, owner uuid.UUID, tables []order.Table) error {
	return s.inTx(ctx, func(q *Queries) error {
		for _, t := range tables {
			if err := q.UpdateTableOrderIndex(ctx, owner, t.Name, int32(t.OrderIndex)); err != nil {
				return fmt.Errorf("reorder %q: %w", t.Name, err)
			}
		}
		return nil
	})
}

// --- lines ---

func (s *Store) ListLines(ctx context.Context, owner uuid.UUID) ([]order.LineItem, error) {
	rows, err := s.q.ListWorkingLines(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	lines := make([]order.LineItem, len(rows))
	for i, r := range rows {
		lines[i] = lineFromRow(r)
	}
	return lines, nil
}

func (s *Store) InsertLine(ctx context.Context, owner uuid.UUID, line order.LineItem) error {
	if err := s.q.InsertWorkingLine(ctx, lineParams(owner, line)); err != nil {
		return fmt.Errorf("insert line: %w", err)
	}
	return nil
}

func (s *Store) DeleteLine(ctx context.Context, owner uuid.UUID, lineID string) error {
	if err := s.q.DeleteWorkingLine(ctx, owner, lineID); err != nil {
		return fmt.Errorf("delete line: %w", err)
	}
	return nil
}

func (s *Store) UpdateLineComments(ctx context.Context, owner uuid.UUID, lineID, comments string) error {
	if err := s.q.UpdateWorkingLineComments(ctx, owner, lineID, comments); err != nil {
		return fmt.Errorf("update comments: %w", err)
	}
	return nil
}

// --- settlements ---

// InsertSettlement writes the order rows and deletes the paid working lines
// in one transaction.
func (s *Store) InsertSettlement(ctx context.Context, owner uuid.UUID, o order.Order) error {
	date, err := parseDate(o.BusinessDate)
	if err != nil {
		return err
	}
	rows := flattenSettlement(owner, o, date)
	ids := make([]string, len(o.Lines))
	for i, l := range o.Lines {
		ids[i] = l.LineID
	}

	return s.inTx(ctx, func(q *Queries) error {
		if err := q.InsertSettledRows(ctx, rows); err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}
		if _, err := q.DeleteWorkingLines(ctx, owner, ids); err != nil {
			return fmt.Errorf("delete paid lines: %w", err)
		}
		return nil
	})
}

func (s *Store) ListSettledOrders(ctx context.Context, owner uuid.UUID, businessDate string) ([]order.Order, error) {
	date, err := parseDate(businessDate)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.ListSettledRows(ctx, owner, date)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	return assembleSettlements(rows), nil
}

// --- cash floats ---

// GetOpeningFloat returns zero when no float was set for the date.
func (s *Store) GetOpeningFloat(ctx context.Context, owner uuid.UUID, businessDate string) (decimal.Decimal, error) {
	date, err := parseDate(businessDate)
	if err != nil {
		return decimal.Zero, err
	}
	n, err := s.q.GetCashFloat(ctx, owner, date)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("get opening float: %w", err)
	}
	return numericToDecimal(n), nil
}

func (s *Store) SetOpeningFloat(ctx context.Context, owner uuid.UUID, businessDate string, amount decimal.Decimal) error {
	date, err := parseDate(businessDate)
	if err != nil {
		return err
	}
	if err := s.q.UpsertCashFloat(ctx, owner, date, decimalToNumeric(amount)); err != nil {
		return fmt.Errorf("set opening float: %w", err)
	}
	return nil
}

// --- kitchen queue ---

// EnqueueDispatch inserts every ticket of the batch or none of them.
func (s *Store) EnqueueDispatch(ctx context.Context, owner uuid.UUID, b order.DispatchBatch) error {
	rows := flattenDispatch(owner, b)
	return s.inTx(ctx, func(q *Queries) error {
		if err := q.InsertKitchenTickets(ctx, rows); err != nil {
			return fmt.Errorf("enqueue dispatch: %w", err)
		}
		return nil
	})
}

// MarkKitchenBatchDone flags a dispatched batch as prepared.
func (s *Store) MarkKitchenBatchDone(ctx context.Context, owner, batchID uuid.UUID) error {
	n, err := s.q.MarkKitchenBatchDone(ctx, owner, batchID)
	if err != nil {
		return fmt.Errorf("mark batch done: %w", err)
	}
	if n == 0 {
		return ErrBatchNotFound
	}
	return nil
}
