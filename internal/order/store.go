package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TableStore persists the table list.
type TableStore interface {
	ListTables(ctx context.Context, owner uuid.UUID) ([]Table, error)
	InsertTable(ctx context.Context, owner uuid.UUID, t Table) error
	// RenameTable also moves the table's working lines to the new name.
	RenameTable(ctx context.Context, owner uuid.UUID, oldName, newName string) error
	// DeleteTable also deletes the table's working lines.
	DeleteTable(ctx context.Context, owner uuid.UUID, name string) error
	ReorderTables(ctx context.Context, owner uuid.UUID, tables []Table) error
}

// LineStore persists working order lines.
type LineStore interface {
	ListLines(ctx context.Context, owner uuid.UUID) ([]LineItem, error)
	InsertLine(ctx context.Context, owner uuid.UUID, line LineItem) error
	DeleteLine(ctx context.Context, owner uuid.UUID, lineID string) error
	UpdateLineComments(ctx context.Context, owner uuid.UUID, lineID, comments string) error
}

// SettlementStore persists settled orders.
type SettlementStore interface {
	// InsertSettlement stores the order and deletes the working lines it paid
	// for, atomically.
	InsertSettlement(ctx context.Context, owner uuid.UUID, o Order) error
	ListSettledOrders(ctx context.Context, owner uuid.UUID, businessDate string) ([]Order, error)
}

// FloatStore persists the cash drawer's opening float per business day.
type FloatStore interface {
	GetOpeningFloat(ctx context.Context, owner uuid.UUID, businessDate string) (decimal.Decimal, error)
	SetOpeningFloat(ctx context.Context, owner uuid.UUID, businessDate string, amount decimal.Decimal) error
}

// Store is everything the engine needs from the remote store.
// Satisfied by *database.Store.
type Store interface {
	TableStore
	LineStore
	SettlementStore
	FloatStore
}

// KitchenQueue accepts dispatch batches for the kitchen.
type KitchenQueue interface {
	EnqueueDispatch(ctx context.Context, owner uuid.UUID, batch DispatchBatch) error
}
