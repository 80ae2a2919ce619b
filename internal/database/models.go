package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type TableConfig struct {
	OwnerID    uuid.UUID          `json:"owner_id"`
	TableName  string             `json:"table_name"`
	OrderIndex int32              `json:"order_index"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

type WorkingOrderLine struct {
	OwnerID     uuid.UUID          `json:"owner_id"`
	LineID      string             `json:"line_id"`
	TableName   string             `json:"table_name"`
	ProductName string             `json:"product_name"`
	Quantity    pgtype.Numeric     `json:"quantity"`
	Unit        string             `json:"unit"`
	UnitPrice   pgtype.Numeric     `json:"unit_price"`
	Subtotal    pgtype.Numeric     `json:"subtotal"`
	Comments    string             `json:"comments"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
	UpdatedAt   pgtype.Timestamptz `json:"updated_at"`
}

// KitchenTicketRow is one kitchen_queue row. Status is set on line 0 only.
type KitchenTicketRow struct {
	ID          int64              `json:"id"`
	BatchID     uuid.UUID          `json:"batch_id"`
	OwnerID     uuid.UUID          `json:"owner_id"`
	LineNo      int32              `json:"line_no"`
	LineID      string             `json:"line_id"`
	TableName   string             `json:"table_name"`
	ProductName string             `json:"product_name"`
	Quantity    pgtype.Numeric     `json:"quantity"`
	Unit        string             `json:"unit"`
	Comments    string             `json:"comments"`
	Status      pgtype.Text        `json:"status"`
	DoneAt      pgtype.Timestamptz `json:"done_at"`
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

// SettledOrderRow is one settled_orders row. The aggregate columns are
// valid on line 0 only.
type SettledOrderRow struct {
	ID            int64              `json:"id"`
	OrderID       uuid.UUID          `json:"order_id"`
	OwnerID       uuid.UUID          `json:"owner_id"`
	LineNo        int32              `json:"line_no"`
	LineID        string             `json:"line_id"`
	TableName     string             `json:"table_name"`
	ProductName   string             `json:"product_name"`
	Quantity      pgtype.Numeric     `json:"quantity"`
	Unit          string             `json:"unit"`
	UnitPrice     pgtype.Numeric     `json:"unit_price"`
	Subtotal      pgtype.Numeric     `json:"subtotal"`
	Comments      string             `json:"comments"`
	Total         pgtype.Numeric     `json:"total"`
	OrderSubtotal pgtype.Numeric     `json:"order_subtotal"`
	TipPercentage pgtype.Numeric     `json:"tip_percentage"`
	TipAmount     pgtype.Numeric     `json:"tip_amount"`
	PaymentMethod pgtype.Text        `json:"payment_method"`
	Status        pgtype.Text        `json:"status"`
	BusinessDate  pgtype.Date        `json:"business_date"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
}
