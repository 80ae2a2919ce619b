package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertSettledRow = `-- name: InsertSettledRow :exec
INSERT INTO settled_orders (
    order_id, owner_id, line_no, line_id, table_name, product_name, quantity, unit, unit_price,
    subtotal, comments, total, order_subtotal, tip_percentage, tip_amount, payment_method,
    status, business_date, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
`

type InsertSettledRowParams struct {
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

// InsertSettledRows writes all rows of one order in a single batch.
func (q *Queries) InsertSettledRows(ctx context.Context, args []InsertSettledRowParams) error {
	b := &pgx.Batch{}
	for _, a := range args {
		b.Queue(insertSettledRow,
			a.OrderID, a.OwnerID, a.LineNo, a.LineID, a.TableName, a.ProductName, a.Quantity,
			a.Unit, a.UnitPrice, a.Subtotal, a.Comments, a.Total, a.OrderSubtotal,
			a.TipPercentage, a.TipAmount, a.PaymentMethod, a.Status, a.BusinessDate, a.CreatedAt,
		)
	}
	br := q.db.SendBatch(ctx, b)
	for i := range args {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return br.Close()
}

const listSettledRows = `-- name: ListSettledRows :many
SELECT id, order_id, owner_id, line_no, line_id, table_name, product_name, quantity, unit,
       unit_price, subtotal, comments, total, order_subtotal, tip_percentage, tip_amount,
       payment_method, status, business_date, created_at
FROM settled_orders
WHERE owner_id = $1 AND business_date = $2
ORDER BY created_at, order_id, line_no
`

func (q *Queries) ListSettledRows(ctx context.Context, ownerID uuid.UUID, businessDate pgtype.Date) ([]SettledOrderRow, error) {
	rows, err := q.db.Query(ctx, listSettledRows, ownerID, businessDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []SettledOrderRow{}
	for rows.Next() {
		var i SettledOrderRow
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.OwnerID,
			&i.LineNo,
			&i.LineID,
			&i.TableName,
			&i.ProductName,
			&i.Quantity,
			&i.Unit,
			&i.UnitPrice,
			&i.Subtotal,
			&i.Comments,
			&i.Total,
			&i.OrderSubtotal,
			&i.TipPercentage,
			&i.TipAmount,
			&i.PaymentMethod,
			&i.Status,
			&i.BusinessDate,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
