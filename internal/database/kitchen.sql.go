package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertKitchenTicket = `-- name: InsertKitchenTicket :exec
INSERT INTO kitchen_queue (
    batch_id, owner_id, line_no, line_id, table_name, product_name, quantity, unit, comments, status, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
`

type InsertKitchenTicketParams struct {
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
	CreatedAt   pgtype.Timestamptz `json:"created_at"`
}

// InsertKitchenTickets queues every ticket in one round trip. Call it inside
// a transaction so a failed row aborts the whole batch.
func (q *Queries) InsertKitchenTickets(ctx context.Context, args []InsertKitchenTicketParams) error {
	b := &pgx.Batch{}
	for _, a := range args {
		b.Queue(insertKitchenTicket,
			a.BatchID, a.OwnerID, a.LineNo, a.LineID, a.TableName, a.ProductName,
			a.Quantity, a.Unit, a.Comments, a.Status, a.CreatedAt,
		)
	}
	br := q.db.SendBatch(ctx, b)
	for i := range args {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("ticket %d: %w", i, err)
		}
	}
	return br.Close()
}

const markKitchenBatchDone = `-- name: MarkKitchenBatchDone :execrows
UPDATE kitchen_queue SET status = 'done', done_at = now()
WHERE owner_id = $1 AND batch_id = $2 AND line_no = 0 AND status IS DISTINCT FROM 'done'
`

func (q *Queries) MarkKitchenBatchDone(ctx context.Context, ownerID, batchID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, markKitchenBatchDone, ownerID, batchID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listKitchenTickets = `-- name: ListKitchenTickets :many
SELECT id, batch_id, owner_id, line_no, line_id, table_name, product_name, quantity, unit,
       comments, status, done_at, created_at
FROM kitchen_queue
WHERE owner_id = $1 AND batch_id = $2
ORDER BY line_no
`

func (q *Queries) ListKitchenTickets(ctx context.Context, ownerID, batchID uuid.UUID) ([]KitchenTicketRow, error) {
	rows, err := q.db.Query(ctx, listKitchenTickets, ownerID, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []KitchenTicketRow{}
	for rows.Next() {
		var i KitchenTicketRow
		if err := rows.Scan(
			&i.ID,
			&i.BatchID,
			&i.OwnerID,
			&i.LineNo,
			&i.LineID,
			&i.TableName,
			&i.ProductName,
			&i.Quantity,
			&i.Unit,
			&i.Comments,
			&i.Status,
			&i.DoneAt,
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
