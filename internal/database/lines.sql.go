package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listWorkingLines = `-- name: ListWorkingLines :many
SELECT owner_id, line_id, table_name, product_name, quantity, unit, unit_price,
       subtotal, comments, created_at, updated_at
FROM working_order_lines
WHERE owner_id = $1
ORDER BY created_at, line_id
`

func (q *Queries) ListWorkingLines(ctx context.Context, ownerID uuid.UUID) ([]WorkingOrderLine, error) {
	rows, err := q.db.Query(ctx, listWorkingLines, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []WorkingOrderLine{}
	for rows.Next() {
		var i WorkingOrderLine
		if err := rows.Scan(
			&i.OwnerID,
			&i.LineID,
			&i.TableName,
			&i.ProductName,
			&i.Quantity,
			&i.Unit,
			&i.UnitPrice,
			&i.Subtotal,
			&i.Comments,
			&i.CreatedAt,
			&i.UpdatedAt,
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

const insertWorkingLine = `-- name: InsertWorkingLine :exec
INSERT INTO working_order_lines (
    owner_id, line_id, table_name, product_name, quantity, unit, unit_price, subtotal, comments, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (owner_id, line_id) DO NOTHING
`

type InsertWorkingLineParams struct {
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
}

func (q *Queries) InsertWorkingLine(ctx context.Context, arg InsertWorkingLineParams) error {
	_, err := q.db.Exec(ctx, insertWorkingLine,
		arg.OwnerID,
		arg.LineID,
		arg.TableName,
		arg.ProductName,
		arg.Quantity,
		arg.Unit,
		arg.UnitPrice,
		arg.Subtotal,
		arg.Comments,
		arg.CreatedAt,
	)
	return err
}

const deleteWorkingLine = `-- name: DeleteWorkingLine :exec
DELETE FROM working_order_lines WHERE owner_id = $1 AND line_id = $2
`

func (q *Queries) DeleteWorkingLine(ctx context.Context, ownerID uuid.UUID, lineID string) error {
	_, err := q.db.Exec(ctx, deleteWorkingLine, ownerID, lineID)
	return err
}

const deleteWorkingLines = `-- name: DeleteWorkingLines :execrows
DELETE FROM working_order_lines WHERE owner_id = $1 AND line_id = ANY($2::text[])
`

func (q *Queries) DeleteWorkingLines(ctx context.Context, ownerID uuid.UUID, lineIDs []string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteWorkingLines, ownerID, lineIDs)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const updateWorkingLineComments = `-- name: UpdateWorkingLineComments :exec
UPDATE working_order_lines SET comments = $3, updated_at = now()
WHERE owner_id = $1 AND line_id = $2
`

func (q *Queries) UpdateWorkingLineComments(ctx context.Context, ownerID uuid.UUID, lineID, comments string) error {
	_, err := q.db.Exec(ctx, updateWorkingLineComments, ownerID, lineID, comments)
	return err
}
