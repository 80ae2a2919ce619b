package database

import (
	"context"

	"github.com/google/uuid"
)

const listTableConfigs = `-- name: ListTableConfigs :many
SELECT owner_id, table_name, order_index, updated_at
FROM table_config
WHERE owner_id = $1
ORDER BY order_index, table_name
`

func (q *Queries) ListTableConfigs(ctx context.Context, ownerID uuid.UUID) ([]TableConfig, error) {
	rows, err := q.db.Query(ctx, listTableConfigs, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TableConfig{}
	for rows.Next() {
		var i TableConfig
		if err := rows.Scan(&i.OwnerID, &i.TableName, &i.OrderIndex, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertTableConfig = `-- name: InsertTableConfig :exec
INSERT INTO table_config (owner_id, table_name, order_index)
VALUES ($1, $2, $3)
ON CONFLICT (owner_id, table_name) DO NOTHING
`

type InsertTableConfigParams struct {
	OwnerID    uuid.UUID `json:"owner_id"`
	TableName  string    `json:"table_name"`
	OrderIndex int32     `json:"order_index"`
}

func (q *Queries) InsertTableConfig(ctx context.Context, arg InsertTableConfigParams) error {
	_, err := q.db.Exec(ctx, insertTableConfig, arg.OwnerID, arg.TableName, arg.OrderIndex)
	return err
}

const renameTableConfig = `-- name: RenameTableConfig :execrows
UPDATE table_config SET table_name = $3, updated_at = now()
WHERE owner_id = $1 AND table_name = $2
`

func (q *Queries) RenameTableConfig(ctx context.Context, ownerID uuid.UUID, oldName, newName string) (int64, error) {
	tag, err := q.db.Exec(ctx, renameTableConfig, ownerID, oldName, newName)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const moveWorkingLines = `-- name: MoveWorkingLines :exec
UPDATE working_order_lines SET table_name = $3, updated_at = now()
WHERE owner_id = $1 AND table_name = $2
`

func (q *Queries) MoveWorkingLines(ctx context.Context, ownerID uuid.UUID, oldName, newName string) error {
	_, err := q.db.Exec(ctx, moveWorkingLines, ownerID, oldName, newName)
	return err
}

const deleteTableConfig = `-- name: DeleteTableConfig :exec
DELETE FROM table_config WHERE owner_id = $1 AND table_name = $2
`

func (q *Queries) DeleteTableConfig(ctx context.Context, ownerID uuid.UUID, name string) error {
	_, err := q.db.Exec(ctx, deleteTableConfig, ownerID, name)
	return err
}

const deleteWorkingLinesForTable = `-- name: DeleteWorkingLinesForTable :exec
DELETE FROM working_order_lines WHERE owner_id = $1 AND table_name = $2
`

func (q *Queries) DeleteWorkingLinesForTable(ctx context.Context, ownerID uuid.UUID, name string) error {
	_, err := q.db.Exec(ctx, deleteWorkingLinesForTable, ownerID, name)
	return err
}

const updateTableOrderIndex = `-- name: UpdateTableOrderIndex :exec
UPDATE table_config SET order_index = $3, updated_at = now()
WHERE owner_id = $1 AND table_name = $2
`

func (q *Queries) UpdateTableOrderIndex(ctx context.Context, ownerID uuid.UUID, name string, orderIndex int32) error {
	_, err := q.db.Exec(ctx, updateTableOrderIndex, ownerID, name, orderIndex)
	return err
}
