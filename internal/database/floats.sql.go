package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getCashFloat = `-- name: GetCashFloat :one
SELECT amount FROM cash_floats WHERE owner_id = $1 AND business_date = $2
`

func (q *Queries) GetCashFloat(ctx context.Context, ownerID uuid.UUID, businessDate pgtype.Date) (pgtype.Numeric, error) {
	row := q.db.QueryRow(ctx, getCashFloat, ownerID, businessDate)
	var amount pgtype.Numeric
	err := row.Scan(&amount)
	return amount, err
}

const upsertCashFloat = `-- name: UpsertCashFloat :exec
INSERT INTO cash_floats (owner_id, business_date, amount)
VALUES ($1, $2, $3)
ON CONFLICT (owner_id, business_date) DO UPDATE SET amount = EXCLUDED.amount, updated_at = now()
`

func (q *Queries) UpsertCashFloat(ctx context.Context, ownerID uuid.UUID, businessDate pgtype.Date, amount pgtype.Numeric) error {
	_, err := q.db.Exec(ctx, upsertCashFloat, ownerID, businessDate, amount)
	return err
}
