package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

//go:embed schema.sql
var schemaSQL string

const tableName = "pos_catalog_mirror"

var copyColumns = []string{"branch_id", "sku", "name", "price", "stock", "synced_at"}

// PostgresStore mirrors the catalog into a local Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store over pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the mirror table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("catalog: ensure schema: %w", err)
	}
	return nil
}

// Replace implements Store. Readers see either the old or the new snapshot.
func (s *PostgresStore) Replace(ctx context.Context, branchID int64, rows []Row) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+tableName+` WHERE branch_id = $1`, branchID); err != nil {
			return fmt.Errorf("catalog: clear branch %d: %w", branchID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		copied, err := tx.CopyFrom(ctx, pgx.Identifier{tableName}, copyColumns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			row := rows[i]
			return []any{branchID, row.SKU, row.Name, row.Price, row.Stock, row.SyncedAt}, nil
		}))
		if err != nil {
			return fmt.Errorf("catalog: copy branch %d: %w", branchID, err)
		}
		if int(copied) != len(rows) {
			return fmt.Errorf("catalog: copied %d of %d rows", copied, len(rows))
		}
		return nil
	})
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, sku string) (Row, bool, error) {
	var row Row
	err := s.pool.QueryRow(ctx, `
SELECT sku, branch_id, name, price, stock, synced_at
FROM `+tableName+`
WHERE sku = $1
ORDER BY synced_at DESC
LIMIT 1`, sku).Scan(&row.SKU, &row.BranchID, &row.Name, &row.Price, &row.Stock, &row.SyncedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, fmt.Errorf("catalog: lookup %q: %w", sku, err)
	}
	return row, true, nil
}

// Count implements Store.
func (s *PostgresStore) Count(ctx context.Context, branchID int64) (int, error) {
	var count int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+tableName+` WHERE branch_id = $1`, branchID).Scan(&count); err != nil {
		return 0, fmt.Errorf("catalog: count branch %d: %w", branchID, err)
	}
	return count, nil
}
