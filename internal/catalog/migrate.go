package catalog

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/periods/internal/platform/db"
)

//go:embed schema.sql
var schema string

// Migrate creates the catalog table and indexes when missing.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, schema)
		return err
	})
	if err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}
