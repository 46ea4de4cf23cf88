package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mobility-cli/internal/db"
	"github.com/sells-group/mobility-cli/internal/store"
)

// initStore opens and migrates the configured result store.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	return store.Open(ctx, cfg.Store)
}

// warehousePool connects to the configured warehouse database.
func warehousePool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Warehouse.DatabaseURL == "" {
		return nil, eris.New("warehouse: no database_url configured (set warehouse.database_url or MOBILITY_WAREHOUSE_DATABASE_URL)")
	}
	return db.Connect(ctx, cfg.Warehouse.DatabaseURL, 4)
}
