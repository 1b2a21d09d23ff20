package storage

import (
	"context"
	"database/sql"
	"fmt"

	"insurance-analytics/config"
	"insurance-analytics/models"
	"insurance-analytics/utils"
)

// PortfolioStore is the interface any relational backend must satisfy.
type PortfolioStore interface {
	// Load creates a clean schema and bulk-inserts the dataset. A reported
	// failure means nothing from this dataset is queryable.
	Load(ctx context.Context, ds *models.Dataset) error
	// DB exposes the live connection for the analytics queries.
	DB() *sql.DB
	Close() error
}

// TableWriter is the interface for persisting tabular results.
type TableWriter interface {
	WriteTable(table models.Table) error
}

// Open constructs the configured store backend.
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (PortfolioStore, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN(), logger)
	default:
		return NewEmbeddedStore(ctx, logger)
	}
}

// verifyRowCounts cross-checks the loaded row counts against the dataset,
// catching silently dropped rows before any query runs.
func verifyRowCounts(ctx context.Context, db *sql.DB, wantPolicies, wantClaims int, backend string) error {
	var policies, claims int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM policies").Scan(&policies); err != nil {
		return fmt.Errorf("%s: count policies: %w", backend, err)
	}
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM claims").Scan(&claims); err != nil {
		return fmt.Errorf("%s: count claims: %w", backend, err)
	}
	if policies != wantPolicies || claims != wantClaims {
		return fmt.Errorf("%s: loaded %d policies and %d claims, want %d and %d",
			backend, policies, claims, wantPolicies, wantClaims)
	}
	return nil
}
