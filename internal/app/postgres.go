package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/guttosm/eftpulse/config"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

const pingTimeout = 5 * time.Second

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// InitPostgres opens a PostgreSQL handle from cfg.Postgres and pings it.
//
// Behavior:
//   - Builds the DSN with config.PostgresConfig.DSN().
//   - Opens a database handle with sql.Open (no connection yet).
//   - Applies the pool limits from cfg.Postgres (zero leaves the database/sql default).
//   - Pings within pingTimeout; an unreachable store fails fast and the handle is closed.
//
// Example usage:
//
//	db, err := app.InitPostgres(config.AppConfig)
//	if err != nil {
//	    logger.L().Fatal().Err(err).Msg("db connect error")
//	}
//	defer db.Close()
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	db, err := sqlOpener("postgres", cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	applyPool(db, cfg.Postgres)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

func applyPool(db *sql.DB, p config.PostgresConfig) {
	if p.MaxOpenConns > 0 {
		db.SetMaxOpenConns(p.MaxOpenConns)
	}
	if p.MaxIdleConns > 0 {
		db.SetMaxIdleConns(p.MaxIdleConns)
	}
	if p.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(p.ConnMaxLifetime)
	}
}

// postgresOpener is an indirection used by InitializeApp and RunBatch; overridden in tests to avoid real connections.
var postgresOpener = InitPostgres
