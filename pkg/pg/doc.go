// Package pg connects to PostgreSQL with pgx/v5 and applies the schema
// migrations of this module with goose/v3.
//
// The database backs the audit_logs table written by audit.PostgresStorage.
// Config is populated from PG_* environment variables via package config.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// Migrations are embedded in the binary; PG_MIGRATIONS_PATH replaces them with
// a directory on disk. Healthcheck returns a probe for readiness endpoints, and
// IsDuplicateKeyError classifies unique violations (SQLSTATE 23505).
package pg
