package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/aliuyar1234/printshop/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// RunMigrations applies every embedded migration that is not yet recorded
// in schema_migrations. Each file runs in its own transaction.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	return runMigrations(ctx, pool, migrations.FS)
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, source fs.FS) error {
	logger := log.With().Str("component", "migrations").Logger()

	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	files, err := PendingMigrations(ctx, pool, source)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		logger.Info().Msg("Schema is up to date")
		return nil
	}

	for _, name := range files {
		logger.Info().Str("migration", name).Msg("Applying migration")
		if err := applyMigration(ctx, pool, source, name); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}

	logger.Info().Int("applied", len(files)).Msg("Migrations applied")
	return nil
}

// Pending lists the embedded migrations not yet applied to pool.
func Pending(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	if err := ensureMigrationsTable(ctx, pool); err != nil {
		return nil, err
	}
	return PendingMigrations(ctx, pool, migrations.FS)
}

func ensureMigrationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// PendingMigrations lists migration files in source that have not been applied.
func PendingMigrations(ctx context.Context, pool *pgxpool.Pool, source fs.FS) ([]string, error) {
	names, err := migrationFiles(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration files: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows: %w", err)
	}

	var pending []string
	for _, name := range names {
		if _, ok := applied[name]; !ok {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

func migrationFiles(source fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, source fs.FS, name string) error {
	content, err := fs.ReadFile(source, name)
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	// Simple protocol so a file may hold several statements.
	script := "BEGIN;\n" + string(content) + "\nINSERT INTO schema_migrations (version) VALUES ('" +
		strings.ReplaceAll(name, "'", "''") + "');\nCOMMIT;"
	if _, err := conn.Conn().PgConn().Exec(ctx, script).ReadAll(); err != nil {
		_, _ = conn.Conn().PgConn().Exec(ctx, "ROLLBACK").ReadAll()
		return err
	}
	return nil
}
