package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"tgdrive/internal/repository/postgres/migrations"
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// gooseRunContext is a seam for testing goose.RunContext.
var gooseRunContext = goose.RunContext

// openDBFromPool is a seam for testing.
var openDBFromPool = stdlib.OpenDBFromPool

// RunMigrations applies the embedded goose migrations through the pool
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	db := openDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")

	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrationCommands are the goose commands MigrateCommand accepts
var MigrationCommands = []string{"up", "down", "reset", "status", "version"}

// MigrateCommand runs one goose command against the embedded migrations.
// "reset" rolls back every migration and drops all drive data.
func MigrateCommand(ctx context.Context, pool *pgxpool.Pool, command string) error {
	if !slices.Contains(MigrationCommands, command) {
		return fmt.Errorf("unknown migration command %q", command)
	}

	db := openDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")

	if err := gooseRunContext(ctx, command, db, "."); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}
