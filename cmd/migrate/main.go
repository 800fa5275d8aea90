package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tgdrive/internal/config"
	"tgdrive/internal/repository/postgres"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: migrate <%s>\n", strings.Join(postgres.MigrationCommands, "|"))
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if command == "reset" && !cfg.IsDev() {
		log.Fatalf("refusing to reset the %s database", cfg.Environment)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := postgres.MigrateCommand(ctx, pool, command); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	logger.Info("migration command finished", "command", command)
}
