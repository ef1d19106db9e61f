package main

import (
	"context"
	"embed"

	"taxi-shifts/db"

	"go.uber.org/zap"
)

// Embed migrations into the binary so `taxi-shifts migrate` works
// regardless of the current working directory.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

func applyMigrations(ctx context.Context, log *zap.Logger) error {
	return db.Migrate(ctx, db.Pool, migrationsFS, "migrations", log)
}
