package migrate

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	log "github.com/sirupsen/logrus"
)

//go:embed sql/*.sql
var migrations embed.FS

const migrationDir = "sql"

// PostgresUp applies the catalog schema migrations.
func PostgresUp(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationDir); err != nil {
		if errors.Is(err, goose.ErrNoNextVersion) {
			log.Info("No migrations to apply")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	log.Info("Database migrations applied successfully")
	return nil
}

// PostgresDown rolls back every catalog schema migration.
func PostgresDown(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.ResetContext(ctx, db, migrationDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func setupGoose() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return nil
}
