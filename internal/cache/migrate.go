package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate runs all pending cache schema migrations.
func (c *Cache) Migrate(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("%w: database not opened", ErrUnavailable)
	}
	return migrateDB(ctx, c.db)
}

// Version returns the applied schema version.
func (c *Cache) Version() (int64, error) {
	if c.db == nil {
		return 0, fmt.Errorf("%w: database not opened", ErrUnavailable)
	}
	if err := configureGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(c.db)
}

func migrateDB(ctx context.Context, db *sql.DB) error {
	if err := configureGoose(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func configureGoose() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	return nil
}
