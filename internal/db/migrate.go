package db

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

// Direction selects which way RunMigrations moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// RunMigrations applies the embedded migrations against the database.
func RunMigrations(config Config, direction Direction, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	source, err := iofs.New(MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, config.URL())
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogAdapter{logger: logger}

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		err = fmt.Errorf("unknown migration direction %q", direction)
	}
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		logger.Warn("error closing migration source", zap.Error(srcErr))
	}
	if dbErr != nil {
		logger.Warn("error closing migration database connection", zap.Error(dbErr))
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no database schema changes to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("database migrations completed", zap.String("direction", string(direction)))
	return nil
}

type migrateLogAdapter struct {
	logger *zap.Logger
}

func (l *migrateLogAdapter) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *migrateLogAdapter) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}
