package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/config"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/attendance"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/course"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/session"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// ErrNilConfig is returned when no configuration is supplied
var ErrNilConfig = errors.New("migrations: nil config")

// Models lists every persisted model in dependency order
func Models() []any {
	return []any{&user.User{}, &course.Course{}, &session.Session{}, &attendance.Record{}}
}

// newMigrate builds a migrate instance over the embedded SQL files and a
// lib/pq connection to the configured postgres database.
func newMigrate(cfg *config.Config) (*migrate.Migrate, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration files: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		slog.Warn("Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
	}
}

// RunMigrations applies all pending up migrations. Nothing to apply is not an error.
func RunMigrations(cfg *config.Config) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)
	return nil
}

// Rollback reverts the last steps migrations
func Rollback(cfg *config.Config, steps int) error {
	if steps < 1 {
		return fmt.Errorf("rollback steps must be positive, got %d", steps)
	}

	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	return nil
}

// AutoMigrate creates the schema through gorm. It backs the sqlite driver,
// which the SQL migrations do not target.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to make migrations: %w", err)
	}
	return nil
}

// Apply migrates the schema the way the configured driver needs
func Apply(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil {
		return ErrNilConfig
	}
	if cfg.Database.Driver == "sqlite" {
		return AutoMigrate(db)
	}
	return RunMigrations(cfg)
}
