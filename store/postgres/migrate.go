package postgres

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Dorico-Dynamics/txova-tcc/internal/logging"
)

// MigratorConfig holds configuration for the migration runner, adapted
// from txova-go-db/postgres.MigratorConfig.
type MigratorConfig struct {
	TableName      string
	MigrationsPath string
	Logger         *logging.Logger
}

// DefaultMigratorConfig returns a default configuration.
func DefaultMigratorConfig() MigratorConfig {
	return MigratorConfig{
		TableName:      "schema_migrations",
		MigrationsPath: ".",
		Logger:         logging.Default(),
	}
}

// MigratorOption is a functional option for configuring the Migrator.
type MigratorOption func(*MigratorConfig)

func WithMigrationsTable(name string) MigratorOption {
	return func(c *MigratorConfig) { c.TableName = name }
}

func WithMigratorLogger(logger *logging.Logger) MigratorOption {
	return func(c *MigratorConfig) { c.Logger = logger }
}

// Migrator applies the transactions/transaction_participants schema
// using golang-migrate, exactly as txova-go-db does for its own schemas.
type Migrator struct {
	config  MigratorConfig
	migrate *migrate.Migrate
}

// NewMigrator creates a Migrator over pool and an fs.FS containing
// NNNN_description.{up,down}.sql migration files (see store/postgres/migrations).
func NewMigrator(pool *pgxpool.Pool, migrations fs.FS, opts ...MigratorOption) (*Migrator, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	if migrations == nil {
		return nil, fmt.Errorf("migrations filesystem cannot be nil")
	}

	config := DefaultMigratorConfig()
	for _, opt := range opts {
		opt(&config)
	}

	sourceDriver, err := iofs.New(migrations, config.MigrationsPath)
	if err != nil {
		return nil, fmt.Errorf("creating migration source: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	dbDriver, err := pgx.WithInstance(db, &pgx.Config{MigrationsTable: config.TableName})
	if err != nil {
		return nil, fmt.Errorf("creating database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "pgx5", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("creating migrate instance: %w", err)
	}

	return &Migrator{config: config, migrate: m}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	start := time.Now()
	err := m.migrate.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running up migrations: %w", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		m.config.Logger.Info("no pending migrations")
		return nil
	}
	m.config.Logger.Info("up migrations completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Down rolls back all migrations.
func (m *Migrator) Down() error {
	err := m.migrate.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running down migrations: %w", err)
	}
	return nil
}

// Version returns the current migration version.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, fmt.Errorf("getting migration version: %w", err)
	}
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, nil
}

// Close releases resources held by the migrator.
func (m *Migrator) Close() error {
	if m.migrate == nil {
		return nil
	}
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing source driver: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing database driver: %w", dbErr)
	}
	return nil
}
