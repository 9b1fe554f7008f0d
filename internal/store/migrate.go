package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is a named pair of up and down SQL scripts
type Migration struct {
	Name     string
	Up       string
	Down     string
	Checksum string
}

// MigrationStatus describes whether a migration has been applied
type MigrationStatus struct {
	Name    string
	Applied bool
	Batch   int
}

// LoadMigrations reads NAME.up.sql / NAME.down.sql pairs from dir, ordered
// by name. Names carry a timestamp prefix so lexical order is apply order.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byName := make(map[string]*Migration)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}

		base := strings.TrimSuffix(e.Name(), ".sql")
		var name, direction string
		switch {
		case strings.HasSuffix(base, ".up"):
			name, direction = strings.TrimSuffix(base, ".up"), "up"
		case strings.HasSuffix(base, ".down"):
			name, direction = strings.TrimSuffix(base, ".down"), "down"
		default:
			return nil, fmt.Errorf("migration %s must end in .up.sql or .down.sql", e.Name())
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", e.Name(), err)
		}

		m, ok := byName[name]
		if !ok {
			m = &Migration{Name: name}
			byName[name] = m
		}
		if direction == "up" {
			m.Up = string(content)
			m.Checksum = fmt.Sprintf("%x", sha256.Sum256(content))
		} else {
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byName))
	for _, m := range byName {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up script", m.Name)
		}
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Name < migrations[j].Name
	})

	return migrations, nil
}

// Migrator applies and rolls back schema migrations in batches
type Migrator struct {
	db         *sql.DB
	migrations []Migration
	logger     *zap.Logger
}

// NewMigrator creates a Migrator over the embedded migrations
func NewMigrator(db *sql.DB, logger *zap.Logger) (*Migrator, error) {
	migrations, err := LoadMigrations(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, migrations: migrations, logger: logger}, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS payload_migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR NOT NULL UNIQUE,
			batch INTEGER NOT NULL,
			checksum VARCHAR(64) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := m.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

type appliedMigration struct {
	batch    int
	checksum string
}

func (m *Migrator) applied(ctx context.Context) (map[string]appliedMigration, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name, batch, checksum FROM payload_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]appliedMigration)
	for rows.Next() {
		var name string
		var a appliedMigration
		if err := rows.Scan(&name, &a.batch, &a.checksum); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		applied[name] = a
	}
	return applied, rows.Err()
}

// Up applies every pending migration as one new batch
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	batch := 0
	for _, a := range applied {
		if a.batch > batch {
			batch = a.batch
		}
	}
	batch++

	var ran []string
	for _, mig := range m.migrations {
		if a, ok := applied[mig.Name]; ok {
			if a.checksum != mig.Checksum {
				return ran, fmt.Errorf("migration %s was modified after being applied", mig.Name)
			}
			continue
		}

		err := m.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, mig.Up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO payload_migrations (name, batch, checksum) VALUES ($1, $2, $3)`,
				mig.Name, batch, mig.Checksum)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("failed to apply migration %s: %w", mig.Name, err)
		}

		m.logger.Info("Applied migration", zap.String("name", mig.Name), zap.Int("batch", batch))
		ran = append(ran, mig.Name)
	}

	return ran, nil
}

// Down rolls back the most recent batch in reverse order
func (m *Migrator) Down(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	batch := 0
	for _, a := range applied {
		if a.batch > batch {
			batch = a.batch
		}
	}
	if batch == 0 {
		return nil, nil
	}

	var rolled []string
	for i := len(m.migrations) - 1; i >= 0; i-- {
		mig := m.migrations[i]
		if a, ok := applied[mig.Name]; !ok || a.batch != batch {
			continue
		}

		err := m.inTx(ctx, func(tx *sql.Tx) error {
			if mig.Down != "" {
				if _, err := tx.ExecContext(ctx, mig.Down); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx, `DELETE FROM payload_migrations WHERE name = $1`, mig.Name)
			return err
		})
		if err != nil {
			return rolled, fmt.Errorf("failed to roll back migration %s: %w", mig.Name, err)
		}

		m.logger.Info("Rolled back migration", zap.String("name", mig.Name), zap.Int("batch", batch))
		rolled = append(rolled, mig.Name)
	}

	return rolled, nil
}

// Status lists every known migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, len(m.migrations))
	for i, mig := range m.migrations {
		a, ok := applied[mig.Name]
		statuses[i] = MigrationStatus{Name: mig.Name, Applied: ok, Batch: a.batch}
	}
	return statuses, nil
}

func (m *Migrator) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
