// Package rulestore keeps a catalogue of named tile domains and adjacency rule
// sets in SQLite or PostgreSQL. Generated grids are never stored.
package rulestore

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/logger"
)

var (
	ErrNotFound = errors.New("rulestore: rule set not found")
	ErrExists   = errors.New("rulestore: rule set already exists")
)

// Store wraps the database connection.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open opens or creates a SQLite store at path.
func Open(path string) (*Store, error) {
	cfg := config.DefaultStoreConfig()
	cfg.SQLitePath = path
	return OpenWithConfig(cfg)
}

// OpenWithConfig opens the store selected by cfg.Driver and runs migrations.
func OpenWithConfig(cfg config.StoreConfig) (*Store, error) {
	dialect := NewDialect(cfg.Driver)

	dsn, err := dialect.DataSource(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	dialect.ConfigurePool(db, cfg)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Rule store opened", "driver", dialect.DriverName())
	return s, nil
}

// q rewrites a ? query for the store's dialect.
func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) migrate() error {
	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS rule_sets (
			id %s,
			name %s UNIQUE NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`, s.dialect.SerialPrimaryKey(), s.dialect.CaseInsensitiveText()),

		`CREATE TABLE IF NOT EXISTS rule_set_tiles (
			rule_set_id BIGINT NOT NULL REFERENCES rule_sets(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			tile_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (rule_set_id, position)
		)`,

		`CREATE TABLE IF NOT EXISTS rules (
			rule_set_id BIGINT NOT NULL REFERENCES rule_sets(id) ON DELETE CASCADE,
			source INTEGER NOT NULL,
			target INTEGER NOT NULL,
			direction TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (rule_set_id, source, target, direction)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_rules_rule_set_id ON rules(rule_set_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
