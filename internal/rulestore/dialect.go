package rulestore

import (
	"database/sql"

	"github.com/lawnchairsociety/wavetiles/internal/config"
)

// Dialect hides the SQL differences between SQLite and PostgreSQL. Queries
// are written with ? placeholders and passed through Rebind.
type Dialect interface {
	// DriverName returns the driver name for sql.Open().
	DriverName() string

	// DataSource returns the DSN for cfg, preparing anything the driver
	// needs on disk.
	DataSource(cfg config.StoreConfig) (string, error)

	// ConfigurePool applies connection pool limits.
	ConfigurePool(db *sql.DB, cfg config.StoreConfig)

	// InitStatements run once per connection pool before migrations.
	InitStatements() []string

	// Rebind rewrites ? placeholders into the driver's form.
	Rebind(query string) string

	// InsertID runs an INSERT into a table with an "id" key and returns the
	// new id.
	InsertID(tx *sql.Tx, query string, args ...any) (int64, error)

	// IsDuplicateKeyError reports whether err is a unique constraint violation.
	IsDuplicateKeyError(err error) bool

	// SerialPrimaryKey is the column definition of an auto-incrementing id.
	SerialPrimaryKey() string

	// CaseInsensitiveText is the column type for names compared without case.
	CaseInsensitiveText() string
}

// NewDialect returns the dialect for a store driver name. Anything other
// than "postgres" gets SQLite.
func NewDialect(driver string) Dialect {
	if driver == "postgres" {
		return &PostgresDialect{}
	}
	return &SQLiteDialect{}
}
