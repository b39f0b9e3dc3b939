package rulestore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/lawnchairsociety/wavetiles/internal/config"
)

// uniqueViolation is the SQLSTATE for a unique constraint failure.
const uniqueViolation pq.ErrorCode = "23505"

// PostgresDialect implements Dialect for the lib/pq driver.
type PostgresDialect struct{}

func (d *PostgresDialect) DriverName() string { return "postgres" }

func (d *PostgresDialect) DataSource(cfg config.StoreConfig) (string, error) {
	return cfg.Postgres.DSN(), nil
}

func (d *PostgresDialect) ConfigurePool(db *sql.DB, cfg config.StoreConfig) {
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
}

// InitStatements enables citext for case-insensitive rule set names.
func (d *PostgresDialect) InitStatements() []string {
	return []string{"CREATE EXTENSION IF NOT EXISTS citext"}
}

// Rebind numbers placeholders: "name = ? AND id = ?" becomes
// "name = $1 AND id = $2".
func (d *PostgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// InsertID appends RETURNING id; lib/pq does not implement LastInsertId.
func (d *PostgresDialect) InsertID(tx *sql.Tx, query string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRow(query+" RETURNING id", args...).Scan(&id)
	return id, err
}

func (d *PostgresDialect) IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, string(uniqueViolation))
}

func (d *PostgresDialect) SerialPrimaryKey() string {
	return "BIGSERIAL PRIMARY KEY"
}

func (d *PostgresDialect) CaseInsensitiveText() string {
	return "CITEXT"
}
