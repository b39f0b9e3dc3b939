package rulestore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/wavetiles/internal/logger"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// RuleSetInfo summarises a stored rule set.
type RuleSetInfo struct {
	ID          int64
	Name        string
	Description string
	Tiles       int
	Rules       int
	CreatedAt   time.Time
}

// Save stores a domain and its rule set under name. Names are unique without
// regard to case; saving over an existing name returns ErrExists.
func (s *Store) Save(name, description string, domain *wfc.Domain, rules *wfc.RuleSet) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("rulestore: empty rule set name")
	}
	if err := rules.Validate(domain); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.dialect.InsertID(tx, s.q(`INSERT INTO rule_sets (name, description) VALUES (?, ?)`), name, description)
	if err != nil {
		if s.dialect.IsDuplicateKeyError(err) {
			return 0, fmt.Errorf("%w: %q", ErrExists, name)
		}
		return 0, fmt.Errorf("failed to insert rule set: %w", err)
	}

	tileStmt := s.q(`INSERT INTO rule_set_tiles (rule_set_id, position, tile_id, name, weight) VALUES (?, ?, ?, ?, ?)`)
	for pos, def := range domain.Defs() {
		if _, err := tx.Exec(tileStmt, id, pos, int(def.ID), def.Name, def.Weight); err != nil {
			return 0, fmt.Errorf("failed to insert tile %s: %w", def.Name, err)
		}
	}

	ruleStmt := s.q(`INSERT INTO rules (rule_set_id, source, target, direction, weight) VALUES (?, ?, ?, ?, ?)`)
	for _, r := range rules.Rules() {
		if _, err := tx.Exec(ruleStmt, id, int(r.Source), int(r.Target), r.Dir.String(), rules.Weight(r)); err != nil {
			return 0, fmt.Errorf("failed to insert rule %s: %w", r, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Always("Rule set saved", "name", name, "tiles", domain.Len(), "rules", rules.Len())
	return id, nil
}

// Load returns the domain and rule set stored under name.
func (s *Store) Load(name string) (*wfc.Domain, *wfc.RuleSet, error) {
	var id int64
	err := s.db.QueryRow(s.q(`SELECT id FROM rule_sets WHERE name = ?`), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query rule set: %w", err)
	}

	defs, err := s.loadTiles(id)
	if err != nil {
		return nil, nil, err
	}
	domain, err := wfc.NewDomain(defs...)
	if err != nil {
		return nil, nil, fmt.Errorf("stored rule set %q: %w", name, err)
	}

	rules, err := s.loadRules(id)
	if err != nil {
		return nil, nil, err
	}
	if err := rules.Validate(domain); err != nil {
		return nil, nil, fmt.Errorf("stored rule set %q: %w", name, err)
	}
	return domain, rules, nil
}

func (s *Store) loadTiles(id int64) ([]wfc.TileDef, error) {
	rows, err := s.db.Query(s.q(`
		SELECT tile_id, name, weight
		FROM rule_set_tiles
		WHERE rule_set_id = ?
		ORDER BY position`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query tiles: %w", err)
	}
	defer rows.Close()

	var defs []wfc.TileDef
	for rows.Next() {
		var tileID int
		var def wfc.TileDef
		if err := rows.Scan(&tileID, &def.Name, &def.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan tile: %w", err)
		}
		def.ID = wfc.Tile(tileID)
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (s *Store) loadRules(id int64) (*wfc.RuleSet, error) {
	rows, err := s.db.Query(s.q(`
		SELECT source, target, direction, weight
		FROM rules
		WHERE rule_set_id = ?`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rs := wfc.NewRuleSet()
	for rows.Next() {
		var source, target int
		var dirName string
		var weight float64
		if err := rows.Scan(&source, &target, &dirName, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		dir, err := wfc.ParseDirection(dirName)
		if err != nil {
			return nil, err
		}
		if err := rs.Add(wfc.Rule{Source: wfc.Tile(source), Target: wfc.Tile(target), Dir: dir}, weight); err != nil {
			return nil, err
		}
	}
	return rs, rows.Err()
}

// List returns every stored rule set ordered by name.
func (s *Store) List() ([]RuleSetInfo, error) {
	rows, err := s.db.Query(`
		SELECT rs.id, rs.name, rs.description, rs.created_at,
		       (SELECT COUNT(*) FROM rule_set_tiles t WHERE t.rule_set_id = rs.id),
		       (SELECT COUNT(*) FROM rules r WHERE r.rule_set_id = rs.id)
		FROM rule_sets rs
		ORDER BY rs.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rule sets: %w", err)
	}
	defer rows.Close()

	var out []RuleSetInfo
	for rows.Next() {
		var info RuleSetInfo
		var createdAt any
		if err := rows.Scan(&info.ID, &info.Name, &info.Description, &createdAt, &info.Tiles, &info.Rules); err != nil {
			return nil, fmt.Errorf("failed to scan rule set: %w", err)
		}
		info.CreatedAt = parseTimestamp(createdAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes the rule set stored under name.
func (s *Store) Delete(name string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRow(s.q(`SELECT id FROM rule_sets WHERE name = ?`), name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to query rule set: %w", err)
	}

	for _, q := range []string{
		`DELETE FROM rules WHERE rule_set_id = ?`,
		`DELETE FROM rule_set_tiles WHERE rule_set_id = ?`,
		`DELETE FROM rule_sets WHERE id = ?`,
	} {
		if _, err := tx.Exec(s.q(q), id); err != nil {
			return fmt.Errorf("failed to delete rule set: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logger.Always("Rule set deleted", "name", name)
	return nil
}

// parseTimestamp accepts what either driver hands back for a TIMESTAMP column.
func parseTimestamp(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimestampString(t)
	case []byte:
		return parseTimestampString(string(t))
	}
	return time.Time{}
}

func parseTimestampString(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339Nano, "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
