package rulestore

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// postgresTestConfig returns a PostgreSQL config when WAVETILES_TEST_POSTGRES
// is set, nil otherwise. Connection fields come from WAVETILES_PG_* with
// local defaults.
func postgresTestConfig() *config.StoreConfig {
	if os.Getenv("WAVETILES_TEST_POSTGRES") == "" {
		return nil
	}
	cfg := config.DefaultStoreConfig()
	cfg.Driver = "postgres"
	cfg.Postgres.Password = "wavetiles"
	cfg.Postgres.Database = "wavetiles_test"
	if v := os.Getenv("WAVETILES_PG_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("WAVETILES_PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("WAVETILES_PG_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	return &cfg
}

// testStores returns a fresh SQLite store plus PostgreSQL when available.
func testStores(t *testing.T) map[string]*Store {
	t.Helper()
	stores := make(map[string]*Store)

	s, err := Open(filepath.Join(t.TempDir(), "rules.db"))
	if err != nil {
		t.Fatalf("Failed to open SQLite store: %v", err)
	}
	stores["sqlite"] = s

	if pg := postgresTestConfig(); pg != nil {
		ps, err := OpenWithConfig(*pg)
		if err != nil {
			t.Logf("PostgreSQL not available: %v", err)
		} else {
			for _, table := range []string{"rules", "rule_set_tiles", "rule_sets"} {
				ps.db.Exec("DELETE FROM " + table)
			}
			stores["postgres"] = ps
		}
	}

	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "rules.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
	if s.Dialect().DriverName() != "sqlite" {
		t.Errorf("driver = %s", s.Dialect().DriverName())
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			rules, err := wfc.ExtractRules(wfc.DefaultSample())
			if err != nil {
				t.Fatal(err)
			}
			domain, err := wfc.ExtractDomain(wfc.DefaultSample(), map[wfc.Tile]string{
				wfc.Sea: "sea", wfc.Coast: "coast", wfc.Land: "land",
			})
			if err != nil {
				t.Fatal(err)
			}

			id, err := s.Save("lake", "extracted from the lake sample", domain, rules)
			if err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			if id <= 0 {
				t.Errorf("Save() id = %d", id)
			}

			gotDomain, gotRules, err := s.Load("LAKE")
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}

			if len(gotDomain.Defs()) != len(domain.Defs()) {
				t.Fatalf("Defs() = %+v, want %+v", gotDomain.Defs(), domain.Defs())
			}
			for i, def := range domain.Defs() {
				if gotDomain.Defs()[i] != def {
					t.Errorf("tile %d = %+v, want %+v", i, gotDomain.Defs()[i], def)
				}
			}
			if gotRules.Len() != rules.Len() {
				t.Fatalf("rule count = %d, want %d", gotRules.Len(), rules.Len())
			}
			for _, r := range rules.Rules() {
				if gotRules.Weight(r) != rules.Weight(r) {
					t.Errorf("rule %s weight = %v, want %v", r, gotRules.Weight(r), rules.Weight(r))
				}
			}
		})
	}
}

func TestSave_DuplicateName(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Save("coast", "", wfc.DefaultDomain(), wfc.DefaultRules()); err != nil {
				t.Fatal(err)
			}
			_, err := s.Save("Coast", "", wfc.DefaultDomain(), wfc.DefaultRules())
			if !errors.Is(err, ErrExists) {
				t.Errorf("second Save() error = %v, want ErrExists", err)
			}
		})
	}
}

func TestSave_RejectsRulesOutsideDomain(t *testing.T) {
	s := testStores(t)["sqlite"]
	rules := wfc.NewRuleSet()
	_ = rules.Allow(wfc.Sea, wfc.Tile(9))

	_, err := s.Save("broken", "", wfc.DefaultDomain(), rules)
	if !errors.Is(err, wfc.ErrInvalidRule) {
		t.Errorf("Save() error = %v, want ErrInvalidRule", err)
	}
	if list, _ := s.List(); len(list) != 0 {
		t.Errorf("invalid rule set was stored: %+v", list)
	}
}

func TestLoad_NotFound(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, _, err := s.Load("missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestListAndDelete(t *testing.T) {
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Save("zeta", "second", wfc.DefaultDomain(), wfc.DefaultRules()); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Save("alpha", "first", wfc.DefaultDomain(), wfc.DefaultRules()); err != nil {
				t.Fatal(err)
			}

			list, err := s.List()
			if err != nil {
				t.Fatalf("List() error: %v", err)
			}
			if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "zeta" {
				t.Fatalf("List() = %+v", list)
			}
			if list[0].Tiles != 3 || list[0].Rules != 28 || list[0].Description != "first" {
				t.Errorf("alpha summary = %+v", list[0])
			}
			if list[0].CreatedAt.IsZero() {
				t.Error("CreatedAt not parsed")
			}

			if err := s.Delete("alpha"); err != nil {
				t.Fatalf("Delete() error: %v", err)
			}
			if err := s.Delete("alpha"); !errors.Is(err, ErrNotFound) {
				t.Errorf("second Delete() error = %v, want ErrNotFound", err)
			}
			if _, _, err := s.Load("alpha"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Load after Delete error = %v", err)
			}

			var orphans int
			if err := s.db.QueryRow("SELECT COUNT(*) FROM rules").Scan(&orphans); err != nil {
				t.Fatal(err)
			}
			if orphans != 28 {
				t.Errorf("rules left = %d, want 28 (zeta only)", orphans)
			}
		})
	}
}

func TestLoadedRulesDriveEngine(t *testing.T) {
	s := testStores(t)["sqlite"]
	if _, err := s.Save("coastline", "", wfc.DefaultDomain(), wfc.DefaultRules()); err != nil {
		t.Fatal(err)
	}
	domain, rules, err := s.Load("coastline")
	if err != nil {
		t.Fatal(err)
	}

	e, err := wfc.NewEngine(wfc.Config{Rows: 6, Cols: 6, Domain: domain, Rules: rules, Seed: 4})
	if err != nil {
		t.Fatal(err)
	}
	e.Run()
	if v := wfc.Violations(e.Grid(), rules); len(v) != 0 {
		t.Errorf("violations after run: %+v", v)
	}
}
