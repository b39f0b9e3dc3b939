// Package export writes finished grids and rule sets as YAML documents.
// Rule documents use the generation config layout, so an exported rule set
// can be fed straight back to the generator.
package export

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/wavetiles/internal/render"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// GridDocument is the YAML form of a generated grid.
type GridDocument struct {
	Rows       int         `yaml:"rows"`
	Cols       int         `yaml:"cols"`
	Seed       int64       `yaml:"seed"`
	State      string      `yaml:"state"`
	Rounds     int         `yaml:"rounds"`
	Suppressed int         `yaml:"suppressed"`
	Legend     []LegendRow `yaml:"legend"`
	Grid       []string    `yaml:"grid"`
}

// LegendRow maps a glyph back to its tile.
type LegendRow struct {
	Glyph string `yaml:"glyph"`
	Tile  string `yaml:"tile"`
	ID    int    `yaml:"id"`
}

// RulesDocument is the YAML form of a domain plus rule set.
type RulesDocument struct {
	Tiles []TileEntry `yaml:"tiles"`
	Rules []RuleEntry `yaml:"rules"`
}

type TileEntry struct {
	ID     int     `yaml:"id"`
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
	Glyph  string  `yaml:"glyph,omitempty"`
}

type RuleEntry struct {
	Source     string   `yaml:"source"`
	Target     string   `yaml:"target"`
	Directions []string `yaml:"directions,flow"`
	Weight     float64  `yaml:"weight"`
}

// NewGridDocument captures the current state of e.
func NewGridDocument(e *wfc.Engine, seed int64, p render.Palette) *GridDocument {
	g := e.Grid()
	doc := &GridDocument{
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Seed:       seed,
		State:      e.State().String(),
		Rounds:     e.Rounds(),
		Suppressed: e.Suppressed(),
		Grid:       render.Rows(g, p),
	}
	for _, def := range e.Domain().Defs() {
		doc.Legend = append(doc.Legend, LegendRow{
			Glyph: string(p.Glyph(def.ID)),
			Tile:  def.Name,
			ID:    int(def.ID),
		})
	}
	return doc
}

// WriteGrid writes the grid of e with a short header comment.
func WriteGrid(w io.Writer, e *wfc.Engine, seed int64, p render.Palette) error {
	doc := NewGridDocument(e, seed, p)

	fmt.Fprintf(w, "# Grid %dx%d\n", doc.Rows, doc.Cols)
	fmt.Fprintf(w, "# Generated with seed: %d\n", doc.Seed)
	fmt.Fprintf(w, "# Rounds: %d, suppressed: %d\n\n", doc.Rounds, doc.Suppressed)

	return encode(w, doc)
}

// NewRulesDocument converts a domain and rule set to a document. Rules are
// emitted in the rule set's deterministic order, one direction per entry.
func NewRulesDocument(d *wfc.Domain, rs *wfc.RuleSet, p render.Palette) *RulesDocument {
	doc := &RulesDocument{}
	for _, def := range d.Defs() {
		entry := TileEntry{ID: int(def.ID), Name: def.Name, Weight: def.Weight}
		if e, ok := p[def.ID]; ok && e.Glyph != 0 {
			entry.Glyph = string(e.Glyph)
		}
		doc.Tiles = append(doc.Tiles, entry)
	}
	for _, r := range rs.Rules() {
		doc.Rules = append(doc.Rules, RuleEntry{
			Source:     tileRef(d, r.Source),
			Target:     tileRef(d, r.Target),
			Directions: []string{r.Dir.String()},
			Weight:     rs.Weight(r),
		})
	}
	return doc
}

// WriteRules writes a domain and rule set in generation config layout.
func WriteRules(w io.Writer, d *wfc.Domain, rs *wfc.RuleSet, p render.Palette) error {
	fmt.Fprintf(w, "# %d tiles, %d rules\n\n", d.Len(), rs.Len())
	return encode(w, NewRulesDocument(d, rs, p))
}

// tileRef names t the way the config loader resolves it.
func tileRef(d *wfc.Domain, t wfc.Tile) string {
	for _, def := range d.Defs() {
		if def.ID == t && def.Name != "" {
			return def.Name
		}
	}
	return strconv.Itoa(int(t))
}

func encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
