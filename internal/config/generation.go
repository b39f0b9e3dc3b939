package config

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/lawnchairsociety/wavetiles/internal/wfc"
	"gopkg.in/yaml.v3"
)

// GenerationConfig describes one generation run: grid size, seed, the tile
// domain, adjacency rules and how to seed the grid.
type GenerationConfig struct {
	Rows int   `yaml:"rows"`
	Cols int   `yaml:"cols"`
	Seed int64 `yaml:"seed"`

	// Tiles declares the domain in order. Empty means the built-in
	// sea/coast/land set.
	Tiles []TileConfig `yaml:"tiles"`

	// Rules are declared adjacencies. They are merged with any rules
	// extracted from Sample.
	Rules []RuleConfig `yaml:"rules"`

	// Sample is an example map, one string per row. A row containing spaces
	// is split into tile names; otherwise each character is a glyph.
	Sample []string `yaml:"sample"`

	// SampleWeights replaces the weight of each tile seen in Sample with its
	// occurrence count.
	SampleWeights bool `yaml:"sample_weights"`

	Initial *PlacementConfig `yaml:"initial"`

	// Cascade keeps propagating from cells that propagation resolved.
	Cascade bool `yaml:"cascade"`
}

// TileConfig declares one tile.
type TileConfig struct {
	ID     *int     `yaml:"id"` // defaults to the position in the list
	Name   string   `yaml:"name"`
	Weight *float64 `yaml:"weight"` // defaults to 1; must be positive when set
	Glyph  string   `yaml:"glyph"`
	Color  string   `yaml:"color"` // colour name or #rrggbb
}

// RuleConfig declares that Source may sit in each of Directions relative to
// Target. No directions means all four.
type RuleConfig struct {
	Source     string   `yaml:"source"`
	Target     string   `yaml:"target"`
	Directions []string `yaml:"directions"`
	Weight     float64  `yaml:"weight"`

	// Symmetric also allows Target in the same directions relative to Source.
	Symmetric bool `yaml:"symmetric"`
}

// PlacementConfig pre-collapses one cell by tile name.
type PlacementConfig struct {
	Row  int    `yaml:"row"`
	Col  int    `yaml:"col"`
	Tile string `yaml:"tile"`
}

// TileStyle is how a tile is drawn by the text and terminal renderers.
type TileStyle struct {
	Name  string
	Glyph rune
	Color string
}

func weight(w float64) *float64 { return &w }

var defaultTiles = []TileConfig{
	{Name: "sea", Weight: weight(1.0), Glyph: "~", Color: "#1e64c8"},
	{Name: "coast", Weight: weight(0.5), Glyph: ".", Color: "#dcc878"},
	{Name: "land", Weight: weight(0.5), Glyph: "#", Color: "#32a03c"},
}

// DefaultGeneration returns a 12x24 coastline run.
func DefaultGeneration() *GenerationConfig {
	return &GenerationConfig{Rows: 12, Cols: 24, Seed: 1}
}

// LoadGeneration reads a generation config. Unlike the server config the
// file must exist.
func LoadGeneration(path string) (*GenerationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultGeneration()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse generation config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *GenerationConfig) tiles() []TileConfig {
	if len(c.Tiles) == 0 {
		return defaultTiles
	}
	return c.Tiles
}

func (t TileConfig) id(pos int) wfc.Tile {
	if t.ID != nil {
		return wfc.Tile(*t.ID)
	}
	return wfc.Tile(pos)
}

// Domain builds the tile domain, applying sample weights when asked to.
func (c *GenerationConfig) Domain() (*wfc.Domain, error) {
	tiles := c.tiles()
	defs := make([]wfc.TileDef, len(tiles))
	for i, t := range tiles {
		w := 1.0
		if t.Weight != nil {
			w = *t.Weight
		}
		defs[i] = wfc.TileDef{ID: t.id(i), Name: t.Name, Weight: w}
	}

	if c.SampleWeights && len(c.Sample) > 0 {
		sample, err := c.sample()
		if err != nil {
			return nil, err
		}
		counts := make(map[wfc.Tile]int)
		for _, t := range sample.Tiles {
			counts[t]++
		}
		for i := range defs {
			if n := counts[defs[i].ID]; n > 0 {
				defs[i].Weight = float64(n)
			}
		}
	}

	return wfc.NewDomain(defs...)
}

// lookup resolves a tile by name or glyph.
func (c *GenerationConfig) lookup(token string) (wfc.Tile, bool) {
	token = strings.TrimSpace(token)
	for i, t := range c.tiles() {
		if strings.EqualFold(t.Name, token) || (t.Glyph != "" && t.Glyph == token) {
			return t.id(i), true
		}
		if t.Name == "" && token == fmt.Sprint(int(t.id(i))) {
			return t.id(i), true
		}
	}
	return wfc.NoTile, false
}

func (c *GenerationConfig) sample() (wfc.Sample, error) {
	var cells []wfc.Tile
	cols := -1
	for r, row := range c.Sample {
		var tokens []string
		if strings.ContainsAny(row, " \t") {
			tokens = strings.Fields(row)
		} else {
			for _, ch := range row {
				tokens = append(tokens, string(ch))
			}
		}
		if cols < 0 {
			cols = len(tokens)
		} else if len(tokens) != cols {
			return wfc.Sample{}, fmt.Errorf("%w: sample row %d has %d cells, want %d", wfc.ErrDimension, r, len(tokens), cols)
		}
		for _, tok := range tokens {
			t, ok := c.lookup(tok)
			if !ok {
				return wfc.Sample{}, fmt.Errorf("%w: sample row %d uses unknown tile %q", wfc.ErrInvalidDomain, r, tok)
			}
			cells = append(cells, t)
		}
	}
	return wfc.NewSample(len(c.Sample), cols, cells)
}

// RuleSet builds the declared rules and merges in any extracted from the
// sample. With neither, the built-in coastline rules apply to the built-in
// domain; a custom domain must bring its own rules.
func (c *GenerationConfig) RuleSet() (*wfc.RuleSet, error) {
	rs := wfc.NewRuleSet()

	for i, rc := range c.Rules {
		src, ok := c.lookup(rc.Source)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d: unknown source tile %q", wfc.ErrInvalidRule, i, rc.Source)
		}
		dst, ok := c.lookup(rc.Target)
		if !ok {
			return nil, fmt.Errorf("%w: rule %d: unknown target tile %q", wfc.ErrInvalidRule, i, rc.Target)
		}
		dirs := wfc.AllDirections()
		if len(rc.Directions) > 0 {
			dirs = nil
			for _, name := range rc.Directions {
				d, err := wfc.ParseDirection(name)
				if err != nil {
					return nil, fmt.Errorf("rule %d: %w", i, err)
				}
				dirs = append(dirs, d)
			}
		}
		w := rc.Weight
		if w == 0 {
			w = 1
		}
		for _, d := range dirs {
			if err := rs.Add(wfc.Rule{Source: src, Target: dst, Dir: d}, w); err != nil {
				return nil, fmt.Errorf("rule %d: %w", i, err)
			}
			if rc.Symmetric && src != dst {
				if err := rs.Add(wfc.Rule{Source: dst, Target: src, Dir: d}, w); err != nil {
					return nil, fmt.Errorf("rule %d: %w", i, err)
				}
			}
		}
	}

	if len(c.Sample) > 0 {
		sample, err := c.sample()
		if err != nil {
			return nil, err
		}
		extracted, err := wfc.ExtractRules(sample)
		if err != nil {
			return nil, err
		}
		rs.Merge(extracted)
	}

	if rs.Len() == 0 {
		if len(c.Tiles) > 0 {
			return nil, fmt.Errorf("%w: no rules declared and no sample given", wfc.ErrInvalidRule)
		}
		return wfc.DefaultRules(), nil
	}
	return rs, nil
}

// Build turns the config into an engine configuration.
func (c *GenerationConfig) Build() (wfc.Config, error) {
	domain, err := c.Domain()
	if err != nil {
		return wfc.Config{}, err
	}
	rules, err := c.RuleSet()
	if err != nil {
		return wfc.Config{}, err
	}
	if err := rules.Validate(domain); err != nil {
		return wfc.Config{}, err
	}

	cfg := wfc.Config{
		Rows:    c.Rows,
		Cols:    c.Cols,
		Domain:  domain,
		Rules:   rules,
		Seed:    c.Seed,
		Cascade: c.Cascade,
	}
	if c.Initial != nil {
		t, ok := c.lookup(c.Initial.Tile)
		if !ok {
			return wfc.Config{}, fmt.Errorf("%w: initial tile %q", wfc.ErrInvalidDomain, c.Initial.Tile)
		}
		cfg.Initial = &wfc.Placement{Row: c.Initial.Row, Col: c.Initial.Col, Tile: t}
	}
	return cfg, nil
}

// Styles returns the drawing style of every declared tile. Tiles without a
// glyph use the first letter of their name.
func (c *GenerationConfig) Styles() map[wfc.Tile]TileStyle {
	out := make(map[wfc.Tile]TileStyle)
	for i, t := range c.tiles() {
		s := TileStyle{Name: t.Name, Color: t.Color}
		if r, _ := utf8.DecodeRuneInString(t.Glyph); t.Glyph != "" {
			s.Glyph = r
		} else if r, _ := utf8.DecodeRuneInString(t.Name); t.Name != "" {
			s.Glyph = r
		} else {
			s.Glyph = '?'
		}
		out[t.id(i)] = s
	}
	return out
}
