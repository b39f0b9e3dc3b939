// Package render draws generation grids as plain text, ANSI-coloured text or
// onto a tcell screen.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// Entry is how one tile is drawn.
type Entry struct {
	Name  string
	Glyph rune
	Color tcell.Color
}

// Palette maps tiles to their drawing entry.
type Palette map[wfc.Tile]Entry

// NewPalette resolves the colour of every style. Colours may be tcell/W3C
// names ("navy") or hex ("#1e64c8"); empty means the terminal default.
func NewPalette(styles map[wfc.Tile]config.TileStyle) (Palette, error) {
	p := make(Palette, len(styles))
	for t, s := range styles {
		c, err := ParseColor(s.Color)
		if err != nil {
			return nil, fmt.Errorf("tile %s: %w", s.Name, err)
		}
		p[t] = Entry{Name: s.Name, Glyph: s.Glyph, Color: c}
	}
	return p, nil
}

// Glyph returns the glyph of t, or '?' if t has no entry.
func (p Palette) Glyph(t wfc.Tile) rune {
	if e, ok := p[t]; ok && e.Glyph != 0 {
		return e.Glyph
	}
	return '?'
}

// ParseColor converts a colour name or a hex string to a tcell.Color.
func ParseColor(s string) (tcell.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return tcell.ColorDefault, nil
	}
	if strings.HasPrefix(s, "#") {
		return ParseHexColor(s)
	}
	c := tcell.GetColor(strings.ToLower(s))
	if c == tcell.ColorDefault {
		return tcell.ColorDefault, fmt.Errorf("unknown colour %q", s)
	}
	return c, nil
}

// ParseHexColor converts "#rrggbb" (or "rrggbb") to a tcell.Color.
func ParseHexColor(hex string) (tcell.Color, error) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color length: %s", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color %s: %w", hex, err)
	}
	return tcell.NewRGBColor(int32(v>>16&0xff), int32(v>>8&0xff), int32(v&0xff)), nil
}

// PaletteFor builds a palette covering every tile of d. Tiles without a
// style are drawn uncoloured with the first letter of their name.
func PaletteFor(d *wfc.Domain, styles map[wfc.Tile]config.TileStyle) (Palette, error) {
	p, err := NewPalette(styles)
	if err != nil {
		return nil, err
	}
	for _, def := range d.Defs() {
		if _, ok := p[def.ID]; ok {
			continue
		}
		glyph, _ := utf8.DecodeRuneInString(def.Name)
		p[def.ID] = Entry{Name: def.Name, Glyph: glyph, Color: tcell.ColorDefault}
	}
	return p, nil
}
