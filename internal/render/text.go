package render

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// CellGlyph is the glyph for cell i: the tile glyph once resolved, otherwise
// the number of remaining candidates ('+' above nine).
func CellGlyph(g *wfc.Grid, p Palette, i int) rune {
	if t := g.Tile(i); t != wfc.NoTile {
		return p.Glyph(t)
	}
	n := g.Count(i)
	if n > 9 {
		return '+'
	}
	return rune('0' + n)
}

// Rows renders g as one string per row.
func Rows(g *wfc.Grid, p Palette) []string {
	out := make([]string, g.Rows())
	var b strings.Builder
	for r := 0; r < g.Rows(); r++ {
		b.Reset()
		for c := 0; c < g.Cols(); c++ {
			b.WriteRune(CellGlyph(g, p, g.Index(r, c)))
		}
		out[r] = b.String()
	}
	return out
}

// Text renders g as newline-terminated rows.
func Text(g *wfc.Grid, p Palette) string {
	return strings.Join(Rows(g, p), "\n") + "\n"
}

// ANSI renders g with 24-bit foreground colours. Tiles with the default
// colour and superposed cells are written uncoloured.
func ANSI(g *wfc.Grid, p Palette) string {
	var b strings.Builder
	for r := 0; r < g.Rows(); r++ {
		for c := 0; c < g.Cols(); c++ {
			i := g.Index(r, c)
			glyph := CellGlyph(g, p, i)
			color := tcell.ColorDefault
			if t := g.Tile(i); t != wfc.NoTile {
				color = p[t].Color
			}
			if color == tcell.ColorDefault {
				b.WriteRune(glyph)
				continue
			}
			red, green, blue := color.RGB()
			fmt.Fprintf(&b, "\x1b[38;2;%d;%d;%dm%c\x1b[0m", red, green, blue, glyph)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
