package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// View draws an engine's grid with a status line underneath.
type View struct {
	screen  *Screen
	palette Palette
}

// NewView creates a view drawing onto screen.
func NewView(screen *Screen, palette Palette) *View {
	return &View{screen: screen, palette: palette}
}

// Draw renders the grid, the status line and an optional message below it.
// Cells outside the terminal are clipped.
func (v *View) Draw(e *wfc.Engine, seed int64, message string) {
	v.screen.Clear()
	g := e.Grid()
	width, height := v.screen.Size()

	superposed := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for r := 0; r < g.Rows() && r < height; r++ {
		for c := 0; c < g.Cols() && c < width; c++ {
			i := g.Index(r, c)
			style := superposed
			if t := g.Tile(i); t != wfc.NoTile {
				style = tcell.StyleDefault.Foreground(v.palette[t].Color)
			}
			v.screen.SetContent(c, r, CellGlyph(g, v.palette, i), style)
		}
	}

	status := fmt.Sprintf("%s  seed=%d  rounds=%d  suppressed=%d  [space] step [enter] run [r] reset [q] quit",
		e.State(), seed, e.Rounds(), e.Suppressed())
	v.line(g.Rows()+1, status, tcell.StyleDefault.Foreground(tcell.ColorWhite))
	if message != "" {
		v.line(g.Rows()+2, message, tcell.StyleDefault.Foreground(tcell.ColorYellow))
	}

	v.screen.Show()
}

func (v *View) line(y int, msg string, style tcell.Style) {
	x := 0
	for _, ch := range msg {
		v.screen.SetContent(x, y, ch, style)
		x++
	}
}
