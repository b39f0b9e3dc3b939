package wfc

import "fmt"

// Grid is the working state of a generation run: a flat, row-major array of
// candidate sets over a Domain.
type Grid struct {
	rows, cols int
	domain     *Domain
	cells      []TileSet
}

// maxCells bounds rows*cols for any grid.
const maxCells = 1 << 28

// NewGrid allocates a rows x cols grid with every cell fully superposed.
func NewGrid(rows, cols int, domain *Domain) (*Grid, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: grid is %dx%d", ErrDimension, rows, cols)
	}
	if rows > maxCells/cols {
		return nil, fmt.Errorf("%w: %dx%d grid is too large", ErrDimension, rows, cols)
	}
	if domain == nil {
		return nil, fmt.Errorf("%w: nil domain", ErrInvalidDomain)
	}
	g := &Grid{
		rows:   rows,
		cols:   cols,
		domain: domain,
		cells:  make([]TileSet, rows*cols),
	}
	g.fill()
	return g, nil
}

func (g *Grid) fill() {
	full := g.domain.Full()
	for i := range g.cells {
		g.cells[i] = full
	}
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Len returns the number of cells.
func (g *Grid) Len() int { return len(g.cells) }

// Domain returns the tile domain of the grid.
func (g *Grid) Domain() *Domain { return g.domain }

// Index converts a position to a linear cell index.
func (g *Grid) Index(row, col int) int { return row*g.cols + col }

// Position converts a linear cell index to a position.
func (g *Grid) Position(i int) (row, col int) { return i / g.cols, i % g.cols }

// InBounds reports whether (row, col) lies inside the grid.
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// Neighbor returns the index of the cell next to i in direction d.
// The grid does not wrap; ok is false at the edges.
func (g *Grid) Neighbor(i int, d Direction) (j int, ok bool) {
	row, col := g.Position(i)
	dr, dc := d.Offset()
	nr, nc := row+dr, col+dc
	if !d.Valid() || !g.InBounds(nr, nc) {
		return -1, false
	}
	return g.Index(nr, nc), true
}

// Count returns the number of candidates left at cell i.
func (g *Grid) Count(i int) int { return g.cells[i].Count() }

// Resolved reports whether cell i has exactly one candidate.
func (g *Grid) Resolved(i int) bool { return g.cells[i].Count() == 1 }

// Tile returns the tile of a resolved cell, or NoTile while it is superposed.
func (g *Grid) Tile(i int) Tile {
	s := g.cells[i]
	if s.Count() != 1 {
		return NoTile
	}
	return g.domain.defs[s.First()].ID
}

// Candidates returns the tiles still possible at cell i, in domain order.
func (g *Grid) Candidates(i int) []Tile {
	s := g.cells[i]
	out := make([]Tile, 0, s.Count())
	for p, def := range g.domain.defs {
		if s.Has(p) {
			out = append(out, def.ID)
		}
	}
	return out
}

// Set returns the raw candidate set of cell i.
func (g *Grid) Set(i int) TileSet { return g.cells[i] }

// Tiles returns one tile per cell, NoTile for superposed cells.
func (g *Grid) Tiles() []Tile {
	out := make([]Tile, len(g.cells))
	for i := range g.cells {
		out[i] = g.Tile(i)
	}
	return out
}

// Done reports whether every cell is resolved.
func (g *Grid) Done() bool {
	for _, s := range g.cells {
		if s.Count() > 1 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the grid.
func (g *Grid) Clone() *Grid {
	c := *g
	c.cells = make([]TileSet, len(g.cells))
	copy(c.cells, g.cells)
	return &c
}
