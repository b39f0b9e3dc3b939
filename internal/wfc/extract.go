package wfc

import (
	"fmt"
	"sort"
)

// Sample is a fully resolved example grid used to learn adjacency rules.
type Sample struct {
	Rows, Cols int
	Tiles      []Tile // row-major, len == Rows*Cols
}

// NewSample validates the dimensions against the cell count.
func NewSample(rows, cols int, tiles []Tile) (Sample, error) {
	if rows <= 0 || cols <= 0 {
		return Sample{}, fmt.Errorf("%w: sample is %dx%d", ErrDimension, rows, cols)
	}
	if len(tiles) != rows*cols {
		return Sample{}, fmt.Errorf("%w: sample is %dx%d but has %d cells", ErrDimension, rows, cols, len(tiles))
	}
	for i, t := range tiles {
		if t < 0 {
			return Sample{}, fmt.Errorf("%w: sample cell %d holds tile %d", ErrInvalidRule, i, t)
		}
	}
	return Sample{Rows: rows, Cols: cols, Tiles: tiles}, nil
}

// At returns the tile at (row, col).
func (s Sample) At(row, col int) Tile {
	return s.Tiles[row*s.Cols+col]
}

// ExtractRules scans the sample and records, for every cell T and every
// direction D with an in-bounds neighbour N, the rule (N, T, D). Each rule's
// weight is the number of times the adjacency was observed. Edges do not wrap.
func ExtractRules(s Sample) (*RuleSet, error) {
	if _, err := NewSample(s.Rows, s.Cols, s.Tiles); err != nil {
		return nil, err
	}

	rs := NewRuleSet()
	for row := 0; row < s.Rows; row++ {
		for col := 0; col < s.Cols; col++ {
			target := s.At(row, col)
			for _, dir := range AllDirections() {
				dr, dc := dir.Offset()
				nr, nc := row+dr, col+dc
				if nr < 0 || nr >= s.Rows || nc < 0 || nc >= s.Cols {
					continue
				}
				rs.weights[Rule{Source: s.At(nr, nc), Target: target, Dir: dir}]++
			}
		}
	}
	return rs, nil
}

// ExtractDomain builds a domain of the tiles observed in the sample, weighted
// by how often each occurs. Names are taken from names when present.
func ExtractDomain(s Sample, names map[Tile]string) (*Domain, error) {
	if _, err := NewSample(s.Rows, s.Cols, s.Tiles); err != nil {
		return nil, err
	}

	counts := make(map[Tile]int)
	for _, t := range s.Tiles {
		counts[t]++
	}
	tiles := make([]Tile, 0, len(counts))
	for t := range counts {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i] < tiles[j] })

	defs := make([]TileDef, len(tiles))
	for i, t := range tiles {
		defs[i] = TileDef{ID: t, Name: names[t], Weight: float64(counts[t])}
	}
	return NewDomain(defs...)
}

// DefaultSample returns a 6x6 map of a coast-lined lake surrounded by land.
func DefaultSample() Sample {
	const (
		S = Sea
		C = Coast
		L = Land
	)
	return Sample{
		Rows: 6,
		Cols: 6,
		Tiles: []Tile{
			L, L, L, L, L, L,
			L, C, C, C, L, L,
			L, C, S, S, C, L,
			L, C, S, S, C, L,
			L, L, C, C, L, L,
			L, L, L, L, L, L,
		},
	}
}
