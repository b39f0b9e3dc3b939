package wfc

import (
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// Tile identifies one tile value of a domain.
type Tile int

// NoTile marks a cell that is still superposed (or was never resolved).
const NoTile Tile = -1

// MaxTiles is the largest domain a TileSet can represent.
const MaxTiles = 64

// TileDef declares one tile of a domain.
type TileDef struct {
	ID     Tile
	Name   string
	Weight float64
}

// Domain is the fixed, ordered set of tiles a grid may hold, with the
// weights used for weighted collapse. It is immutable once built.
type Domain struct {
	defs  []TileDef
	index map[Tile]int
	names map[string]Tile
}

// NewDomain builds a domain from the given tile definitions, in order.
func NewDomain(defs ...TileDef) (*Domain, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no tiles", ErrInvalidDomain)
	}
	if len(defs) > MaxTiles {
		return nil, fmt.Errorf("%w: %d tiles exceeds the limit of %d", ErrInvalidDomain, len(defs), MaxTiles)
	}

	d := &Domain{
		defs:  make([]TileDef, len(defs)),
		index: make(map[Tile]int, len(defs)),
		names: make(map[string]Tile, len(defs)),
	}
	for i, def := range defs {
		if def.ID < 0 {
			return nil, fmt.Errorf("%w: tile id %d is negative", ErrInvalidDomain, def.ID)
		}
		if _, dup := d.index[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tile id %d", ErrInvalidDomain, def.ID)
		}
		if def.Weight <= 0 || math.IsNaN(def.Weight) || math.IsInf(def.Weight, 0) {
			return nil, fmt.Errorf("%w: tile %d has weight %v, must be positive", ErrInvalidDomain, def.ID, def.Weight)
		}
		if def.Name == "" {
			def.Name = strconv.Itoa(int(def.ID))
		}
		key := strings.ToLower(def.Name)
		if _, dup := d.names[key]; dup {
			return nil, fmt.Errorf("%w: duplicate tile name %q", ErrInvalidDomain, def.Name)
		}
		d.defs[i] = def
		d.index[def.ID] = i
		d.names[key] = def.ID
	}
	return d, nil
}

// UniformDomain builds a domain where every tile has weight 1.
func UniformDomain(tiles ...Tile) (*Domain, error) {
	defs := make([]TileDef, len(tiles))
	for i, t := range tiles {
		defs[i] = TileDef{ID: t, Weight: 1}
	}
	return NewDomain(defs...)
}

// Len returns the number of tiles in the domain.
func (d *Domain) Len() int { return len(d.defs) }

// Tiles returns the tiles in declaration order.
func (d *Domain) Tiles() []Tile {
	out := make([]Tile, len(d.defs))
	for i, def := range d.defs {
		out[i] = def.ID
	}
	return out
}

// Defs returns a copy of the tile definitions.
func (d *Domain) Defs() []TileDef {
	out := make([]TileDef, len(d.defs))
	copy(out, d.defs)
	return out
}

// Contains reports whether t belongs to the domain.
func (d *Domain) Contains(t Tile) bool {
	_, ok := d.index[t]
	return ok
}

// Index returns the position of t in the domain, or -1.
func (d *Domain) Index(t Tile) int {
	if i, ok := d.index[t]; ok {
		return i
	}
	return -1
}

// Weight returns the selection weight of t, or 0 if t is not in the domain.
func (d *Domain) Weight(t Tile) float64 {
	if i, ok := d.index[t]; ok {
		return d.defs[i].Weight
	}
	return 0
}

// Name returns the display name of t.
func (d *Domain) Name(t Tile) string {
	if i, ok := d.index[t]; ok {
		return d.defs[i].Name
	}
	if t == NoTile {
		return "unset"
	}
	return "unknown"
}

// Lookup finds a tile by name (case-insensitive).
func (d *Domain) Lookup(name string) (Tile, bool) {
	t, ok := d.names[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Full returns the candidate set holding every tile of the domain.
func (d *Domain) Full() TileSet {
	if len(d.defs) == MaxTiles {
		return ^TileSet(0)
	}
	return TileSet(1)<<uint(len(d.defs)) - 1
}

// TileSet is a candidate set over the positions of a Domain.
type TileSet uint64

// Count returns the number of candidates in the set.
func (s TileSet) Count() int { return bits.OnesCount64(uint64(s)) }

// Has reports whether domain position i is in the set.
func (s TileSet) Has(i int) bool { return s&(1<<uint(i)) != 0 }

// With returns the set with position i added.
func (s TileSet) With(i int) TileSet { return s | 1<<uint(i) }

// Without returns the set with position i removed.
func (s TileSet) Without(i int) TileSet { return s &^ (1 << uint(i)) }

// First returns the lowest position in the set, or -1 if it is empty.
func (s TileSet) First() int {
	if s == 0 {
		return -1
	}
	return bits.TrailingZeros64(uint64(s))
}

// Single returns the set containing only position i.
func Single(i int) TileSet { return TileSet(1) << uint(i) }
