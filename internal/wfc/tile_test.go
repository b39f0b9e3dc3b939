package wfc

import (
	"errors"
	"math"
	"testing"
)

func TestNewDomainRejectsBadWeights(t *testing.T) {
	weights := []float64{0, -1, math.NaN(), math.Inf(1)}
	for _, w := range weights {
		_, err := NewDomain(TileDef{ID: 0, Weight: 1}, TileDef{ID: 1, Weight: w})
		if !errors.Is(err, ErrInvalidDomain) {
			t.Errorf("weight %v: error = %v, want ErrInvalidDomain", w, err)
		}
	}
}

func TestNewDomainRejectsBadTiles(t *testing.T) {
	tests := []struct {
		name string
		defs []TileDef
	}{
		{"empty", nil},
		{"negative id", []TileDef{{ID: -2, Weight: 1}}},
		{"duplicate id", []TileDef{{ID: 1, Weight: 1}, {ID: 1, Weight: 2}}},
		{"duplicate name", []TileDef{{ID: 1, Name: "sea", Weight: 1}, {ID: 2, Name: "SEA", Weight: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewDomain(tc.defs...); !errors.Is(err, ErrInvalidDomain) {
				t.Errorf("error = %v, want ErrInvalidDomain", err)
			}
		})
	}

	defs := make([]TileDef, MaxTiles+1)
	for i := range defs {
		defs[i] = TileDef{ID: Tile(i), Weight: 1}
	}
	if _, err := NewDomain(defs...); !errors.Is(err, ErrInvalidDomain) {
		t.Errorf("oversized domain error = %v, want ErrInvalidDomain", err)
	}
	if d, err := NewDomain(defs[:MaxTiles]...); err != nil || d.Full().Count() != MaxTiles {
		t.Errorf("full-size domain: err=%v", err)
	}
}

func TestDomainLookups(t *testing.T) {
	d := DefaultDomain()

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", d.Len())
	}
	if got := d.Weight(Coast); got != 0.5 {
		t.Errorf("Weight(Coast) = %v, want 0.5", got)
	}
	if got := d.Weight(Tile(42)); got != 0 {
		t.Errorf("Weight(42) = %v, want 0", got)
	}
	if tile, ok := d.Lookup("Land"); !ok || tile != Land {
		t.Errorf("Lookup(Land) = %v, %v", tile, ok)
	}
	if _, ok := d.Lookup("lava"); ok {
		t.Error("Lookup(lava) should fail")
	}
	if d.Name(NoTile) != "unset" {
		t.Errorf("Name(NoTile) = %q", d.Name(NoTile))
	}
	if d.Index(Land) != 2 || d.Index(Tile(9)) != -1 {
		t.Errorf("Index mismatch: %d %d", d.Index(Land), d.Index(Tile(9)))
	}
	if d.Full() != 0b111 {
		t.Errorf("Full() = %b, want 111", d.Full())
	}
}

func TestUniformDomainNamesTiles(t *testing.T) {
	d, err := UniformDomain(7, 3)
	if err != nil {
		t.Fatal(err)
	}
	if d.Name(7) != "7" || d.Weight(3) != 1 {
		t.Errorf("unexpected defs: %+v", d.Defs())
	}
	if tiles := d.Tiles(); tiles[0] != 7 || tiles[1] != 3 {
		t.Errorf("Tiles() = %v, want declaration order", tiles)
	}
}

func TestTileSet(t *testing.T) {
	var s TileSet
	if s.First() != -1 || s.Count() != 0 {
		t.Fatal("empty set misreported")
	}
	s = s.With(3).With(5)
	if !s.Has(3) || !s.Has(5) || s.Has(4) {
		t.Errorf("Has mismatch for %b", s)
	}
	if s.First() != 3 || s.Count() != 2 {
		t.Errorf("First=%d Count=%d", s.First(), s.Count())
	}
	if s.Without(3) != Single(5) {
		t.Errorf("Without(3) = %b", s.Without(3))
	}
}
