package wfc

import (
	"fmt"
	"math"
	"sort"
)

// Rule permits Source to sit in direction Dir relative to Target, i.e. the
// neighbour of Target in direction Dir may be Source.
type Rule struct {
	Source Tile
	Target Tile
	Dir    Direction
}

// String returns a readable form of the rule.
func (r Rule) String() string {
	return fmt.Sprintf("%d %s of %d", r.Source, r.Dir, r.Target)
}

// RuleSet holds the permitted adjacencies and their weights. A triple that is
// not in the set is forbidden; nothing is implied by symmetry.
type RuleSet struct {
	weights map[Rule]float64
}

// NewRuleSet creates an empty rule set.
func NewRuleSet() *RuleSet {
	return &RuleSet{weights: make(map[Rule]float64)}
}

// Add inserts a rule, or adds weight to it if the triple already exists.
func (rs *RuleSet) Add(r Rule, weight float64) error {
	if !r.Dir.Valid() {
		return fmt.Errorf("%w: direction %d", ErrInvalidRule, int(r.Dir))
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: weight %v for %s", ErrInvalidRule, weight, r)
	}
	rs.weights[r] += weight
	return nil
}

// Allow declares that source may sit in each of dirs relative to target,
// with weight 1. With no dirs, all four directions are allowed.
func (rs *RuleSet) Allow(source, target Tile, dirs ...Direction) error {
	if len(dirs) == 0 {
		dirs = AllDirections()
	}
	for _, d := range dirs {
		if err := rs.Add(Rule{Source: source, Target: target, Dir: d}, 1); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether the exact triple is in the set.
func (rs *RuleSet) Contains(r Rule) bool {
	_, ok := rs.weights[r]
	return ok
}

// Permits reports whether source may be the neighbour of target in direction dir.
func (rs *RuleSet) Permits(source, target Tile, dir Direction) bool {
	return rs.Contains(Rule{Source: source, Target: target, Dir: dir})
}

// Weight returns the accumulated weight of r, or 0 when absent.
func (rs *RuleSet) Weight(r Rule) float64 {
	return rs.weights[r]
}

// Len returns the number of distinct triples.
func (rs *RuleSet) Len() int { return len(rs.weights) }

// Rules returns every rule ordered by target, direction, then source.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, 0, len(rs.weights))
	for r := range rs.weights {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Dir != b.Dir {
			return a.Dir < b.Dir
		}
		return a.Source < b.Source
	})
	return out
}

// Merge adds every rule of other into rs, accumulating weights.
func (rs *RuleSet) Merge(other *RuleSet) {
	for r, w := range other.weights {
		rs.weights[r] += w
	}
}

// Validate checks that every rule references tiles of d.
func (rs *RuleSet) Validate(d *Domain) error {
	for _, r := range rs.Rules() {
		if !d.Contains(r.Source) {
			return fmt.Errorf("%w: source tile %d is not in the domain", ErrInvalidRule, r.Source)
		}
		if !d.Contains(r.Target) {
			return fmt.Errorf("%w: target tile %d is not in the domain", ErrInvalidRule, r.Target)
		}
	}
	return nil
}

// allowedMasks precomputes, per domain position of a placed tile and per
// direction, the set of positions a neighbour in that direction may hold:
// bit s of masks[t][d] is set when rule (s, t, d) is declared.
func (rs *RuleSet) allowedMasks(d *Domain) [][4]TileSet {
	masks := make([][4]TileSet, d.Len())
	for r := range rs.weights {
		ti, si := d.Index(r.Target), d.Index(r.Source)
		if ti < 0 || si < 0 {
			continue
		}
		masks[ti][r.Dir] = masks[ti][r.Dir].With(si)
	}
	return masks
}

// Tiles of the default coastline set.
const (
	Sea Tile = iota
	Coast
	Land
)

// DefaultDomain returns the sea/coast/land domain used by the bundled configs.
func DefaultDomain() *Domain {
	d, err := NewDomain(
		TileDef{ID: Sea, Name: "sea", Weight: 1.0},
		TileDef{ID: Coast, Name: "coast", Weight: 0.5},
		TileDef{ID: Land, Name: "land", Weight: 0.5},
	)
	if err != nil {
		panic(err)
	}
	return d
}

// DefaultRules returns the hand-authored coastline adjacency table:
// sea touches sea and coast, coast touches everything, land touches land and coast.
func DefaultRules() *RuleSet {
	rs := NewRuleSet()
	pairs := [][2]Tile{
		{Sea, Sea},
		{Sea, Coast},
		{Coast, Sea},
		{Coast, Coast},
		{Coast, Land},
		{Land, Land},
		{Land, Coast},
	}
	for _, p := range pairs {
		_ = rs.Allow(p[0], p[1])
	}
	return rs
}
