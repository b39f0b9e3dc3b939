package wfc

// Violation is a resolved cell whose resolved neighbour the rule set does not
// allow there.
type Violation struct {
	Cell     int
	Neighbor int
	Dir      Direction // direction of Neighbor as seen from Cell
	Tile     Tile
	Other    Tile
}

// Violations lists every resolved cell t and resolved neighbour n in
// direction d for which rule (n, t, d) is missing, the same test propagation
// applies when t is placed. An adjacent pair declared one way only is reported
// from the side that lacks its rule. The engine tolerates these when its
// safeguard engages, so callers that need strict results check the final grid
// with this.
func Violations(g *Grid, rs *RuleSet) []Violation {
	var out []Violation
	for i := 0; i < g.Len(); i++ {
		t := g.Tile(i)
		if t == NoTile {
			continue
		}
		for _, d := range AllDirections() {
			j, ok := g.Neighbor(i, d)
			if !ok {
				continue
			}
			n := g.Tile(j)
			if n == NoTile || rs.Permits(n, t, d) {
				continue
			}
			out = append(out, Violation{Cell: i, Neighbor: j, Dir: d, Tile: t, Other: n})
		}
	}
	return out
}
