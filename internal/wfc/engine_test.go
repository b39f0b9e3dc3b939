package wfc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sameOnlyRules allows each tile next to itself in every direction and
// nothing else.
func sameOnlyRules(t *testing.T, tiles ...Tile) *RuleSet {
	t.Helper()
	rs := NewRuleSet()
	for _, tile := range tiles {
		require.NoError(t, rs.Allow(tile, tile))
	}
	return rs
}

func TestNewEngine_ConstructionErrors(t *testing.T) {
	domain := DefaultDomain()
	outside := NewRuleSet()
	require.NoError(t, outside.Allow(Sea, Tile(99), Up))

	cases := []struct {
		name string
		cfg  Config
		err  error
	}{
		{"NilDomain", Config{Rows: 2, Cols: 2, Rules: DefaultRules()}, ErrInvalidDomain},
		{"NilRules", Config{Rows: 2, Cols: 2, Domain: domain}, ErrInvalidRule},
		{"RuleOutsideDomain", Config{Rows: 2, Cols: 2, Domain: domain, Rules: outside}, ErrInvalidRule},
		{"ZeroRows", Config{Rows: 0, Cols: 2, Domain: domain, Rules: DefaultRules()}, ErrDimension},
		{"NegativeCols", Config{Rows: 2, Cols: -1, Domain: domain, Rules: DefaultRules()}, ErrDimension},
		{"PlacementOutside", Config{Rows: 2, Cols: 2, Domain: domain, Rules: DefaultRules(),
			Initial: &Placement{Row: 5, Col: 0, Tile: Sea}}, ErrDimension},
		{"PlacementUnknownTile", Config{Rows: 2, Cols: 2, Domain: domain, Rules: DefaultRules(),
			Initial: &Placement{Row: 0, Col: 0, Tile: Tile(42)}}, ErrInvalidRule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewEngine(tc.cfg)
			require.ErrorIs(t, err, tc.err)
			assert.Nil(t, e)
		})
	}
}

// Center pre-collapsed to sea, no sea/land adjacency allowed: with cascading
// propagation everything must become sea without the safeguard engaging.
func TestEngine_SeaLandScenario(t *testing.T) {
	domain, err := NewDomain(
		TileDef{ID: Sea, Name: "sea", Weight: 1},
		TileDef{ID: Land, Name: "land", Weight: 1},
	)
	require.NoError(t, err)

	for seed := int64(0); seed < 20; seed++ {
		e, err := NewEngine(Config{
			Rows:    3,
			Cols:    3,
			Domain:  domain,
			Rules:   sameOnlyRules(t, Sea, Land),
			Seed:    seed,
			Initial: &Placement{Row: 1, Col: 1, Tile: Sea},
			Cascade: true,
		})
		require.NoError(t, err)

		e.Run()

		assert.Equal(t, Done, e.State())
		assert.Equal(t, 0, e.Suppressed())
		for i, tile := range e.Grid().Tiles() {
			assert.Equal(t, Sea, tile, "seed %d cell %d", seed, i)
		}
	}
}

// Without cascading only the center's four neighbours are pruned; the
// corners stay open and any land there is only reachable via the safeguard.
func TestEngine_SeaLandSingleStep(t *testing.T) {
	domain, err := NewDomain(
		TileDef{ID: Sea, Name: "sea", Weight: 1},
		TileDef{ID: Land, Name: "land", Weight: 1},
	)
	require.NoError(t, err)

	for seed := int64(0); seed < 20; seed++ {
		e, err := NewEngine(Config{
			Rows:    3,
			Cols:    3,
			Domain:  domain,
			Rules:   sameOnlyRules(t, Sea, Land),
			Seed:    seed,
			Initial: &Placement{Row: 1, Col: 1, Tile: Sea},
		})
		require.NoError(t, err)
		g := e.Grid()

		for _, i := range []int{1, 3, 5, 7} {
			require.Equal(t, []Tile{Sea}, g.Candidates(i), "edge cell %d", i)
		}
		for _, i := range []int{0, 2, 6, 8} {
			require.Equal(t, 2, g.Count(i), "corner %d", i)
		}
		require.Equal(t, Running, e.State())

		e.Run()

		assert.Equal(t, Done, e.State())
		landed := false
		for _, tile := range g.Tiles() {
			if tile != Sea {
				landed = true
			}
		}
		if landed {
			assert.Positive(t, e.Suppressed(), "seed %d", seed)
		}
	}
}

func TestEngine_LineScenario(t *testing.T) {
	const (
		x Tile = 0
		y Tile = 1
	)
	domain, err := UniformDomain(x, y)
	require.NoError(t, err)

	for seed := int64(0); seed < 20; seed++ {
		e, err := NewEngine(Config{
			Rows:    1,
			Cols:    4,
			Domain:  domain,
			Rules:   sameOnlyRules(t, x, y),
			Seed:    seed,
			Initial: &Placement{Row: 0, Col: 0, Tile: x},
			Cascade: true,
		})
		require.NoError(t, err)

		e.Run()

		assert.Equal(t, []Tile{x, x, x, x}, e.Grid().Tiles(), "seed %d", seed)
	}
}

func TestEngine_PlacementPrunesOnlyNeighbours(t *testing.T) {
	const (
		x Tile = 0
		y Tile = 1
	)
	domain, err := UniformDomain(x, y)
	require.NoError(t, err)

	e, err := NewEngine(Config{
		Rows:    1,
		Cols:    4,
		Domain:  domain,
		Rules:   sameOnlyRules(t, x, y),
		Initial: &Placement{Row: 0, Col: 0, Tile: x},
	})
	require.NoError(t, err)

	g := e.Grid()
	assert.Equal(t, []Tile{x}, g.Candidates(1))
	assert.Equal(t, []Tile{x, y}, g.Candidates(2))
	assert.Equal(t, []Tile{x, y}, g.Candidates(3))
	assert.Equal(t, Running, e.State())

	res, err := e.Place(0, 2, y)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, res.Resolved)
	assert.Equal(t, 1, res.Suppressed, "resolved x at cell 1 cannot accept y")
	assert.Equal(t, []Tile{x, x, y, y}, g.Tiles())
}

func TestEngine_DirectionalRule(t *testing.T) {
	domain, err := UniformDomain(tileA, tileB)
	require.NoError(t, err)

	// Only "A directly above B" is legal.
	rules := NewRuleSet()
	require.NoError(t, rules.Allow(tileA, tileB, Up))

	e, err := NewEngine(Config{Rows: 2, Cols: 1, Domain: domain, Rules: rules,
		Initial: &Placement{Row: 1, Col: 0, Tile: tileB}})
	require.NoError(t, err)
	assert.Equal(t, []Tile{tileA, tileB}, e.Grid().Tiles())

	assert.Equal(t, 0, e.Suppressed())

	// The rule says nothing about what may sit below A, so the safeguard
	// keeps the last candidate.
	e, err = NewEngine(Config{Rows: 2, Cols: 1, Domain: domain, Rules: rules,
		Initial: &Placement{Row: 0, Col: 0, Tile: tileA}})
	require.NoError(t, err)
	assert.Equal(t, []Tile{tileA, tileB}, e.Grid().Tiles())
	assert.Equal(t, Done, e.State())
	assert.Equal(t, 1, e.Suppressed())
}

func TestEngine_RulesAreNotMirrored(t *testing.T) {
	domain, err := UniformDomain(tileA, tileB, tileC)
	require.NoError(t, err)

	rules := NewRuleSet()
	require.NoError(t, rules.Allow(tileA, tileB, Up))
	require.NoError(t, rules.Allow(tileC, tileA, Down))

	e, err := NewEngine(Config{Rows: 2, Cols: 1, Domain: domain, Rules: rules,
		Initial: &Placement{Row: 0, Col: 0, Tile: tileA}})
	require.NoError(t, err)

	assert.Equal(t, []Tile{tileC}, e.Grid().Candidates(1))
	assert.Equal(t, 0, e.Suppressed())
	assert.Equal(t, Done, e.State())
}

func TestEngine_ExtractedRoundTrip(t *testing.T) {
	sample, err := NewSample(3, 3, []Tile{Land, Land, Land, Land, Land, Land, Land, Land, Land})
	require.NoError(t, err)
	rules, err := ExtractRules(sample)
	require.NoError(t, err)

	t.Run("SampleDomain", func(t *testing.T) {
		domain, err := ExtractDomain(sample, nil)
		require.NoError(t, err)

		e, err := NewEngine(Config{Rows: 5, Cols: 7, Domain: domain, Rules: rules, Seed: 3})
		require.NoError(t, err)
		e.Run()

		for _, tile := range e.Grid().Tiles() {
			assert.Equal(t, Land, tile)
		}
	})

	t.Run("WiderDomain", func(t *testing.T) {
		e, err := NewEngine(Config{Rows: 5, Cols: 7, Domain: DefaultDomain(), Rules: rules, Seed: 3,
			Initial: &Placement{Row: 2, Col: 3, Tile: Land}, Cascade: true})
		require.NoError(t, err)
		e.Run()

		for _, tile := range e.Grid().Tiles() {
			assert.Equal(t, Land, tile)
		}
		assert.Empty(t, Violations(e.Grid(), rules))
	})
}

// Checks the per-round invariants on a realistic rule set.
func TestEngine_RoundInvariants(t *testing.T) {
	const rows, cols = 8, 10

	for seed := int64(1); seed <= 25; seed++ {
		e, err := NewEngine(Config{Rows: rows, Cols: cols, Domain: DefaultDomain(), Rules: DefaultRules(), Seed: seed})
		require.NoError(t, err)
		g := e.Grid()

		rounds := 0
		for {
			before := g.Clone()
			res, ok := e.Step()
			if !ok {
				break
			}
			rounds++
			require.LessOrEqual(t, rounds, rows*cols, "termination bound")

			require.False(t, before.Resolved(res.Index), "collapsed an already resolved cell")
			require.True(t, g.Resolved(res.Index))
			require.Equal(t, res.Tile, g.Tile(res.Index))

			newlyResolved := 0
			for i := 0; i < g.Len(); i++ {
				after := g.Set(i)
				require.NotZero(t, after, "empty candidate set at %d", i)
				require.Zero(t, after&^before.Set(i), "candidate set grew at %d", i)
				if !before.Resolved(i) && g.Resolved(i) {
					newlyResolved++
				}
				if before.Resolved(i) {
					require.Equal(t, before.Set(i), after, "resolved cell %d changed", i)
				}
			}
			require.Equal(t, 1+len(res.Resolved), newlyResolved)
			for _, j := range res.Resolved {
				require.True(t, isNeighbor(g, res.Index, j), "cell %d resolved but not next to %d", j, res.Index)
			}

			next := LowestEntropy(g)
			for _, j := range append(res.Resolved, res.Index) {
				require.NotContains(t, next, j)
			}
		}

		assert.Equal(t, Done, e.State())
		assert.True(t, g.Done())
		assert.Equal(t, rounds, e.Rounds())
		assert.NotContains(t, g.Tiles(), NoTile)
	}
}

func isNeighbor(g *Grid, i, j int) bool {
	for _, d := range AllDirections() {
		if n, ok := g.Neighbor(i, d); ok && n == j {
			return true
		}
	}
	return false
}

// With no rules at all every propagation hits the safeguard; the run must
// still finish without empty sets and report what it tolerated.
func TestEngine_SafeguardKeepsProgress(t *testing.T) {
	domain, err := UniformDomain(0, 1, 2)
	require.NoError(t, err)

	e, err := NewEngine(Config{Rows: 4, Cols: 4, Domain: domain, Rules: NewRuleSet(), Seed: 11})
	require.NoError(t, err)

	rounds := e.Run()

	assert.LessOrEqual(t, rounds, 16)
	assert.Equal(t, Done, e.State())
	assert.Positive(t, e.Suppressed())
	for i := 0; i < e.Grid().Len(); i++ {
		assert.Equal(t, 1, e.Grid().Count(i))
	}
	assert.NotEmpty(t, Violations(e.Grid(), e.Rules()))
}

func TestEngine_StepAfterDone(t *testing.T) {
	domain, err := UniformDomain(0, 1)
	require.NoError(t, err)
	e, err := NewEngine(Config{Rows: 1, Cols: 1, Domain: domain, Rules: NewRuleSet()})
	require.NoError(t, err)

	_, ok := e.Step()
	require.True(t, ok)
	assert.Equal(t, Done, e.State())

	_, ok = e.Step()
	assert.False(t, ok)
	assert.Equal(t, 1, e.Rounds())
}

func TestEngine_SeedIsReproducible(t *testing.T) {
	run := func(seed int64) []Tile {
		e, err := NewEngine(Config{Rows: 6, Cols: 6, Domain: DefaultDomain(), Rules: DefaultRules(), Seed: seed})
		require.NoError(t, err)
		e.Run()
		return e.Grid().Tiles()
	}

	assert.Equal(t, run(99), run(99))

	e, err := NewEngine(Config{Rows: 6, Cols: 6, Domain: DefaultDomain(), Rules: DefaultRules(), Seed: 99})
	require.NoError(t, err)
	e.Run()
	first := e.Grid().Tiles()

	e.Reset(99)
	assert.Equal(t, Running, e.State())
	assert.Equal(t, 0, e.Rounds())
	e.Run()
	assert.Equal(t, first, e.Grid().Tiles())
}

func TestEngine_PlaceRejectsRemovedCandidate(t *testing.T) {
	e, err := NewEngine(Config{Rows: 1, Cols: 2, Domain: DefaultDomain(), Rules: DefaultRules(),
		Initial: &Placement{Row: 0, Col: 0, Tile: Sea}})
	require.NoError(t, err)

	// Land cannot sit next to sea, so propagation removed it.
	assert.Equal(t, []Tile{Sea, Coast}, e.Grid().Candidates(1))
	_, err = e.Place(0, 1, Land)
	require.ErrorIs(t, err, ErrInvalidRule)

	res, err := e.Place(0, 1, Coast)
	require.NoError(t, err)
	assert.Equal(t, Coast, res.Tile)
	assert.Equal(t, Done, e.State())
}

// Weighted collapse: {A: 3, B: 1} should pick A about three times as often.
func TestEngine_WeightedSelectionBias(t *testing.T) {
	domain, err := NewDomain(TileDef{ID: tileA, Weight: 3}, TileDef{ID: tileB, Weight: 1})
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(2024))

	const trials = 4000
	counts := map[Tile]int{}
	for i := 0; i < trials; i++ {
		e, err := NewEngine(Config{Rows: 1, Cols: 1, Domain: domain, Rules: NewRuleSet(), Rand: rng})
		require.NoError(t, err)
		res, ok := e.Step()
		require.True(t, ok)
		counts[res.Tile]++
	}

	expA, expB := trials*0.75, trials*0.25
	dA, dB := float64(counts[tileA])-expA, float64(counts[tileB])-expB
	chi2 := dA*dA/expA + dB*dB/expB
	// 10.83 is the 0.1% critical value for one degree of freedom.
	assert.Less(t, chi2, 10.83, "counts %v", counts)
}

// Candidates removed by propagation must not contribute weight.
func TestEngine_PickIgnoresRemovedCandidates(t *testing.T) {
	domain, err := NewDomain(
		TileDef{ID: 0, Weight: 1000},
		TileDef{ID: 1, Weight: 1},
		TileDef{ID: 2, Weight: 1},
	)
	require.NoError(t, err)
	e, err := NewEngine(Config{Rows: 1, Cols: 1, Domain: domain, Rules: NewRuleSet(), Seed: 5})
	require.NoError(t, err)

	counts := map[int]int{}
	for i := 0; i < 2000; i++ {
		counts[e.pick(Single(1).With(2))]++
	}
	assert.Zero(t, counts[0])
	assert.InDelta(t, 1000, counts[1], 150)
	assert.InDelta(t, 1000, counts[2], 150)
}
