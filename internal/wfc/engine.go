package wfc

import (
	"fmt"
	"math/bits"
	"math/rand"

	"github.com/lawnchairsociety/wavetiles/internal/logger"
)

// State is the lifecycle state of an Engine.
type State int

const (
	Running State = iota
	Done
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Placement pre-collapses one cell before the first round.
type Placement struct {
	Row, Col int
	Tile     Tile
}

// Config contains everything needed to start a generation run.
type Config struct {
	Rows, Cols int
	Domain     *Domain
	Rules      *RuleSet
	Seed       int64      // used when Rand is nil
	Rand       *rand.Rand // optional injected source
	Initial    *Placement // optional pre-collapsed cell

	// Cascade propagates from neighbours that propagation itself left with a
	// single candidate. Without it only the collapsed cell's four neighbours
	// are pruned.
	Cascade bool
}

// StepResult describes what one round changed.
type StepResult struct {
	Index      int   // cell collapsed by the round
	Tile       Tile  // tile it collapsed to
	Resolved   []int // neighbours left with a single candidate by propagation
	Suppressed int   // removals skipped to keep a candidate set non-empty
}

// Engine runs the collapse/propagate loop over a Grid. It is not safe for
// concurrent use; callers drive it one round at a time or to completion.
type Engine struct {
	cfg        Config
	grid       *Grid
	allowed    [][4]TileSet
	weights    []float64
	rng        *rand.Rand
	state      State
	rounds     int
	suppressed int
}

// NewEngine validates cfg and returns an engine with a fully superposed grid
// (plus the optional initial placement).
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Domain == nil {
		return nil, fmt.Errorf("%w: nil domain", ErrInvalidDomain)
	}
	if cfg.Rules == nil {
		return nil, fmt.Errorf("%w: nil rule set", ErrInvalidRule)
	}
	if err := cfg.Rules.Validate(cfg.Domain); err != nil {
		return nil, err
	}
	grid, err := NewGrid(cfg.Rows, cfg.Cols, cfg.Domain)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		grid:    grid,
		allowed: cfg.Rules.allowedMasks(cfg.Domain),
		weights: make([]float64, cfg.Domain.Len()),
		rng:     cfg.Rand,
	}
	for i, def := range cfg.Domain.defs {
		e.weights[i] = def.Weight
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if p := cfg.Initial; p != nil {
		if !grid.InBounds(p.Row, p.Col) {
			return nil, fmt.Errorf("%w: initial placement (%d,%d) outside %dx%d grid", ErrDimension, p.Row, p.Col, cfg.Rows, cfg.Cols)
		}
		if cfg.Domain.Index(p.Tile) < 0 {
			return nil, fmt.Errorf("%w: initial tile %d is not in the domain", ErrInvalidRule, p.Tile)
		}
	}
	e.applyInitial()
	return e, nil
}

// Reset returns the grid to full superposition, reseeds the random source
// and reapplies the initial placement.
func (e *Engine) Reset(seed int64) {
	e.grid.fill()
	e.rng = rand.New(rand.NewSource(seed))
	e.state = Running
	e.rounds = 0
	e.suppressed = 0
	e.applyInitial()
}

// applyInitial collapses the initial placement, if any, on a fully superposed
// grid. NewEngine has already checked its bounds and tile.
func (e *Engine) applyInitial() {
	if p := e.cfg.Initial; p != nil {
		i := e.grid.Index(p.Row, p.Col)
		e.grid.cells[i] = Single(e.cfg.Domain.Index(p.Tile))
		e.propagate(i, &StepResult{Index: i, Tile: p.Tile})
	}
	e.checkDone()
}

// Place collapses (row, col) to t and propagates, outside of the normal round
// order. t must still be a candidate there.
func (e *Engine) Place(row, col int, t Tile) (StepResult, error) {
	if !e.grid.InBounds(row, col) {
		return StepResult{}, fmt.Errorf("%w: (%d,%d) outside %dx%d grid", ErrDimension, row, col, e.grid.rows, e.grid.cols)
	}
	pos := e.cfg.Domain.Index(t)
	if pos < 0 {
		return StepResult{}, fmt.Errorf("%w: tile %d is not in the domain", ErrInvalidRule, t)
	}
	i := e.grid.Index(row, col)
	if !e.grid.cells[i].Has(pos) {
		return StepResult{}, fmt.Errorf("%w: tile %s is no longer possible at (%d,%d)", ErrInvalidRule, e.cfg.Domain.Name(t), row, col)
	}

	e.grid.cells[i] = Single(pos)
	res := StepResult{Index: i, Tile: t}
	e.propagate(i, &res)
	e.checkDone()
	return res, nil
}

// Step runs one round: pick a lowest-entropy cell, collapse it and propagate.
// It returns false, without changing anything, once the engine is Done.
func (e *Engine) Step() (StepResult, bool) {
	if e.state == Done {
		return StepResult{}, false
	}
	lowest := LowestEntropy(e.grid)
	if len(lowest) == 0 {
		e.state = Done
		return StepResult{}, false
	}

	i := lowest[e.rng.Intn(len(lowest))]
	pos := e.pick(e.grid.cells[i])
	e.grid.cells[i] = Single(pos)
	e.rounds++

	res := StepResult{Index: i, Tile: e.cfg.Domain.defs[pos].ID}
	e.propagate(i, &res)
	e.checkDone()
	return res, true
}

// Run steps until the engine is Done and returns the number of rounds taken.
func (e *Engine) Run() int {
	start := e.rounds
	for {
		if _, ok := e.Step(); !ok {
			break
		}
	}
	logger.Info("Generation complete",
		"rows", e.grid.rows,
		"cols", e.grid.cols,
		"rounds", e.rounds-start,
		"suppressed", e.suppressed)
	return e.rounds - start
}

// pick draws one domain position from s, weighted by tile weight. Only the
// candidates still in s contribute to the total.
func (e *Engine) pick(s TileSet) int {
	total := 0.0
	for p, w := range e.weights {
		if s.Has(p) {
			total += w
		}
	}
	r := e.rng.Float64() * total
	last := -1
	for p, w := range e.weights {
		if !s.Has(p) {
			continue
		}
		last = p
		r -= w
		if r < 0 {
			return p
		}
	}
	return last
}

// propagate prunes the four neighbours of the resolved cell i. Neighbours left
// with a single candidate are recorded in res; they are only propagated from
// in turn when the engine cascades. A removal that would empty a set is
// skipped.
func (e *Engine) propagate(i int, res *StepResult) {
	queue := []int{i}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		placed := e.grid.cells[c].First()

		for _, d := range AllDirections() {
			j, ok := e.grid.Neighbor(c, d)
			if !ok {
				continue
			}
			before := e.grid.cells[j]
			if before == 0 {
				panic(ErrEmptyCandidates)
			}
			after := before & e.allowed[placed][d]
			if after == before {
				continue
			}
			if after == 0 {
				// Keep the last candidate in domain order.
				after = Single(bits.Len64(uint64(before)) - 1)
				res.Suppressed++
				e.suppressed++
				logger.Debug("Contradiction suppressed",
					"cell", j,
					"neighbor_of", c,
					"direction", d.String(),
					"kept", e.cfg.Domain.Name(e.cfg.Domain.defs[after.First()].ID))
			}
			if after == before {
				continue
			}
			e.grid.cells[j] = after
			if after.Count() == 1 {
				res.Resolved = append(res.Resolved, j)
				if e.cfg.Cascade {
					queue = append(queue, j)
				}
			}
		}
	}
}

func (e *Engine) checkDone() {
	if e.grid.Done() {
		e.state = Done
	}
}

// State returns the lifecycle state.
func (e *Engine) State() State { return e.state }

// Grid returns the live grid. Callers must not mutate it during a run.
func (e *Engine) Grid() *Grid { return e.grid }

// Rounds returns the number of rounds run since construction or Reset.
func (e *Engine) Rounds() int { return e.rounds }

// Suppressed returns the number of removals skipped by the safeguard.
func (e *Engine) Suppressed() int { return e.suppressed }

// Domain returns the tile domain.
func (e *Engine) Domain() *Domain { return e.cfg.Domain }

// Rules returns the adjacency rule set.
func (e *Engine) Rules() *RuleSet { return e.cfg.Rules }
