// Package viewer is the interactive terminal host: one key press, one round.
package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/wavetiles/internal/logger"
	"github.com/lawnchairsociety/wavetiles/internal/render"
	"github.com/lawnchairsociety/wavetiles/internal/telemetry"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// Viewer drives an engine from keyboard input and redraws after each event.
type Viewer struct {
	screen  *render.Screen
	view    *render.View
	engine  *wfc.Engine
	seed    int64
	message string
	running bool
	tracer  trace.Tracer
	newSeed func() int64
}

// New creates a viewer for engine, which was seeded with seed.
func New(screen *render.Screen, palette render.Palette, engine *wfc.Engine, seed int64) *Viewer {
	return &Viewer{
		screen:  screen,
		view:    render.NewView(screen, palette),
		engine:  engine,
		seed:    seed,
		tracer:  telemetry.NoopTracer(),
		newSeed: func() int64 { return time.Now().UnixNano() },
	}
}

// SetTracer replaces the no-op tracer.
func (v *Viewer) SetTracer(t trace.Tracer) {
	v.tracer = t
}

// Seed returns the seed of the current run.
func (v *Viewer) Seed() int64 { return v.seed }

// Run draws and handles events until the user quits.
func (v *Viewer) Run(ctx context.Context) error {
	v.running = true
	v.view.Draw(v.engine, v.seed, v.message)
	for v.running {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := v.screen.PollEvent()
		if ev == nil {
			return nil
		}
		v.HandleEvent(ctx, ev)
		if v.running {
			v.view.Draw(v.engine, v.seed, v.message)
		}
	}
	return nil
}

// HandleEvent applies one terminal event.
func (v *Viewer) HandleEvent(ctx context.Context, ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		v.handleKey(ctx, ev)
	case *tcell.EventResize:
		v.screen.Sync()
	}
}

func (v *Viewer) handleKey(ctx context.Context, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		v.running = false
	case tcell.KeyEnter:
		rounds := telemetry.Run(ctx, v.tracer, v.engine)
		v.message = fmt.Sprintf("ran %d rounds", rounds)
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			v.step(ctx)
		case 'r', 'R':
			v.reset(ctx)
		case 'q', 'Q':
			v.running = false
		}
	}
}

func (v *Viewer) step(ctx context.Context) {
	results := telemetry.Steps(ctx, v.tracer, v.engine, 1)
	if len(results) == 0 {
		v.message = "generation complete, press r to reset"
		return
	}
	res := results[0]
	row, col := v.engine.Grid().Position(res.Index)
	v.message = fmt.Sprintf("(%d,%d) -> %s", row, col, v.engine.Domain().Name(res.Tile))
	if res.Suppressed > 0 {
		v.message += fmt.Sprintf(", %d suppressed", res.Suppressed)
	}
}

func (v *Viewer) reset(ctx context.Context) {
	_, span := v.tracer.Start(ctx, "viewer.reset")
	defer span.End()

	v.seed = v.newSeed()
	v.engine.Reset(v.seed)
	v.message = ""
	span.SetAttributes(attribute.Int64("seed", v.seed))
	logger.Debug("Viewer reset", "seed", v.seed)
}
