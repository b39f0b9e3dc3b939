package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// Run drives e to completion inside a "wfc.run" span and returns the number
// of rounds it took.
func Run(ctx context.Context, tracer trace.Tracer, e *wfc.Engine) int {
	_, span := tracer.Start(ctx, "wfc.run")
	defer span.End()

	g := e.Grid()
	span.SetAttributes(
		attribute.Int("grid.rows", g.Rows()),
		attribute.Int("grid.cols", g.Cols()),
		attribute.Int("domain.tiles", e.Domain().Len()),
		attribute.Int("rules.count", e.Rules().Len()),
	)

	rounds := e.Run()
	span.SetAttributes(
		attribute.Int("wfc.rounds", rounds),
		attribute.Int("wfc.suppressed", e.Suppressed()),
	)
	return rounds
}

// Steps performs up to n rounds inside a "wfc.steps" span and returns the
// results of the rounds that ran.
func Steps(ctx context.Context, tracer trace.Tracer, e *wfc.Engine, n int) []wfc.StepResult {
	_, span := tracer.Start(ctx, "wfc.steps", trace.WithAttributes(attribute.Int("wfc.requested", n)))
	defer span.End()

	var out []wfc.StepResult
	for len(out) < n {
		res, ok := e.Step()
		if !ok {
			break
		}
		out = append(out, res)
	}
	span.SetAttributes(
		attribute.Int("wfc.performed", len(out)),
		attribute.String("wfc.state", e.State().String()),
	)
	return out
}
