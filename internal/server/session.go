package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/logger"
	"github.com/lawnchairsociety/wavetiles/internal/render"
	"github.com/lawnchairsociety/wavetiles/internal/telemetry"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

// StepInfo describes one round in a reply.
type StepInfo struct {
	Row        int    `json:"row"`
	Col        int    `json:"col"`
	Tile       string `json:"tile"`
	Resolved   int    `json:"resolved"`
	Suppressed int    `json:"suppressed,omitempty"`
}

// Snapshot is the JSON reply sent after every command.
type Snapshot struct {
	Session    string     `json:"session"`
	Seed       int64      `json:"seed"`
	State      string     `json:"state"`
	Rounds     int        `json:"rounds"`
	Suppressed int        `json:"suppressed"`
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Grid       []string   `json:"grid"`
	Steps      []StepInfo `json:"steps,omitempty"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Session is one client's private generation run.
type Session struct {
	ID       string
	engine   *wfc.Engine
	template wfc.Config
	seed     int64
	palette  render.Palette
	limits   config.SessionsConfig
	tracer   trace.Tracer
	log      *slog.Logger
}

// NewSession creates a session running template with seed. The template's
// Rand is ignored so sessions never share a random source.
func NewSession(template wfc.Config, seed int64, palette render.Palette, limits config.SessionsConfig, tracer trace.Tracer) (*Session, error) {
	template.Rand = nil
	template.Seed = seed
	e, err := wfc.NewEngine(template)
	if err != nil {
		return nil, err
	}
	if tracer == nil {
		tracer = telemetry.NoopTracer()
	}
	id := uuid.NewString()
	return &Session{
		ID:       id,
		engine:   e,
		template: template,
		seed:     seed,
		palette:  palette,
		limits:   limits,
		tracer:   tracer,
		log:      logger.With("session", id),
	}, nil
}

// Engine returns the session's engine.
func (s *Session) Engine() *wfc.Engine { return s.engine }

// Snapshot describes the current state of the session.
func (s *Session) Snapshot() Snapshot {
	g := s.engine.Grid()
	return Snapshot{
		Session:    s.ID,
		Seed:       s.seed,
		State:      s.engine.State().String(),
		Rounds:     s.engine.Rounds(),
		Suppressed: s.engine.Suppressed(),
		Rows:       g.Rows(),
		Cols:       g.Cols(),
		Grid:       render.Rows(g, s.palette),
	}
}

func (s *Session) fail(err error) Snapshot {
	snap := s.Snapshot()
	snap.Error = err.Error()
	return snap
}

// Execute runs one command and returns the reply. quit is true when the
// client asked to end the session.
func (s *Session) Execute(ctx context.Context, cmd *Command) (reply Snapshot, quit bool) {
	ctx, span := s.tracer.Start(ctx, "session.command",
		trace.WithAttributes(attribute.String("command", cmd.Name), attribute.String("session", s.ID)))
	defer span.End()

	switch cmd.Name {
	case "step", "s":
		return s.step(ctx, cmd.Args), false
	case "run":
		telemetry.Run(ctx, s.tracer, s.engine)
		return s.Snapshot(), false
	case "reset":
		return s.reset(cmd.Args), false
	case "place", "p":
		return s.place(cmd.Args), false
	case "resize":
		return s.resize(cmd.Args), false
	case "snapshot", "show", "":
		return s.Snapshot(), false
	case "help":
		snap := s.Snapshot()
		snap.Message = helpText
		return snap, false
	case "quit", "exit":
		snap := s.Snapshot()
		snap.Message = "bye"
		return snap, true
	default:
		return s.fail(fmt.Errorf("unknown command %q", cmd.Name)), false
	}
}

func (s *Session) step(ctx context.Context, args []string) Snapshot {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return s.fail(fmt.Errorf("step count must be a positive integer, got %q", args[0]))
		}
		n = v
	}
	if s.limits.MaxStepBatch > 0 && n > s.limits.MaxStepBatch {
		n = s.limits.MaxStepBatch
	}

	results := telemetry.Steps(ctx, s.tracer, s.engine, n)
	snap := s.Snapshot()
	for _, res := range results {
		snap.Steps = append(snap.Steps, s.stepInfo(res))
	}
	if len(results) == 0 {
		snap.Message = "generation already complete"
	}
	return snap
}

func (s *Session) stepInfo(res wfc.StepResult) StepInfo {
	row, col := s.engine.Grid().Position(res.Index)
	return StepInfo{
		Row:        row,
		Col:        col,
		Tile:       s.engine.Domain().Name(res.Tile),
		Resolved:   len(res.Resolved),
		Suppressed: res.Suppressed,
	}
}

func (s *Session) reset(args []string) Snapshot {
	seed := time.Now().UnixNano()
	if len(args) > 0 {
		v, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return s.fail(fmt.Errorf("invalid seed %q", args[0]))
		}
		seed = v
	}
	s.seed = seed
	s.engine.Reset(seed)
	s.log.Debug("Session reset", "seed", seed)
	return s.Snapshot()
}

func (s *Session) place(args []string) Snapshot {
	if len(args) != 3 {
		return s.fail(errors.New("usage: place <row> <col> <tile>"))
	}
	row, errRow := strconv.Atoi(args[0])
	col, errCol := strconv.Atoi(args[1])
	if errRow != nil || errCol != nil {
		return s.fail(fmt.Errorf("invalid position %s %s", args[0], args[1]))
	}
	t, ok := s.lookupTile(args[2])
	if !ok {
		return s.fail(fmt.Errorf("%w: unknown tile %q", wfc.ErrInvalidDomain, args[2]))
	}

	res, err := s.engine.Place(row, col, t)
	if err != nil {
		return s.fail(err)
	}
	snap := s.Snapshot()
	snap.Steps = []StepInfo{s.stepInfo(res)}
	return snap
}

func (s *Session) lookupTile(token string) (wfc.Tile, bool) {
	d := s.engine.Domain()
	if t, ok := d.Lookup(token); ok {
		return t, true
	}
	if id, err := strconv.Atoi(token); err == nil && d.Contains(wfc.Tile(id)) {
		return wfc.Tile(id), true
	}
	return wfc.NoTile, false
}

func (s *Session) resize(args []string) Snapshot {
	if len(args) != 2 {
		return s.fail(errors.New("usage: resize <rows> <cols>"))
	}
	rows, errRows := strconv.Atoi(args[0])
	cols, errCols := strconv.Atoi(args[1])
	if errRows != nil || errCols != nil {
		return s.fail(fmt.Errorf("%w: invalid size %s %s", wfc.ErrDimension, args[0], args[1]))
	}
	if rows <= 0 || cols <= 0 {
		return s.fail(fmt.Errorf("%w: grid is %dx%d", wfc.ErrDimension, rows, cols))
	}
	if !s.limits.FitsGrid(rows, cols) {
		return s.fail(fmt.Errorf("%w: %dx%d exceeds the %d cell limit", wfc.ErrDimension, rows, cols, s.limits.CellLimit()))
	}

	cfg := s.template
	cfg.Rows, cfg.Cols = rows, cols
	cfg.Seed = s.seed
	if cfg.Initial != nil && (cfg.Initial.Row >= rows || cfg.Initial.Col >= cols) {
		cfg.Initial = nil
	}
	e, err := wfc.NewEngine(cfg)
	if err != nil {
		return s.fail(err)
	}
	s.template = cfg
	s.engine = e
	s.log.Debug("Session resized", "rows", rows, "cols", cols)
	return s.Snapshot()
}

// Serve reads commands from client until it quits, disconnects, idles out
// or ctx is cancelled.
func (s *Session) Serve(ctx context.Context, client Client) {
	s.log.Info("Session started", "remote_addr", client.RemoteAddr())
	defer s.log.Info("Session ended", "rounds", s.engine.Rounds())

	if err := s.send(client, s.Snapshot()); err != nil {
		return
	}

	idle := s.limits.IdleTimeout()
	for ctx.Err() == nil {
		if idle > 0 {
			client.SetReadDeadline(time.Now().Add(idle))
		}
		line, err := client.ReadLine()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.log.Info("Session idle timeout", "idle", idle.String())
				snap := s.fail(errors.New("idle timeout"))
				s.send(client, snap)
			}
			return
		}

		reply, quit := s.Execute(ctx, ParseCommand(line))
		if err := s.send(client, reply); err != nil || quit {
			return
		}
	}
}

func (s *Session) send(client Client, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		s.log.Error("Failed to encode reply", "error", err)
		return err
	}
	if err := client.WriteLine(string(data)); err != nil {
		s.log.Debug("Failed to write reply", "error", err)
		return err
	}
	return nil
}
