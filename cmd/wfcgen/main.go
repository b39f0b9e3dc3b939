// Command wfcgen generates one tile grid and prints it, optionally saving or
// loading the rule set through the rule store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/export"
	"github.com/lawnchairsociety/wavetiles/internal/logger"
	"github.com/lawnchairsociety/wavetiles/internal/render"
	"github.com/lawnchairsociety/wavetiles/internal/rulestore"
	"github.com/lawnchairsociety/wavetiles/internal/telemetry"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

func main() {
	genFile := flag.String("config", "", "Path to generation config YAML file (empty for the built-in coastline)")
	settingsFile := flag.String("settings", "data/wavetiles.yaml", "Path to logging/store settings YAML file")
	seed := flag.Int64("seed", 0, "Random seed (overrides the config)")
	rows := flag.Int("rows", 0, "Grid rows (overrides the config)")
	cols := flag.Int("cols", 0, "Grid columns (overrides the config)")
	format := flag.String("format", "ansi", "Output format: text, ansi, yaml or rules")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	strict := flag.Bool("strict", false, "Exit with status 2 if the grid breaks any rule")
	cascade := flag.Bool("cascade", false, "Propagate from cells resolved by propagation (overrides the config)")
	save := flag.String("save", "", "Save the rule set to the store under this name")
	description := flag.String("description", "", "Description stored with -save")
	load := flag.String("load", "", "Use the rule set stored under this name")
	list := flag.Bool("list", false, "List stored rule sets and exit")
	remove := flag.String("delete", "", "Delete a stored rule set and exit")
	flag.Parse()

	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Note: .env file not loaded: %v", err)
	}

	logConfig, err := logger.LoadConfig(*settingsFile)
	if err != nil {
		log.Fatalf("Failed to load logging config: %v", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx := context.Background()
	if telemetry.Enabled() {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			logger.Warning("Telemetry setup failed", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	var store *rulestore.Store
	if *list || *remove != "" || *save != "" || *load != "" {
		storeConfig, err := config.LoadStoreConfig(*settingsFile)
		if err != nil {
			fatal("Failed to load store config: %v", err)
		}
		store, err = rulestore.OpenWithConfig(storeConfig)
		if err != nil {
			fatal("Failed to open rule store: %v", err)
		}
		defer store.Close()
	}

	switch {
	case *list:
		if err := listRuleSets(os.Stdout, store); err != nil {
			fatal("Failed to list rule sets: %v", err)
		}
		return
	case *remove != "":
		if err := store.Delete(*remove); err != nil {
			fatal("Failed to delete rule set: %v", err)
		}
		return
	}

	gen := config.DefaultGeneration()
	if *genFile != "" {
		if gen, err = config.LoadGeneration(*genFile); err != nil {
			fatal("Failed to load generation config: %v", err)
		}
	}
	if setFlags["seed"] {
		gen.Seed = *seed
	}
	if setFlags["rows"] {
		gen.Rows = *rows
	}
	if setFlags["cols"] {
		gen.Cols = *cols
	}
	if setFlags["cascade"] {
		gen.Cascade = *cascade
	}

	cfg, err := gen.Build()
	if err != nil {
		fatal("Invalid generation config: %v", err)
	}
	if *load != "" {
		if cfg.Domain, cfg.Rules, err = store.Load(*load); err != nil {
			fatal("Failed to load rule set: %v", err)
		}
		cfg.Initial = nil
	}
	if *save != "" {
		if _, err := store.Save(*save, *description, cfg.Domain, cfg.Rules); err != nil {
			fatal("Failed to save rule set: %v", err)
		}
	}

	palette, err := render.PaletteFor(cfg.Domain, gen.Styles())
	if err != nil {
		fatal("Invalid tile colours: %v", err)
	}

	out := io.Writer(os.Stdout)
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fatal("Failed to create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	if *format == "rules" {
		if err := export.WriteRules(out, cfg.Domain, cfg.Rules, palette); err != nil {
			fatal("Failed to write rules: %v", err)
		}
		return
	}

	engine, err := wfc.NewEngine(cfg)
	if err != nil {
		fatal("Failed to create engine: %v", err)
	}
	telemetry.Run(ctx, telemetry.Tracer("wfcgen"), engine)

	switch *format {
	case "text":
		fmt.Fprint(out, render.Text(engine.Grid(), palette))
	case "ansi":
		fmt.Fprint(out, render.ANSI(engine.Grid(), palette))
	case "yaml":
		if err := export.WriteGrid(out, engine, cfg.Seed, palette); err != nil {
			fatal("Failed to write grid: %v", err)
		}
	default:
		fatal("Unknown format %q", *format)
	}

	if violations := wfc.Violations(engine.Grid(), cfg.Rules); len(violations) > 0 {
		logger.Warning("Grid breaks adjacency rules",
			"violations", len(violations),
			"suppressed", engine.Suppressed())
		if *strict {
			logger.Close()
			os.Exit(2)
		}
	}
}

func listRuleSets(w io.Writer, store *rulestore.Store) error {
	sets, err := store.List()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTILES\tRULES\tCREATED\tDESCRIPTION")
	for _, s := range sets {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n",
			s.Name, s.Tiles, s.Rules, s.CreatedAt.Format("2006-01-02 15:04"), s.Description)
	}
	return tw.Flush()
}

func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Error(msg)
	logger.Close()
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
