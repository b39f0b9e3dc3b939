// Command wfcview steps a generation run interactively in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/logger"
	"github.com/lawnchairsociety/wavetiles/internal/render"
	"github.com/lawnchairsociety/wavetiles/internal/telemetry"
	"github.com/lawnchairsociety/wavetiles/internal/viewer"
	"github.com/lawnchairsociety/wavetiles/internal/wfc"
)

func main() {
	genFile := flag.String("config", "", "Path to generation config YAML file (empty for the built-in coastline)")
	settingsFile := flag.String("settings", "data/wavetiles.yaml", "Path to logging settings YAML file")
	seed := flag.Int64("seed", 0, "Random seed (overrides the config)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Note: .env file not loaded: %v", err)
	}

	// The console handler would draw over the screen, so only the file
	// handler stays enabled.
	logConfig, err := logger.LoadConfig(*settingsFile)
	if err != nil {
		log.Fatalf("Failed to load logging config: %v", err)
	}
	off := false
	logConfig.ConsoleEnabled = &off
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	ctx := context.Background()
	tracingEnabled := false
	if telemetry.Enabled() {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			logger.Warning("Telemetry setup failed", "error", err)
		} else {
			tracingEnabled = true
			defer shutdown(ctx)
		}
	}

	gen := config.DefaultGeneration()
	if *genFile != "" {
		if gen, err = config.LoadGeneration(*genFile); err != nil {
			log.Fatalf("Failed to load generation config: %v", err)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			gen.Seed = *seed
		}
	})

	cfg, err := gen.Build()
	if err != nil {
		log.Fatalf("Invalid generation config: %v", err)
	}
	palette, err := render.PaletteFor(cfg.Domain, gen.Styles())
	if err != nil {
		log.Fatalf("Invalid tile colours: %v", err)
	}
	engine, err := wfc.NewEngine(cfg)
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	screen, err := render.NewScreen()
	if err != nil {
		log.Fatalf("Failed to initialize screen: %v", err)
	}

	v := viewer.New(screen, palette, engine, cfg.Seed)
	if tracingEnabled {
		v.SetTracer(telemetry.Tracer("viewer"))
	}
	err = v.Run(ctx)
	screen.Close()
	if err != nil {
		log.Fatalf("Viewer error: %v", err)
	}
}
