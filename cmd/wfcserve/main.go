// Command wfcserve serves interactive generation sessions over WebSocket and
// TCP. Each connection owns its own engine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/lawnchairsociety/wavetiles/internal/config"
	"github.com/lawnchairsociety/wavetiles/internal/logger"
	"github.com/lawnchairsociety/wavetiles/internal/render"
	"github.com/lawnchairsociety/wavetiles/internal/rulestore"
	"github.com/lawnchairsociety/wavetiles/internal/server"
	"github.com/lawnchairsociety/wavetiles/internal/telemetry"
)

func main() {
	port := flag.Int("port", 4000, "TCP server port (0 disables)")
	wsPort := flag.Int("wsport", 4443, "WebSocket server port")
	genFile := flag.String("config", "", "Path to generation config YAML file (empty for the built-in coastline)")
	settingsFile := flag.String("settings", "data/wavetiles.yaml", "Path to logging/server/store settings YAML file")
	load := flag.String("load", "", "Serve the rule set stored under this name")
	flag.Parse()

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

	logger.Info("Starting wavetiles server")

	ctx := context.Background()
	if telemetry.Enabled() {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			logger.Warning("Telemetry setup failed, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := shutdown(ctx); err != nil {
					logger.Error("Error shutting down telemetry", "error", err)
				}
			}()
		}
	}

	serverConfig, err := config.LoadConfig(*settingsFile)
	if err != nil {
		log.Fatalf("Failed to load server config: %v", err)
	}

	gen := config.DefaultGeneration()
	if *genFile != "" {
		if gen, err = config.LoadGeneration(*genFile); err != nil {
			log.Fatalf("Failed to load generation config: %v", err)
		}
	}
	template, err := gen.Build()
	if err != nil {
		log.Fatalf("Invalid generation config: %v", err)
	}

	if *load != "" {
		storeConfig, err := config.LoadStoreConfig(*settingsFile)
		if err != nil {
			log.Fatalf("Failed to load store config: %v", err)
		}
		store, err := rulestore.OpenWithConfig(storeConfig)
		if err != nil {
			log.Fatalf("Failed to open rule store: %v", err)
		}
		template.Domain, template.Rules, err = store.Load(*load)
		store.Close()
		if err != nil {
			log.Fatalf("Failed to load rule set: %v", err)
		}
		template.Initial = nil
		logger.Info("Serving stored rule set", "name", *load)
	}

	palette, err := render.PaletteFor(template.Domain, gen.Styles())
	if err != nil {
		log.Fatalf("Invalid tile colours: %v", err)
	}

	srv, err := server.NewServer(serverConfig, template, palette)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	if telemetry.Enabled() {
		srv.SetTracer(telemetry.Tracer("server"))
	}

	if *port > 0 {
		go func() {
			if err := srv.Start(fmt.Sprintf(":%d", *port)); err != nil {
				log.Fatalf("TCP server error: %v", err)
			}
		}()
	}

	go func() {
		if err := srv.StartWebSocket(fmt.Sprintf(":%d", *wsPort)); err != nil {
			log.Fatalf("WebSocket server error: %v", err)
		}
	}()

	logger.Info("Server running",
		"tcp_port", *port,
		"websocket_port", *wsPort,
		"rows", template.Rows,
		"cols", template.Cols)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server")
	srv.Shutdown()
}
