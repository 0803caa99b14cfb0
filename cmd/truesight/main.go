// truesight: exam proctoring detection service
// Serves overlay and person/phone detection over HTTP and WebSocket.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-truesight/internal/config"
	"github.com/teslashibe/go-truesight/internal/log"
	"github.com/teslashibe/go-truesight/pkg/app"
)

var version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to config file (default: $TRUESIGHT_CONFIG or ./config.yaml)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	debug := flag.Bool("debug", false, "Enable request logging and debug output")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Init("info")
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Server.Debug = true
		cfg.Log.Level = "debug"
	}
	log.Init(cfg.Log.Level)
	log.Info("starting truesight", "version", version, "port", cfg.Server.Port)

	a := app.New(cfg, version)
	if err := a.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		a.Shutdown()
		os.Exit(1)
	}
	log.Info("shut down")
}
