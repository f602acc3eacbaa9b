// Command flowtransforms runs the report and stream transforms as a service.
//
// Reports arrive on Pub/Sub or MQTT and are republished as REST request bodies;
// stream aliases arrive on Pub/Sub and are republished as RTSP stream descriptors.
// Both transforms are also served synchronously over HTTP.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/illmade-knight/go-flowtransforms/pkg/microservice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the service configuration file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration.")
	}

	logger := newLogger(cfg.BaseConfig)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build service.")
	}
	if err := app.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start service.")
	}
	logger.Info().Str("http_port", app.server.GetHTTPPort()).Msg("Service started.")

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.Shutdown(shutdownCtx)
	logger.Info().Msg("Service stopped.")
}

// newLogger builds the service logger from the level and format settings.
func newLogger(cfg microservice.BaseConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.With().Timestamp().Str("service", cfg.ServiceName).Logger()
}
