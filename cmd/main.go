package main

//
//  @title           eftpulse API
//  @version         1.0
//  @description     Daily bank and customer EFT transaction summaries.
//  @termsOfService  https://github.com/guttosm/eftpulse
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/eftpulse
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        summaries
//  @tag.description Daily bank and customer transaction totals
//
//  @tag.name        runs
//  @tag.description Pipeline run reports
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/eftpulse/config"
	_ "github.com/guttosm/eftpulse/docs" // swagger docs
	"github.com/guttosm/eftpulse/internal/app"
	"github.com/guttosm/eftpulse/internal/logger"
)

const modeAPI = "api"

// startServer initializes and starts the HTTP server in a separate goroutine.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown blocks until SIGINT or SIGTERM, then shuts the server down
// within 10 seconds and runs cleanup.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// batchContext returns a context cancelled on SIGINT/SIGTERM or after timeout.
func batchContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// cliOptions are the command line flags.
type cliOptions struct {
	mode   string
	entity string
	data   string
	port   string
}

// parseFlags reads args (without the program name). defaultPort comes from SERVER_PORT.
//
// Flags:
//   - --mode:   run (default) | ingest | transform | load | api.
//   - --entity: bank | customer (transform and load only).
//   - --data:   input path or glob; overrides DATA_PATH.
//   - --port:   port for API mode.
func parseFlags(args []string, defaultPort string) (cliOptions, error) {
	var o cliOptions
	fs := flag.NewFlagSet("eftpulse", flag.ContinueOnError)
	fs.StringVar(&o.mode, "mode", app.ModeRun, "Mode: run, ingest, transform, load or api")
	fs.StringVar(&o.entity, "entity", "", "Entity stream for transform/load: bank or customer")
	fs.StringVar(&o.data, "data", "", "Input file or glob (overrides DATA_PATH)")
	fs.StringVar(&o.port, "port", defaultPort, "Port for API mode")
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	if fs.NArg() > 0 {
		return cliOptions{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// main is the entry point of the eftpulse application.
//
// Modes:
//   - run:       ingest, clean, aggregate and load both streams in one process.
//   - ingest:    load the input file(s) into the staging table.
//   - transform: clean and aggregate one stream from staging into its parquet handoff.
//   - load:      load one stream's handoff into its summary table.
//   - api:       serve the read API.
func main() {
	config.LoadConfig()
	logger.Init()

	opts, err := parseFlags(os.Args[1:], config.AppConfig.Server.Port)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("invalid arguments")
	}

	if opts.mode == modeAPI {
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, opts.port)
		gracefulShutdown(context.Background(), server, cleanup)
		return
	}

	ctx, cancel := batchContext(context.Background(), config.AppConfig.Pipeline.Timeout)
	defer cancel()

	logger.L().Info().Str("mode", opts.mode).Str("entity", opts.entity).Msg("batch start")
	err = app.RunBatch(ctx, config.AppConfig, app.BatchOptions{
		Mode:     opts.mode,
		Entity:   opts.entity,
		DataPath: opts.data,
	})
	if err != nil {
		cancel()
		logger.L().Fatal().Err(err).Str("mode", opts.mode).Msg("batch failed")
	}
	logger.L().Info().Str("mode", opts.mode).Msg("batch completed successfully")
}
