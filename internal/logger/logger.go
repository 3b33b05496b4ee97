package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line.
const ServiceName = "eftpulse"

var (
	mu   sync.RWMutex
	base zerolog.Logger
	out  io.Writer = os.Stdout
)

// Init configures the global JSON logger.
//
// Environment variables (optional):
//   - LOG_LEVEL: debug|info|warn|error (default: info)
//   - LOG_PRETTY: true|false (default: false)
func Init() {
	mu.Lock()
	defer mu.Unlock()
	configure(out)
}

func configure(w io.Writer) {
	level := parseLevel(getenv("LOG_LEVEL", "info"))
	pretty := strings.EqualFold(getenv("LOG_PRETTY", "false"), "true")

	zerolog.TimeFieldFormat = time.RFC3339Nano
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	base = zerolog.New(w).With().Timestamp().Str("service", ServiceName).Logger().Level(level)
}

// SetOutput redirects the global logger to w and returns a func restoring the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := out
	out = w
	configure(w)
	mu.Unlock()

	return func() {
		mu.Lock()
		out = prev
		configure(prev)
		mu.Unlock()
	}
}

// L returns the global logger, initializing it on first use.
func L() *zerolog.Logger {
	mu.RLock()
	ready := base.GetLevel() != zerolog.NoLevel
	mu.RUnlock()
	if !ready {
		Init()
	}
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// Run returns a child logger tagged with a pipeline run id.
func Run(runID string) zerolog.Logger {
	return L().With().Str("run_id", runID).Logger()
}

// Stage returns a child logger tagged with the entity stream and pipeline stage.
// An empty stream is omitted, which is the case for the shared ingest stage.
func Stage(stream, stage string) zerolog.Logger {
	ctx := L().With().Str("stage", stage)
	if stream != "" {
		ctx = ctx.Str("stream", stream)
	}
	return ctx.Logger()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error", "err":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
