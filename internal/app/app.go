package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/eftpulse/config"
	"github.com/guttosm/eftpulse/internal/api"
	"github.com/guttosm/eftpulse/internal/domain/models"
	"github.com/guttosm/eftpulse/internal/metrics"
	"github.com/guttosm/eftpulse/internal/pipeline"
	"github.com/guttosm/eftpulse/internal/service"
	"github.com/guttosm/eftpulse/internal/storage"
)

// MetricsNamespace prefixes every exported Prometheus metric.
const MetricsNamespace = "eftpulse"

// Tables maps each entity stream to its configured analytical table.
func Tables(cfg config.PipelineConfig) pipeline.Tables {
	return pipeline.Tables{
		models.EntityBank:     cfg.BankTable,
		models.EntityCustomer: cfg.CustomerTable,
	}
}

// InitializeApp sets up the read API and returns a configured Gin router,
// a cleanup function for graceful shutdown, and any initialization error.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Initializes the summary and run log repositories.
//   - Builds the summary service and HTTP handler layer.
//   - Configures the Gin router and registers health and readiness probes.
//   - Registers pipeline metrics so /metrics exposes them.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	metrics.Init(MetricsNamespace)

	summaries := storage.NewSummaryRepository(db, cfg.Pipeline.SummaryTables()...)
	runs := storage.NewRunLogRepository(db)
	svc := service.NewSummaryService(summaries, runs, Tables(cfg.Pipeline))

	router := api.NewRouter(api.NewHandler(svc))
	api.NewHealthHandler(
		api.Check{Name: "postgres", Fn: db.PingContext},
		api.Check{Name: "run_log", Fn: func(ctx context.Context) error {
			_, err := runs.LatestRun(ctx)
			return err
		}},
	).Register(router)

	cleanup := func() {
		_ = db.Close()
	}

	return router, cleanup, nil
}
