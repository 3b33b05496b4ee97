package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// It is composed of smaller structs that represent different concerns of the system,
// such as server settings, Postgres connection details and pipeline settings.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=admin
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=eft_db
//	POSTGRES_SSLMODE=disable
//	DATA_PATH=data/mock_transactions.csv
//	HANDOFF_URL=file:///tmp/eftpulse-handoff
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings
	Pipeline PipelineConfig // ETL pipeline settings
}

// ServerConfig holds HTTP server settings such as the port to listen on.
type ServerConfig struct {
	Port string // The TCP port the HTTP server will listen on (e.g., "8080")
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
//   - MaxOpenConns / MaxIdleConns / ConnMaxLifetime: database/sql pool limits.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PipelineConfig groups the settings of the ingest/transform/load stages.
//
// Fields:
//   - DataPath: delimited input file (plain or .zst compressed).
//   - StagingTable: raw staging table truncated and reloaded on every ingest.
//   - BankTable / CustomerTable: analytical summary tables, one per entity stream.
//   - HandoffURL: gocloud.dev blob URL where transform writes parquet files for load.
//   - Timeout: overall deadline of a batch run, checked between stages.
//   - PushgatewayURL: optional Prometheus Pushgateway; empty disables pushing.
type PipelineConfig struct {
	DataPath       string
	StagingTable   string
	BankTable      string
	CustomerTable  string
	HandoffURL     string
	Timeout        time.Duration
	PushgatewayURL string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and used throughout the application.
var AppConfig Config

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing, validateConfig() will terminate the app
//     with a descriptive log message.
func LoadConfig() {
	// Default values
	viper.SetDefault("SERVER_PORT", "8080")

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "eft_db")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")
	viper.SetDefault("POSTGRES_MAX_OPEN_CONNS", 10)
	viper.SetDefault("POSTGRES_MAX_IDLE_CONNS", 5)
	viper.SetDefault("POSTGRES_CONN_MAX_LIFETIME", "30m")

	viper.SetDefault("DATA_PATH", "data/mock_transactions.csv")
	viper.SetDefault("STAGING_TABLE", "stg_transactions")
	viper.SetDefault("BANK_TABLE", "ana_bank_daily_summary")
	viper.SetDefault("CUSTOMER_TABLE", "ana_customer_daily_summary")
	viper.SetDefault("HANDOFF_URL", "file:///tmp/eftpulse-handoff")
	viper.SetDefault("PIPELINE_TIMEOUT", "10m")
	viper.SetDefault("PUSHGATEWAY_URL", "")

	// Optionally read from .env if present (common in local dev)
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	// Read environment variables automatically
	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),

			MaxOpenConns:    viper.GetInt("POSTGRES_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("POSTGRES_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetDuration("POSTGRES_CONN_MAX_LIFETIME"),
		},
		Pipeline: PipelineConfig{
			DataPath:       viper.GetString("DATA_PATH"),
			StagingTable:   viper.GetString("STAGING_TABLE"),
			BankTable:      viper.GetString("BANK_TABLE"),
			CustomerTable:  viper.GetString("CUSTOMER_TABLE"),
			HandoffURL:     viper.GetString("HANDOFF_URL"),
			Timeout:        viper.GetDuration("PIPELINE_TIMEOUT"),
			PushgatewayURL: viper.GetString("PUSHGATEWAY_URL"),
		},
	}

	AppConfig.Postgres.URL = AppConfig.Postgres.DSN()

	validateConfig()
}

// DSN builds the postgres:// connection string for database/sql.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.DBName,
		p.SSLMode,
	)
}

// SummaryTables returns the analytical tables the loader may write to.
// Table names are identifiers and cannot be bound as parameters, so storage
// only accepts names from this list.
func (p PipelineConfig) SummaryTables() []string {
	return []string{p.BankTable, p.CustomerTable}
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing.
func validateConfig() {
	if missing := missingFields(AppConfig); len(missing) > 0 {
		log.Fatalf("missing required environment variables: %v\n", missing)
	}
}

func missingFields(cfg Config) []string {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if cfg.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if cfg.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if cfg.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if cfg.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if cfg.Pipeline.StagingTable == "" {
		missing = append(missing, "STAGING_TABLE")
	}
	if cfg.Pipeline.BankTable == "" {
		missing = append(missing, "BANK_TABLE")
	}
	if cfg.Pipeline.CustomerTable == "" {
		missing = append(missing, "CUSTOMER_TABLE")
	}
	if cfg.Pipeline.HandoffURL == "" {
		missing = append(missing, "HANDOFF_URL")
	}
	if cfg.Pipeline.Timeout <= 0 {
		missing = append(missing, "PIPELINE_TIMEOUT")
	}

	return missing
}
