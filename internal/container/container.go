package container

import (
	"context"
	"fmt"

	"gocausal/adapters/memory"
	"gocausal/adapters/postgres"
	"gocausal/adapters/rng"
	"gocausal/app"
	"gocausal/internal"
	"gocausal/internal/api"
	"gocausal/internal/config"
	"gocausal/internal/metrics"
	"gocausal/internal/migration"
	"gocausal/ports"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB       *sqlx.DB // nil unless DATABASE_URL is set
	Registry *prometheus.Registry
	Metrics  *metrics.SamplerMetrics
	RNG      ports.RNGPort
	Ledger   ports.RunLedger // in memory until InitDatabase connects

	// Services
	Sampling *app.SamplingService
	Demo     *app.DemoService
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewSamplerMetrics(registry)
	rngPort := rng.New()
	ledger := memory.NewRunLedger(cfg.Ledger.Capacity)

	sampling := app.NewSamplingService(cfg, m, logger)
	sampling.SetLedger(ledger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  m,
		RNG:      rngPort,
		Ledger:   ledger,
		Sampling: sampling,
		Demo:     app.NewDemoService(cfg, rngPort, m, logger),
	}, nil
}

// InitDatabase connects to DATABASE_URL when one is configured, migrates
// the schema and moves the run ledger into the database
func (c *Container) InitDatabase(ctx context.Context) error {
	if c.Config.Database.URL == "" {
		c.Logger.Debug("no DATABASE_URL; table sources disabled, runs kept in memory")
		return nil
	}
	db, err := postgres.Open(ctx, c.Config.Database.URL)
	if err != nil {
		return err
	}
	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	c.DB = db
	c.Ledger = postgres.NewRunLedger(db)
	c.Sampling.SetLedger(c.Ledger)
	c.Logger.Info("database connected, schema %s", runner.Version())
	return nil
}

// QueryReader returns a reader over a SQL query; requires InitDatabase
func (c *Container) QueryReader(query string) (ports.DatasetReader, error) {
	if c.DB == nil {
		return nil, fmt.Errorf("query source needs DATABASE_URL")
	}
	return postgres.NewQueryReader(c.DB, query, c.Logger), nil
}

// TableSource returns the API's table reader factory, nil without a database
func (c *Container) TableSource() api.TableSource {
	if c.DB == nil {
		return nil
	}
	return func(table string, columns []string) (ports.DatasetReader, error) {
		return postgres.NewTableReader(c.DB, table, columns, c.Logger)
	}
}

// Shutdown releases held resources
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
