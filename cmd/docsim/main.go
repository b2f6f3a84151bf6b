// docsim API server
// Simulates a document-processing backend over an in-memory registry
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nainya/docsim/internal/config"
	"github.com/nainya/docsim/internal/logger"
	"github.com/nainya/docsim/internal/metrics"
	"github.com/nainya/docsim/internal/pipeline"
	"github.com/nainya/docsim/internal/seed"
	"github.com/nainya/docsim/internal/server"
	"github.com/nainya/docsim/pkg/document"
	"github.com/nainya/docsim/pkg/journal"
)

func main() {
	cfg := config.Load()

	logger.InitGlobalLogger(logger.Config{
		Level:      cfg.LogLevel,
		Pretty:     cfg.LogPretty,
		WithCaller: cfg.LogCaller,
	})
	log := logger.GetGlobalLogger()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	m := metrics.NewMetrics()
	store := document.NewRecordStore()
	jnl := journal.NewLog()

	if cfg.SeedEnabled {
		n, err := seed.Populate(store)
		if err != nil {
			log.Fatal("Failed to load seed corpus").Err(err).Send()
		}
		log.Info("Seed corpus loaded").Int("records", n).Send()
	}

	var driver *pipeline.Driver
	if cfg.PipelineEnabled {
		driver = pipeline.NewDriver(store, jnl, log, m, pipeline.Config{
			Tick:      cfg.PipelineTick,
			Seed:      cfg.PipelineSeed,
			MaxStarts: cfg.PipelineMaxStarts,
		})
		driver.Start()
	}

	api := server.NewServer(store, jnl, log, m, server.Config{
		Port:             cfg.Port,
		SimulatedLatency: cfg.SimulatedLatency,
	})
	obs := server.NewObservabilityServer(cfg.MetricsPort, store, log)

	go func() {
		if err := obs.Start(); err != nil {
			log.Error("Observability server stopped").Err(err).Send()
		}
	}()
	go func() {
		if err := api.Start(); err != nil {
			log.Fatal("API server stopped").Err(err).Send()
		}
	}()

	log.LogServerStart(cfg.Port, store.Len())
	log.LogServerReady(cfg.Port)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if driver != nil {
		driver.Stop()
	}
	if err := api.Shutdown(ctx); err != nil {
		log.Error("API server shutdown failed").Err(err).Send()
	}
	if err := obs.Shutdown(ctx); err != nil {
		log.Error("Observability server shutdown failed").Err(err).Send()
	}
}
