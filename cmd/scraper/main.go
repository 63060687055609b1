// One-shot scraper: runs a single fetch cycle against all configured
// sources and ingests the results, then exits. Useful for seeding a
// dataset or debugging source adapters without the daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/internal/dataset"
	"trainhub/internal/fetch"
	"trainhub/internal/registry"
	"trainhub/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config.yaml")
	sourcesPath := flag.String("sources", "config/sources.yaml", "path to sources.yaml")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	sources, err := config.LoadSources(*sourcesPath)
	if err != nil {
		log.Fatal("failed to load sources config", zap.Error(err))
	}

	backend, err := dataset.NewLocalBackend(cfg.Storage.LocalPath)
	if err != nil {
		log.Fatal("failed to open dataset dir", zap.Error(err))
	}
	dedupe, err := dataset.OpenDedupeStore(cfg.Storage.LocalPath)
	if err != nil {
		log.Fatal("failed to open dedup store", zap.Error(err))
	}
	defer dedupe.Close()

	ds := dataset.NewManager(backend, dedupe, cfg.Storage.LocalPath, log)

	reg, err := registry.New(cfg.Storage.ModelsPath, log)
	if err != nil {
		log.Fatal("failed to open model registry", zap.Error(err))
	}

	fetchers := fetch.BuildFetchers(sources, log)
	if len(fetchers) == 0 {
		log.Fatal("no sources enabled")
	}
	pacing := time.Duration(cfg.Scrape.PacingMS) * time.Millisecond
	fm := fetch.NewManager(fetchers, reg, service.DefaultModel, pacing, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	results := fm.RunCycle(ctx, cfg.Scrape.LimitPerSource)

	added := 0
	for _, r := range results {
		if ds.AddSample(ctx, r.Image, r.Sample) {
			added++
		}
	}

	stats := ds.Stats(ctx)
	log.Info("scrape finished",
		zap.Int("fetched", len(results)),
		zap.Int("added", added),
		zap.Int("dataset_total", stats.Total))
}
