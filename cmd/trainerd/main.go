package main

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

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"trainhub/internal/api"
	"trainhub/internal/config"
	"trainhub/internal/dataset"
	"trainhub/internal/fetch"
	"trainhub/internal/labeler"
	"trainhub/internal/registry"
	"trainhub/internal/service"
	"trainhub/internal/trainer"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config.yaml")
	sourcesPath := flag.String("sources", "config/sources.yaml", "path to sources.yaml")
	flag.Parse()

	log, err := buildLogger()
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

	svc, closeFn, err := buildService(cfg, sources, log)
	if err != nil {
		log.Fatal("failed to initialize service", zap.Error(err))
	}
	defer closeFn()

	// Scheduler: the two periodic activities run independently.
	sched := cron.New()
	scrapeEvery := time.Duration(cfg.Scheduler.ScrapeIntervalHours) * time.Hour
	trainEvery := time.Duration(cfg.Scheduler.TrainIntervalDays) * 24 * time.Hour

	_, err = sched.AddFunc(fmt.Sprintf("@every %s", scrapeEvery), func() {
		if err := svc.RunScrape(context.Background()); err != nil {
			if errors.Is(err, service.ErrBusy) {
				log.Info("scheduled scrape skipped: already in progress")
				return
			}
			log.Error("scheduled scrape failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("failed to schedule scrape job", zap.Error(err))
	}
	_, err = sched.AddFunc(fmt.Sprintf("@every %s", trainEvery), func() {
		if err := svc.RunTrain(context.Background()); err != nil {
			if errors.Is(err, service.ErrBusy) {
				log.Info("scheduled training skipped: already in progress")
				return
			}
			log.Error("scheduled training failed", zap.Error(err))
		}
	})
	if err != nil {
		log.Fatal("failed to schedule training job", zap.Error(err))
	}
	sched.Start()
	log.Info("scheduler started",
		zap.Duration("scrape_every", scrapeEvery),
		zap.Duration("train_every", trainEvery))

	server := api.NewServer(svc, cfg.APIKey, log)
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP API listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	// In-flight adapter calls are abandoned on shutdown, not
	// cancelled cooperatively.
	log.Info("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	log.Info("stopped")
}

func buildLogger() (*zap.Logger, error) {
	if os.Getenv("TRAINHUB_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// buildService assembles all components from configuration. Startup
// errors here (un-creatable directories, unreadable dedup store) are
// the only fatal errors in the system.
func buildService(cfg *config.Config, sources *config.SourcesConfig, log *zap.Logger) (*service.Service, func(), error) {
	var backend dataset.Backend
	switch cfg.Storage.Driver {
	case "s3":
		backend = dataset.NewS3Backend(cfg.Storage.S3Bucket, log)
	default:
		local, err := dataset.NewLocalBackend(cfg.Storage.LocalPath)
		if err != nil {
			return nil, nil, err
		}
		backend = local
	}

	dedupe, err := dataset.OpenDedupeStore(cfg.Storage.LocalPath)
	if err != nil {
		return nil, nil, err
	}

	ds := dataset.NewManager(backend, dedupe, cfg.Storage.LocalPath, log)

	reg, err := registry.New(cfg.Storage.ModelsPath, log)
	if err != nil {
		_ = dedupe.Close()
		return nil, nil, err
	}

	fetchers := fetch.BuildFetchers(sources, log)
	var fm *fetch.Manager
	if len(fetchers) > 0 {
		pacing := time.Duration(cfg.Scrape.PacingMS) * time.Millisecond
		fm = fetch.NewManager(fetchers, reg, service.DefaultModel, pacing, log)
	}

	var lb *labeler.Labeler
	if cfg.Detector.Enabled && cfg.Detector.Endpoint != "" {
		lb = labeler.New(labeler.NewDetectorClient(cfg.Detector.Endpoint, true, log), log)
	}

	svc := service.New(cfg, log, ds, fm, reg, trainer.NewMockBackend(log), lb)
	closeFn := func() {
		if err := dedupe.Close(); err != nil {
			log.Error("closing dedup store", zap.Error(err))
		}
	}
	return svc, closeFn, nil
}
