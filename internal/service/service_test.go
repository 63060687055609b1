package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/internal/dataset"
	"trainhub/internal/fetch"
	"trainhub/internal/registry"
	"trainhub/internal/trainer"
	"trainhub/pkg/models"
)

type blockingFetcher struct {
	entered     chan struct{}
	enteredOnce sync.Once
	release     chan struct{}
	results     []fetch.Result
}

func (f *blockingFetcher) Name() string { return "unsplash" }

func (f *blockingFetcher) Fetch(ctx context.Context, limit int) ([]fetch.Result, error) {
	if f.entered != nil {
		f.enteredOnce.Do(func() { close(f.entered) })
	}
	if f.release != nil {
		<-f.release
	}
	return f.results, nil
}

func newTestService(t *testing.T, fetchers []fetch.Fetcher) *Service {
	t.Helper()
	dir := t.TempDir()

	backend, err := dataset.NewLocalBackend(dir)
	if err != nil {
		t.Fatalf("NewLocalBackend: %v", err)
	}
	dedupe, err := dataset.OpenDedupeStore(dir)
	if err != nil {
		t.Fatalf("OpenDedupeStore: %v", err)
	}
	t.Cleanup(func() { dedupe.Close() })

	log := zap.NewNop()
	ds := dataset.NewManager(backend, dedupe, dir, log)

	reg, err := registry.New(t.TempDir(), log)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	var fm *fetch.Manager
	if len(fetchers) > 0 {
		fm = fetch.NewManager(fetchers, reg, DefaultModel, 0, log)
	}

	cfg := &config.Config{}
	cfg.Scrape.LimitPerSource = 5

	return New(cfg, log, ds, fm, reg, trainer.NewMockBackend(log), nil)
}

func fetchResult(hash string) fetch.Result {
	return fetch.Result{
		Image: []byte("img-" + hash),
		Sample: models.Sample{
			Source: "unsplash",
			Label:  models.LabelReal,
			Hash:   hash,
		},
	}
}

func TestRunScrapeIngestsResults(t *testing.T) {
	f := &blockingFetcher{results: []fetch.Result{fetchResult("a"), fetchResult("b")}}
	svc := newTestService(t, []fetch.Fetcher{f})

	if err := svc.RunScrape(context.Background()); err != nil {
		t.Fatalf("RunScrape: %v", err)
	}

	stats := svc.Stats(context.Background())
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if svc.LastScrape() == "" {
		t.Error("last scrape timestamp not set")
	}
}

func TestRunScrapeNotConfigured(t *testing.T) {
	svc := newTestService(t, nil)

	if err := svc.RunScrape(context.Background()); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("RunScrape = %v, want ErrNotConfigured", err)
	}
	if got := svc.StartScrape(); got != "scraper not configured" {
		t.Errorf("StartScrape = %q", got)
	}
}

func TestScrapeExclusiveWithItself(t *testing.T) {
	f := &blockingFetcher{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, []fetch.Fetcher{f})

	done := make(chan error, 1)
	go func() { done <- svc.RunScrape(context.Background()) }()

	select {
	case <-f.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first scrape never reached the fetcher")
	}

	if err := svc.RunScrape(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent RunScrape = %v, want ErrBusy", err)
	}
	if got := svc.StartScrape(); got != "scrape already in progress" {
		t.Errorf("StartScrape while busy = %q", got)
	}

	close(f.release)
	if err := <-done; err != nil {
		t.Fatalf("first scrape: %v", err)
	}

	// The flag clears once the run finishes.
	if err := svc.RunScrape(context.Background()); err != nil {
		t.Errorf("scrape after completion = %v", err)
	}
}

func TestRunTrainSkipsSmallDataset(t *testing.T) {
	svc := newTestService(t, nil)

	if err := svc.RunTrain(context.Background()); err != nil {
		t.Fatalf("RunTrain: %v", err)
	}
	if got := len(svc.Registry.List("")); got != 0 {
		t.Errorf("registry has %d entries after skipped run, want 0", got)
	}
	if svc.LastTrain() != "" {
		t.Error("last train timestamp set for skipped run")
	}
}

func TestRunTrainRegistersModel(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < minTrainingSamples; i++ {
		sample := models.Sample{
			Source: "unsplash",
			Label:  models.LabelReal,
			Hash:   fmt.Sprintf("hash-%d", i),
		}
		if !svc.Dataset.AddSample(ctx, []byte{byte(i)}, sample) {
			t.Fatalf("seed sample %d rejected", i)
		}
	}

	if err := svc.RunTrain(ctx); err != nil {
		t.Fatalf("RunTrain: %v", err)
	}

	entries := svc.Registry.List(DefaultModel)
	if len(entries) != 1 {
		t.Fatalf("registry entries = %d, want 1", len(entries))
	}
	if entries[0].Version != "v1" {
		t.Errorf("version = %q, want v1", entries[0].Version)
	}
	if _, ok := svc.Registry.LatestAccuracy(DefaultModel); !ok {
		t.Error("no accuracy recorded for the run")
	}
	if svc.LastTrain() == "" {
		t.Error("last train timestamp not set")
	}
}

func TestTrainExclusiveWithItself(t *testing.T) {
	svc := newTestService(t, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	svc.Trainer = trainerFunc(func(ctx context.Context, stats models.DatasetStats) (map[string]any, error) {
		close(entered)
		<-release
		return map[string]any{"val_acc": 0.9}, nil
	})

	ctx := context.Background()
	for i := 0; i < minTrainingSamples; i++ {
		svc.Dataset.AddSample(ctx, []byte{byte(i)}, models.Sample{
			Source: "unsplash", Label: models.LabelReal, Hash: fmt.Sprintf("h-%d", i),
		})
	}

	done := make(chan error, 1)
	go func() { done <- svc.RunTrain(ctx) }()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first train never reached the backend")
	}

	if err := svc.RunTrain(ctx); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent RunTrain = %v, want ErrBusy", err)
	}
	if got := svc.StartTrain(); got != "training already in progress" {
		t.Errorf("StartTrain while busy = %q", got)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first train: %v", err)
	}
}

type trainerFunc func(ctx context.Context, stats models.DatasetStats) (map[string]any, error)

func (f trainerFunc) Train(ctx context.Context, stats models.DatasetStats) (map[string]any, error) {
	return f(ctx, stats)
}

func TestUptimeAdvances(t *testing.T) {
	svc := newTestService(t, nil)
	if svc.Uptime() < 0 {
		t.Error("negative uptime")
	}
}
