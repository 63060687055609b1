// Package service wires the components together and owns the two
// activity state machines (fetch cycle, training cycle).
package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"trainhub/internal/config"
	"trainhub/internal/dataset"
	"trainhub/internal/fetch"
	"trainhub/internal/labeler"
	"trainhub/internal/metrics"
	"trainhub/internal/registry"
	"trainhub/internal/trainer"
	"trainhub/pkg/models"
)

// DefaultModel is the model name used for scheduled training runs.
const DefaultModel = "vit"

// minTrainingSamples is the dataset floor below which a training run
// is skipped.
const minTrainingSamples = 50

var (
	ErrBusy          = errors.New("already in progress")
	ErrNotConfigured = errors.New("not configured")
)

// Service is the explicit context object handed to HTTP handlers and
// the scheduler: component references plus per-activity busy flags.
// Each activity is exclusive with itself (a second trigger while one
// is running is a no-op); scrape and train may overlap each other.
type Service struct {
	cfg *config.Config
	log *zap.Logger

	Dataset  *dataset.Manager
	Fetch    *fetch.Manager // nil when no sources are configured
	Registry *registry.Registry
	Trainer  trainer.Backend
	Labeler  *labeler.Labeler // nil when the detector is disabled

	scraping atomic.Bool
	training atomic.Bool

	mu         sync.Mutex
	start      time.Time
	lastScrape string
	lastTrain  string
}

func New(cfg *config.Config, log *zap.Logger, ds *dataset.Manager, fm *fetch.Manager, reg *registry.Registry, tr trainer.Backend, lb *labeler.Labeler) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		Dataset:  ds,
		Fetch:    fm,
		Registry: reg,
		Trainer:  tr,
		Labeler:  lb,
		start:    time.Now(),
	}
}

// RunScrape executes one fetch cycle synchronously: fan out to all
// sources, label anything unlabeled, ingest through the dedup path.
// ErrBusy when a cycle is already in flight, ErrNotConfigured when
// there is no fetch manager.
func (s *Service) RunScrape(ctx context.Context) error {
	if s.Fetch == nil {
		return ErrNotConfigured
	}
	if !s.scraping.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.scraping.Store(false)

	s.log.Info("starting scrape job")
	results := s.Fetch.RunCycle(ctx, s.cfg.Scrape.LimitPerSource)

	added := 0
	for _, r := range results {
		sample := r.Sample
		if s.Labeler != nil && sample.Label == "" {
			sample = s.Labeler.Label(ctx, r.Image, sample)
		}
		if s.Dataset.AddSample(ctx, r.Image, sample) {
			added++
		}
	}

	s.setLastScrape(models.Now())
	s.log.Info("scrape complete", zap.Int("added", added), zap.Int("fetched", len(results)))
	return nil
}

// StartScrape launches a fetch cycle in the background and reports a
// status string for the API response.
func (s *Service) StartScrape() string {
	if s.Fetch == nil {
		return "scraper not configured"
	}
	if s.scraping.Load() {
		return "scrape already in progress"
	}
	go func() {
		if err := s.RunScrape(context.Background()); err != nil && !errors.Is(err, ErrBusy) {
			s.log.Error("scrape job failed", zap.Error(err))
		}
	}()
	return "scrape started"
}

// RunTrain executes one training cycle synchronously: read dataset
// statistics, run the training backend, register the resulting
// metrics. Runs are skipped while the dataset is too small.
func (s *Service) RunTrain(ctx context.Context) error {
	if s.Trainer == nil {
		return ErrNotConfigured
	}
	if !s.training.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.training.Store(false)

	s.log.Info("starting training job")
	stats := s.Dataset.Stats(ctx)
	if stats.Total < minTrainingSamples {
		s.log.Warn("insufficient data for training",
			zap.Int("samples", stats.Total),
			zap.Int("required", minTrainingSamples))
		return nil
	}

	metricsBag, err := s.Trainer.Train(ctx, stats)
	if err != nil {
		s.log.Error("training failed", zap.Error(err))
		return nil
	}

	version, err := s.Registry.Register(DefaultModel, metricsBag)
	if err != nil {
		s.log.Error("model registration failed", zap.Error(err))
		return nil
	}

	metrics.TrainingRuns.Inc()
	s.setLastTrain(models.Now())
	s.log.Info("training complete", zap.String("version", version))
	return nil
}

// StartTrain launches a training cycle in the background and reports
// a status string for the API response.
func (s *Service) StartTrain() string {
	if s.Trainer == nil {
		return "trainer not configured"
	}
	if s.training.Load() {
		return "training already in progress"
	}
	go func() {
		if err := s.RunTrain(context.Background()); err != nil && !errors.Is(err, ErrBusy) {
			s.log.Error("training job failed", zap.Error(err))
		}
	}()
	return "training started"
}

// Uptime reports seconds since service start.
func (s *Service) Uptime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.start).Seconds()
}

// LastScrape and LastTrain return the completion timestamps of the
// most recent runs, empty when a run has not completed yet.
func (s *Service) LastScrape() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScrape
}

func (s *Service) LastTrain() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTrain
}

func (s *Service) setLastScrape(ts string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScrape = ts
}

func (s *Service) setLastTrain(ts string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastTrain = ts
}

// Stats proxies dataset statistics for the HTTP layer.
func (s *Service) Stats(ctx context.Context) models.DatasetStats {
	return s.Dataset.Stats(ctx)
}
