package fetch

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"trainhub/internal/metrics"
	"trainhub/pkg/models"
)

// accuracyThreshold separates the balanced fetch regime from the
// real-skewed regime. Once the model clears it, fetching biases
// toward real photos so future training sees harder negatives.
const accuracyThreshold = 0.8

// estimatedCallsCap caps the per-source call estimate recorded in the
// ledger; fetchers run a bounded number of queries regardless of the
// sample limit.
const estimatedCallsCap = 10

// AccuracySource supplies the most recent recorded model accuracy.
// Absent (ok=false) when no training run has been registered yet.
type AccuracySource interface {
	LatestAccuracy(model string) (float64, bool)
}

// Manager coordinates the per-cycle fan-out across all configured
// fetchers. Model quality feeds back into fetch volumes: the latest
// recorded accuracy decides how many images each class of source is
// asked for.
type Manager struct {
	fetchers []Fetcher
	accuracy AccuracySource
	model    string
	ledger   *Ledger
	pacing   time.Duration
	log      *zap.Logger
}

func NewManager(fetchers []Fetcher, accuracy AccuracySource, model string, pacing time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		fetchers: fetchers,
		accuracy: accuracy,
		model:    model,
		ledger:   NewLedger(),
		pacing:   pacing,
		log:      log,
	}
}

// Ledger exposes the rate-limit ledger for status reporting.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// SourceNames lists the configured fetchers in order.
func (m *Manager) SourceNames() []string {
	names := make([]string, 0, len(m.fetchers))
	for _, f := range m.fetchers {
		names = append(names, f.Name())
	}
	return names
}

// fetchTargets computes per-class fetch volumes from the latest
// accuracy. Deterministic and monotone in the accuracy input:
//
//   - accuracy absent or below the threshold: balanced regime.
//     AI sources historically yield fewer usable images per call, so
//     they are asked for 2N against N for real sources.
//   - at or above the threshold: skew regime approximating a 60:40
//     real:AI dataset composition; AI gets N, real gets
//     round(0.75N) with half-up rounding.
func fetchTargets(accuracy float64, ok bool, perSource int) (aiLimit, realLimit int) {
	if ok && accuracy >= accuracyThreshold {
		return perSource, int(math.Floor(0.75*float64(perSource) + 0.5))
	}
	return 2 * perSource, perSource
}

// RunCycle runs one fetch cycle: AI-class sources first, then
// real-class, each invoked sequentially with a pacing delay before
// every call. A failing source contributes nothing and never aborts
// the cycle. The returned order is AI sources in configured order,
// then real sources in configured order.
func (m *Manager) RunCycle(ctx context.Context, perSource int) []Result {
	var aiFetchers, realFetchers []Fetcher
	for _, f := range m.fetchers {
		if IsAISource(f.Name()) {
			aiFetchers = append(aiFetchers, f)
		} else {
			realFetchers = append(realFetchers, f)
		}
	}

	accuracy, ok := m.accuracy.LatestAccuracy(m.model)
	aiLimit, realLimit := fetchTargets(accuracy, ok, perSource)

	accStr := "N/A"
	ratioStr := "1:1"
	if ok {
		accStr = fmt.Sprintf("%.3f", accuracy)
	}
	if ok && accuracy >= accuracyThreshold {
		ratioStr = "60:40 (real:AI)"
	}
	m.log.Info("starting fetch cycle",
		zap.String("latest_accuracy", accStr),
		zap.String("target_ratio", ratioStr),
		zap.Int("ai_limit", aiLimit),
		zap.Int("real_limit", realLimit))

	var all []Result
	all = m.fetchClass(ctx, aiFetchers, aiLimit, all)
	all = m.fetchClass(ctx, realFetchers, realLimit, all)

	aiCount, realCount := 0, 0
	for _, r := range all {
		switch r.Sample.Label {
		case models.LabelAIGenerated, models.LabelAI:
			aiCount++
		case models.LabelReal:
			realCount++
		}
	}
	// Guard the ratio against a zero-AI cycle.
	denom := aiCount
	if denom == 0 {
		denom = 1
	}
	m.log.Info("fetch cycle complete",
		zap.Int("total", len(all)),
		zap.Int("sources", len(m.fetchers)),
		zap.Int("real", realCount),
		zap.Int("ai", aiCount),
		zap.String("achieved_ratio", fmt.Sprintf("%.2f:1", float64(realCount)/float64(denom))))

	m.recordCalls(aiFetchers, aiLimit)
	m.recordCalls(realFetchers, realLimit)
	metrics.ScrapeCycles.Inc()

	return all
}

// fetchClass invokes each fetcher in order, pacing before every call.
func (m *Manager) fetchClass(ctx context.Context, fetchers []Fetcher, limit int, acc []Result) []Result {
	for _, f := range fetchers {
		if err := m.pace(ctx); err != nil {
			m.log.Warn("fetch cycle cancelled", zap.Error(err))
			return acc
		}

		samples, err := f.Fetch(ctx, limit)
		if err != nil {
			m.log.Error("source fetch failed", zap.String("source", f.Name()), zap.Error(err))
			continue
		}
		metrics.ImagesFetched.WithLabelValues(f.Name()).Add(float64(len(samples)))
		m.log.Info("fetched images", zap.String("source", f.Name()), zap.Int("count", len(samples)))
		acc = append(acc, samples...)
	}
	return acc
}

// pace waits the inter-source delay, abandoning the wait if the cycle
// is cancelled.
func (m *Manager) pace(ctx context.Context) error {
	if m.pacing <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(m.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Manager) recordCalls(fetchers []Fetcher, limit int) {
	calls := limit
	if calls > estimatedCallsCap {
		calls = estimatedCallsCap
	}
	for _, f := range fetchers {
		m.ledger.Record(f.Name(), calls)
	}
}
