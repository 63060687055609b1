package dataset

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trainhub/internal/metrics"
	"trainhub/pkg/models"
)

// Manager owns the ingestion path: dedup check, content-addressed
// persistence, and statistics over everything persisted so far.
//
// Layout under the dataset root:
//
//	images/YYYY/MM/DD/{id}.jpg
//	meta/YYYY/MM/DD/{id}.json
//	dedupe.db
type Manager struct {
	backend Backend
	dedupe  *DedupeStore
	baseDir string
	log     *zap.Logger

	now func() time.Time
}

func NewManager(backend Backend, dedupe *DedupeStore, baseDir string, log *zap.Logger) *Manager {
	return &Manager{
		backend: backend,
		dedupe:  dedupe,
		baseDir: baseDir,
		log:     log,
		now:     time.Now,
	}
}

// AddSample persists one sample unless its content hash has been seen
// before. It returns true only when the sample was newly stored.
// Failures are logged and reported as "not added"; they never
// propagate to the caller.
func (m *Manager) AddSample(ctx context.Context, imageBytes []byte, sample models.Sample) bool {
	if sample.Hash == "" {
		m.log.Error("sample metadata missing hash", zap.String("source", sample.Source))
		return false
	}
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	// One clock read for both the timestamp and the date partition,
	// so they cannot disagree across midnight.
	now := m.now().UTC()
	if sample.Timestamp == "" {
		sample.Timestamp = now.Format(models.TimestampLayout)
	}

	// Claiming the hash up front makes check-then-insert atomic:
	// with the hash as primary key, concurrent ingestion of the
	// same image accepts exactly one copy.
	claimed, err := m.dedupe.Claim(ctx, sample.Hash, sample.ID, sample.Timestamp)
	if err != nil {
		m.log.Error("dedup claim failed", zap.Error(err))
		return false
	}
	if !claimed {
		m.log.Debug("duplicate sample detected", zap.String("hash", shortHash(sample.Hash)))
		metrics.DuplicatesSkipped.Inc()
		return false
	}

	dateDir := now.Format("2006/01/02")
	imagePath := filepath.Join("images", dateDir, sample.ID+".jpg")
	metaPath := filepath.Join("meta", dateDir, sample.ID+".json")

	if _, err := m.backend.SaveImage(ctx, imageBytes, imagePath); err != nil {
		m.log.Error("save image failed", zap.String("id", sample.ID), zap.Error(err))
		m.rollback(ctx, sample.Hash)
		return false
	}
	if _, err := m.backend.SaveMetadata(ctx, sample, metaPath); err != nil {
		m.log.Error("save metadata failed", zap.String("id", sample.ID), zap.Error(err))
		m.rollback(ctx, sample.Hash)
		return false
	}

	m.log.Debug("added sample", zap.String("id", sample.ID), zap.String("label", sample.Label))
	metrics.SamplesAdded.Inc()
	return true
}

func (m *Manager) rollback(ctx context.Context, hash string) {
	if err := m.dedupe.Release(ctx, hash); err != nil {
		m.log.Error("dedup rollback failed", zap.Error(err))
	}
}

// Stats recomputes dataset statistics by scanning every persisted
// metadata record. Correctness over performance: there are no cached
// counters to drift. Unreadable records are skipped, not counted.
func (m *Manager) Stats(ctx context.Context) models.DatasetStats {
	var stats models.DatasetStats

	m.scanMetadata(ctx, func(sample models.Sample) bool {
		stats.Total++
		switch sample.Label {
		case models.LabelAIGenerated, models.LabelAI:
			stats.AIGenerated++
		case models.LabelReal:
			stats.Real++
		}
		return true
	})

	stats.Unlabeled = stats.Total - stats.Real - stats.AIGenerated
	return stats
}

// ListSamples returns up to limit persisted metadata records,
// optionally filtered by label.
func (m *Manager) ListSamples(ctx context.Context, label string, limit int) []models.Sample {
	var samples []models.Sample
	m.scanMetadata(ctx, func(sample models.Sample) bool {
		if label != "" && sample.Label != label {
			return true
		}
		samples = append(samples, sample)
		return len(samples) < limit
	})
	return samples
}

// scanMetadata walks meta/ and feeds each readable record to fn until
// fn returns false or ctx is cancelled.
func (m *Manager) scanMetadata(ctx context.Context, fn func(models.Sample) bool) {
	metaDir := filepath.Join(m.baseDir, "meta")
	if _, err := os.Stat(metaDir); os.IsNotExist(err) {
		return
	}

	_ = filepath.WalkDir(metaDir, func(path string, d os.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			m.log.Debug("metadata walk error", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			m.log.Debug("unreadable metadata file", zap.String("path", path), zap.Error(err))
			return nil
		}
		var sample models.Sample
		if err := json.Unmarshal(data, &sample); err != nil {
			m.log.Debug("malformed metadata file", zap.String("path", path), zap.Error(err))
			return nil
		}

		if !fn(sample) {
			return filepath.SkipAll
		}
		return nil
	})
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
