// Package registry keeps the append-only log of training runs in
// {models_path}/registry.json.
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"trainhub/pkg/models"
)

// Registry records training runs. Every mutation rewrites the whole
// registry file (write temp + rename) and all writers go through one
// mutex, so versions cannot collide within the process. There is no
// cross-process locking: single-instance operation is a load-bearing
// assumption here, same as for the dedup store.
type Registry struct {
	path string
	log  *zap.Logger

	mu  sync.Mutex
	now func() time.Time
}

func New(modelsDir string, log *zap.Logger) (*Registry, error) {
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}

	r := &Registry{
		path: filepath.Join(modelsDir, "registry.json"),
		log:  log,
		now:  time.Now,
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		if err := r.write(nil); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends a run for model with the given metrics bag and
// returns the assigned version. Versions count existing entries for
// that model: "v1", "v2", ...
func (r *Registry) Register(model string, metricsBag map[string]any) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.read()

	count := 0
	for _, e := range entries {
		if e.Model == model {
			count++
		}
	}
	version := fmt.Sprintf("v%d", count+1)

	entries = append(entries, models.TrainingEntry{
		Model:     model,
		Version:   version,
		Timestamp: r.now().UTC().Format(models.TimestampLayout),
		Metrics:   metricsBag,
	})
	if err := r.write(entries); err != nil {
		return "", err
	}

	r.log.Info("registered model", zap.String("model", model), zap.String("version", version))
	return version, nil
}

// List returns entries for model, or every entry when model is empty.
func (r *Registry) List(model string) []models.TrainingEntry {
	entries := r.read()
	if model == "" {
		return entries
	}
	var out []models.TrainingEntry
	for _, e := range entries {
		if e.Model == model {
			out = append(out, e)
		}
	}
	return out
}

// Latest returns the entry with the greatest timestamp string for
// model. Registration order does not matter.
func (r *Registry) Latest(model string) (*models.TrainingEntry, bool) {
	var latest *models.TrainingEntry
	for _, e := range r.List(model) {
		e := e
		if latest == nil || e.Timestamp > latest.Timestamp {
			latest = &e
		}
	}
	return latest, latest != nil
}

// LatestAccuracy reads the most recent recorded validation accuracy
// for model. Absent when no run has been registered, or the latest
// run carries no accuracy metric.
func (r *Registry) LatestAccuracy(model string) (float64, bool) {
	latest, ok := r.Latest(model)
	if !ok {
		return 0, false
	}
	return latest.Accuracy()
}

// ModelInfo describes the latest run of a model for downstream
// services that poll for new weights.
type ModelInfo struct {
	ModelName    string         `json:"model_name"`
	ModelVersion string         `json:"model_version"`
	Timestamp    string         `json:"timestamp"`
	Metrics      map[string]any `json:"metrics"`
	DownloadURL  string         `json:"download_url"`
}

// LatestInfo builds the sync payload for the latest run of model.
func (r *Registry) LatestInfo(model string) (*ModelInfo, bool) {
	latest, ok := r.Latest(model)
	if !ok {
		return nil, false
	}
	return &ModelInfo{
		ModelName:    latest.Model,
		ModelVersion: latest.Version,
		Timestamp:    latest.Timestamp,
		Metrics:      latest.Metrics,
		DownloadURL:  fmt.Sprintf("models/%s/%s/weights.pt", latest.Model, latest.Version),
	}, true
}

// read loads the registry. A missing or corrupt file reads as empty,
// never as an error: a broken registry must not take down ingestion.
func (r *Registry) read() []models.TrainingEntry {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.log.Warn("registry unreadable, treating as empty", zap.Error(err))
		}
		return nil
	}

	var entries []models.TrainingEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		r.log.Warn("registry corrupt, treating as empty", zap.Error(err))
		return nil
	}
	return entries
}

func (r *Registry) write(entries []models.TrainingEntry) error {
	if entries == nil {
		entries = []models.TrainingEntry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace registry: %w", err)
	}
	return nil
}
