// Package trainer is the training backend boundary. The shipped
// implementation fabricates metrics; a real trainer plugs in behind
// the same interface without touching the registry or orchestrator.
package trainer

import (
	"context"

	"go.uber.org/zap"

	"trainhub/pkg/models"
)

// Backend runs one training pass over the current dataset and
// returns the metrics bag to register.
type Backend interface {
	Train(ctx context.Context, stats models.DatasetStats) (map[string]any, error)
}

// MockBackend fabricates a plausible training run: dataset split,
// fixed headline metrics and a mock evaluation pass.
type MockBackend struct {
	Epochs int
	log    *zap.Logger
}

func NewMockBackend(log *zap.Logger) *MockBackend {
	return &MockBackend{Epochs: 10, log: log}
}

func (b *MockBackend) Train(ctx context.Context, stats models.DatasetStats) (map[string]any, error) {
	trainSize, valSize := SplitDataset(stats.Total, 0.1)
	b.log.Info("running training (mock)",
		zap.Int("dataset_size", stats.Total),
		zap.Int("train_size", trainSize),
		zap.Int("val_size", valSize),
		zap.Int("epochs", b.Epochs))

	metricsBag := map[string]any{
		"dataset_size": stats.Total,
		"train_size":   trainSize,
		"val_size":     valSize,
		"epochs":       b.Epochs,
		"val_acc":      0.89,
		"val_auc":      0.92,
		"val_loss":     0.21,
		"precision":    0.88,
		"recall":       0.90,
		"f1_score":     0.89,
		"notes":        "Automated training run with evaluation",
	}
	for k, v := range Evaluate() {
		metricsBag[k] = v
	}
	return metricsBag, nil
}

// Evaluate fabricates a validation pass. A real implementation would
// load the trained weights and score the held-out split.
func Evaluate() map[string]any {
	return map[string]any{
		"val_accuracy":    0.84,
		"true_positives":  150,
		"false_positives": 35,
		"true_negatives":  180,
		"false_negatives": 30,
	}
}

// SplitDataset splits total into train and validation counts, with
// valFrac of the data (rounded down) held out.
func SplitDataset(total int, valFrac float64) (trainSize, valSize int) {
	valSize = int(float64(total) * valFrac)
	return total - valSize, valSize
}
