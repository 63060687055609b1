package trainer

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"trainhub/pkg/models"
)

func TestSplitDataset(t *testing.T) {
	cases := []struct {
		total     int
		valFrac   float64
		wantTrain int
		wantVal   int
	}{
		{100, 0.1, 90, 10},
		{55, 0.1, 50, 5},
		{7, 0.1, 7, 0},
		{0, 0.1, 0, 0},
		{10, 0.5, 5, 5},
	}
	for _, tc := range cases {
		train, val := SplitDataset(tc.total, tc.valFrac)
		if train != tc.wantTrain || val != tc.wantVal {
			t.Errorf("SplitDataset(%d, %v) = (%d, %d), want (%d, %d)",
				tc.total, tc.valFrac, train, val, tc.wantTrain, tc.wantVal)
		}
		if train+val != tc.total {
			t.Errorf("split of %d does not sum: %d + %d", tc.total, train, val)
		}
	}
}

func TestMockBackendTrain(t *testing.T) {
	b := NewMockBackend(zap.NewNop())

	stats := models.DatasetStats{Total: 200, Real: 120, AIGenerated: 80}
	bag, err := b.Train(context.Background(), stats)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	if got := bag["dataset_size"]; got != 200 {
		t.Errorf("dataset_size = %v, want 200", got)
	}
	if got := bag["train_size"]; got != 180 {
		t.Errorf("train_size = %v, want 180", got)
	}
	if got := bag["val_size"]; got != 20 {
		t.Errorf("val_size = %v, want 20", got)
	}
	if got := bag["epochs"]; got != 10 {
		t.Errorf("epochs = %v, want 10", got)
	}

	// Headline accuracy plus the evaluation pass must both land in
	// the bag; the registry reads val_acc first.
	for _, key := range []string{"val_acc", "val_auc", "val_loss", "val_accuracy", "true_positives"} {
		if _, ok := bag[key]; !ok {
			t.Errorf("metrics bag missing %q", key)
		}
	}
}
