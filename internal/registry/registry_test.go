package registry

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, dir
}

func TestRegisterAssignsSequentialVersions(t *testing.T) {
	r, _ := newTestRegistry(t)

	v, err := r.Register("vit", map[string]any{"val_acc": 0.8})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if v != "v1" {
		t.Errorf("first version = %q, want v1", v)
	}

	v, err = r.Register("vit", map[string]any{"val_acc": 0.85})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if v != "v2" {
		t.Errorf("second version = %q, want v2", v)
	}

	// Versions count per model, not globally.
	v, err = r.Register("resnet", map[string]any{"val_acc": 0.7})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if v != "v1" {
		t.Errorf("other model version = %q, want v1", v)
	}

	if got := len(r.List("")); got != 3 {
		t.Errorf("total entries = %d, want 3", got)
	}
	if got := len(r.List("vit")); got != 2 {
		t.Errorf("vit entries = %d, want 2", got)
	}
}

func TestLatestByTimestampNotOrder(t *testing.T) {
	r, _ := newTestRegistry(t)

	stamp := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	// Register entries with descending timestamps: the first written
	// entry carries the greatest stamp.
	r.now = func() time.Time {
		s := stamp
		stamp = stamp.Add(-time.Hour)
		return s
	}

	if _, err := r.Register("vit", map[string]any{"val_acc": 0.9}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.Register("vit", map[string]any{"val_acc": 0.6}); err != nil {
		t.Fatalf("register: %v", err)
	}

	latest, ok := r.Latest("vit")
	if !ok {
		t.Fatal("no latest entry")
	}
	if latest.Version != "v1" {
		t.Errorf("latest version = %q, want v1 (greatest timestamp)", latest.Version)
	}

	acc, ok := r.LatestAccuracy("vit")
	if !ok {
		t.Fatal("no latest accuracy")
	}
	if acc != 0.9 {
		t.Errorf("latest accuracy = %v, want 0.9", acc)
	}
}

func TestLatestAccuracyAbsentCases(t *testing.T) {
	r, _ := newTestRegistry(t)

	if _, ok := r.LatestAccuracy("vit"); ok {
		t.Error("accuracy reported for empty registry")
	}

	if _, err := r.Register("vit", map[string]any{"notes": "no accuracy recorded"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, ok := r.LatestAccuracy("vit"); ok {
		t.Error("accuracy reported for run without accuracy metric")
	}
}

func TestLatestAccuracyFallbackKey(t *testing.T) {
	r, _ := newTestRegistry(t)

	if _, err := r.Register("vit", map[string]any{"val_accuracy": 0.77}); err != nil {
		t.Fatalf("register: %v", err)
	}
	acc, ok := r.LatestAccuracy("vit")
	if !ok || acc != 0.77 {
		t.Errorf("accuracy = (%v, %v), want (0.77, true)", acc, ok)
	}
}

func TestCorruptRegistryReadsAsEmpty(t *testing.T) {
	r, dir := newTestRegistry(t)

	path := filepath.Join(dir, "registry.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("corrupt registry: %v", err)
	}

	if got := len(r.List("")); got != 0 {
		t.Errorf("corrupt registry listed %d entries, want 0", got)
	}

	// First registration after corruption starts over at v1.
	v, err := r.Register("vit", map[string]any{"val_acc": 0.5})
	if err != nil {
		t.Fatalf("register after corruption: %v", err)
	}
	if v != "v1" {
		t.Errorf("version after corruption = %q, want v1", v)
	}
}

func TestRegistryPersistsAcrossInstances(t *testing.T) {
	r, dir := newTestRegistry(t)

	if _, err := r.Register("vit", map[string]any{"val_acc": 0.81}); err != nil {
		t.Fatalf("register: %v", err)
	}

	r2, err := New(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	v, err := r2.Register("vit", map[string]any{"val_acc": 0.82})
	if err != nil {
		t.Fatalf("register on reopened registry: %v", err)
	}
	if v != "v2" {
		t.Errorf("version after reopen = %q, want v2", v)
	}
}

func TestLatestInfo(t *testing.T) {
	r, _ := newTestRegistry(t)

	if _, ok := r.LatestInfo("vit"); ok {
		t.Error("info reported for empty registry")
	}

	if _, err := r.Register("vit", map[string]any{"val_acc": 0.9}); err != nil {
		t.Fatalf("register: %v", err)
	}

	info, ok := r.LatestInfo("vit")
	if !ok {
		t.Fatal("no info for registered model")
	}
	if info.ModelName != "vit" || info.ModelVersion != "v1" {
		t.Errorf("info = %+v", info)
	}
	if info.DownloadURL != "models/vit/v1/weights.pt" {
		t.Errorf("download url = %q", info.DownloadURL)
	}
}

func TestRegisterConcurrent(t *testing.T) {
	r, _ := newTestRegistry(t)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Register("vit", map[string]any{"val_acc": 0.8}); err != nil {
				t.Errorf("register: %v", err)
			}
		}()
	}
	wg.Wait()

	entries := r.List("vit")
	if len(entries) != n {
		t.Fatalf("got %d entries, want %d", len(entries), n)
	}
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.Version] {
			t.Errorf("duplicate version %q", e.Version)
		}
		seen[e.Version] = true
	}
}
