package models

import (
	"encoding/json"
	"testing"
)

func TestTrainingEntryFlattensMetrics(t *testing.T) {
	entry := TrainingEntry{
		Model:     "vit",
		Version:   "v1",
		Timestamp: "2026-08-23T10:00:00.000000Z",
		Metrics:   map[string]any{"val_acc": 0.89, "epochs": 10},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Metrics land at the top level of the object, not nested.
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	if flat["model"] != "vit" || flat["version"] != "v1" {
		t.Errorf("identity fields = %v", flat)
	}
	if flat["val_acc"] != 0.89 {
		t.Errorf("val_acc = %v, want at top level", flat["val_acc"])
	}
	if _, nested := flat["Metrics"]; nested {
		t.Error("metrics bag serialized as a nested field")
	}

	var back TrainingEntry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if back.Model != "vit" || back.Version != "v1" || back.Timestamp != entry.Timestamp {
		t.Errorf("round trip identity = %+v", back)
	}
	if back.Metrics["val_acc"] != 0.89 {
		t.Errorf("round trip metrics = %v", back.Metrics)
	}
	if _, leaked := back.Metrics["model"]; leaked {
		t.Error("identity field leaked into metrics bag")
	}
}

func TestAccuracyKeyPrecedence(t *testing.T) {
	e := TrainingEntry{Metrics: map[string]any{"val_acc": 0.9, "val_accuracy": 0.5}}
	if acc, ok := e.Accuracy(); !ok || acc != 0.9 {
		t.Errorf("accuracy = (%v, %v), want val_acc to win", acc, ok)
	}

	e = TrainingEntry{Metrics: map[string]any{"val_accuracy": 0.5}}
	if acc, ok := e.Accuracy(); !ok || acc != 0.5 {
		t.Errorf("accuracy = (%v, %v), want fallback key", acc, ok)
	}

	e = TrainingEntry{Metrics: map[string]any{"val_acc": "bad"}}
	if _, ok := e.Accuracy(); ok {
		t.Error("non-numeric accuracy reported ok")
	}

	e = TrainingEntry{}
	if _, ok := e.Accuracy(); ok {
		t.Error("empty entry reported accuracy")
	}
}
