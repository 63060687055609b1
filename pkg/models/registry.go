package models

import "encoding/json"

// TrainingEntry is one record in the model registry: a completed
// training run for a named model. Entries are immutable once written.
//
// On disk the metrics bag is flattened into the entry object, so a
// registry file reads as:
//
//	[{"model": "vit", "version": "v1", "timestamp": "...", "val_acc": 0.89, ...}]
type TrainingEntry struct {
	Model     string
	Version   string
	Timestamp string
	Metrics   map[string]any
}

func (e TrainingEntry) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Metrics)+3)
	for k, v := range e.Metrics {
		flat[k] = v
	}
	flat["model"] = e.Model
	flat["version"] = e.Version
	flat["timestamp"] = e.Timestamp
	return json.Marshal(flat)
}

func (e *TrainingEntry) UnmarshalJSON(b []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(b, &flat); err != nil {
		return err
	}
	e.Model, _ = flat["model"].(string)
	e.Version, _ = flat["version"].(string)
	e.Timestamp, _ = flat["timestamp"].(string)
	delete(flat, "model")
	delete(flat, "version")
	delete(flat, "timestamp")
	e.Metrics = flat
	return nil
}

// Accuracy returns the validation accuracy recorded for this run.
// Both metric spellings written over time are accepted.
func (e *TrainingEntry) Accuracy() (float64, bool) {
	for _, key := range []string{"val_acc", "val_accuracy"} {
		if v, ok := e.Metrics[key]; ok {
			if f, ok := v.(float64); ok {
				return f, true
			}
		}
	}
	return 0, false
}
