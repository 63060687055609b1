package models

import "time"

// Label values carried in sample metadata. LabelAI is an accepted
// alternate spelling of LabelAIGenerated; statistics treat them as
// the same class.
const (
	LabelReal        = "real"
	LabelAIGenerated = "ai_generated"
	LabelAI          = "ai"
)

// TimestampLayout is the canonical timestamp format for samples and
// registry entries. Fixed-width fractional seconds in UTC, so string
// comparison orders the same way as time comparison.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Now returns the current UTC time in TimestampLayout.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// Attribution records provenance for an ingested image. Informational
// only: storage and dedup logic never look at it.
type Attribution struct {
	Platform string `json:"platform"`
	Creator  string `json:"creator,omitempty"`
	License  string `json:"license,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Sample is one ingested unit: an image plus the metadata persisted
// next to it. Samples are created by fetchers, validated, checked
// against the dedup store and then frozen; nothing mutates a sample
// after it has been accepted.
type Sample struct {
	ID          string             `json:"id"`
	ImageURL    string             `json:"image_url,omitempty"`
	Source      string             `json:"source"`
	Label       string             `json:"label,omitempty"`
	Confidence  *float64           `json:"confidence,omitempty"`
	Timestamp   string             `json:"timestamp"`
	Hash        string             `json:"hash"` // sha256 of the raw image bytes; dedup key
	Attribution Attribution        `json:"attribution"`
	Detectors   map[string]float64 `json:"detectors,omitempty"`
	APIData     map[string]any     `json:"api_data,omitempty"`
}

// DatasetStats is derived by scanning all persisted metadata; it is
// never stored. Unlabeled = Total - Real - AIGenerated holds by
// construction of the scan.
type DatasetStats struct {
	Total       int `json:"total"`
	Real        int `json:"real"`
	AIGenerated int `json:"ai_generated"`
	Unlabeled   int `json:"unlabeled"`
}
