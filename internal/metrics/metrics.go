// Package metrics holds the service's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trainhub_images_fetched_total",
		Help: "Images returned by each source, before dedup.",
	}, []string{"source"})

	SamplesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trainhub_samples_added_total",
		Help: "Samples accepted into the dataset.",
	})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trainhub_duplicates_skipped_total",
		Help: "Samples rejected because their content hash was already ingested.",
	})

	ScrapeCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trainhub_scrape_cycles_total",
		Help: "Completed fetch cycles.",
	})

	TrainingRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trainhub_training_runs_total",
		Help: "Completed training runs registered in the model registry.",
	})
)
