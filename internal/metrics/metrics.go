// Package metrics defines the Prometheus collectors updated by the analysis
// pipeline. Collectors live in the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Analysis outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	analysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafscan_analyses_total",
			Help: "Total number of image analyses",
		},
		[]string{"outcome"}, // outcome: success, rejected, error
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leafscan_stage_duration_seconds",
			Help:    "Duration of each analysis stage in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	preprocessDegradations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafscan_preprocess_degradations_total",
			Help: "Total number of preprocessing runs that fell back past the primary path",
		},
		[]string{"stage"},
	)

	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leafscan_predictions_total",
			Help: "Total number of top predictions per disease label",
		},
		[]string{"disease"},
	)

	liveTensors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leafscan_live_tensors",
			Help: "Number of tensors allocated and not yet released",
		},
	)

	modelInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "leafscan_model_info",
			Help: "Set to 1 for the model kind currently serving predictions",
		},
		[]string{"kind", "version"},
	)

	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leafscan_batch_size",
			Help:    "Number of images per batch analysis",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		},
	)
)

// RecordAnalysis counts one finished analysis.
func RecordAnalysis(outcome string) {
	analysesTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the duration of one pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordDegradation counts a preprocessing fallback.
func RecordDegradation(stage string) {
	preprocessDegradations.WithLabelValues(stage).Inc()
}

// RecordPrediction counts the top predicted label.
func RecordPrediction(disease string) {
	predictionsTotal.WithLabelValues(disease).Inc()
}

// SetLiveTensors publishes the outstanding tensor count.
func SetLiveTensors(n int64) {
	liveTensors.Set(float64(n))
}

// SetModel marks the serving model.
func SetModel(kind, version string) {
	modelInfo.Reset()
	modelInfo.WithLabelValues(kind, version).Set(1)
}

// ObserveBatch records a batch size.
func ObserveBatch(n int) {
	batchSize.Observe(float64(n))
}

// WriteTextfile dumps the default registry in the Prometheus text format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
