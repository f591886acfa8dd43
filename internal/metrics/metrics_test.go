package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()

	var out dto.Metric
	require.NoError(t, m.Write(&out))
	switch {
	case out.Counter != nil:
		return out.Counter.GetValue()
	case out.Gauge != nil:
		return out.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestCounters(t *testing.T) {
	before := value(t, analysesTotal.WithLabelValues(OutcomeRejected))
	RecordAnalysis(OutcomeRejected)
	assert.InDelta(t, before+1, value(t, analysesTotal.WithLabelValues(OutcomeRejected)), 1e-9)

	before = value(t, preprocessDegradations.WithLabelValues("gradient"))
	RecordDegradation("gradient")
	assert.InDelta(t, before+1, value(t, preprocessDegradations.WithLabelValues("gradient")), 1e-9)

	before = value(t, predictionsTotal.WithLabelValues("Rust"))
	RecordPrediction("Rust")
	assert.InDelta(t, before+1, value(t, predictionsTotal.WithLabelValues("Rust")), 1e-9)
}

func TestGauges(t *testing.T) {
	SetLiveTensors(3)
	assert.InDelta(t, 3, value(t, liveTensors), 1e-9)

	SetModel("fallback_trained", "fallback-cnn-1.0.0")
	SetModel("pretrained", "onnx-1")
	assert.InDelta(t, 1, value(t, modelInfo.WithLabelValues("pretrained", "onnx-1")), 1e-9)
	assert.InDelta(t, 0, value(t, modelInfo.WithLabelValues("fallback_trained", "fallback-cnn-1.0.0")), 1e-9)
}

func TestWriteTextfile(t *testing.T) {
	ObserveStage("predict", 20*time.Millisecond)
	ObserveBatch(4)

	path := filepath.Join(t.TempDir(), "leafscan.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "leafscan_stage_duration_seconds")
	assert.Contains(t, string(data), "leafscan_batch_size")
}
