package analysis

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/leafscan/internal/model"
	"github.com/MeKo-Tech/leafscan/internal/models"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
	"github.com/MeKo-Tech/leafscan/internal/testutil"
)

func TestHealthCheck_FallbackModelIsDegraded(t *testing.T) {
	mc := testContext(t)
	base := tensor.Live()

	h := NewAnalyzer().HealthCheck(context.Background(), mc)
	assert.Equal(t, StatusDegraded, h.Status)
	assert.Equal(t, model.KindFallbackTrained, h.ModelKind)
	assert.Equal(t, "serving a fallback model", h.Message)
	assert.Equal(t, base, h.LiveTensors)
	assert.NotEmpty(t, h.CheckedAt)
	assert.Positive(t, h.Memory.Goroutines)
}

func TestHealthCheck_NotInitialized(t *testing.T) {
	h := NewAnalyzer().HealthCheck(context.Background(), NewModelContext(TestConfig()))
	assert.Equal(t, StatusNotInitialized, h.Status)

	h = NewAnalyzer().HealthCheck(context.Background(), nil)
	assert.Equal(t, StatusNotInitialized, h.Status)
}

func TestHealthCheck_Canceled(t *testing.T) {
	mc := testContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h := NewAnalyzer().HealthCheck(ctx, mc)
	assert.Equal(t, StatusError, h.Status)
}

func TestModelInfo(t *testing.T) {
	info := ModelInfo(nil)
	assert.False(t, info.Initialized)
	assert.Len(t, info.SupportedClasses, 11)
	assert.Equal(t, []int{224, 224, 3}, info.InputShape)
	assert.Empty(t, info.Artifacts)

	info = ModelInfo(testContext(t))
	assert.True(t, info.Initialized)
	assert.Equal(t, model.KindFallbackTrained, info.Kind)
	assert.False(t, info.HighCapacity)
	assert.Equal(t, 13, info.Layers)
	assert.Equal(t, "embedded", info.Catalog)
	assert.NotContains(t, info.Capabilities, "production_ready")
	require.Len(t, info.Resolution, 2)
	assert.Equal(t, "skipped", info.Resolution[0].Status)
	assert.Equal(t, "selected", info.Resolution[1].Status)
}

func TestModelInfo_Artifacts(t *testing.T) {
	dir := testutil.CreateTempDir(t)
	testutil.WriteFile(t, dir, models.ClassifierModel, []byte("onnx"))

	cfg := TestConfig()
	cfg.Model.ModelsDir = dir
	info := ModelInfo(NewModelContext(cfg))
	assert.False(t, info.Initialized)

	require.Len(t, info.Artifacts, 2)
	assert.Equal(t, models.ClassifierModel, info.Artifacts[0].Filename)
	assert.True(t, info.Artifacts[0].Present)
	assert.Equal(t, filepath.Join(dir, models.ClassifierModel), info.Artifacts[0].Path)
	assert.False(t, info.Artifacts[1].Present)
}
