package analysis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/model"
	"github.com/MeKo-Tech/leafscan/internal/preprocess"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
	"github.com/MeKo-Tech/leafscan/internal/testutil"
)

var sharedContext = sync.OnceValues(func() (*ModelContext, error) {
	return Initialize(context.Background(), TestConfig())
})

func testContext(t *testing.T) *ModelContext {
	t.Helper()
	mc, err := sharedContext()
	require.NoError(t, err)
	return mc
}

func greenInput(t *testing.T) imageproc.Input {
	t.Helper()
	return imageproc.FromBytes(testutil.EncodePNG(t, testutil.UniformImage(224, 224, testutil.MidGreen)), "green.png")
}

func TestAnalyze_NotInitialized(t *testing.T) {
	a := NewAnalyzer()
	var nie *NotInitializedError

	_, err := a.Analyze(context.Background(), nil, greenInput(t))
	require.ErrorAs(t, err, &nie)

	mc := NewModelContext(TestConfig())
	_, err = a.Analyze(context.Background(), mc, greenInput(t))
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, "model context not initialized", err.Error())
}

func TestAnalyze_UniformGreenLeaf(t *testing.T) {
	mc := testContext(t)
	res, err := NewAnalyzer().Analyze(context.Background(), mc, greenInput(t))
	require.NoError(t, err)

	require.True(t, res.Success)
	require.NotNil(t, res.Analysis)
	assert.True(t, res.Analysis.DiseaseDetected.Valid())
	assert.GreaterOrEqual(t, res.Analysis.Confidence, 0.0)
	assert.LessOrEqual(t, res.Analysis.Confidence, 1.0)
	assert.LessOrEqual(t, len(res.Analysis.AllPredictions), 3)
	assert.Equal(t, res.Analysis.DiseaseDetected, res.Analysis.AllPredictions[0].Disease)
	assert.Equal(t, res.Analysis.DiseaseDetected == disease.Healthy, res.Analysis.IsHealthy)
	assert.Equal(t, model.KindFallbackTrained, res.Analysis.ModelKind)
	assert.NotEmpty(t, res.Analysis.ModelVersion)

	assert.GreaterOrEqual(t, len(res.Disclaimers), 3)
	assert.Contains(t, res.Disclaimers, DisclaimerDemoModel)
	assert.Contains(t, res.Warnings, WarnDevModel)
	assert.NotContains(t, res.Warnings, WarnSubstituteInput)

	require.NotNil(t, res.Recommendations)
	assert.NotEmpty(t, res.Recommendations.Treatments)
	assert.NotEmpty(t, res.Recommendations.Prevention)

	assert.Equal(t, "224x224", res.ImageInfo.Dimensions)
	assert.Equal(t, "png", res.ImageInfo.Format)
	assert.Equal(t, preprocess.StagePrimary, res.ImageInfo.PreprocessStage)
	assert.NotEmpty(t, res.ImageInfo.Thumbnail)

	_, err = uuid.Parse(res.ID)
	require.NoError(t, err)
	_, err = time.Parse(time.RFC3339, res.Timestamp)
	require.NoError(t, err)
	assert.Contains(t, res.Timing, "total")
	assert.Contains(t, res.Timing, StagePredict)
}

func TestAnalyze_FourByteBufferRejected(t *testing.T) {
	mc := testContext(t)
	res, err := NewAnalyzer().Analyze(context.Background(), mc, imageproc.FromBytes([]byte{1, 2, 3, 4}, "tiny"))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, MsgQualityTooPoor, res.Error)
	require.NotNil(t, res.Quality)
	assert.Contains(t, res.Quality.Issues, "Corrupted or invalid image file")
	assert.Contains(t, res.Suggestions, "Please upload a valid image file")
	assert.Nil(t, res.Analysis)
	assert.True(t, res.ImageInfo.Corrupted)
}

func TestAnalyze_SubstituteInputWarning(t *testing.T) {
	mc := testContext(t)
	data := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

	res, err := NewAnalyzer().Analyze(context.Background(), mc, imageproc.FromBytes(data, "broken.png"))
	require.NoError(t, err)

	require.True(t, res.Success)
	assert.Contains(t, res.Warnings, WarnSubstituteInput)
	assert.True(t, res.ImageInfo.PreprocessStage.Synthetic())
	assert.Empty(t, res.ImageInfo.Thumbnail)
}

func TestAnalyze_Deterministic(t *testing.T) {
	mc := testContext(t)
	a := NewAnalyzer()
	in := imageproc.FromBytes(testutil.EncodePNG(t, testutil.LeafImage(320, 240)), "leaf.png")

	first, err := a.Analyze(context.Background(), mc, in)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), mc, in)
	require.NoError(t, err)

	require.True(t, first.Success)
	assert.Equal(t, first.Analysis.DiseaseDetected, second.Analysis.DiseaseDetected)
	assert.InDelta(t, first.Analysis.Confidence, second.Analysis.Confidence, 0.01)
	for i := range first.Analysis.AllPredictions {
		assert.InDelta(t, first.Analysis.AllPredictions[i].Confidence, second.Analysis.AllPredictions[i].Confidence, 0.01)
	}
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAnalyze_NoTensorLeak(t *testing.T) {
	mc := testContext(t)
	a := NewAnalyzer()
	inputs := []imageproc.Input{
		greenInput(t),
		imageproc.FromBytes([]byte{1, 2, 3, 4}, "tiny"),
		imageproc.FromBytes(append([]byte("GIF89a"), make([]byte, 40)...), "bad.gif"),
	}

	base := tensor.Live()
	for range 3 {
		for _, in := range inputs {
			_, err := a.Analyze(context.Background(), mc, in)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, base, tensor.Live())
}

func TestAnalyze_ConcurrentUse(t *testing.T) {
	mc := testContext(t)
	a := NewAnalyzer()
	in := greenInput(t)

	var wg sync.WaitGroup
	labels := make([]disease.Label, 6)
	for i := range labels {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := a.Analyze(context.Background(), mc, in)
			if assert.NoError(t, err) && assert.True(t, res.Success) {
				labels[i] = res.Analysis.DiseaseDetected
			}
		}(i)
	}
	wg.Wait()
	for _, l := range labels[1:] {
		assert.Equal(t, labels[0], l)
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	mc := testContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAnalyzer().Analyze(ctx, mc, greenInput(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_FixedClockAndID(t *testing.T) {
	mc := testContext(t)
	a := &Analyzer{
		now:   func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("x", 3600)) },
		newID: func() string { return "fixed" },
	}
	res, err := a.Analyze(context.Background(), mc, greenInput(t))
	require.NoError(t, err)
	assert.Equal(t, "fixed", res.ID)
	assert.Equal(t, "2026-03-01T11:00:00Z", res.Timestamp)
}

func TestInitialize_InvalidCatalog(t *testing.T) {
	cfg := TestConfig()
	cfg.CatalogPath = "/nonexistent/catalog.yaml"
	_, err := Initialize(context.Background(), cfg)
	assert.Error(t, err)

	cfg = TestConfig()
	cfg.TopN = 0
	_, err = Initialize(context.Background(), cfg)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.MinQuality = 1.5
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.TopN = 12
	assert.Error(t, c.Validate())

	c = DefaultConfig()
	c.ThumbnailSize = 0
	assert.Error(t, c.Validate())
	c.Thumbnail = false
	assert.NoError(t, c.Validate())

	c = DefaultConfig()
	c.Postprocess.TemperatureFallback = 0
	assert.Error(t, c.Validate())
}
