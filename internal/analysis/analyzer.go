// Package analysis runs the full diagnosis: feature extraction, quality
// gating, preprocessing, prediction, calibration, reliability scoring and
// guidance lookup.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/leafscan/internal/common"
	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/imageproc"
	"github.com/MeKo-Tech/leafscan/internal/metrics"
	"github.com/MeKo-Tech/leafscan/internal/postprocess"
	"github.com/MeKo-Tech/leafscan/internal/preprocess"
	"github.com/MeKo-Tech/leafscan/internal/reliability"
	"github.com/MeKo-Tech/leafscan/internal/tensor"
)

// Stage names used in Result.Timing and metrics.
const (
	StageFeatures    = "features"
	StagePreprocess  = "preprocess"
	StagePredict     = "predict"
	StagePostprocess = "postprocess"
	StageThumbnail   = "thumbnail"
)

// Analyzer runs analyses against a ModelContext. The zero value is ready to
// use.
type Analyzer struct {
	now   func() time.Time
	newID func() string
}

// NewAnalyzer returns an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) timestamp() string {
	now := time.Now
	if a != nil && a.now != nil {
		now = a.now
	}
	return now().UTC().Format(time.RFC3339)
}

func (a *Analyzer) id() string {
	if a != nil && a.newID != nil {
		return a.newID()
	}
	return uuid.NewString()
}

// Analyze diagnoses one image. Unusable images yield a Result with Success
// false; model failures are returned as errors.
func (a *Analyzer) Analyze(ctx context.Context, mc *ModelContext, in imageproc.Input) (*Result, error) {
	if !mc.Initialized() {
		metrics.RecordAnalysis(metrics.OutcomeError)
		return nil, &NotInitializedError{}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := a.analyze(mc, in)
	metrics.SetLiveTensors(tensor.Live())
	switch {
	case err != nil:
		metrics.RecordAnalysis(metrics.OutcomeError)
	case !res.Success:
		metrics.RecordAnalysis(metrics.OutcomeRejected)
	default:
		metrics.RecordAnalysis(metrics.OutcomeSuccess)
		metrics.RecordPrediction(string(res.Analysis.DiseaseDetected))
	}
	return res, err
}

func (a *Analyzer) analyze(mc *ModelContext, in imageproc.Input) (*Result, error) {
	cfg := mc.cfg
	stages := common.NewStages()
	defer stages.Each(func(name string, d time.Duration) { metrics.ObserveStage(name, d) })

	res := &Result{
		ID:          a.id(),
		Source:      in.Source(),
		Timestamp:   a.timestamp(),
		Warnings:    []string{},
		Disclaimers: []string{},
	}

	stop := stages.Track(StageFeatures)
	feats := preprocess.ExtractFeatures(in)
	stop()
	res.ImageInfo = imageInfo(feats)

	if !feats.Quality.Acceptable(cfg.MinQuality) {
		slog.Info("Image rejected for quality", "source", in.Source(),
			"score", feats.Quality.Score, "issues", feats.Quality.Issues)
		report := feats.Quality
		res.Error = MsgQualityTooPoor
		res.Quality = &report
		res.Suggestions = slices.Clone(feats.Quality.Recommendations)
		res.Timing = stages.Millis()
		return res, nil
	}

	stop = stages.Track(StagePreprocess)
	out, err := mc.pre.Preprocess(in)
	stop()
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer out.Tensor.Release()
	res.ImageInfo.PreprocessStage = out.Stage

	provider := mc.provider
	stop = stages.Track(StagePredict)
	scores, err := provider.Predict(out.Tensor)
	stop()
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	highCapacity := provider.IsHighCapacity()
	stop = stages.Track(StagePostprocess)
	preds, err := mc.calibrator.Process(scores, mc.calibrator.ForHighCapacity(highCapacity))
	stop()
	if err != nil {
		return nil, fmt.Errorf("postprocess: %w", err)
	}
	top := preds[0]

	rel := reliability.Score(top.Confidence, feats.Quality.Score, highCapacity)
	recs := mc.Catalog().Recommend(top.Disease, top.Severity, top.Confidence)

	if cfg.Thumbnail && feats.Image != nil {
		stop = stages.Track(StageThumbnail)
		thumb, err := imageproc.Thumbnail(feats.Image, cfg.ThumbnailSize)
		stop()
		if err != nil {
			slog.Debug("Thumbnail failed", "source", in.Source(), "error", err)
		} else {
			res.ImageInfo.Thumbnail = thumb
		}
	}

	res.Success = true
	res.Analysis = &Diagnosis{
		DiseaseDetected: top.Disease,
		Confidence:      round2(top.Confidence),
		Severity:        top.Severity,
		IsHealthy:       top.Disease == disease.Healthy,
		AllPredictions:  postprocess.Top(preds, cfg.TopN),
		ModelVersion:    provider.Version(),
		ModelKind:       provider.Kind(),
		Reliability:     rel,
	}
	res.Recommendations = &recs

	if top.Confidence < lowConfidence {
		res.Warnings = append(res.Warnings, WarnLowConfidence)
	}
	if !highCapacity {
		res.Warnings = append(res.Warnings, WarnDevModel)
		res.Disclaimers = append(res.Disclaimers, DisclaimerDemoModel)
	}
	if feats.IsCorrupted || out.Stage.Synthetic() {
		res.Warnings = append(res.Warnings, WarnSubstituteInput)
	}
	if rel.Level.Weak() {
		res.Warnings = append(res.Warnings, WarnLowReliability)
	}
	res.Disclaimers = append(res.Disclaimers, fixedDisclaimers...)
	res.Timing = stages.Millis()

	slog.Debug("Analysis complete", "source", in.Source(), "disease", top.Disease,
		"confidence", top.Confidence, "reliability", rel.Score, "stage", out.Stage)
	return res, nil
}

func imageInfo(f preprocess.Features) ImageInfo {
	m := f.Metadata
	return ImageInfo{
		Dimensions:    fmt.Sprintf("%dx%d", m.Width, m.Height),
		Width:         m.Width,
		Height:        m.Height,
		Format:        m.Format,
		SizeBytes:     m.SizeBytes,
		Quality:       round2(f.Quality.Score),
		QualityIssues: f.Quality.Issues,
		Corrupted:     f.IsCorrupted,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
