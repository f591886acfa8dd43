package analysis

import (
	"github.com/MeKo-Tech/leafscan/internal/disease"
	"github.com/MeKo-Tech/leafscan/internal/knowledge"
	"github.com/MeKo-Tech/leafscan/internal/model"
	"github.com/MeKo-Tech/leafscan/internal/postprocess"
	"github.com/MeKo-Tech/leafscan/internal/preprocess"
	"github.com/MeKo-Tech/leafscan/internal/quality"
	"github.com/MeKo-Tech/leafscan/internal/reliability"
)

// Messages attached to results.
const (
	MsgQualityTooPoor   = "Image quality too poor for reliable analysis"
	WarnLowConfidence   = "Low confidence prediction - results may be unreliable"
	WarnDevModel        = "Using development model - not suitable for production use"
	WarnSubstituteInput = "Image could not be fully decoded - analysis used a substitute input"
	WarnLowReliability  = "Low reliability score - verify results independently"
	DisclaimerDemoModel = "Current model is for demonstration purposes only"
)

var fixedDisclaimers = []string{
	"This is an AI-powered analysis tool for reference only",
	"Results should not replace professional plant care advice",
	"Consult with agricultural experts for serious plant health issues",
}

const lowConfidence = 0.6

// Result is the outcome of one analysis.
type Result struct {
	ID        string `json:"id"`
	Source    string `json:"source,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`

	Analysis        *Diagnosis                 `json:"analysis,omitempty"`
	Recommendations *knowledge.Recommendations `json:"recommendations,omitempty"`
	ImageInfo       ImageInfo                  `json:"imageInfo"`

	// Set on quality rejections.
	Quality     *quality.Report `json:"quality,omitempty"`
	Suggestions []string        `json:"suggestions,omitempty"`

	Warnings    []string           `json:"warnings"`
	Disclaimers []string           `json:"disclaimers"`
	Timing      map[string]float64 `json:"timing"`
}

// Diagnosis is the calibrated model verdict.
type Diagnosis struct {
	DiseaseDetected disease.Label            `json:"diseaseDetected"`
	Confidence      float64                  `json:"confidence"`
	Severity        disease.Severity         `json:"severity"`
	IsHealthy       bool                     `json:"isHealthy"`
	AllPredictions  []postprocess.Prediction `json:"allPredictions"`
	ModelVersion    string                   `json:"modelVersion"`
	ModelKind       model.Kind               `json:"modelKind"`
	Reliability     reliability.Assessment   `json:"reliability"`
}

// ImageInfo describes the analyzed input.
type ImageInfo struct {
	Dimensions      string           `json:"dimensions"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	Format          string           `json:"format"`
	SizeBytes       int64            `json:"sizeBytes"`
	Quality         float64          `json:"quality"`
	QualityIssues   []string         `json:"qualityIssues,omitempty"`
	Corrupted       bool             `json:"corrupted,omitempty"`
	PreprocessStage preprocess.Stage `json:"preprocessStage,omitempty"`
	Thumbnail       string           `json:"thumbnail,omitempty"`
}
